package tui

import (
	"github.com/nocturne9/favgrid/internal/domain"
	"github.com/nocturne9/favgrid/internal/service"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// PostsLoadedMsg signals that a listing page has been loaded
type PostsLoadedMsg struct {
	Posts []domain.Post
	Tags  string
	Page  int
}

// PostLoadedMsg signals that a single post's record has been loaded
type PostLoadedMsg struct {
	Post *domain.Post
}

// VoteAppliedMsg signals a resolved vote action
type VoteAppliedMsg struct {
	Outcome *service.VoteOutcome
	Dir     int // requested direction
}

// FaveAppliedMsg signals a resolved favourite action
type FaveAppliedMsg struct {
	Outcome *service.FaveOutcome
}

// DownloadDoneMsg signals a completed source-file download
type DownloadDoneMsg struct {
	Result *service.DownloadResult
}

// SyncProgressMsg carries progress from a running cache sync
type SyncProgressMsg struct {
	Progress domain.SyncProgress
}

// SyncDoneMsg signals a completed cache sync
type SyncDoneMsg struct {
	Result domain.SyncResult
}

// CachePurgedMsg signals the cache was cleared
type CachePurgedMsg struct{}

// CacheReloadedMsg signals the cache was reloaded from the store
type CacheReloadedMsg struct{}

// ExportDoneMsg signals a completed cache export. URI carries the same
// mapping as a base64 JSON data URI.
type ExportDoneMsg struct {
	Path string
	URI  string
}

// ImportDoneMsg signals a completed cache import
type ImportDoneMsg struct {
	Path    string
	Entries int
}
