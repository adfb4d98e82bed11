package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nocturne9/favgrid/internal/domain"
	"github.com/nocturne9/favgrid/internal/service"
)

// Command factories for async operations

const (
	listTimeout   = 30 * time.Second
	actionTimeout = 30 * time.Second
	syncTimeout   = 10 * time.Minute
)

// LoadPostsCmd loads one page of the listing for a tag query.
func LoadPostsCmd(svc *service.PostService, tags string, limit, page int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()

		posts, err := svc.List(ctx, strings.Fields(tags), limit, page)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading posts"}
		}
		return PostsLoadedMsg{Posts: posts, Tags: tags, Page: page}
	}
}

// LoadPostCmd loads a single post's canonical record.
func LoadPostCmd(svc *service.PostService, id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()

		post, err := svc.Show(ctx, id)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading post"}
		}
		return PostLoadedMsg{Post: post}
	}
}

// VoteCmd casts a vote. current is the vote the view shows now.
func VoteCmd(svc *service.PostService, id, current, dir int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		var out *service.VoteOutcome
		var err error
		if dir > 0 {
			out, err = svc.Upvote(ctx, id, current)
		} else {
			out, err = svc.Downvote(ctx, id, current)
		}
		if err != nil {
			return ErrMsg{Err: err, Context: "voting"}
		}
		return VoteAppliedMsg{Outcome: out, Dir: dir}
	}
}

// FaveCmd toggles a favourite. fave is the desired state.
func FaveCmd(svc *service.PostService, id int, fave bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		var out *service.FaveOutcome
		var err error
		if fave {
			out, err = svc.Favorite(ctx, id)
		} else {
			out, err = svc.Unfavorite(ctx, id)
		}
		if err != nil {
			return ErrMsg{Err: err, Context: "favouriting"}
		}
		return FaveAppliedMsg{Outcome: out}
	}
}

// DownloadCmd fetches a post's source file into dir.
func DownloadCmd(svc *service.PostService, id int, dir string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		res, err := svc.Download(ctx, id, dir)
		if err != nil {
			return ErrMsg{Err: err, Context: "downloading"}
		}
		return DownloadDoneMsg{Result: res}
	}
}

// SyncCmd runs a full cache sync, reporting progress through ch.
func SyncCmd(svc *service.PostService, ch chan domain.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		result, err := svc.SyncAll(ctx, NewChannelObserver(ch))
		if err != nil {
			return ErrMsg{Err: err, Context: "syncing cache"}
		}
		return SyncDoneMsg{Result: result}
	}
}

// WaitForSyncProgressCmd delivers the next progress update from ch.
func WaitForSyncProgressCmd(ch chan domain.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return SyncProgressMsg{Progress: p}
	}
}

// PurgeCmd clears the cache.
func PurgeCmd(svc *service.PostService) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Purge(); err != nil {
			return ErrMsg{Err: err, Context: "clearing cache"}
		}
		return CachePurgedMsg{}
	}
}

// ReloadCmd refreshes the in-memory cache from the persisted blob.
func ReloadCmd(svc *service.PostService) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Reload(); err != nil {
			return ErrMsg{Err: err, Context: "reloading cache"}
		}
		return CacheReloadedMsg{}
	}
}

// ExportCmd writes the cache to a JSON file.
func ExportCmd(svc *service.PostService, path string) tea.Cmd {
	return func() tea.Msg {
		uri, err := svc.Export(path)
		if err != nil {
			return ErrMsg{Err: err, Context: "exporting cache"}
		}
		return ExportDoneMsg{Path: path, URI: uri}
	}
}

// ImportCmd loads the cache from a JSON export file and persists it.
func ImportCmd(svc *service.PostService, path string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Cache().ImportFrom(path); err != nil {
			return ErrMsg{Err: err, Context: "importing cache"}
		}
		return ImportDoneMsg{Path: path, Entries: svc.Cache().Len()}
	}
}
