package tui

import "github.com/nocturne9/favgrid/internal/domain"

// ChannelObserver carries cache sync progress into the Bubble Tea loop: the
// sync publishes domain.SyncProgress values and WaitForSyncProgressCmd turns
// them into SyncProgressMsg one at a time.
type ChannelObserver struct {
	ch chan<- domain.SyncProgress
}

// NewChannelObserver creates an observer publishing to ch.
func NewChannelObserver(ch chan<- domain.SyncProgress) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// OnProgress forwards an update without ever blocking the sync. When the UI
// falls behind, intermediate updates are dropped; the panel label only shows
// the latest state, and completion is signalled separately by SyncDoneMsg.
func (o *ChannelObserver) OnProgress(p domain.SyncProgress) {
	select {
	case o.ch <- p:
	default:
	}
}
