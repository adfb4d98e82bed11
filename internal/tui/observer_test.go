package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturne9/favgrid/internal/domain"
)

func TestChannelObserverDelivers(t *testing.T) {
	ch := make(chan domain.SyncProgress, 1)
	obs := NewChannelObserver(ch)

	obs.OnProgress(domain.SyncProgress{Phase: domain.SyncPhaseDiscover, Page: 2})

	require.Len(t, ch, 1)
	got := <-ch
	assert.Equal(t, 2, got.Page)
}

func TestChannelObserverNeverBlocks(t *testing.T) {
	ch := make(chan domain.SyncProgress, 1)
	obs := NewChannelObserver(ch)

	// Second update lands on a full channel and is dropped, not queued
	obs.OnProgress(domain.SyncProgress{Checked: 1})
	obs.OnProgress(domain.SyncProgress{Checked: 2})

	require.Len(t, ch, 1)
	assert.Equal(t, 1, (<-ch).Checked)
}
