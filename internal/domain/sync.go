package domain

// Sync phases reported through SyncProgress.
const (
	SyncPhaseReconcile = "reconcile"
	SyncPhaseDiscover  = "discover"
)

// SyncProgress reports progress during a full cache resynchronization.
type SyncProgress struct {
	Phase      string
	Page       int // discovery page number (discover phase)
	Checked    int // cache entries checked so far (reconcile phase)
	Removed    int // stale entries removed so far
	Discovered int // favourites discovered so far
	Done       bool
	Err        error
}

// SyncObserver receives progress updates during sync operations.
type SyncObserver interface {
	OnProgress(progress SyncProgress)
}

// NoOpObserver discards progress updates (for testing/batch operations).
type NoOpObserver struct{}

func (NoOpObserver) OnProgress(SyncProgress) {}
