package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturne9/favgrid/internal/domain"
)

// fakeStore is an in-memory domain.BlobStore that records written blobs and
// can inject failures.
type fakeStore struct {
	data    map[string][]byte
	history [][]byte
	failSet bool
	failGet bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (f *fakeStore) Get(key string, def []byte) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("store read failure")
	}
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return def, nil
}

func (f *fakeStore) Set(key string, value []byte) error {
	if f.failSet {
		return errors.New("store write failure")
	}
	f.data[key] = value
	f.history = append(f.history, value)
	return nil
}

func (f *fakeStore) Delete(key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeRepo is a scriptable domain.PostRepository for sync tests.
type fakeRepo struct {
	pages    [][]domain.Post
	showFn   func(id int) (*domain.Post, error)
	searches int

	// When set, Search signals entered and then waits on release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeRepo) Search(ctx context.Context, tags []string, limit, page int) ([]domain.Post, error) {
	f.searches++
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if page-1 < len(f.pages) {
		return f.pages[page-1], nil
	}
	return nil, nil
}

func (f *fakeRepo) Show(ctx context.Context, id int) (*domain.Post, error) {
	if f.showFn != nil {
		return f.showFn(id)
	}
	return &domain.Post{ID: id, Status: domain.StatusActive}, nil
}

func (f *fakeRepo) Vote(ctx context.Context, id, dir int) (*domain.VoteResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) FavoriteCreate(ctx context.Context, id int) (*domain.FaveResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) FavoriteDestroy(ctx context.Context, id int) (*domain.FaveResult, error) {
	return nil, errors.New("not implemented")
}

func newTestCache(t *testing.T) (*UserData, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	return NewUserData("tester", fs, nil), fs
}

func makePage(start, n int) []domain.Post {
	posts := make([]domain.Post, n)
	for i := range posts {
		posts[i] = domain.Post{ID: start + i, Status: domain.StatusActive}
	}
	return posts
}

func TestGetReflectsLatestWrite(t *testing.T) {
	u, _ := newTestCache(t)

	u.Set(1, domain.PostState{Vote: 1})
	u.Set(1, domain.PostState{Vote: -1, Fave: true})

	st, ok := u.Get(1)
	require.True(t, ok)
	assert.Equal(t, domain.PostState{Vote: -1, Fave: true}, st)

	u.Delete(1)
	_, ok = u.Get(1)
	assert.False(t, ok)

	// Deleting an absent id is a no-op
	u.Delete(42)
	assert.Equal(t, 0, u.Len())
}

func TestSaveIsIdempotent(t *testing.T) {
	u, fs := newTestCache(t)
	u.Set(10, domain.PostState{Vote: 1})
	u.Set(20, domain.PostState{Fave: true})

	require.NoError(t, u.Save())
	require.NoError(t, u.Save())

	require.Len(t, fs.history, 2)
	assert.JSONEq(t, string(fs.history[0]), string(fs.history[1]))
}

func TestSaveReportsStoreFailure(t *testing.T) {
	u, fs := newTestCache(t)
	fs.failSet = true
	u.Set(1, domain.PostState{Vote: 1})
	assert.Error(t, u.Save())
}

func TestLoadAcceptsLegacyBareMap(t *testing.T) {
	u, fs := newTestCache(t)
	fs.data["favgrid-tester"] = []byte(`{"123":{"vote":1},"456":{"fave":true}}`)

	require.NoError(t, u.Load(nil))

	st, ok := u.Get(123)
	require.True(t, ok)
	assert.Equal(t, 1, st.Vote)
	st, ok = u.Get(456)
	require.True(t, ok)
	assert.True(t, st.Fave)
}

func TestLoadVersionedEnvelope(t *testing.T) {
	u, fs := newTestCache(t)
	fs.data["favgrid-tester"] = []byte(`{"version":1,"posts":{"7":{"vote":-1,"fave":true}}}`)

	require.NoError(t, u.Load(nil))

	st, ok := u.Get(7)
	require.True(t, ok)
	assert.Equal(t, domain.PostState{Vote: -1, Fave: true}, st)
}

func TestLoadFailureKeepsPriorMapping(t *testing.T) {
	u, fs := newTestCache(t)
	u.Set(1, domain.PostState{Vote: 1})

	fs.data["favgrid-tester"] = []byte(`{not json`)
	require.Error(t, u.Load(nil))

	st, ok := u.Get(1)
	require.True(t, ok)
	assert.Equal(t, 1, st.Vote)
}

func TestClearResetsStateAndStore(t *testing.T) {
	u, fs := newTestCache(t)
	u.Set(1, domain.PostState{Vote: 1})
	require.NoError(t, u.Save())

	require.NoError(t, u.Clear())
	assert.Equal(t, 0, u.Len())
	_, ok := fs.data["favgrid-tester"]
	assert.False(t, ok)
}

func TestUpdatePrunesDefaults(t *testing.T) {
	u, _ := newTestCache(t)

	require.NoError(t, u.Update(5, domain.PostState{Vote: 1, Fave: true}))
	_, ok := u.Get(5)
	require.True(t, ok)

	// All-default state removes the entry entirely
	require.NoError(t, u.Update(5, domain.PostState{}))
	_, ok = u.Get(5)
	assert.False(t, ok)
}

func TestExportImportRoundTrip(t *testing.T) {
	u, _ := newTestCache(t)
	u.Set(1, domain.PostState{Vote: 1})
	u.Set(2, domain.PostState{Fave: true})
	u.Set(3, domain.PostState{Vote: -1, Fave: true})

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, u.ExportTo(path))

	other, _ := newTestCache(t)
	require.NoError(t, other.ImportFrom(path))

	assert.Equal(t, u.Snapshot(), other.Snapshot())
}

func TestExportIsBareMapFormat(t *testing.T) {
	u, _ := newTestCache(t)
	u.Set(9, domain.PostState{Vote: 1})

	data, err := u.Export()
	require.NoError(t, err)

	var m map[string]domain.PostState
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 1, m["9"].Vote)
}

func TestDataURI(t *testing.T) {
	u, _ := newTestCache(t)
	uri, err := u.DataURI()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:application/json;base64,"))
}

func TestImportRejectsNonJSONFile(t *testing.T) {
	u, _ := newTestCache(t)
	err := u.ImportFrom(filepath.Join(t.TempDir(), "cache.txt"))
	assert.ErrorIs(t, err, domain.ErrInvalidImport)
}

func TestSyncMergePreservesVote(t *testing.T) {
	u, _ := newTestCache(t)
	u.Set(100, domain.PostState{Vote: 1})

	repo := &fakeRepo{pages: [][]domain.Post{{{ID: 100, Status: domain.StatusActive}}}}
	res, err := u.Sync(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)

	st, ok := u.Get(100)
	require.True(t, ok)
	assert.Equal(t, domain.PostState{Vote: 1, Fave: true}, st)
}

func TestSyncReconcileRemovesDeleted(t *testing.T) {
	u, _ := newTestCache(t)
	// 1 stays, 2 is deleted upstream, 3 is gone entirely
	u.Set(1, domain.PostState{Vote: 1})
	u.Set(2, domain.PostState{Fave: true})
	u.Set(3, domain.PostState{Vote: -1})

	repo := &fakeRepo{
		showFn: func(id int) (*domain.Post, error) {
			switch id {
			case 2:
				return &domain.Post{ID: 2, Status: domain.StatusDeleted}, nil
			case 3:
				return nil, domain.ErrPostNotFound
			default:
				return &domain.Post{ID: id, Status: domain.StatusActive}, nil
			}
		},
	}

	res, err := u.Sync(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)

	_, ok := u.Get(2)
	assert.False(t, ok)
	_, ok = u.Get(3)
	assert.False(t, ok)
	_, ok = u.Get(1)
	assert.True(t, ok)
}

func TestSyncPaginationTermination(t *testing.T) {
	u, _ := newTestCache(t)
	repo := &fakeRepo{pages: [][]domain.Post{
		makePage(0, 100),
		makePage(100, 100),
		makePage(200, 37),
	}}

	res, err := u.Sync(context.Background(), repo, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, repo.searches)
	assert.Equal(t, 237, res.Synced)
	assert.Equal(t, 237, u.Len())
}

func TestSyncEmptyFirstPageTerminates(t *testing.T) {
	u, _ := newTestCache(t)
	repo := &fakeRepo{}

	res, err := u.Sync(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.searches)
	assert.Equal(t, 0, res.Synced)
}

func TestSyncPersistsResult(t *testing.T) {
	u, fs := newTestCache(t)
	repo := &fakeRepo{pages: [][]domain.Post{{{ID: 5, Status: domain.StatusActive}}}}

	_, err := u.Sync(context.Background(), repo, nil)
	require.NoError(t, err)

	blob, ok := fs.data["favgrid-tester"]
	require.True(t, ok)
	assert.Contains(t, string(blob), `"5"`)
}

func TestBusyRefusesMutations(t *testing.T) {
	u, _ := newTestCache(t)
	u.Set(1, domain.PostState{Vote: 1})

	repo := &fakeRepo{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() {
		_, err := u.Sync(context.Background(), repo, nil)
		done <- err
	}()

	// Wait until the sync is inside its discovery request
	<-repo.entered
	assert.True(t, u.Busy())

	assert.ErrorIs(t, u.Save(), domain.ErrBusy)
	assert.ErrorIs(t, u.Load(nil), domain.ErrBusy)
	assert.ErrorIs(t, u.Clear(), domain.ErrBusy)
	assert.ErrorIs(t, u.Update(2, domain.PostState{Vote: 1}), domain.ErrBusy)

	// And a second sync refuses as well
	_, err := u.Sync(context.Background(), repo, nil)
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(repo.release)
	require.NoError(t, <-done)
	assert.False(t, u.Busy())
}

func TestSyncObserverReceivesProgress(t *testing.T) {
	u, _ := newTestCache(t)
	u.Set(1, domain.PostState{Vote: 1})
	repo := &fakeRepo{pages: [][]domain.Post{makePage(0, 3)}}

	var events []domain.SyncProgress
	obs := observerFunc(func(p domain.SyncProgress) { events = append(events, p) })

	_, err := u.Sync(context.Background(), repo, obs)
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.Done)
	assert.Equal(t, 3, last.Discovered)
}

type observerFunc func(domain.SyncProgress)

func (f observerFunc) OnProgress(p domain.SyncProgress) { f(p) }

func TestSyncFailureReleasesBusy(t *testing.T) {
	u, _ := newTestCache(t)
	u.Set(1, domain.PostState{Vote: 1})

	repo := &fakeRepo{showFn: func(id int) (*domain.Post, error) {
		return nil, fmt.Errorf("transport: %w", domain.ErrServerOffline)
	}}

	_, err := u.Sync(context.Background(), repo, nil)
	require.Error(t, err)
	assert.False(t, u.Busy())
	// Entry survives a failed reconcile
	_, ok := u.Get(1)
	assert.True(t, ok)
}
