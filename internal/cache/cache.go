package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/nocturne9/favgrid/internal/domain"
)

const (
	// schemaVersion is the persisted blob format version. Version 0 (a bare
	// id -> state map, the legacy format) is still accepted on load.
	schemaVersion = 1

	// defaultPageSize is the discovery page size during sync; a short page
	// terminates the pagination loop.
	defaultPageSize = 100

	keyPrefix = "favgrid-"
)

// envelope is the persisted blob shape.
type envelope struct {
	Version int                         `json:"version"`
	Posts   map[string]domain.PostState `json:"posts"`
}

// UserData is the local cache of per-post vote/favourite state for one user,
// backed by a persistent blob store. All mutating operations except the raw
// in-memory edits are refused while a sync is in progress.
type UserData struct {
	username string
	key      string
	store    domain.BlobStore
	logger   *slog.Logger
	pageSize int

	mu    sync.Mutex
	busy  bool
	posts map[int]domain.PostState
}

// NewUserData creates a cache scoped to username, persisted under a key
// derived from it.
func NewUserData(username string, store domain.BlobStore, logger *slog.Logger) *UserData {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserData{
		username: username,
		key:      keyPrefix + username,
		store:    store,
		logger:   logger,
		pageSize: defaultPageSize,
		posts:    make(map[int]domain.PostState),
	}
}

// Username returns the user this cache belongs to.
func (u *UserData) Username() string { return u.username }

// Busy reports whether a sync is in progress.
func (u *UserData) Busy() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.busy
}

// Set stores state for id, overwriting any previous entry.
func (u *UserData) Set(id int, st domain.PostState) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.posts[id] = st
}

// Get returns the cached state for id.
func (u *UserData) Get(id int) (domain.PostState, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	st, ok := u.posts[id]
	return st, ok
}

// Delete drops the entry for id. Absent ids are a no-op.
func (u *UserData) Delete(id int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.posts, id)
}

// Len returns the number of cached entries.
func (u *UserData) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.posts)
}

// Snapshot returns a copy of the current mapping.
func (u *UserData) Snapshot() map[int]domain.PostState {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[int]domain.PostState, len(u.posts))
	for id, st := range u.posts {
		out[id] = st
	}
	return out
}

// Update prunes defaults and upserts or removes the entry for id, then
// persists the whole cache. This is the derived mutation behind every vote
// and favourite action, so it is refused while a sync runs.
func (u *UserData) Update(id int, st domain.PostState) error {
	u.mu.Lock()
	if u.busy {
		u.mu.Unlock()
		return domain.ErrBusy
	}
	if st.Empty() {
		delete(u.posts, id)
	} else {
		u.posts[id] = st
	}
	u.mu.Unlock()

	return u.Save()
}

// Load replaces the in-memory mapping. When raw is non-nil it is parsed as
// the authoritative source (import); otherwise the persisted blob is fetched
// from the store. On failure the prior mapping is left untouched.
func (u *UserData) Load(raw []byte) error {
	u.mu.Lock()
	if u.busy {
		u.mu.Unlock()
		return domain.ErrBusy
	}
	u.mu.Unlock()

	if raw == nil {
		data, err := u.store.Get(u.key, []byte("{}"))
		if err != nil {
			u.logger.Error("cache load failed", "key", u.key, "error", err)
			return fmt.Errorf("failed to read cache blob: %w", err)
		}
		raw = data
	} else {
		u.logger.Info("loading cache from local source", "bytes", len(raw))
	}

	posts, err := parseBlob(raw)
	if err != nil {
		u.logger.Error("cache parse failed", "key", u.key, "error", err)
		return err
	}

	u.mu.Lock()
	if u.busy {
		u.mu.Unlock()
		return domain.ErrBusy
	}
	u.posts = posts
	u.mu.Unlock()

	u.logger.Debug("cache loaded", "key", u.key, "entries", len(posts))
	return nil
}

// Save serializes the mapping and writes it to the store.
func (u *UserData) Save() error {
	u.mu.Lock()
	if u.busy {
		u.mu.Unlock()
		return domain.ErrBusy
	}
	data, err := marshalEnvelope(u.posts)
	u.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to serialize cache: %w", err)
	}

	if err := u.store.Set(u.key, data); err != nil {
		u.logger.Error("cache save failed", "key", u.key, "error", err)
		return fmt.Errorf("failed to write cache blob: %w", err)
	}

	u.logger.Debug("cache saved", "key", u.key, "bytes", len(data))
	return nil
}

// Clear deletes the persisted blob and resets the mapping.
func (u *UserData) Clear() error {
	u.mu.Lock()
	if u.busy {
		u.mu.Unlock()
		return domain.ErrBusy
	}
	u.mu.Unlock()

	u.logger.Info("clearing cache", "key", u.key)
	if err := u.store.Delete(u.key); err != nil {
		u.logger.Error("cache clear failed", "key", u.key, "error", err)
		return fmt.Errorf("failed to delete cache blob: %w", err)
	}

	u.mu.Lock()
	u.posts = make(map[int]domain.PostState)
	u.mu.Unlock()
	return nil
}

// Export serializes the mapping in the interchange format: a bare JSON
// object of post-id string keys to states, no envelope.
func (u *UserData) Export() ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return json.Marshal(stringKeyed(u.posts))
}

// DataURI returns the mapping as a base64-embedded JSON data URI.
func (u *UserData) DataURI() (string, error) {
	data, err := u.Export()
	if err != nil {
		return "", err
	}
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ExportTo writes the interchange-format JSON to path.
func (u *UserData) ExportTo(path string) error {
	data, err := u.Export()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ImportFrom validates, reads, and loads a JSON export file, then persists
// the result.
func (u *UserData) ImportFrom(path string) error {
	if !strings.HasSuffix(strings.ToLower(path), ".json") {
		return fmt.Errorf("%w: %s is not a json file", domain.ErrInvalidImport, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	if err := u.Load(raw); err != nil {
		return err
	}
	return u.Save()
}

// Sync reconciles the cache against the board and rediscovers favourites.
// Cached entries whose posts no longer exist are removed; every post on the
// user's favourites list is marked fave, preserving any cached vote. The
// busy gate holds for the duration; the cache is persisted on completion.
func (u *UserData) Sync(ctx context.Context, repo domain.PostRepository, obs domain.SyncObserver) (domain.SyncResult, error) {
	if obs == nil {
		obs = domain.NoOpObserver{}
	}

	u.mu.Lock()
	if u.busy {
		u.mu.Unlock()
		return domain.SyncResult{}, domain.ErrBusy
	}
	u.busy = true
	ids := make([]int, 0, len(u.posts))
	for id := range u.posts {
		ids = append(ids, id)
	}
	u.mu.Unlock()
	sort.Ints(ids)

	release := func() {
		u.mu.Lock()
		u.busy = false
		u.mu.Unlock()
	}

	var result domain.SyncResult

	// Reconciliation pass: drop entries for posts the board no longer has.
	for i, id := range ids {
		post, err := repo.Show(ctx, id)
		switch {
		case errors.Is(err, domain.ErrPostNotFound):
			post = nil
		case err != nil:
			release()
			obs.OnProgress(domain.SyncProgress{Phase: domain.SyncPhaseReconcile, Err: err, Done: true})
			return result, err
		}

		if post == nil || post.ID != id || post.Deleted() {
			u.mu.Lock()
			delete(u.posts, id)
			u.mu.Unlock()
			result.Deleted++
			u.logger.Info("removed stale cache entry", "id", id)
		}

		obs.OnProgress(domain.SyncProgress{
			Phase:   domain.SyncPhaseReconcile,
			Checked: i + 1,
			Removed: result.Deleted,
		})
	}

	// Discovery pass: page through the favourites search until a short page.
	favTag := "fav:" + u.username
	for page := 1; ; page++ {
		u.logger.Debug("fetching favourites page", "page", page)
		posts, err := repo.Search(ctx, []string{favTag}, u.pageSize, page)
		if err != nil {
			release()
			obs.OnProgress(domain.SyncProgress{Phase: domain.SyncPhaseDiscover, Page: page, Err: err, Done: true})
			return result, err
		}

		u.mu.Lock()
		for _, p := range posts {
			st := u.posts[p.ID]
			st.Fave = true
			u.posts[p.ID] = st
		}
		u.mu.Unlock()
		result.Synced += len(posts)

		obs.OnProgress(domain.SyncProgress{
			Phase:      domain.SyncPhaseDiscover,
			Page:       page,
			Removed:    result.Deleted,
			Discovered: result.Synced,
		})

		if len(posts) < u.pageSize {
			break
		}
	}

	release()
	if err := u.Save(); err != nil {
		obs.OnProgress(domain.SyncProgress{Err: err, Done: true})
		return result, err
	}

	obs.OnProgress(domain.SyncProgress{
		Removed:    result.Deleted,
		Discovered: result.Synced,
		Done:       true,
	})
	u.logger.Info("sync complete", "synced", result.Synced, "deleted", result.Deleted)
	return result, nil
}

func marshalEnvelope(posts map[int]domain.PostState) ([]byte, error) {
	return json.Marshal(envelope{Version: schemaVersion, Posts: stringKeyed(posts)})
}

func stringKeyed(posts map[int]domain.PostState) map[string]domain.PostState {
	out := make(map[string]domain.PostState, len(posts))
	for id, st := range posts {
		out[strconv.Itoa(id)] = st
	}
	return out
}

// parseBlob accepts both the versioned envelope and the legacy bare map.
func parseBlob(raw []byte) (map[int]domain.PostState, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Version >= schemaVersion {
		return intKeyed(env.Posts)
	}

	var legacy map[string]domain.PostState
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
	}
	return intKeyed(legacy)
}

func intKeyed(posts map[string]domain.PostState) (map[int]domain.PostState, error) {
	out := make(map[int]domain.PostState, len(posts))
	for k, st := range posts {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: bad post id %q", domain.ErrInvalidImport, k)
		}
		out[id] = st
	}
	return out, nil
}
