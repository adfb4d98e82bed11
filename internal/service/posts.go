package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/nocturne9/favgrid/internal/cache"
	"github.com/nocturne9/favgrid/internal/domain"
)

const downloadTimeout = 2 * time.Minute

// VoteOutcome is the resolved state after a vote action, including the
// single self-correcting retry when the board's reported change contradicts
// a request made from a non-active state.
type VoteOutcome struct {
	ID      int
	Vote    int // resolved vote: -1, 0, or 1
	Score   int // board-reported score
	Retried bool
}

// FaveOutcome is the resolved state after a favourite action. Counted is
// true only when the board reported a fresh success, so displayed favourite
// counts are only adjusted then.
type FaveOutcome struct {
	ID      int
	Fave    bool
	Counted bool
	Users   []string
}

// DownloadResult reports where a post's source file ended up.
type DownloadResult struct {
	ID   int
	URL  string
	Path string
}

// PostService orchestrates board actions against the local cache. It is the
// single place vote/favourite outcomes are interpreted and persisted.
type PostService struct {
	repo       domain.PostRepository
	cache      *cache.UserData
	logger     *slog.Logger
	httpClient *http.Client
}

// NewPostService creates a new post service.
func NewPostService(repo domain.PostRepository, userData *cache.UserData, logger *slog.Logger) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		repo:   repo,
		cache:  userData,
		logger: logger,
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
	}
}

// Cache exposes the underlying user cache.
func (s *PostService) Cache() *cache.UserData { return s.cache }

// List returns one page of posts for the given tag query.
func (s *PostService) List(ctx context.Context, tags []string, limit, page int) ([]domain.Post, error) {
	return s.repo.Search(ctx, tags, limit, page)
}

// Show returns the canonical record for a post.
func (s *PostService) Show(ctx context.Context, id int) (*domain.Post, error) {
	return s.repo.Show(ctx, id)
}

// Upvote casts an upvote for id. current is the vote the UI currently shows
// for the post; it drives the self-correction rule.
func (s *PostService) Upvote(ctx context.Context, id, current int) (*VoteOutcome, error) {
	return s.vote(ctx, id, current, domain.VoteUp)
}

// Downvote casts a downvote for id.
func (s *PostService) Downvote(ctx context.Context, id, current int) (*VoteOutcome, error) {
	return s.vote(ctx, id, current, domain.VoteDown)
}

// vote resolves a vote action. The board reports the applied change; when it
// matches the requested direction the vote sticks. When it does not and the
// post was not already shown in that direction, the request is reissued
// exactly once (a missed earlier action, never unbounded). Otherwise the
// mismatch means a toggle-off.
func (s *PostService) vote(ctx context.Context, id, current, dir int) (*VoteOutcome, error) {
	if s.cache.Busy() {
		return nil, domain.ErrBusy
	}

	res, err := s.repo.Vote(ctx, id, dir)
	if err != nil {
		return nil, err
	}

	out := &VoteOutcome{ID: id, Score: res.Score}
	switch {
	case matchesDirection(res.Change, dir):
		out.Vote = dir
	case current != dir:
		s.logger.Info("correcting vote", "id", id, "dir", dir)
		out.Retried = true
		res, err = s.repo.Vote(ctx, id, dir)
		if err != nil {
			return nil, err
		}
		out.Score = res.Score
		if matchesDirection(res.Change, dir) {
			out.Vote = dir
		} else {
			out.Vote = domain.VoteNone
		}
	default:
		out.Vote = domain.VoteNone
	}

	s.persistVote(id, out.Vote)
	return out, nil
}

func matchesDirection(change, dir int) bool {
	return (dir > 0 && change > 0) || (dir < 0 && change < 0)
}

func (s *PostService) persistVote(id, vote int) {
	st, _ := s.cache.Get(id)
	st.Vote = vote
	if err := s.cache.Update(id, st); err != nil {
		s.logger.Warn("failed to persist vote", "id", id, "error", err)
	}
}

// Favorite adds id to the user's favourites. A board response of "already
// favourited" counts as success but does not adjust displayed counts.
func (s *PostService) Favorite(ctx context.Context, id int) (*FaveOutcome, error) {
	return s.favorite(ctx, id, true)
}

// Unfavorite removes id from the user's favourites.
func (s *PostService) Unfavorite(ctx context.Context, id int) (*FaveOutcome, error) {
	return s.favorite(ctx, id, false)
}

func (s *PostService) favorite(ctx context.Context, id int, fave bool) (*FaveOutcome, error) {
	if s.cache.Busy() {
		return nil, domain.ErrBusy
	}

	var res *domain.FaveResult
	var err error
	if fave {
		res, err = s.repo.FavoriteCreate(ctx, id)
	} else {
		res, err = s.repo.FavoriteDestroy(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if !res.Success && !res.Already {
		if res.Reason != "" {
			return nil, fmt.Errorf("favourite refused: %s", res.Reason)
		}
		return nil, fmt.Errorf("favourite refused")
	}

	st, _ := s.cache.Get(id)
	st.Fave = fave
	if err := s.cache.Update(id, st); err != nil {
		s.logger.Warn("failed to persist favourite", "id", id, "error", err)
	}

	return &FaveOutcome{
		ID:      id,
		Fave:    fave,
		Counted: res.Success && !res.Already,
		Users:   res.FavoritedUsers,
	}, nil
}

// Download resolves the post's source file URL and writes the file into dir.
func (s *PostService) Download(ctx context.Context, id int, dir string) (*DownloadResult, error) {
	post, err := s.repo.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.FileURL == "" {
		return nil, fmt.Errorf("post %d has no source file: %w", id, domain.ErrPostNotFound)
	}

	name := fileNameFor(id, post.FileURL)
	dest := filepath.Join(dir, name)
	s.logger.Info("downloading", "id", id, "url", post.FileURL, "dest", dest)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, post.FileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &DownloadResult{ID: id, URL: post.FileURL, Path: dest}, nil
}

// fileNameFor derives a local file name from the source URL, falling back to
// the post id when the URL has no usable path segment.
func fileNameFor(id int, fileURL string) string {
	if u, err := url.Parse(fileURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return fmt.Sprintf("post-%d", id)
}

// Export writes the cache interchange file to path and returns the same
// mapping as a base64 JSON data URI.
func (s *PostService) Export(path string) (string, error) {
	if err := s.cache.ExportTo(path); err != nil {
		return "", err
	}
	uri, err := s.cache.DataURI()
	if err != nil {
		return "", err
	}
	s.logger.Info("cache exported", "path", path, "entries", s.cache.Len())
	return uri, nil
}

// SyncAll runs a full cache resynchronization against the board.
func (s *PostService) SyncAll(ctx context.Context, obs domain.SyncObserver) (domain.SyncResult, error) {
	return s.cache.Sync(ctx, s.repo, obs)
}

// Purge clears the local cache entirely.
func (s *PostService) Purge() error {
	return s.cache.Clear()
}

// Reload refreshes the in-memory cache from the persisted blob, refused
// while a sync runs.
func (s *PostService) Reload() error {
	return s.cache.Load(nil)
}
