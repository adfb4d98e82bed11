package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturne9/favgrid/internal/cache"
	"github.com/nocturne9/favgrid/internal/domain"
	"github.com/nocturne9/favgrid/internal/store"
)

// scriptedRepo returns queued vote/favourite results and counts calls.
type scriptedRepo struct {
	voteResults []*domain.VoteResult
	voteCalls   int

	faveResult *domain.FaveResult
	faveErr    error
	faveCalls  int

	showPost *domain.Post
	showErr  error

	// Search blocks on these when set (used to hold the cache busy)
	entered chan struct{}
	release chan struct{}
}

func (r *scriptedRepo) Search(ctx context.Context, tags []string, limit, page int) ([]domain.Post, error) {
	if r.entered != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	return nil, nil
}

func (r *scriptedRepo) Show(ctx context.Context, id int) (*domain.Post, error) {
	return r.showPost, r.showErr
}

func (r *scriptedRepo) Vote(ctx context.Context, id, dir int) (*domain.VoteResult, error) {
	if r.voteCalls >= len(r.voteResults) {
		return nil, errors.New("unexpected vote call")
	}
	res := r.voteResults[r.voteCalls]
	r.voteCalls++
	return res, nil
}

func (r *scriptedRepo) FavoriteCreate(ctx context.Context, id int) (*domain.FaveResult, error) {
	r.faveCalls++
	return r.faveResult, r.faveErr
}

func (r *scriptedRepo) FavoriteDestroy(ctx context.Context, id int) (*domain.FaveResult, error) {
	r.faveCalls++
	return r.faveResult, r.faveErr
}

func newTestService(t *testing.T, repo domain.PostRepository) *PostService {
	t.Helper()
	blobs, err := store.NewBlobStore("") // memory-only
	require.NoError(t, err)
	userData := cache.NewUserData("tester", blobs, nil)
	return NewPostService(repo, userData, nil)
}

func TestUpvoteAppliesMatchingChange(t *testing.T) {
	repo := &scriptedRepo{voteResults: []*domain.VoteResult{{Change: 1, Score: 42}}}
	svc := newTestService(t, repo)

	out, err := svc.Upvote(context.Background(), 7, domain.VoteNone)
	require.NoError(t, err)

	assert.Equal(t, domain.VoteUp, out.Vote)
	assert.Equal(t, 42, out.Score)
	assert.False(t, out.Retried)
	assert.Equal(t, 1, repo.voteCalls)

	st, ok := svc.Cache().Get(7)
	require.True(t, ok)
	assert.Equal(t, domain.VoteUp, st.Vote)
}

func TestUpvoteSelfCorrectionRetriesExactlyOnce(t *testing.T) {
	// Requested up from a non-active state, board reports no positive
	// change: the request is reissued once and the second answer sticks.
	repo := &scriptedRepo{voteResults: []*domain.VoteResult{
		{Change: 0, Score: 10},
		{Change: 1, Score: 11},
	}}
	svc := newTestService(t, repo)

	out, err := svc.Upvote(context.Background(), 7, domain.VoteNone)
	require.NoError(t, err)

	assert.True(t, out.Retried)
	assert.Equal(t, domain.VoteUp, out.Vote)
	assert.Equal(t, 11, out.Score)
	assert.Equal(t, 2, repo.voteCalls)
}

func TestUpvoteRetryMismatchResolvesToUnvoted(t *testing.T) {
	// Even a persistent mismatch never retries more than once.
	repo := &scriptedRepo{voteResults: []*domain.VoteResult{
		{Change: 0, Score: 10},
		{Change: 0, Score: 10},
	}}
	svc := newTestService(t, repo)

	out, err := svc.Upvote(context.Background(), 7, domain.VoteNone)
	require.NoError(t, err)

	assert.True(t, out.Retried)
	assert.Equal(t, domain.VoteNone, out.Vote)
	assert.Equal(t, 2, repo.voteCalls)
}

func TestUpvoteFromActiveStateTogglesOff(t *testing.T) {
	repo := &scriptedRepo{voteResults: []*domain.VoteResult{{Change: -1, Score: 9}}}
	svc := newTestService(t, repo)
	require.NoError(t, svc.Cache().Update(7, domain.PostState{Vote: domain.VoteUp}))

	out, err := svc.Upvote(context.Background(), 7, domain.VoteUp)
	require.NoError(t, err)

	assert.Equal(t, domain.VoteNone, out.Vote)
	assert.False(t, out.Retried)
	assert.Equal(t, 1, repo.voteCalls)

	// Entry pruned entirely once vote and fave are both default
	_, ok := svc.Cache().Get(7)
	assert.False(t, ok)
}

func TestDownvoteAppliesMatchingChange(t *testing.T) {
	repo := &scriptedRepo{voteResults: []*domain.VoteResult{{Change: -1, Score: -3}}}
	svc := newTestService(t, repo)

	out, err := svc.Downvote(context.Background(), 7, domain.VoteNone)
	require.NoError(t, err)

	assert.Equal(t, domain.VoteDown, out.Vote)
	assert.Equal(t, -3, out.Score)
}

func TestVoteRejectedWhileBusy(t *testing.T) {
	repo := &scriptedRepo{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(t, repo)

	done := make(chan struct{})
	go func() {
		svc.SyncAll(context.Background(), nil)
		close(done)
	}()
	<-repo.entered

	_, err := svc.Upvote(context.Background(), 7, domain.VoteNone)
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, 0, repo.voteCalls)

	_, err = svc.Favorite(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, 0, repo.faveCalls)

	close(repo.release)
	<-done
}

func TestFavoriteSuccess(t *testing.T) {
	repo := &scriptedRepo{faveResult: &domain.FaveResult{Success: true}}
	svc := newTestService(t, repo)

	out, err := svc.Favorite(context.Background(), 3)
	require.NoError(t, err)

	assert.True(t, out.Fave)
	assert.True(t, out.Counted)

	st, ok := svc.Cache().Get(3)
	require.True(t, ok)
	assert.True(t, st.Fave)
}

func TestFavoriteAlreadyInStateIsSuccess(t *testing.T) {
	repo := &scriptedRepo{faveResult: &domain.FaveResult{Already: true}}
	svc := newTestService(t, repo)

	out, err := svc.Favorite(context.Background(), 3)
	require.NoError(t, err)

	assert.True(t, out.Fave)
	assert.False(t, out.Counted, "already-in-state must not adjust counts")
}

func TestFavoriteRefusedLeavesStateUntouched(t *testing.T) {
	repo := &scriptedRepo{faveResult: &domain.FaveResult{Reason: "access denied"}}
	svc := newTestService(t, repo)

	_, err := svc.Favorite(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	_, ok := svc.Cache().Get(3)
	assert.False(t, ok)
}

func TestUnfavoriteClearsFave(t *testing.T) {
	repo := &scriptedRepo{faveResult: &domain.FaveResult{Success: true}}
	svc := newTestService(t, repo)
	require.NoError(t, svc.Cache().Update(3, domain.PostState{Vote: 1, Fave: true}))

	out, err := svc.Unfavorite(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, out.Fave)

	// Vote survives the unfavourite
	st, ok := svc.Cache().Get(3)
	require.True(t, ok)
	assert.Equal(t, 1, st.Vote)
	assert.False(t, st.Fave)
}

func TestExportWritesFileAndReturnsDataURI(t *testing.T) {
	svc := newTestService(t, &scriptedRepo{})
	require.NoError(t, svc.Cache().Update(9, domain.PostState{Vote: 1}))

	path := filepath.Join(t.TempDir(), "export.json")
	uri, err := svc.Export(path)
	require.NoError(t, err)

	fileData, err := os.ReadFile(path)
	require.NoError(t, err)

	const prefix = "data:application/json;base64,"
	require.True(t, strings.HasPrefix(uri, prefix))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	require.NoError(t, err)
	assert.JSONEq(t, string(fileData), string(decoded))
}

func TestDownloadWritesSourceFile(t *testing.T) {
	const body = "binary-image-bytes"
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer files.Close()

	repo := &scriptedRepo{showPost: &domain.Post{
		ID:      5,
		Status:  domain.StatusActive,
		FileURL: files.URL + "/images/abc123.png",
	}}
	svc := newTestService(t, repo)

	dir := t.TempDir()
	res, err := svc.Download(context.Background(), 5, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "abc123.png"), res.Path)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestDownloadMissingFileURL(t *testing.T) {
	repo := &scriptedRepo{showPost: &domain.Post{ID: 5, Status: domain.StatusActive}}
	svc := newTestService(t, repo)

	_, err := svc.Download(context.Background(), 5, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}
