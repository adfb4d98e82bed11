package domain

import "context"

// PostRepository is the board-side API surface the rest of the application
// depends on. Implemented by the booru HTTP client.
type PostRepository interface {
	// Search returns one page of posts matching the given tags.
	Search(ctx context.Context, tags []string, limit, page int) ([]Post, error)

	// Show returns the canonical record for a post, or ErrPostNotFound when
	// the board has no record for the id.
	Show(ctx context.Context, id int) (*Post, error)

	// Vote casts a vote in the given direction (VoteUp or VoteDown). Voting
	// the same direction twice retracts the vote; the result reports the
	// applied change and the new score.
	Vote(ctx context.Context, id, dir int) (*VoteResult, error)

	// FavoriteCreate adds the post to the user's favourites.
	FavoriteCreate(ctx context.Context, id int) (*FaveResult, error)

	// FavoriteDestroy removes the post from the user's favourites.
	FavoriteDestroy(ctx context.Context, id int) (*FaveResult, error)
}

// BlobStore is the persistent key-value store backing the local cache.
// Values are opaque blobs scoped by a per-user key.
type BlobStore interface {
	// Get returns the stored value for key, or def when absent.
	Get(key string, def []byte) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(key string, value []byte) error

	// Delete removes the value for key. Deleting an absent key is a no-op.
	Delete(key string) error

	Close() error
}
