package domain

import "strings"

// Vote direction values as stored in the cache and sent to the board.
const (
	VoteDown = -1
	VoteNone = 0
	VoteUp   = 1
)

// Post status values reported by the board.
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Post is the canonical record the board exposes for a single post.
type Post struct {
	ID         int
	Status     string
	FileURL    string
	PreviewURL string
	Score      int
	FavCount   int
	Tags       []string
	Author     string
	Rating     string
}

// Deleted reports whether the board considers this post gone.
func (p *Post) Deleted() bool {
	return p.Status == StatusDeleted
}

// TagString returns the post's tags as a single space-joined string.
func (p *Post) TagString() string {
	return strings.Join(p.Tags, " ")
}

// PostState is one local cache entry: the user's vote and favourite for a post.
// Zero values mean "no state"; an all-default state is never stored.
type PostState struct {
	Vote int  `json:"vote,omitempty"`
	Fave bool `json:"fave,omitempty"`
}

// Empty reports whether the state carries no information and should be
// dropped from the cache rather than stored.
func (s PostState) Empty() bool {
	return s.Vote == VoteNone && !s.Fave
}

// VoteResult is the board's response to a vote request.
type VoteResult struct {
	Change int
	Score  int
}

// FaveResult is the board's response to a favourite create/destroy request.
// Already is set when the board reported the post was already in the desired
// state (HTTP 423), which callers treat as success without counting it.
type FaveResult struct {
	Success        bool
	Already        bool
	Reason         string
	FavoritedUsers []string
}

// SyncResult summarizes a full cache resynchronization.
type SyncResult struct {
	Synced  int // favourites discovered on the board
	Deleted int // stale cache entries removed
}
