package booru

// Wire types for the board's JSON API. The legacy endpoints return flat
// objects with snake_case keys and space-joined tag strings.

type postDTO struct {
	ID         int    `json:"id"`
	Status     string `json:"status"`
	FileURL    string `json:"file_url"`
	PreviewURL string `json:"preview_url"`
	Score      int    `json:"score"`
	FavCount   int    `json:"fav_count"`
	Tags       string `json:"tags"`
	Author     string `json:"author"`
	Rating     string `json:"rating"`
}

type voteDTO struct {
	Success bool   `json:"success"`
	Change  int    `json:"change"`
	Score   int    `json:"score"`
	Reason  string `json:"reason"`
}

type favoriteDTO struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	// Comma-separated usernames; only present on detail-page responses.
	FavoritedUsers string `json:"favorited_users"`
}
