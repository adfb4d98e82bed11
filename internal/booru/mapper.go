package booru

import (
	"strings"

	"github.com/nocturne9/favgrid/internal/domain"
)

// mapPost converts a wire post to a domain Post.
func mapPost(dto postDTO) domain.Post {
	return domain.Post{
		ID:         dto.ID,
		Status:     dto.Status,
		FileURL:    dto.FileURL,
		PreviewURL: dto.PreviewURL,
		Score:      dto.Score,
		FavCount:   dto.FavCount,
		Tags:       strings.Fields(dto.Tags),
		Author:     dto.Author,
		Rating:     dto.Rating,
	}
}

// mapPosts converts a page of wire posts.
func mapPosts(dtos []postDTO) []domain.Post {
	posts := make([]domain.Post, len(dtos))
	for i, dto := range dtos {
		posts[i] = mapPost(dto)
	}
	return posts
}

// mapFave converts a favourite response. already marks an HTTP 423
// ("already in desired state") response.
func mapFave(dto favoriteDTO, already bool) *domain.FaveResult {
	res := &domain.FaveResult{
		Success: dto.Success,
		Already: already,
		Reason:  dto.Reason,
	}
	if dto.FavoritedUsers != "" {
		res.FavoritedUsers = strings.Split(dto.FavoritedUsers, ",")
	}
	return res
}
