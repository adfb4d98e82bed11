package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/nocturne9/favgrid/internal/domain"
)

// Match pairs a post's index in the source slice with its fuzzy rank
// (lower = better).
type Match struct {
	Index int
	Rank  int
}

// RankPosts ranks posts against a tag query. Every whitespace-separated
// query token must fuzzily match somewhere in the post's tag string (AND
// semantics); the match rank is the sum of per-token ranks.
func RankPosts(query string, posts []domain.Post) []Match {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil
	}

	var matches []Match
	for i := range posts {
		target := strings.ToLower(posts[i].TagString())
		total := 0
		ok := true
		for _, tok := range tokens {
			rank := fuzzy.RankMatchNormalizedFold(tok, target)
			if rank < 0 {
				ok = false
				break
			}
			total += rank
		}
		if ok {
			matches = append(matches, Match{Index: i, Rank: total})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Rank < matches[b].Rank
	})
	return matches
}
