package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nocturne9/favgrid/internal/adapter"
	"github.com/nocturne9/favgrid/internal/domain"
	"github.com/nocturne9/favgrid/internal/tui/styles"
)

// PostView is the pure per-post UI state: what the listing row (or detail
// card) for one post currently shows. It carries no references into the
// rendering surface; rendering is a projection of this struct.
type PostView struct {
	ID       int
	Score    int
	Vote     int
	Fave     bool
	FavCount int
	Tags     string
	Rating   string
	FileURL  string
	Hidden   bool
}

// NewPostView builds a view from a board post. Vote/Fave start neutral until
// cache state is applied.
func NewPostView(p domain.Post) *PostView {
	return &PostView{
		ID:       p.ID,
		Score:    p.Score,
		FavCount: p.FavCount,
		Tags:     p.TagString(),
		Rating:   p.Rating,
		FileURL:  p.FileURL,
	}
}

// ApplyState projects cached state onto the view.
func (v *PostView) ApplyState(st domain.PostState) {
	v.Vote = st.Vote
	v.Fave = st.Fave
}

// UpdateVisibility recomputes Hidden from the visibility preferences. Only
// listing rows are subject to hiding; the detail view never calls this.
func (v *PostView) UpdateVisibility(prefs adapter.PreferencesConfig) {
	v.Hidden = (v.Vote > 0 && prefs.HideUpvoted) || (v.Vote < 0 && prefs.HideDownvoted)
}

// scoreCell renders the signed score with its directional glyph. Zero is its
// own visual state, not folded into positive.
func (v *PostView) scoreCell() string {
	switch {
	case v.Score > 0:
		return styles.ScorePositiveStyle.Render(fmt.Sprintf("%s%d", styles.ScoreUpGlyph, v.Score))
	case v.Score < 0:
		return styles.ScoreNegativeStyle.Render(fmt.Sprintf("%s%d", styles.ScoreDownGlyph, v.Score))
	default:
		return styles.ScoreNeutralStyle.Render(fmt.Sprintf("%s%d", styles.ScoreNeutralGlyph, v.Score))
	}
}

// voteCell renders the up/down markers; at most one is active.
func (v *PostView) voteCell() string {
	up := styles.VoteIdleStyle.Render("▲")
	down := styles.VoteIdleStyle.Render("▼")
	if v.Vote > 0 {
		up = styles.UpvoteActiveStyle.Render("▲")
	} else if v.Vote < 0 {
		down = styles.DownvoteActiveStyle.Render("▼")
	}
	return up + down
}

// faveCell renders the favourite marker and count.
func (v *PostView) faveCell() string {
	if v.Fave {
		return styles.FaveActiveStyle.Render(fmt.Sprintf("♥%d", v.FavCount))
	}
	return styles.FaveIdleStyle.Render(fmt.Sprintf("♡%d", v.FavCount))
}

// RenderRow renders one listing row at the given width.
func (v *PostView) RenderRow(selected bool, width int) string {
	row := fmt.Sprintf("#%-8d %s %s %s  %s",
		v.ID, v.voteCell(), v.scoreCell(), v.faveCell(), v.Tags)

	style := styles.NormalItemStyle
	if selected {
		style = styles.SelectedItemStyle
	}
	if width > 0 {
		style = style.MaxWidth(width)
	}
	return style.Render(row)
}

// RenderDetail renders the single-post detail card.
func (v *PostView) RenderDetail(width int) string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Post #%d", v.ID)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Score      %s\n", v.scoreCell()))
	b.WriteString(fmt.Sprintf("Vote       %s\n", v.voteCell()))
	b.WriteString(fmt.Sprintf("Favourite  %s\n", v.faveCell()))
	if v.Rating != "" {
		b.WriteString(fmt.Sprintf("Rating     %s\n", v.Rating))
	}
	if v.FileURL != "" {
		b.WriteString(fmt.Sprintf("File       %s\n", styles.DimStyle.Render(v.FileURL)))
	}
	if v.Tags != "" {
		b.WriteString("\n")
		b.WriteString(styles.DimStyle.Render(wordWrap(v.Tags, width-4)))
		b.WriteString("\n")
	}
	return styles.ModalStyle.Render(b.String())
}

func wordWrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
