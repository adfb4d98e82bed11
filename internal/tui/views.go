package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nocturne9/favgrid/internal/domain"
	"github.com/nocturne9/favgrid/internal/tui/styles"
)

// View renders the application.
func (m *Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	switch m.State {
	case StateDetail:
		return m.detailView()
	case StateConfirmSync:
		return m.confirmView(
			"Sync favourites?",
			"Sync all your favourites with the local cache? This may take a while.")
	case StateConfirmPurge:
		return m.confirmView(
			"Clear cache?",
			"Clear all cached votes and favourites for your account?")
	case StateInput:
		return m.inputView()
	case StateHelp:
		return m.helpView()
	}

	return m.browseView()
}

func (m *Model) browseView() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")

	height := m.listHeight()
	m.clampOffset(height)

	if len(m.visible) == 0 {
		b.WriteString(styles.DimStyle.Render("  no posts to show"))
		b.WriteString("\n")
	}

	end := min(m.offset+height, len(m.visible))
	for i := m.offset; i < end; i++ {
		v := m.views[m.visible[i]]
		b.WriteString(v.RenderRow(i == m.cursor, m.width))
		b.WriteString("\n")
	}

	// Pad so the panel stays anchored at the bottom
	for i := end - m.offset; i < height; i++ {
		b.WriteString("\n")
	}

	b.WriteString(m.panelView())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	return b.String()
}

func (m *Model) headerView() string {
	title := styles.TitleStyle.Render("favgrid")
	query := m.tags
	if query == "" {
		query = "(all posts)"
	}
	info := styles.DimStyle.Render(fmt.Sprintf("  %s  page %d  %d/%d shown",
		query, m.page, len(m.visible), len(m.order)))
	return title + info
}

// panelView renders the cache control panel: sync, export, import, purge,
// and the two visibility toggles.
func (m *Model) panelView() string {
	sync := "[S]ync"
	if m.syncing {
		sync = styles.PanelActiveStyle.Render(m.syncLabel())
	}

	parts := []string{
		sync,
		"[e]xport",
		"[i]mport",
		"[P]urge",
		toggleLabel("hide▲", m.prefs.HideUpvoted) + "(1)",
		toggleLabel("hide▼", m.prefs.HideDownvoted) + "(2)",
		"[?]help",
	}
	return styles.PanelStyle.Render(strings.Join(parts, "  "))
}

func (m *Model) syncLabel() string {
	p := m.progress
	switch p.Phase {
	case domain.SyncPhaseReconcile:
		return fmt.Sprintf("Syncing: checked %d, removed %d", p.Checked, p.Removed)
	case domain.SyncPhaseDiscover:
		return fmt.Sprintf("Syncing: page %d, %d favourites", p.Page, p.Discovered)
	default:
		return "Syncing..."
	}
}

func toggleLabel(name string, on bool) string {
	if on {
		return styles.PanelActiveStyle.Render(name + ":on")
	}
	return name + ":off"
}

func (m *Model) statusView() string {
	if m.errText != "" {
		return styles.ErrorStyle.Render(m.errText)
	}
	if m.notice == "" {
		return ""
	}
	if m.warning {
		return styles.WarningStyle.Render(m.notice)
	}
	return styles.NoticeStyle.Render(m.notice)
}

func (m *Model) detailView() string {
	if m.detail == nil {
		return ""
	}
	card := m.detail.RenderDetail(min(m.width-4, 80))
	hint := styles.DimStyle.Render("u/d vote  f favourite  x download  esc back")
	return lipgloss.JoinVertical(lipgloss.Left, card, hint, m.statusView())
}

func (m *Model) confirmView(title, body string) string {
	content := styles.ModalTitleStyle.Render(title) + "\n" +
		wordWrap(body, 50) + "\n\n" +
		styles.DimStyle.Render("y confirm / n cancel")
	return m.centered(styles.ModalStyle.Render(content))
}

func (m *Model) inputView() string {
	content := m.input.View()
	if m.inputMode == InputFilter {
		content += "\n\n" + styles.DimStyle.Render(fmt.Sprintf("%d match(es)", len(m.visible)))
	}
	return m.centered(styles.ModalStyle.Render(content))
}

func (m *Model) helpView() string {
	rows := []string{
		"j/k         move",
		"[ ]         prev/next page",
		"enter       open post",
		"u / d       upvote / downvote",
		"f           toggle favourite",
		"x           download source file",
		"t           tag search",
		"/           filter listing",
		"S           sync cache with favourites",
		"e / i       export / import cache",
		"P           clear cache",
		"r           reload from cache",
		"1 / 2       toggle hide upvoted / downvoted",
		"q           quit",
	}
	content := styles.ModalTitleStyle.Render("favgrid keys") + "\n" + strings.Join(rows, "\n")
	return m.centered(styles.ModalStyle.Render(content))
}

func (m *Model) centered(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) clampOffset(height int) {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+height {
		m.offset = m.cursor - height + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}
