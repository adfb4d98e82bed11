package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/nocturne9/favgrid/internal/adapter"
	"github.com/nocturne9/favgrid/internal/domain"
	"github.com/nocturne9/favgrid/internal/search"
	"github.com/nocturne9/favgrid/internal/service"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateDetail
	StateInput
	StateConfirmSync
	StateConfirmPurge
	StateHelp
)

// InputMode says what the shared text input is collecting
type InputMode int

const (
	InputNone InputMode = iota
	InputFilter
	InputTags
	InputImportPath
	InputExportPath
)

// Model is the main Bubble Tea model for the application
type Model struct {
	State ApplicationState
	Ready bool

	svc   *service.PostService
	prefs adapter.PreferencesConfig
	keys  KeyMap

	width  int
	height int

	// Listing state
	posts   []domain.Post
	views   map[int]*PostView // post-id registry
	order   []int             // ids in listing order
	visible []int             // ids after hide rules and filter
	cursor  int
	offset  int
	tags    string
	page    int

	// Detail state
	detail *PostView

	// Shared text input (filter / tag query / import / export paths)
	input       textinput.Model
	inputMode   InputMode
	filterQuery string

	// Sync state
	syncing    bool
	progress   domain.SyncProgress
	progressCh chan domain.SyncProgress

	// Status line
	notice  string
	warning bool
	errText string
}

// NewModel creates the main application model.
func NewModel(svc *service.PostService, prefs adapter.PreferencesConfig) *Model {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 48

	if prefs.PageSize <= 0 {
		prefs.PageSize = 100
	}

	return &Model{
		State: StateBrowsing,
		svc:   svc,
		prefs: prefs,
		keys:  DefaultKeyMap(),
		views: make(map[int]*PostView),
		input: ti,
		tags:  prefs.DefaultTags,
		page:  1,
	}
}

// Init loads the persisted cache and the first listing page.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		ReloadCmd(m.svc),
		LoadPostsCmd(m.svc, m.tags, m.prefs.PageSize, m.page),
	)
}

// Update handles incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.Ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case PostsLoadedMsg:
		m.posts = msg.Posts
		m.tags = msg.Tags
		m.page = msg.Page
		m.rebuildViews()
		m.setNotice(fmt.Sprintf("Loaded %d posts", len(msg.Posts)), false)
		return m, nil

	case PostLoadedMsg:
		v := NewPostView(*msg.Post)
		if st, ok := m.svc.Cache().Get(v.ID); ok {
			v.ApplyState(st)
		}
		m.detail = v
		m.State = StateDetail
		return m, nil

	case VoteAppliedMsg:
		return m.applyVote(msg)

	case FaveAppliedMsg:
		return m.applyFave(msg)

	case DownloadDoneMsg:
		m.setNotice("Saved "+msg.Result.Path, false)
		return m, nil

	case SyncProgressMsg:
		m.progress = msg.Progress
		if msg.Progress.Done {
			return m, nil
		}
		return m, WaitForSyncProgressCmd(m.progressCh)

	case SyncDoneMsg:
		m.syncing = false
		m.reloadViewsFromCache()
		m.setNotice(fmt.Sprintf("Synced %d posts, removed %d stale entries",
			msg.Result.Synced, msg.Result.Deleted), false)
		return m, nil

	case CachePurgedMsg:
		m.reloadViewsFromCache()
		m.setNotice("Cache cleared", false)
		return m, nil

	case CacheReloadedMsg:
		m.reloadViewsFromCache()
		return m, nil

	case ExportDoneMsg:
		m.setNotice(fmt.Sprintf("Exported cache to %s (data URI: %d bytes)", msg.Path, len(msg.URI)), false)
		return m, nil

	case ImportDoneMsg:
		m.reloadViewsFromCache()
		m.setNotice(fmt.Sprintf("Imported %d entries from %s", msg.Entries, msg.Path), false)
		return m, nil

	case ErrMsg:
		m.syncing = false
		if errors.Is(msg.Err, domain.ErrBusy) {
			m.setNotice("Cache is busy with a sync; try again when it finishes", true)
			return m, nil
		}
		m.errText = msg.Error()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.State {
	case StateInput:
		return m.handleInputKey(msg)
	case StateConfirmSync:
		return m.handleConfirmSync(msg)
	case StateConfirmPurge:
		return m.handleConfirmPurge(msg)
	case StateHelp:
		m.State = StateBrowsing
		return m, nil
	case StateDetail:
		return m.handleDetailKey(msg)
	}

	return m.handleBrowseKey(msg)
}

func (m *Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errText = ""

	switch {
	case matches(msg, m.keys.Quit):
		return m, tea.Quit

	case matches(msg, m.keys.Help):
		m.State = StateHelp
		return m, nil

	case matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case matches(msg, m.keys.Down):
		m.moveCursor(1)
	case matches(msg, m.keys.PageUp):
		m.moveCursor(-m.listHeight())
	case matches(msg, m.keys.PageDown):
		m.moveCursor(m.listHeight())
	case matches(msg, m.keys.Home):
		m.cursor = 0
	case matches(msg, m.keys.End):
		m.cursor = max(0, len(m.visible)-1)

	case matches(msg, m.keys.NextPage):
		return m, LoadPostsCmd(m.svc, m.tags, m.prefs.PageSize, m.page+1)
	case matches(msg, m.keys.PrevPage):
		if m.page > 1 {
			return m, LoadPostsCmd(m.svc, m.tags, m.prefs.PageSize, m.page-1)
		}

	case matches(msg, m.keys.Enter):
		if v := m.selectedView(); v != nil {
			return m, LoadPostCmd(m.svc, v.ID)
		}

	case matches(msg, m.keys.Upvote):
		if v := m.selectedView(); v != nil {
			return m, VoteCmd(m.svc, v.ID, v.Vote, domain.VoteUp)
		}
	case matches(msg, m.keys.Downvote):
		if v := m.selectedView(); v != nil {
			return m, VoteCmd(m.svc, v.ID, v.Vote, domain.VoteDown)
		}
	case matches(msg, m.keys.Fave):
		if v := m.selectedView(); v != nil {
			return m, FaveCmd(m.svc, v.ID, !v.Fave)
		}
	case matches(msg, m.keys.Download):
		if v := m.selectedView(); v != nil {
			return m, DownloadCmd(m.svc, v.ID, m.prefs.DownloadDir)
		}

	case matches(msg, m.keys.Sync):
		if m.syncing {
			m.setNotice("Sync already running", true)
			return m, nil
		}
		m.State = StateConfirmSync
	case matches(msg, m.keys.Purge):
		m.State = StateConfirmPurge

	case matches(msg, m.keys.Export):
		path := filepath.Join(m.prefs.DownloadDir, "favgrid-"+m.svc.Cache().Username()+".json")
		m.openInput(InputExportPath, "Export to", path)
	case matches(msg, m.keys.Import):
		m.openInput(InputImportPath, "Import from", "")

	case matches(msg, m.keys.Refresh):
		if m.svc.Cache().Busy() {
			m.setNotice("Cache is busy with a sync; try again when it finishes", true)
			return m, nil
		}
		return m, ReloadCmd(m.svc)

	case matches(msg, m.keys.ToggleHideUp):
		m.prefs.HideUpvoted = !m.prefs.HideUpvoted
		m.refreshVisibility()
	case matches(msg, m.keys.ToggleHideDown):
		m.prefs.HideDownvoted = !m.prefs.HideDownvoted
		m.refreshVisibility()

	case matches(msg, m.keys.Filter):
		m.openInput(InputFilter, "Filter", m.filterQuery)
	case matches(msg, m.keys.TagSearch):
		m.openInput(InputTags, "Tags", m.tags)
	}

	return m, nil
}

func (m *Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case matches(msg, m.keys.Quit):
		return m, tea.Quit
	case matches(msg, m.keys.Back):
		m.detail = nil
		m.State = StateBrowsing
	case matches(msg, m.keys.Upvote):
		return m, VoteCmd(m.svc, m.detail.ID, m.detail.Vote, domain.VoteUp)
	case matches(msg, m.keys.Downvote):
		return m, VoteCmd(m.svc, m.detail.ID, m.detail.Vote, domain.VoteDown)
	case matches(msg, m.keys.Fave):
		return m, FaveCmd(m.svc, m.detail.ID, !m.detail.Fave)
	case matches(msg, m.keys.Download):
		return m, DownloadCmd(m.svc, m.detail.ID, m.prefs.DownloadDir)
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.inputMode
		m.closeInput()
		return m.submitInput(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	// Filter narrows live as the user types
	if m.inputMode == InputFilter {
		m.filterQuery = m.input.Value()
		m.recomputeVisible()
	}
	return m, cmd
}

func (m *Model) submitInput(mode InputMode, value string) (tea.Model, tea.Cmd) {
	switch mode {
	case InputFilter:
		m.filterQuery = value
		m.recomputeVisible()
	case InputTags:
		return m, LoadPostsCmd(m.svc, value, m.prefs.PageSize, 1)
	case InputImportPath:
		if value != "" {
			return m, ImportCmd(m.svc, value)
		}
	case InputExportPath:
		if value != "" {
			return m, ExportCmd(m.svc, value)
		}
	}
	return m, nil
}

func (m *Model) handleConfirmSync(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case matches(msg, m.keys.Confirm):
		m.State = StateBrowsing
		m.syncing = true
		m.progress = domain.SyncProgress{}
		m.progressCh = make(chan domain.SyncProgress, 16)
		return m, tea.Batch(
			SyncCmd(m.svc, m.progressCh),
			WaitForSyncProgressCmd(m.progressCh),
		)
	case matches(msg, m.keys.Deny):
		m.State = StateBrowsing
	}
	return m, nil
}

func (m *Model) handleConfirmPurge(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case matches(msg, m.keys.Confirm):
		m.State = StateBrowsing
		return m, PurgeCmd(m.svc)
	case matches(msg, m.keys.Deny):
		m.State = StateBrowsing
	}
	return m, nil
}

// applyVote projects a resolved vote onto the registry and the detail card.
func (m *Model) applyVote(msg VoteAppliedMsg) (tea.Model, tea.Cmd) {
	out := msg.Outcome
	if v, ok := m.views[out.ID]; ok {
		v.Vote = out.Vote
		v.Score = out.Score
		v.UpdateVisibility(m.prefs)
	}
	if m.detail != nil && m.detail.ID == out.ID {
		m.detail.Vote = out.Vote
		m.detail.Score = out.Score
	}
	m.recomputeVisible()

	switch {
	case out.Vote > 0:
		m.setNotice(fmt.Sprintf("Upvoted #%d", out.ID), false)
	case out.Vote < 0:
		m.setNotice(fmt.Sprintf("Downvoted #%d", out.ID), false)
	default:
		m.setNotice(fmt.Sprintf("Unvoted #%d", out.ID), false)
	}
	return m, nil
}

// applyFave projects a resolved favourite action. Counts only move on a
// fresh success, never on an already-in-state response.
func (m *Model) applyFave(msg FaveAppliedMsg) (tea.Model, tea.Cmd) {
	out := msg.Outcome
	delta := 0
	if out.Counted {
		if out.Fave {
			delta = 1
		} else {
			delta = -1
		}
	}
	if v, ok := m.views[out.ID]; ok {
		v.Fave = out.Fave
		v.FavCount += delta
	}
	if m.detail != nil && m.detail.ID == out.ID {
		m.detail.Fave = out.Fave
		m.detail.FavCount += delta
	}

	if out.Fave {
		m.setNotice(fmt.Sprintf("Post #%d added to favourites", out.ID), false)
	} else {
		m.setNotice(fmt.Sprintf("Post #%d removed from favourites", out.ID), false)
	}
	return m, nil
}

// rebuildViews recreates the registry for a freshly loaded listing.
func (m *Model) rebuildViews() {
	m.views = make(map[int]*PostView, len(m.posts))
	m.order = m.order[:0]
	for _, p := range m.posts {
		v := NewPostView(p)
		if st, ok := m.svc.Cache().Get(p.ID); ok {
			v.ApplyState(st)
		}
		v.UpdateVisibility(m.prefs)
		m.views[p.ID] = v
		m.order = append(m.order, p.ID)
	}
	m.cursor = 0
	m.offset = 0
	m.recomputeVisible()
}

// reloadViewsFromCache re-applies cached state to every view.
func (m *Model) reloadViewsFromCache() {
	for id, v := range m.views {
		st, _ := m.svc.Cache().Get(id) // zero state when absent
		v.ApplyState(st)
		v.UpdateVisibility(m.prefs)
	}
	if m.detail != nil {
		st, _ := m.svc.Cache().Get(m.detail.ID)
		m.detail.ApplyState(st)
	}
	m.recomputeVisible()
}

func (m *Model) refreshVisibility() {
	for _, v := range m.views {
		v.UpdateVisibility(m.prefs)
	}
	m.recomputeVisible()
}

// recomputeVisible applies the hide rules and the filter query to the
// listing order. The query is matched two ways: a ranked tag match first
// (every token must hit), then a fuzzy pass over post ids so numeric queries
// still narrow the list. Tag matches come back best-first.
func (m *Model) recomputeVisible() {
	shown := make([]int, 0, len(m.order))
	for _, id := range m.order {
		if v := m.views[id]; v != nil && !v.Hidden {
			shown = append(shown, id)
		}
	}

	if m.filterQuery != "" {
		byID := make(map[int]domain.Post, len(m.posts))
		for _, p := range m.posts {
			byID[p.ID] = p
		}
		candidates := make([]domain.Post, len(shown))
		for i, id := range shown {
			candidates[i] = byID[id]
		}

		matched := make([]int, 0, len(shown))
		seen := make(map[int]bool, len(shown))
		for _, mt := range search.RankPosts(m.filterQuery, candidates) {
			id := shown[mt.Index]
			matched = append(matched, id)
			seen[id] = true
		}

		ids := make([]string, len(shown))
		for i, id := range shown {
			ids[i] = strconv.Itoa(id)
		}
		for _, mt := range fuzzy.Find(m.filterQuery, ids) {
			if id := shown[mt.Index]; !seen[id] {
				matched = append(matched, id)
			}
		}
		shown = matched
	}

	m.visible = shown
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
}

func (m *Model) selectedView() *PostView {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	return m.views[m.visible[m.cursor]]
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
}

func (m *Model) openInput(mode InputMode, prompt, value string) {
	m.inputMode = mode
	m.input.Prompt = prompt + ": "
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	m.State = StateInput
}

func (m *Model) closeInput() {
	m.input.Blur()
	m.inputMode = InputNone
	m.State = StateBrowsing
}

func (m *Model) setNotice(text string, warning bool) {
	m.notice = text
	m.warning = warning
}

func (m *Model) listHeight() int {
	h := m.height - 4 // header, blank, panel, status
	if h < 1 {
		h = 1
	}
	return h
}

func matches(msg tea.KeyMsg, binding key.Binding) bool {
	return key.Matches(msg, binding)
}
