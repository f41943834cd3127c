package tui

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagemura/tosho/internal/cache"
	"github.com/kagemura/tosho/internal/config"
	"github.com/kagemura/tosho/internal/domain"
	"github.com/kagemura/tosho/internal/library"
	"github.com/kagemura/tosho/internal/prefs"
	"github.com/kagemura/tosho/internal/search"
)

// Screen identifies which screen is active
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenLibrary
	ScreenSeries
	ScreenReader
)

// Sort orders for the library view
const (
	SortByTitle  = "title"
	SortByRecent = "recent"
)

// statusCycle is the order the library's status filter steps through.
// Empty string means no filtering.
var statusCycle = []string{"", "unread", "in progress", "read"}

const defaultPollInterval = 30 * time.Second

// Model is the main Bubble Tea model for the application
type Model struct {
	Screen Screen
	Ready  bool

	Session *library.Session
	Prefs   domain.PrefStore
	Keys    KeyMap

	// Library view
	Filter       *search.Filter
	FilterInput  textinput.Model
	Filtering    bool
	Results      []search.Result
	LibCursor    int
	SortOrder    string
	StatusFilter string

	// Series view
	Selected domain.Series
	ChCursor int

	// Reader view
	Reading domain.Chapter
	Page    int

	Width  int
	Height int

	PollInterval   time.Duration
	ShowReadStatus bool

	logger *slog.Logger
}

// NewModel creates the application model over a session. Config supplies the
// baseline poll cadence; a preference saved from a previous run overrides it.
func NewModel(sess *library.Session, store domain.PrefStore, cfg *config.Config, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	input := textinput.New()
	input.Placeholder = "filter series..."
	input.CharLimit = 64

	m := Model{
		Screen:         ScreenDashboard,
		Session:        sess,
		Prefs:          store,
		Keys:           DefaultKeyMap(),
		Filter:         search.NewFilter(),
		FilterInput:    input,
		SortOrder:      SortByTitle,
		PollInterval:   defaultPollInterval,
		ShowReadStatus: true,
		logger:         logger,
	}
	if cfg != nil {
		m.ShowReadStatus = cfg.Preferences.ShowReadStatus
		if cfg.Preferences.PollSeconds > 0 {
			m.PollInterval = time.Duration(cfg.Preferences.PollSeconds) * time.Second
		}
	}
	if store != nil {
		var order string
		if store.Get(prefs.KeySortOrder, &order) && order != "" {
			m.SortOrder = order
		}
		var status string
		if store.Get(prefs.KeyStatusFilter, &status) {
			m.StatusFilter = status
		}
		var seconds int
		if store.Get(prefs.KeyPollInterval, &seconds) && seconds > 0 {
			m.PollInterval = time.Duration(seconds) * time.Second
		}
	}
	return m
}

// Init kicks off the update listener and the poll cadence
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForUpdateCmd(m.Session),
		PollTickCmd(m.PollInterval),
	)
}

// Update handles all incoming messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		return m, nil

	case CacheUpdatedMsg:
		if msg.Key == cache.KeySeriesList {
			m.reindex()
		}
		return m, WaitForUpdateCmd(m.Session)

	case UpdatesClosedMsg:
		return m, tea.Quit

	case PollTickMsg:
		m.Session.Refresh(cache.KeySeriesList)
		m.Session.Refresh(cache.KeyDashboard)
		if m.Screen == ScreenSeries || m.Screen == ScreenReader {
			m.Session.Refresh(cache.ChaptersKey(m.Selected.ID))
		}
		return m, PollTickCmd(m.PollInterval)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Filtering {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.Session.Close()
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Dashboard):
		m.Screen = ScreenDashboard
		return m, nil

	case key.Matches(msg, m.Keys.Refresh):
		return m, m.refreshCurrent()

	case key.Matches(msg, m.Keys.Back):
		return m.goBack(), nil
	}

	switch m.Screen {
	case ScreenDashboard:
		return m.handleDashboardKey(msg)
	case ScreenLibrary:
		return m.handleLibraryKey(msg)
	case ScreenSeries:
		return m.handleSeriesKey(msg)
	case ScreenReader:
		return m.handleReaderKey(msg)
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Escape):
		m.Filtering = false
		m.FilterInput.Blur()
		m.FilterInput.SetValue("")
		m.applyFilter()
		return m, nil
	case key.Matches(msg, m.Keys.Enter):
		m.Filtering = false
		m.FilterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.FilterInput, cmd = m.FilterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Enter), key.Matches(msg, m.Keys.Right):
		m.Screen = ScreenLibrary
		m.reindex()
		return m, nil
	}
	return m, nil
}

func (m Model) handleLibraryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Up):
		if m.LibCursor > 0 {
			m.LibCursor--
		}
		return m, nil

	case key.Matches(msg, m.Keys.Down):
		if m.LibCursor < len(m.Results)-1 {
			m.LibCursor++
		}
		return m, nil

	case key.Matches(msg, m.Keys.Filter):
		m.Filtering = true
		m.FilterInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.Keys.Status):
		m.cycleStatusFilter()
		return m, nil

	case key.Matches(msg, m.Keys.Sort):
		m.toggleSort()
		return m, nil

	case key.Matches(msg, m.Keys.Enter):
		if m.LibCursor < len(m.Results) {
			m.Selected = m.Results[m.LibCursor].Series
			m.ChCursor = 0
			m.Screen = ScreenSeries
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSeriesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	chapters, _ := m.Session.Chapters(m.Selected.ID)

	switch {
	case key.Matches(msg, m.Keys.Up):
		if m.ChCursor > 0 {
			m.ChCursor--
		}
		return m, nil

	case key.Matches(msg, m.Keys.Down):
		if m.ChCursor < len(chapters)-1 {
			m.ChCursor++
		}
		return m, nil

	case key.Matches(msg, m.Keys.MarkRead):
		if m.ChCursor < len(chapters) {
			m.Session.MarkRead(chapters[m.ChCursor].ID)
		}
		return m, nil

	case key.Matches(msg, m.Keys.MarkUnread):
		if m.ChCursor < len(chapters) {
			m.Session.MarkUnread(chapters[m.ChCursor].ID)
		}
		return m, nil

	case key.Matches(msg, m.Keys.Enter):
		if m.ChCursor < len(chapters) {
			ch := chapters[m.ChCursor]
			m.Reading = ch
			m.Page = ch.LastReadPage
			if ch.IsRead {
				m.Page = 0
			}
			m.Screen = ScreenReader
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleReaderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Left):
		if m.Page > 0 {
			m.Page--
		}
		return m, nil

	case key.Matches(msg, m.Keys.Right):
		if m.Page < m.Reading.PageCount-1 {
			m.Page++
			return m, nil
		}
		// Paging past the final page completes the chapter
		m.Session.MarkRead(m.Reading.ID)
		return m.goBack(), nil
	}
	return m, nil
}

// goBack pops one level of the view hierarchy
func (m Model) goBack() Model {
	switch m.Screen {
	case ScreenReader:
		m.Screen = ScreenSeries
	case ScreenSeries:
		m.Screen = ScreenLibrary
	case ScreenLibrary:
		m.Screen = ScreenDashboard
	}
	return m
}

func (m Model) refreshCurrent() tea.Cmd {
	switch m.Screen {
	case ScreenDashboard:
		return RefreshCmd(m.Session, cache.KeyDashboard)
	case ScreenLibrary:
		return RefreshCmd(m.Session, cache.KeySeriesList)
	default:
		return RefreshCmd(m.Session, cache.ChaptersKey(m.Selected.ID))
	}
}

// reindex rebuilds the search index from the current series list and
// re-applies the active filter
func (m *Model) reindex() {
	list, _ := m.Session.SeriesList()
	m.Filter.Reindex(list)
	m.applyFilter()
}

func (m *Model) applyFilter() {
	results := m.Filter.Apply(m.FilterInput.Value())
	if m.StatusFilter != "" {
		kept := results[:0]
		for _, r := range results {
			if strings.EqualFold(r.Series.Status().String(), m.StatusFilter) {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	m.Results = results
	m.sortResults()
	if m.LibCursor >= len(m.Results) {
		m.LibCursor = 0
	}
}

// cycleStatusFilter steps the library through all/unread/in-progress/read
// and persists the selection
func (m *Model) cycleStatusFilter() {
	next := 0
	for i, s := range statusCycle {
		if s == m.StatusFilter {
			next = (i + 1) % len(statusCycle)
			break
		}
	}
	m.StatusFilter = statusCycle[next]
	if m.Prefs != nil {
		if err := m.Prefs.Set(prefs.KeyStatusFilter, m.StatusFilter); err != nil {
			m.logger.Warn("failed to persist status filter", "error", err)
		}
	}
	m.applyFilter()
}

// sortResults orders the library view; fuzzy relevance wins while a
// filter query is active
func (m *Model) sortResults() {
	if strings.TrimSpace(m.FilterInput.Value()) != "" {
		return
	}
	switch m.SortOrder {
	case SortByRecent:
		sort.SliceStable(m.Results, func(i, j int) bool {
			return m.Results[i].Series.UpdatedAt > m.Results[j].Series.UpdatedAt
		})
	default:
		sort.SliceStable(m.Results, func(i, j int) bool {
			return m.Results[i].Series.GetSortTitle() < m.Results[j].Series.GetSortTitle()
		})
	}
}

func (m *Model) toggleSort() {
	if m.SortOrder == SortByTitle {
		m.SortOrder = SortByRecent
	} else {
		m.SortOrder = SortByTitle
	}
	if m.Prefs != nil {
		if err := m.Prefs.Set(prefs.KeySortOrder, m.SortOrder); err != nil {
			m.logger.Warn("failed to persist sort order", "error", err)
		}
	}
	m.sortResults()
}
