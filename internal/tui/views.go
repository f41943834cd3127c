package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kagemura/tosho/internal/cache"
	"github.com/kagemura/tosho/internal/domain"
	"github.com/kagemura/tosho/internal/progress"
	"github.com/kagemura/tosho/internal/stats"
	"github.com/kagemura/tosho/internal/tui/styles"
)

// View renders the active screen
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	var body string
	switch m.Screen {
	case ScreenDashboard:
		body = m.viewDashboard()
	case ScreenLibrary:
		body = m.viewLibrary()
	case ScreenSeries:
		body = m.viewSeries()
	case ScreenReader:
		body = m.viewReader()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.viewFooter())
}

func (m Model) viewDashboard() string {
	dash, entry := m.Session.Dashboard()
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Library") + staleBadge(entry) + "\n\n")

	if !entry.HasValue() {
		if entry.Err != nil {
			b.WriteString(styles.ErrorStyle.Render(entry.Err.Error()) + "\n")
			b.WriteString(styles.DimStyle.Render("press r to retry"))
		} else {
			b.WriteString(styles.DimStyle.Render("loading stats..."))
		}
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %s %d series, %d chapters\n",
		styles.AccentStyle.Render("◆"), dash.TotalSeries, dash.TotalChapters))
	b.WriteString(fmt.Sprintf("  %s %d read (%d%%)\n",
		styles.SuccessStyle.Render(styles.MarkerRead), dash.ChaptersRead, dash.OverallPercent))
	b.WriteString(fmt.Sprintf("  %s %d day streak\n\n",
		styles.AccentStyle.Render("▲"), dash.ReadingStreakDays))

	b.WriteString(styles.SubtitleStyle.Render("Series") + "\n")
	b.WriteString(fmt.Sprintf("  completed %d · in progress %d · unread %d\n\n",
		dash.Breakdown.Completed, dash.Breakdown.InProgress, dash.Breakdown.Unread))

	b.WriteString(styles.SubtitleStyle.Render("Recent activity") + "\n")
	if len(dash.RecentActivity) == 0 {
		b.WriteString(styles.DimStyle.Render("  nothing read yet") + "\n")
	}
	limit := len(dash.RecentActivity)
	if max := m.Height - 16; max > 0 && limit > max {
		limit = max
	}
	for _, ev := range dash.RecentActivity[:limit] {
		b.WriteString(fmt.Sprintf("  %s %s · %s\n",
			styles.DimStyle.Render(time.Unix(ev.At, 0).Format("Jan 02")),
			ev.SeriesTitle,
			chapterLabel(ev.ChapterNumber)))
	}

	return b.String()
}

func (m Model) viewLibrary() string {
	_, entry := m.Session.SeriesList()
	var b strings.Builder

	header := styles.TitleStyle.Render("Series")
	if m.StatusFilter != "" {
		header += " " + styles.AccentStyle.Render("["+m.StatusFilter+"]")
	}
	b.WriteString(header + staleBadge(entry) + "\n")
	if m.Filtering || m.FilterInput.Value() != "" {
		b.WriteString(m.FilterInput.View() + "\n")
	}
	b.WriteString("\n")

	if !entry.HasValue() && entry.Err != nil {
		b.WriteString(styles.ErrorStyle.Render(entry.Err.Error()) + "\n")
		b.WriteString(styles.DimStyle.Render("press r to retry"))
		return b.String()
	}
	if len(m.Results) == 0 {
		b.WriteString(styles.DimStyle.Render("no series"))
		return b.String()
	}

	for i, res := range m.Results {
		sp := m.Session.SeriesProgressFor(res.Series)
		line := fmt.Sprintf("%s %-40s %3d/%-3d %3d%%",
			m.marker(res.Series.Status()), truncate(res.Series.Title, 40), sp.ReadChapters, sp.TotalChapters, sp.Percent)
		if i == m.LibCursor {
			line = styles.HighlightStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

func (m Model) viewSeries() string {
	chapters, entry := m.Session.Chapters(m.Selected.ID)
	sp := m.Session.SeriesProgressFor(m.Selected)
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(m.Selected.Title) + staleBadge(entry) + "\n")
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("%d/%d chapters · %d%%",
		sp.ReadChapters, sp.TotalChapters, sp.Percent)) + "\n\n")

	if !entry.HasValue() {
		if entry.Err != nil {
			b.WriteString(styles.ErrorStyle.Render(entry.Err.Error()) + "\n")
			b.WriteString(styles.DimStyle.Render("press r to retry"))
		} else {
			b.WriteString(styles.DimStyle.Render("loading chapters..."))
		}
		return b.String()
	}

	for i, ch := range chapters {
		line := fmt.Sprintf("%s %-44s %3d%%", m.marker(ch.Status()), truncate(ch.DisplayTitle(), 44), stats.ChapterPercent(ch))
		if state := m.Session.MutationStateOf(ch.ID); state == progress.StatePending {
			line += " " + styles.DimStyle.Render("syncing...")
		}
		if i == m.ChCursor {
			line = styles.HighlightStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

func (m Model) viewReader() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(m.Reading.DisplayTitle()) + "\n\n")

	// Page strip: the filled segment tracks the in-session page index
	width := m.Width - 4
	if width < 10 {
		width = 10
	}
	filled := 0
	if m.Reading.PageCount > 0 {
		filled = (m.Page + 1) * width / m.Reading.PageCount
	}
	b.WriteString("  " + styles.AccentStyle.Render(strings.Repeat("█", filled)) +
		styles.DimStyle.Render(strings.Repeat("░", width-filled)) + "\n\n")
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("  page %d of %d", m.Page+1, m.Reading.PageCount)))
	return b.String()
}

func (m Model) viewFooter() string {
	var help string
	switch m.Screen {
	case ScreenDashboard:
		help = "enter library · r refresh · q quit"
	case ScreenLibrary:
		help = "enter open · / filter · f status · s sort · r refresh · esc back · q quit"
	case ScreenSeries:
		help = "enter read · m mark read · u mark unread · esc back · q quit"
	case ScreenReader:
		help = "←/→ page · esc back · q quit"
	}
	return styles.DimStyle.Render(help)
}

// staleBadge renders the stale-but-shown indicator next to a title
func staleBadge(entry cache.Entry) string {
	if entry.Err != nil && entry.HasValue() {
		return " " + styles.StaleStyle.Render("stale")
	}
	return ""
}

// marker renders the read-status glyph, or a neutral bullet when the user
// has hidden read statuses
func (m Model) marker(s domain.ReadStatus) string {
	if !m.ShowReadStatus {
		return styles.DimStyle.Render("·")
	}
	switch s {
	case domain.ReadStatusRead:
		return styles.SuccessStyle.Render(styles.MarkerRead)
	case domain.ReadStatusInProgress:
		return styles.AccentStyle.Render(styles.MarkerInProgress)
	default:
		return styles.DimStyle.Render(styles.MarkerUnread)
	}
}

func chapterLabel(n float64) string {
	if n == float64(int(n)) {
		return fmt.Sprintf("ch. %d", int(n))
	}
	return fmt.Sprintf("ch. %.1f", n)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
