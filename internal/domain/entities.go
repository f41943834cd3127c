package domain

import "fmt"

// ReadStatus represents the reading state of a chapter or series
type ReadStatus int

const (
	ReadStatusUnread ReadStatus = iota
	ReadStatusInProgress
	ReadStatusRead
)

// String returns a human-readable representation of the read status
func (s ReadStatus) String() string {
	switch s {
	case ReadStatusUnread:
		return "Unread"
	case ReadStatusInProgress:
		return "In Progress"
	case ReadStatusRead:
		return "Read"
	default:
		return "Unknown"
	}
}

// Chapter is the canonical progress record for a single readable chapter.
//
// Invariants:
//   - 0 <= LastReadPage < PageCount when PageCount > 0
//   - IsRead implies LastReadPage == PageCount-1 when PageCount > 0
//   - an explicit mark-unread resets LastReadPage to 0
//
// NOTE: the mark-unread reset discards the user's actual last-viewed page.
// This mirrors the server's behavior; whether it is intentional is an open
// product question, so it is preserved rather than changed here.
type Chapter struct {
	ID           string  // Server-assigned unique identifier
	SeriesID     string  // Owning series ID
	Number       float64 // Chapter number as published (7.5 for extras)
	Title        string  // Display title
	PageCount    int     // Total pages, >= 0
	LastReadPage int     // 0-indexed last viewed page
	IsRead       bool    // Whether the chapter is marked read
	UpdatedAt    int64   // Unix timestamp of the last progress change
}

// Status returns the read status of the chapter
func (c Chapter) Status() ReadStatus {
	if c.IsRead {
		return ReadStatusRead
	}
	if c.LastReadPage > 0 {
		return ReadStatusInProgress
	}
	return ReadStatusUnread
}

// DisplayTitle returns the chapter title, falling back to its number
func (c Chapter) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	if c.Number == float64(int64(c.Number)) {
		return fmt.Sprintf("Chapter %d", int64(c.Number))
	}
	return fmt.Sprintf("Chapter %.1f", c.Number)
}

// Series represents a manga series container.
// TotalChapters/ReadChapters are server-reported counts used before the
// chapter list itself has been fetched; once chapters are materialized the
// derived SeriesProgress is authoritative.
type Series struct {
	ID            string // Server-assigned unique identifier
	Title         string // Series title
	SortTitle     string // Title used for sorting
	Author        string
	Summary       string
	CoverURL      string
	AddedAt       int64 // Unix timestamp when added to the library
	UpdatedAt     int64 // Unix timestamp when last updated on the server
	TotalChapters int
	ReadChapters  int
}

// Status returns the read status of the series
func (s Series) Status() ReadStatus {
	switch {
	case s.TotalChapters > 0 && s.ReadChapters == s.TotalChapters:
		return ReadStatusRead
	case s.ReadChapters > 0:
		return ReadStatusInProgress
	default:
		return ReadStatusUnread
	}
}

// GetSortTitle returns the title used for alphabetical sorting
func (s Series) GetSortTitle() string {
	if s.SortTitle != "" {
		return s.SortTitle
	}
	return s.Title
}

// SeriesProgress is the derived per-series aggregate. It is never stored
// independently of the chapters it is computed from.
type SeriesProgress struct {
	ID            string
	TotalChapters int
	ReadChapters  int
	Percent       int // 0-100, round-half-up
}

// ReadEvent records a single chapter having been marked read
type ReadEvent struct {
	ChapterID     string
	SeriesID      string
	SeriesTitle   string
	ChapterNumber float64
	At            int64 // Unix timestamp
}

// SeriesBreakdown partitions the library's series by completion
type SeriesBreakdown struct {
	Completed  int // ReadChapters == TotalChapters, TotalChapters > 0
	InProgress int // 0 < ReadChapters < TotalChapters
	Unread     int // ReadChapters == 0
}

// LibraryStats is the derived library-wide aggregate shown on the dashboard
type LibraryStats struct {
	TotalSeries       int
	TotalChapters     int
	ChaptersRead      int
	OverallPercent    int // 0-100 over summed chapter counts, round-half-up
	Breakdown         SeriesBreakdown
	RecentActivity    []ReadEvent // Most recent first, bounded
	ReadingStreakDays int
}

// MaxRecentActivity bounds the dashboard's recent activity list
const MaxRecentActivity = 20
