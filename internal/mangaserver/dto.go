package mangaserver

import "github.com/kagemura/tosho/internal/domain"

// Wire DTOs for the manga server's REST API. Kept separate from domain
// entities so server field renames stay inside this package.

type seriesDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	SortTitle     string `json:"sortTitle,omitempty"`
	Author        string `json:"author,omitempty"`
	Summary       string `json:"summary,omitempty"`
	CoverURL      string `json:"coverUrl,omitempty"`
	AddedAt       int64  `json:"addedAt"`
	UpdatedAt     int64  `json:"updatedAt"`
	TotalChapters int    `json:"totalChapters"`
	ReadChapters  int    `json:"readChapters"`
}

type chapterDTO struct {
	ID           string  `json:"id"`
	SeriesID     string  `json:"seriesId"`
	Number       float64 `json:"number"`
	Title        string  `json:"title,omitempty"`
	PageCount    int     `json:"pageCount"`
	LastReadPage int     `json:"lastReadPage"`
	IsRead       bool    `json:"isRead"`
	UpdatedAt    int64   `json:"updatedAt"`
}

type readEventDTO struct {
	ChapterID     string  `json:"chapterId"`
	SeriesID      string  `json:"seriesId"`
	SeriesTitle   string  `json:"seriesTitle"`
	ChapterNumber float64 `json:"chapterNumber"`
	At            int64   `json:"at"`
}

type dashboardDTO struct {
	TotalSeries    int    `json:"totalSeries"`
	TotalChapters  int    `json:"totalChapters"`
	ChaptersRead   int    `json:"chaptersRead"`
	OverallPercent int    `json:"overallPercent"`
	Breakdown      struct {
		Completed  int `json:"completed"`
		InProgress int `json:"inProgress"`
		Unread     int `json:"unread"`
	} `json:"breakdown"`
	RecentActivity    []readEventDTO `json:"recentActivity"`
	ReadingStreakDays int            `json:"readingStreakDays"`
}

type progressRequest struct {
	Read bool   `json:"read"`
	Seq  uint64 `json:"seq"`
}

type progressResponse struct {
	Seq     uint64     `json:"seq"`
	Chapter chapterDTO `json:"chapter"`
}

func (d seriesDTO) toDomain() domain.Series {
	return domain.Series{
		ID:            d.ID,
		Title:         d.Title,
		SortTitle:     d.SortTitle,
		Author:        d.Author,
		Summary:       d.Summary,
		CoverURL:      d.CoverURL,
		AddedAt:       d.AddedAt,
		UpdatedAt:     d.UpdatedAt,
		TotalChapters: d.TotalChapters,
		ReadChapters:  d.ReadChapters,
	}
}

func (d chapterDTO) toDomain() domain.Chapter {
	return domain.Chapter{
		ID:           d.ID,
		SeriesID:     d.SeriesID,
		Number:       d.Number,
		Title:        d.Title,
		PageCount:    d.PageCount,
		LastReadPage: d.LastReadPage,
		IsRead:       d.IsRead,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d dashboardDTO) toDomain() domain.LibraryStats {
	stats := domain.LibraryStats{
		TotalSeries:       d.TotalSeries,
		TotalChapters:     d.TotalChapters,
		ChaptersRead:      d.ChaptersRead,
		OverallPercent:    d.OverallPercent,
		ReadingStreakDays: d.ReadingStreakDays,
	}
	stats.Breakdown = domain.SeriesBreakdown{
		Completed:  d.Breakdown.Completed,
		InProgress: d.Breakdown.InProgress,
		Unread:     d.Breakdown.Unread,
	}
	for _, ev := range d.RecentActivity {
		stats.RecentActivity = append(stats.RecentActivity, domain.ReadEvent{
			ChapterID:     ev.ChapterID,
			SeriesID:      ev.SeriesID,
			SeriesTitle:   ev.SeriesTitle,
			ChapterNumber: ev.ChapterNumber,
			At:            ev.At,
		})
	}
	return stats
}
