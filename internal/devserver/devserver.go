// Package devserver is an in-memory manga server used for local development
// (`tosho serve`) and as the far end of the client's integration tests. It
// speaks the same four endpoints the real server does and applies the same
// progress rules, so optimistic projections and confirmed states agree.
package devserver

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kagemura/tosho/internal/domain"
	"github.com/kagemura/tosho/internal/stats"
)

type progressBody struct {
	Read bool   `json:"read"`
	Seq  uint64 `json:"seq" binding:"omitempty"`
}

// Server holds the in-memory library
type Server struct {
	mu       sync.Mutex
	series   []domain.Series
	chapters map[string][]domain.Chapter // seriesID -> chapters
	activity []domain.ReadEvent
	failNext int // fault injection: fail this many requests with 500
	now      func() time.Time
}

// New creates a server around a seeded library
func New(series []domain.Series, chapters map[string][]domain.Chapter) *Server {
	if chapters == nil {
		chapters = make(map[string][]domain.Chapter)
	}
	return &Server{
		series:   series,
		chapters: chapters,
		now:      time.Now,
	}
}

// NewSeeded creates a server with a small sample library
func NewSeeded() *Server {
	series := []domain.Series{
		{ID: "s1", Title: "Berserk", Author: "Kentaro Miura", AddedAt: time.Now().Unix()},
		{ID: "s2", Title: "One Piece", Author: "Eiichiro Oda", AddedAt: time.Now().Unix()},
		{ID: "s3", Title: "Vagabond", Author: "Takehiko Inoue", AddedAt: time.Now().Unix()},
	}
	chapters := make(map[string][]domain.Chapter)
	counts := map[string]int{"s1": 15, "s2": 40, "s3": 12}
	for _, s := range series {
		for i := 1; i <= counts[s.ID]; i++ {
			chapters[s.ID] = append(chapters[s.ID], domain.Chapter{
				ID:        chapterID(s.ID, i),
				SeriesID:  s.ID,
				Number:    float64(i),
				PageCount: 18 + i%7,
			})
		}
	}
	return New(series, chapters)
}

func chapterID(seriesID string, n int) string {
	return seriesID + "-ch" + strconv.Itoa(n)
}

// FailNext makes the next n requests fail with 500, for fault injection
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// Router builds the gin handler tree
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/series", s.handleSeriesList)
	api.GET("/series/:id/chapters", s.handleChapters)
	api.GET("/dashboard", s.handleDashboard)
	api.POST("/chapters/:id/progress", s.handleProgress)
	return r
}

// Run serves on addr until the process exits
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) injectFault(c *gin.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		c.JSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
		return true
	}
	return false
}

func (s *Server) handleSeriesList(c *gin.Context) {
	if s.injectFault(c) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]gin.H, 0, len(s.series))
	for _, sr := range s.series {
		sp := stats.SeriesProgressOf(sr.ID, s.chapters[sr.ID])
		out = append(out, gin.H{
			"id":            sr.ID,
			"title":         sr.Title,
			"author":        sr.Author,
			"addedAt":       sr.AddedAt,
			"updatedAt":     sr.UpdatedAt,
			"totalChapters": sp.TotalChapters,
			"readChapters":  sp.ReadChapters,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleChapters(c *gin.Context) {
	if s.injectFault(c) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	chapters, ok := s.chapters[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}
	out := make([]gin.H, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, chapterJSON(ch))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDashboard(c *gin.Context) {
	if s.injectFault(c) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	progress := make([]domain.SeriesProgress, 0, len(s.series))
	for _, sr := range s.series {
		progress = append(progress, stats.SeriesProgressOf(sr.ID, s.chapters[sr.ID]))
	}
	dash := stats.LibraryStatsOf(progress)
	dash.RecentActivity = s.activity
	dash.ReadingStreakDays = stats.ReadingStreak(s.activity, s.now())

	events := make([]gin.H, 0, len(dash.RecentActivity))
	for _, ev := range dash.RecentActivity {
		events = append(events, gin.H{
			"chapterId":     ev.ChapterID,
			"seriesId":      ev.SeriesID,
			"seriesTitle":   ev.SeriesTitle,
			"chapterNumber": ev.ChapterNumber,
			"at":            ev.At,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"totalSeries":    dash.TotalSeries,
		"totalChapters":  dash.TotalChapters,
		"chaptersRead":   dash.ChaptersRead,
		"overallPercent": dash.OverallPercent,
		"breakdown": gin.H{
			"completed":  dash.Breakdown.Completed,
			"inProgress": dash.Breakdown.InProgress,
			"unread":     dash.Breakdown.Unread,
		},
		"recentActivity":    events,
		"readingStreakDays": dash.ReadingStreakDays,
	})
}

func (s *Server) handleProgress(c *gin.Context) {
	if s.injectFault(c) {
		return
	}

	var body progressBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed mutation"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chapterID := c.Param("id")
	for seriesID, chapters := range s.chapters {
		for i := range chapters {
			if chapters[i].ID != chapterID {
				continue
			}
			ch := &s.chapters[seriesID][i]
			wasRead := ch.IsRead
			ch.IsRead = body.Read
			if ch.PageCount > 0 {
				if body.Read {
					ch.LastReadPage = ch.PageCount - 1
				} else {
					ch.LastReadPage = 0
				}
			}
			ch.UpdatedAt = s.now().Unix()

			if body.Read && !wasRead {
				title := ""
				for _, sr := range s.series {
					if sr.ID == seriesID {
						title = sr.Title
						break
					}
				}
				ev := domain.ReadEvent{
					ChapterID:     ch.ID,
					SeriesID:      seriesID,
					SeriesTitle:   title,
					ChapterNumber: ch.Number,
					At:            ch.UpdatedAt,
				}
				s.activity = append([]domain.ReadEvent{ev}, s.activity...)
				if len(s.activity) > domain.MaxRecentActivity {
					s.activity = s.activity[:domain.MaxRecentActivity]
				}
			}

			c.JSON(http.StatusOK, gin.H{
				"seq":     body.Seq,
				"chapter": chapterJSON(*ch),
			})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
}

func chapterJSON(ch domain.Chapter) gin.H {
	return gin.H{
		"id":           ch.ID,
		"seriesId":     ch.SeriesID,
		"number":       ch.Number,
		"title":        ch.Title,
		"pageCount":    ch.PageCount,
		"lastReadPage": ch.LastReadPage,
		"isRead":       ch.IsRead,
		"updatedAt":    ch.UpdatedAt,
	}
}
