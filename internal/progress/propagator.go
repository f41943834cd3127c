package progress

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kagemura/tosho/internal/cache"
	"github.com/kagemura/tosho/internal/domain"
	"github.com/kagemura/tosho/internal/stats"
)

// Propagator is the dependency graph between cached aggregates: a chapter
// belongs to a series, every series feeds the dashboard. When a chapter
// changes, both dependent aggregates are recomputed synchronously from the
// currently cached (possibly optimistic) chapter set, so every view shows
// the same numbers the instant a mutation is issued.
type Propagator struct {
	cache  *cache.Store
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	owners map[string]string // chapterID -> seriesID
}

// NewPropagator creates a propagator over the session cache
func NewPropagator(store *cache.Store, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{
		cache:  store,
		logger: logger,
		now:    time.Now,
		owners: make(map[string]string),
	}
}

// Register records chapter ownership as chapter lists land in the cache
func (p *Propagator) Register(chapters []domain.Chapter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range chapters {
		p.owners[ch.ID] = ch.SeriesID
	}
}

// Owner returns the series owning a chapter
func (p *Propagator) Owner(chapterID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	seriesID, ok := p.owners[chapterID]
	return seriesID, ok
}

// Invalidate recomputes the owning series' aggregate and the dashboard from
// the cached chapter set and writes both back immediately. It does not talk
// to the server; Reconcile schedules that second track.
func (p *Propagator) Invalidate(chapterID string) {
	seriesID, ok := p.Owner(chapterID)
	if !ok {
		p.logger.Warn("no owner registered for chapter", "chapterID", chapterID)
		return
	}
	p.recomputeSeries(seriesID)
	p.recomputeDashboard()
}

// Reconcile schedules background revalidation of the aggregates dependent on
// a chapter, for eventual correction if the optimistic recomputation and the
// server disagree. Called after a mutation settles, not while it is pending,
// so a refetch cannot clobber a projection the server has not seen yet.
func (p *Propagator) Reconcile(chapterID string) {
	if seriesID, ok := p.Owner(chapterID); ok {
		p.cache.Revalidate(cache.ChaptersKey(seriesID))
	}
	p.cache.Revalidate(cache.KeySeriesList)
	p.cache.Revalidate(cache.KeyDashboard)
}

// RecordActivity prepends a read event to the dashboard's recent activity,
// bounded to domain.MaxRecentActivity, and refreshes the streak.
func (p *Propagator) RecordActivity(ev domain.ReadEvent) {
	dash, _ := p.dashboard()
	activity := make([]domain.ReadEvent, 0, len(dash.RecentActivity)+1)
	activity = append(activity, ev)
	activity = append(activity, dash.RecentActivity...)
	if len(activity) > domain.MaxRecentActivity {
		activity = activity[:domain.MaxRecentActivity]
	}
	dash.RecentActivity = activity
	dash.ReadingStreakDays = stats.ReadingStreak(activity, p.now())
	p.cache.Put(cache.KeyDashboard, dash)
}

// recomputeSeries refreshes a series' derived counts inside the cached
// series list from its materialized chapter set
func (p *Propagator) recomputeSeries(seriesID string) {
	chapters, ok := p.chapters(seriesID)
	if !ok {
		return
	}
	sp := stats.SeriesProgressOf(seriesID, chapters)

	raw, ok := p.cache.Peek(cache.KeySeriesList)
	if !ok {
		return
	}
	prev, ok := raw.([]domain.Series)
	if !ok {
		return
	}
	next := make([]domain.Series, len(prev))
	copy(next, prev)
	for i := range next {
		if next[i].ID == seriesID {
			next[i].TotalChapters = sp.TotalChapters
			next[i].ReadChapters = sp.ReadChapters
			break
		}
	}
	p.cache.Put(cache.KeySeriesList, next)
}

// recomputeDashboard rebuilds the library aggregate from the cached series
// list, preferring materialized chapter sets over server-reported counts.
// Activity and streak carry over from the previous dashboard value; the
// mutator owns appending to them.
func (p *Propagator) recomputeDashboard() {
	raw, ok := p.cache.Peek(cache.KeySeriesList)
	if !ok {
		return
	}
	seriesList, ok := raw.([]domain.Series)
	if !ok {
		return
	}

	progress := make([]domain.SeriesProgress, 0, len(seriesList))
	for _, s := range seriesList {
		if chapters, ok := p.chapters(s.ID); ok {
			progress = append(progress, stats.SeriesProgressOf(s.ID, chapters))
			continue
		}
		progress = append(progress, domain.SeriesProgress{
			ID:            s.ID,
			TotalChapters: s.TotalChapters,
			ReadChapters:  s.ReadChapters,
			Percent:       stats.RoundPercent(s.ReadChapters, s.TotalChapters),
		})
	}

	next := stats.LibraryStatsOf(progress)
	if dash, ok := p.dashboard(); ok {
		next.RecentActivity = dash.RecentActivity
		next.ReadingStreakDays = dash.ReadingStreakDays
	}
	p.cache.Put(cache.KeyDashboard, next)
}

func (p *Propagator) chapters(seriesID string) ([]domain.Chapter, bool) {
	raw, ok := p.cache.Peek(cache.ChaptersKey(seriesID))
	if !ok {
		return nil, false
	}
	chapters, ok := raw.([]domain.Chapter)
	return chapters, ok
}

func (p *Propagator) dashboard() (domain.LibraryStats, bool) {
	raw, ok := p.cache.Peek(cache.KeyDashboard)
	if !ok {
		return domain.LibraryStats{}, false
	}
	dash, ok := raw.(domain.LibraryStats)
	return dash, ok
}
