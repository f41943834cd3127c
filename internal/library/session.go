// Package library wires the session together: one revalidating cache, one
// dependency propagator, one optimistic mutator, all over a single remote
// client. The view layer talks only to Session; it never reaches the cache's
// record set directly.
package library

import (
	"context"
	"log/slog"

	"github.com/kagemura/tosho/internal/cache"
	"github.com/kagemura/tosho/internal/domain"
	"github.com/kagemura/tosho/internal/progress"
	"github.com/kagemura/tosho/internal/stats"
)

// Session owns the materialized records for one application run. It is
// constructed at startup, injected into consumers, and disposed with Close;
// a restart re-derives everything from the server.
type Session struct {
	client  domain.ProgressClient
	cache   *cache.Store
	prop    *progress.Propagator
	mutator *progress.Mutator
	logger  *slog.Logger
}

// NewSession creates a session over a remote client
func NewSession(client domain.ProgressClient, logger *slog.Logger, opts ...cache.Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{client: client, logger: logger}
	s.cache = cache.New(s.fetch, logger, opts...)
	s.prop = progress.NewPropagator(s.cache, logger)
	s.mutator = progress.NewMutator(s.cache, client, s.prop, logger)
	return s
}

// fetch is the cache's collaborator: it resolves a query key against the
// remote client and registers chapter ownership as lists land
func (s *Session) fetch(ctx context.Context, key cache.Key) (interface{}, error) {
	switch {
	case key == cache.KeySeriesList:
		return s.client.FetchSeriesList(ctx)
	case key == cache.KeyDashboard:
		return s.client.FetchDashboard(ctx)
	default:
		seriesID, ok := cache.SeriesIDOf(key)
		if !ok {
			return nil, domain.ErrSeriesNotFound
		}
		chapters, err := s.client.FetchChapters(ctx, seriesID)
		if err != nil {
			return nil, err
		}
		s.prop.Register(chapters)
		return chapters, nil
	}
}

// SeriesList returns the cached series list, revalidating in the background
// if stale
func (s *Session) SeriesList() ([]domain.Series, cache.Entry) {
	entry := s.cache.Subscribe(cache.KeySeriesList)
	list, _ := entry.Value.([]domain.Series)
	return list, entry
}

// Chapters returns the cached chapter list for a series
func (s *Session) Chapters(seriesID string) ([]domain.Chapter, cache.Entry) {
	entry := s.cache.Subscribe(cache.ChaptersKey(seriesID))
	chapters, _ := entry.Value.([]domain.Chapter)
	return chapters, entry
}

// Dashboard returns the cached library-wide stats
func (s *Session) Dashboard() (domain.LibraryStats, cache.Entry) {
	entry := s.cache.Subscribe(cache.KeyDashboard)
	dash, _ := entry.Value.(domain.LibraryStats)
	return dash, entry
}

// SeriesProgressFor derives the aggregate for one series from whatever is
// materialized right now. Views call this instead of computing their own.
func (s *Session) SeriesProgressFor(series domain.Series) domain.SeriesProgress {
	if raw, ok := s.cache.Peek(cache.ChaptersKey(series.ID)); ok {
		if chapters, ok := raw.([]domain.Chapter); ok {
			return stats.SeriesProgressOf(series.ID, chapters)
		}
	}
	return domain.SeriesProgress{
		ID:            series.ID,
		TotalChapters: series.TotalChapters,
		ReadChapters:  series.ReadChapters,
		Percent:       stats.RoundPercent(series.ReadChapters, series.TotalChapters),
	}
}

// MarkRead issues a mark-read intent for a chapter, fire-and-forget
func (s *Session) MarkRead(chapterID string) {
	s.mutator.Mutate(chapterID, true)
}

// MarkUnread issues a mark-unread intent for a chapter, fire-and-forget
func (s *Session) MarkUnread(chapterID string) {
	s.mutator.Mutate(chapterID, false)
}

// MutationStateOf exposes the chapter's mutation state for status rendering
func (s *Session) MutationStateOf(chapterID string) progress.State {
	return s.mutator.StateOf(chapterID)
}

// Refresh forces a background revalidation of a query key (pull-to-refresh,
// retry affordances)
func (s *Session) Refresh(key cache.Key) {
	s.cache.Revalidate(key)
}

// Updates emits keys whose cached values changed; views repaint on it
func (s *Session) Updates() <-chan cache.Key {
	return s.cache.Updates()
}

// Close disposes the session cache
func (s *Session) Close() {
	s.cache.Close()
}
