package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/kagemura/tosho/internal/cache"
	"github.com/kagemura/tosho/internal/domain"
)

// fakeClient implements domain.ProgressClient over an in-memory chapter map.
// SubmitProgress confirms by applying the same page rule the server applies.
type fakeClient struct {
	mu        sync.Mutex
	chapters  map[string]domain.Chapter
	submitErr error
	submits   int
}

func (c *fakeClient) FetchSeriesList(ctx context.Context) ([]domain.Series, error) {
	return nil, domain.ErrServerOffline
}

func (c *fakeClient) FetchChapters(ctx context.Context, seriesID string) ([]domain.Chapter, error) {
	return nil, domain.ErrServerOffline
}

func (c *fakeClient) FetchDashboard(ctx context.Context) (domain.LibraryStats, error) {
	return domain.LibraryStats{}, domain.ErrServerOffline
}

func (c *fakeClient) SubmitProgress(ctx context.Context, chapterID string, read bool, seq uint64) (domain.Chapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if c.submitErr != nil {
		return domain.Chapter{}, c.submitErr
	}
	ch, ok := c.chapters[chapterID]
	if !ok {
		return domain.Chapter{}, domain.ErrChapterNotFound
	}
	ch.IsRead = read
	if read {
		ch.LastReadPage = ch.PageCount - 1
	} else {
		ch.LastReadPage = 0
	}
	c.chapters[chapterID] = ch
	return ch, nil
}

func (c *fakeClient) submitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submits
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedChapters builds n chapters for a series with the first read of them
// flagged read
func seedChapters(seriesID string, n, read int) []domain.Chapter {
	chapters := make([]domain.Chapter, n)
	for i := range chapters {
		ch := domain.Chapter{
			ID:        seriesID + "-ch" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			SeriesID:  seriesID,
			Number:    float64(i + 1),
			PageCount: 20,
		}
		if i < read {
			ch.IsRead = true
			ch.LastReadPage = 19
		}
		chapters[i] = ch
	}
	return chapters
}

type harness struct {
	store   *cache.Store
	prop    *Propagator
	mutator *Mutator
	client  *fakeClient
}

// newHarness wires a session worth of machinery over seeded cache state.
// The cache's own fetcher always fails so background reconciliation can
// never clobber the values under test.
func newHarness(t *testing.T, series []domain.Series, chapterSets ...[]domain.Chapter) *harness {
	t.Helper()
	logger := discardLogger()
	store := cache.New(func(ctx context.Context, key cache.Key) (interface{}, error) {
		return nil, domain.ErrServerOffline
	}, logger)
	t.Cleanup(store.Close)

	client := &fakeClient{chapters: make(map[string]domain.Chapter)}
	prop := NewPropagator(store, logger)
	mutator := NewMutator(store, client, prop, logger)

	store.Put(cache.KeySeriesList, series)
	for _, chapters := range chapterSets {
		if len(chapters) == 0 {
			continue
		}
		store.Put(cache.ChaptersKey(chapters[0].SeriesID), chapters)
		prop.Register(chapters)
		for _, ch := range chapters {
			client.chapters[ch.ID] = ch
		}
	}
	return &harness{store: store, prop: prop, mutator: mutator, client: client}
}

func (h *harness) chapters(t *testing.T, seriesID string) []domain.Chapter {
	t.Helper()
	raw, ok := h.store.Peek(cache.ChaptersKey(seriesID))
	if !ok {
		t.Fatalf("no chapter set cached for %s", seriesID)
	}
	return raw.([]domain.Chapter)
}

func (h *harness) seriesList(t *testing.T) []domain.Series {
	t.Helper()
	raw, ok := h.store.Peek(cache.KeySeriesList)
	if !ok {
		t.Fatal("no series list cached")
	}
	return raw.([]domain.Series)
}

func (h *harness) dashboard(t *testing.T) domain.LibraryStats {
	t.Helper()
	raw, ok := h.store.Peek(cache.KeyDashboard)
	if !ok {
		t.Fatal("no dashboard cached")
	}
	return raw.(domain.LibraryStats)
}

func TestMarkReadCommitsAndPropagates(t *testing.T) {
	chapters := seedChapters("s1", 15, 8)
	h := newHarness(t,
		[]domain.Series{{ID: "s1", Title: "Berserk", TotalChapters: 15, ReadChapters: 8}},
		chapters)

	target := chapters[8] // first unread chapter
	if err := h.mutator.Do(context.Background(), target.ID, true); err != nil {
		t.Fatalf("Do() error: %v", err)
	}

	got := h.chapters(t, "s1")[8]
	if !got.IsRead {
		t.Error("chapter not marked read")
	}
	if got.LastReadPage != got.PageCount-1 {
		t.Errorf("LastReadPage = %d, want %d", got.LastReadPage, got.PageCount-1)
	}

	if s := h.seriesList(t)[0]; s.ReadChapters != 9 {
		t.Errorf("series ReadChapters = %d, want 9", s.ReadChapters)
	}
	dash := h.dashboard(t)
	if dash.ChaptersRead != 9 || dash.OverallPercent != 60 {
		t.Errorf("dashboard = %d read, %d%%; want 9 read, 60%%", dash.ChaptersRead, dash.OverallPercent)
	}
	if len(dash.RecentActivity) != 1 || dash.RecentActivity[0].ChapterID != target.ID {
		t.Errorf("RecentActivity = %+v, want one event for %s", dash.RecentActivity, target.ID)
	}
	if dash.ReadingStreakDays != 1 {
		t.Errorf("ReadingStreakDays = %d, want 1", dash.ReadingStreakDays)
	}
	if state := h.mutator.StateOf(target.ID); state != StateCommitted {
		t.Errorf("state = %v, want Committed", state)
	}
}

func TestMarkUnreadResetsPage(t *testing.T) {
	chapters := seedChapters("s1", 5, 3)
	h := newHarness(t,
		[]domain.Series{{ID: "s1", TotalChapters: 5, ReadChapters: 3}},
		chapters)

	target := chapters[2] // last read chapter, page 19
	if err := h.mutator.Do(context.Background(), target.ID, false); err != nil {
		t.Fatalf("Do() error: %v", err)
	}

	got := h.chapters(t, "s1")[2]
	if got.IsRead {
		t.Error("chapter still marked read")
	}
	if got.LastReadPage != 0 {
		t.Errorf("LastReadPage = %d, want 0 after mark-unread", got.LastReadPage)
	}
	if s := h.seriesList(t)[0]; s.ReadChapters != 2 {
		t.Errorf("series ReadChapters = %d, want 2", s.ReadChapters)
	}
}

func TestMutationAlreadyInDesiredStateIsNoOp(t *testing.T) {
	chapters := seedChapters("s1", 5, 3)
	h := newHarness(t,
		[]domain.Series{{ID: "s1", TotalChapters: 5, ReadChapters: 3}},
		chapters)

	if err := h.mutator.Do(context.Background(), chapters[0].ID, true); err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if got := h.client.submitCount(); got != 0 {
		t.Errorf("submits = %d, want 0 (no-op must not hit the server)", got)
	}
	if state := h.mutator.StateOf(chapters[0].ID); state != StateIdle {
		t.Errorf("state = %v, want Idle", state)
	}
}

func TestRollbackRestoresExactSnapshot(t *testing.T) {
	chapters := seedChapters("s1", 15, 8)
	h := newHarness(t,
		[]domain.Series{{ID: "s1", TotalChapters: 15, ReadChapters: 8}},
		chapters)
	h.client.submitErr = domain.ErrServerOffline

	target := chapters[8]
	err := h.mutator.Do(context.Background(), target.ID, true)
	if !errors.Is(err, domain.ErrServerOffline) {
		t.Fatalf("Do() error = %v, want ErrServerOffline", err)
	}

	got := h.chapters(t, "s1")[8]
	if got != target {
		t.Errorf("chapter after rollback = %+v, want snapshot %+v", got, target)
	}
	if s := h.seriesList(t)[0]; s.ReadChapters != 8 {
		t.Errorf("series ReadChapters = %d, want 8 restored", s.ReadChapters)
	}
	dash := h.dashboard(t)
	if dash.ChaptersRead != 8 || dash.OverallPercent != 53 {
		t.Errorf("dashboard = %d read, %d%%; want 8 read, 53%%", dash.ChaptersRead, dash.OverallPercent)
	}
	if len(dash.RecentActivity) != 0 {
		t.Errorf("RecentActivity = %+v, want empty after rollback", dash.RecentActivity)
	}
	if state := h.mutator.StateOf(target.ID); state != StateRolledBack {
		t.Errorf("state = %v, want RolledBack", state)
	}
}

func TestUnknownChapterRejected(t *testing.T) {
	h := newHarness(t,
		[]domain.Series{{ID: "s1", TotalChapters: 5, ReadChapters: 0}},
		seedChapters("s1", 5, 0))

	err := h.mutator.Do(context.Background(), "nope", true)
	if !errors.Is(err, domain.ErrChapterNotFound) {
		t.Errorf("Do() error = %v, want ErrChapterNotFound", err)
	}
}

func TestSupersededSuccessIsDiscarded(t *testing.T) {
	chapters := seedChapters("s1", 5, 0)
	h := newHarness(t,
		[]domain.Series{{ID: "s1", TotalChapters: 5, ReadChapters: 0}},
		chapters)

	target := chapters[0]

	// Two intents issued back to back: read, then unread
	seq1, snap1, err := h.mutator.begin(target.ID, true)
	if err != nil || seq1 == 0 {
		t.Fatalf("begin(read) = %d, %v", seq1, err)
	}
	seq2, snap2, err := h.mutator.begin(target.ID, false)
	if err != nil || seq2 == 0 {
		t.Fatalf("begin(unread) = %d, %v", seq2, err)
	}

	// The first response arrives after being superseded; it must not win
	confirmed1, _ := h.client.SubmitProgress(context.Background(), target.ID, true, seq1)
	if err := h.mutator.resolve(target.ID, seq1, snap1, confirmed1, nil); err != nil {
		t.Fatalf("resolve(seq1) error: %v", err)
	}
	if got := h.chapters(t, "s1")[0]; got.IsRead {
		t.Error("superseded response overwrote the newer projection")
	}
	if state := h.mutator.StateOf(target.ID); state != StatePending {
		t.Errorf("state = %v, want Pending while seq2 unresolved", state)
	}

	confirmed2, _ := h.client.SubmitProgress(context.Background(), target.ID, false, seq2)
	if err := h.mutator.resolve(target.ID, seq2, snap2, confirmed2, nil); err != nil {
		t.Fatalf("resolve(seq2) error: %v", err)
	}
	if got := h.chapters(t, "s1")[0]; got.IsRead {
		t.Error("final state should be unread")
	}
	if state := h.mutator.StateOf(target.ID); state != StateCommitted {
		t.Errorf("state = %v, want Committed", state)
	}
}

func TestSupersededFailureDoesNotRollBack(t *testing.T) {
	chapters := seedChapters("s1", 5, 0)
	h := newHarness(t,
		[]domain.Series{{ID: "s1", TotalChapters: 5, ReadChapters: 0}},
		chapters)

	target := chapters[0]

	seq1, snap1, err := h.mutator.begin(target.ID, true)
	if err != nil || seq1 == 0 {
		t.Fatalf("begin(read) = %d, %v", seq1, err)
	}
	seq2, _, err := h.mutator.begin(target.ID, false)
	if err != nil || seq2 == 0 {
		t.Fatalf("begin(unread) = %d, %v", seq2, err)
	}

	// A failure for the superseded intent is discarded, not rolled back:
	// restoring snap1 here would clobber the newer unread projection
	if err := h.mutator.resolve(target.ID, seq1, snap1, domain.Chapter{}, domain.ErrServerOffline); err != nil {
		t.Errorf("superseded failure should resolve nil, got %v", err)
	}
	if got := h.chapters(t, "s1")[0]; got.IsRead {
		t.Errorf("chapter = %+v, want the seq2 projection intact", got)
	}
	if state := h.mutator.StateOf(target.ID); state != StatePending {
		t.Errorf("state = %v, want Pending", state)
	}
}

func TestCoalescedRoundTripLandsOnLatestIntent(t *testing.T) {
	chapters := seedChapters("s1", 5, 0)
	h := newHarness(t,
		[]domain.Series{{ID: "s1", TotalChapters: 5, ReadChapters: 0}},
		chapters)

	target := chapters[0]
	ctx := context.Background()

	// read -> unread -> read, resolved in order; only the last one counts
	if err := h.mutator.Do(ctx, target.ID, true); err != nil {
		t.Fatalf("Do(read): %v", err)
	}
	if err := h.mutator.Do(ctx, target.ID, false); err != nil {
		t.Fatalf("Do(unread): %v", err)
	}
	if err := h.mutator.Do(ctx, target.ID, true); err != nil {
		t.Fatalf("Do(read): %v", err)
	}

	got := h.chapters(t, "s1")[0]
	if !got.IsRead || got.LastReadPage != got.PageCount-1 {
		t.Errorf("chapter = %+v, want read on final page", got)
	}
	if s := h.seriesList(t)[0]; s.ReadChapters != 1 {
		t.Errorf("series ReadChapters = %d, want 1", s.ReadChapters)
	}
}
