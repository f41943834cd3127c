// Package progress implements the optimistic mutation pipeline: local
// projection first, remote confirmation second, with per-chapter sequence
// numbers deciding which response is allowed to win.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kagemura/tosho/internal/cache"
	"github.com/kagemura/tosho/internal/domain"
)

// State is the per-chapter mutation state machine:
// Idle -> Pending -> {Committed, RolledBack} -> Idle.
// Committed and RolledBack are the settled states of the most recent
// mutation; issuing a new mutation moves the chapter back through Pending.
type State int

const (
	StateIdle State = iota
	StatePending
	StateCommitted
	StateRolledBack
)

// String returns a human-readable representation of the mutation state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePending:
		return "Pending"
	case StateCommitted:
		return "Committed"
	case StateRolledBack:
		return "RolledBack"
	default:
		return "Unknown"
	}
}

const submitTimeout = 30 * time.Second

// Mutator is the only writer to the cache's record set. Views issue intents
// through it and observe results via the cache; they never assign progress
// fields directly.
type Mutator struct {
	cache  *cache.Store
	client domain.ProgressClient
	prop   *Propagator
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	seqs   map[string]uint64 // latest issued sequence number per chapter
	states map[string]State
}

// NewMutator creates the session's mutator
func NewMutator(store *cache.Store, client domain.ProgressClient, prop *Propagator, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		cache:  store,
		client: client,
		prop:   prop,
		logger: logger,
		now:    time.Now,
		seqs:   make(map[string]uint64),
		states: make(map[string]State),
	}
}

// StateOf returns the chapter's current mutation state
func (m *Mutator) StateOf(chapterID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[chapterID]; ok {
		return s
	}
	return StateIdle
}

// Mutate issues a mark read/unread intent, fire-and-forget. The caller
// observes the outcome through the next cache emission.
func (m *Mutator) Mutate(chapterID string, read bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		if err := m.Do(ctx, chapterID, read); err != nil {
			m.logger.Warn("mutation failed", "chapterID", chapterID, "read", read, "error", err)
		}
	}()
}

// Do runs the full mutation path synchronously: optimistic apply, aggregate
// propagation, remote submit, then commit or rollback. A mutation on a
// chapter already in the desired state is a no-op.
func (m *Mutator) Do(ctx context.Context, chapterID string, read bool) error {
	seq, snapshot, err := m.begin(chapterID, read)
	if err != nil || seq == 0 {
		return err
	}

	confirmed, submitErr := m.client.SubmitProgress(ctx, chapterID, read, seq)
	return m.resolve(chapterID, seq, snapshot, confirmed, submitErr)
}

// begin snapshots the chapter, applies the projected change to the cache,
// and propagates the recomputed aggregates. seq 0 with a nil error means the
// chapter was already in the desired state.
func (m *Mutator) begin(chapterID string, read bool) (uint64, domain.Chapter, error) {
	var zero domain.Chapter

	seriesID, ok := m.prop.Owner(chapterID)
	if !ok {
		return 0, zero, domain.ErrChapterNotFound
	}

	m.mu.Lock()
	chapters, ok := m.chapterSet(seriesID)
	if !ok {
		m.mu.Unlock()
		return 0, zero, domain.ErrChapterNotFound
	}
	idx := -1
	for i := range chapters {
		if chapters[i].ID == chapterID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return 0, zero, domain.ErrChapterNotFound
	}
	if chapters[idx].IsRead == read {
		m.mu.Unlock()
		return 0, zero, nil
	}

	snapshot := chapters[idx]

	seq := m.seqs[chapterID] + 1
	m.seqs[chapterID] = seq
	m.states[chapterID] = StatePending

	next := make([]domain.Chapter, len(chapters))
	copy(next, chapters)
	next[idx] = projected(snapshot, read, m.now().Unix())
	m.cache.Put(cache.ChaptersKey(seriesID), next)
	m.mu.Unlock()

	m.prop.Invalidate(chapterID)
	m.logger.Debug("optimistic apply", "chapterID", chapterID, "read", read, "seq", seq)
	return seq, snapshot, nil
}

// resolve settles a mutation once its response arrives. Responses for
// superseded sequence numbers are discarded outright: only the most recent
// intent per chapter is allowed to win, regardless of arrival order.
func (m *Mutator) resolve(chapterID string, seq uint64, snapshot, confirmed domain.Chapter, submitErr error) error {
	seriesID, ok := m.prop.Owner(chapterID)
	if !ok {
		return domain.ErrChapterNotFound
	}

	m.mu.Lock()
	if m.seqs[chapterID] != seq {
		m.mu.Unlock()
		m.logger.Debug("discarding superseded response", "chapterID", chapterID, "seq", seq)
		return nil
	}

	if submitErr != nil {
		m.replace(seriesID, snapshot)
		m.states[chapterID] = StateRolledBack
		m.mu.Unlock()

		m.prop.Invalidate(chapterID)
		m.prop.Reconcile(chapterID)
		m.logger.Warn("rolled back", "chapterID", chapterID, "seq", seq, "error", submitErr)
		return submitErr
	}

	m.replace(seriesID, confirmed)
	m.states[chapterID] = StateCommitted
	m.mu.Unlock()

	if confirmed.IsRead && !snapshot.IsRead {
		m.prop.RecordActivity(domain.ReadEvent{
			ChapterID:     confirmed.ID,
			SeriesID:      confirmed.SeriesID,
			SeriesTitle:   m.seriesTitle(confirmed.SeriesID),
			ChapterNumber: confirmed.Number,
			At:            m.now().Unix(),
		})
	}
	m.prop.Invalidate(chapterID)
	m.prop.Reconcile(chapterID)
	m.logger.Debug("committed", "chapterID", chapterID, "seq", seq)
	return nil
}

// replace writes a single chapter back into its cached chapter set.
// Caller holds m.mu.
func (m *Mutator) replace(seriesID string, ch domain.Chapter) {
	chapters, ok := m.chapterSet(seriesID)
	if !ok {
		return
	}
	next := make([]domain.Chapter, len(chapters))
	copy(next, chapters)
	for i := range next {
		if next[i].ID == ch.ID {
			next[i] = ch
			break
		}
	}
	m.cache.Put(cache.ChaptersKey(seriesID), next)
}

func (m *Mutator) chapterSet(seriesID string) ([]domain.Chapter, bool) {
	raw, ok := m.cache.Peek(cache.ChaptersKey(seriesID))
	if !ok {
		return nil, false
	}
	chapters, ok := raw.([]domain.Chapter)
	return chapters, ok
}

func (m *Mutator) seriesTitle(seriesID string) string {
	raw, ok := m.cache.Peek(cache.KeySeriesList)
	if !ok {
		return ""
	}
	seriesList, ok := raw.([]domain.Series)
	if !ok {
		return ""
	}
	for _, s := range seriesList {
		if s.ID == seriesID {
			return s.Title
		}
	}
	return ""
}

// projected applies the read-flag rule to a chapter: marking read lands on
// the final page, marking unread resets the position to page zero.
func projected(ch domain.Chapter, read bool, now int64) domain.Chapter {
	ch.IsRead = read
	if ch.PageCount > 0 {
		if read {
			ch.LastReadPage = ch.PageCount - 1
		} else {
			ch.LastReadPage = 0
		}
	}
	ch.UpdatedAt = now
	return ch
}
