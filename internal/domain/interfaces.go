package domain

import "context"

// ProgressClient is the remote source of truth for library content and
// reading progress. The concrete transport lives in internal/mangaserver;
// tests substitute fakes.
type ProgressClient interface {
	// FetchSeriesList returns every series in the user's library
	FetchSeriesList(ctx context.Context) ([]Series, error)

	// FetchChapters returns all chapters of a series, including the
	// caller's progress on each
	FetchChapters(ctx context.Context, seriesID string) ([]Chapter, error)

	// FetchDashboard returns the server's view of the library-wide stats
	FetchDashboard(ctx context.Context) (LibraryStats, error)

	// SubmitProgress submits a mark read/unread mutation. seq is an opaque
	// per-chapter token echoed back by the server; the response is the
	// confirmed chapter state.
	SubmitProgress(ctx context.Context, chapterID string, read bool, seq uint64) (Chapter, error)
}

// PrefStore persists user preferences (filters, sort order, poll interval)
// as opaque serializable blobs. It carries none of the progress-consistency
// guarantees; progress data never lands here.
type PrefStore interface {
	Get(key string, dest interface{}) bool
	Set(key string, value interface{}) error
	Delete(key string)
	Close() error
}
