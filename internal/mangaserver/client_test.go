package mangaserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kagemura/tosho/internal/devserver"
	"github.com/kagemura/tosho/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient spins up the in-memory dev server and points a client at it
func newTestClient(t *testing.T) (*Client, *devserver.Server) {
	t.Helper()
	srv := devserver.NewSeeded()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, "test-token", testLogger()), srv
}

func TestFetchSeriesList(t *testing.T) {
	client, _ := newTestClient(t)

	list, err := client.FetchSeriesList(context.Background())
	if err != nil {
		t.Fatalf("FetchSeriesList() error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	if list[0].Title != "Berserk" {
		t.Errorf("list[0].Title = %q, want Berserk", list[0].Title)
	}
	if list[0].TotalChapters != 15 || list[0].ReadChapters != 0 {
		t.Errorf("list[0] counts = %d/%d, want 0/15", list[0].ReadChapters, list[0].TotalChapters)
	}
}

func TestFetchChapters(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	chapters, err := client.FetchChapters(ctx, "s1")
	if err != nil {
		t.Fatalf("FetchChapters() error: %v", err)
	}
	if len(chapters) != 15 {
		t.Fatalf("len(chapters) = %d, want 15", len(chapters))
	}
	ch := chapters[0]
	if ch.SeriesID != "s1" || ch.Number != 1 || ch.PageCount <= 0 {
		t.Errorf("unexpected first chapter: %+v", ch)
	}

	t.Run("unknown series", func(t *testing.T) {
		_, err := client.FetchChapters(ctx, "missing")
		if !errors.Is(err, domain.ErrSeriesNotFound) {
			t.Errorf("error = %v, want ErrSeriesNotFound", err)
		}
	})
}

func TestSubmitProgressRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	chapters, err := client.FetchChapters(ctx, "s1")
	if err != nil {
		t.Fatalf("FetchChapters() error: %v", err)
	}
	target := chapters[4]

	confirmed, err := client.SubmitProgress(ctx, target.ID, true, 7)
	if err != nil {
		t.Fatalf("SubmitProgress() error: %v", err)
	}
	if !confirmed.IsRead {
		t.Error("confirmed chapter not read")
	}
	if confirmed.LastReadPage != confirmed.PageCount-1 {
		t.Errorf("LastReadPage = %d, want %d", confirmed.LastReadPage, confirmed.PageCount-1)
	}

	// The dashboard reflects the mutation and the activity entry
	dash, err := client.FetchDashboard(ctx)
	if err != nil {
		t.Fatalf("FetchDashboard() error: %v", err)
	}
	if dash.ChaptersRead != 1 {
		t.Errorf("ChaptersRead = %d, want 1", dash.ChaptersRead)
	}
	if len(dash.RecentActivity) != 1 || dash.RecentActivity[0].ChapterID != target.ID {
		t.Errorf("RecentActivity = %+v, want one event for %s", dash.RecentActivity, target.ID)
	}
	if dash.ReadingStreakDays != 1 {
		t.Errorf("ReadingStreakDays = %d, want 1", dash.ReadingStreakDays)
	}

	// Mark back unread: the page position resets with it
	confirmed, err = client.SubmitProgress(ctx, target.ID, false, 8)
	if err != nil {
		t.Fatalf("SubmitProgress(unread) error: %v", err)
	}
	if confirmed.IsRead || confirmed.LastReadPage != 0 {
		t.Errorf("confirmed = %+v, want unread at page 0", confirmed)
	}

	t.Run("unknown chapter", func(t *testing.T) {
		_, err := client.SubmitProgress(ctx, "missing", true, 1)
		if !errors.Is(err, domain.ErrChapterNotFound) {
			t.Errorf("error = %v, want ErrChapterNotFound", err)
		}
	})
}

func TestFetchDashboardAggregates(t *testing.T) {
	client, _ := newTestClient(t)

	dash, err := client.FetchDashboard(context.Background())
	if err != nil {
		t.Fatalf("FetchDashboard() error: %v", err)
	}
	if dash.TotalSeries != 3 {
		t.Errorf("TotalSeries = %d, want 3", dash.TotalSeries)
	}
	if dash.TotalChapters != 67 {
		t.Errorf("TotalChapters = %d, want 67", dash.TotalChapters)
	}
	if dash.Breakdown.Unread != 3 {
		t.Errorf("Breakdown.Unread = %d, want 3", dash.Breakdown.Unread)
	}
}

func TestServerErrorsMapToSentinels(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	t.Run("injected failure surfaces as generic error", func(t *testing.T) {
		srv.FailNext(1)
		_, err := client.FetchSeriesList(ctx)
		if err == nil {
			t.Fatal("expected error from injected failure")
		}
		if errors.Is(err, domain.ErrServerOffline) {
			t.Errorf("500 mapped to ErrServerOffline; want a distinct error")
		}
	})

	t.Run("recovers after fault window", func(t *testing.T) {
		if _, err := client.FetchSeriesList(ctx); err != nil {
			t.Errorf("FetchSeriesList() after fault window: %v", err)
		}
	})

	t.Run("unreachable server is offline", func(t *testing.T) {
		dead := NewClient("http://127.0.0.1:1", "tok", testLogger())
		_, err := dead.FetchSeriesList(ctx)
		if !errors.Is(err, domain.ErrServerOffline) {
			t.Errorf("error = %v, want ErrServerOffline", err)
		}
	})
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrAuthFailed},
		{"conflict", http.StatusConflict, domain.ErrConflict},
		{"unprocessable", http.StatusUnprocessableEntity, domain.ErrInvalidMutation},
		{"bad request", http.StatusBadRequest, domain.ErrInvalidMutation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			client := NewClient(ts.URL, "tok", testLogger())
			_, err := client.FetchSeriesList(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("[]"))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "secret-token", testLogger())
	if _, err := client.FetchSeriesList(context.Background()); err != nil {
		t.Fatalf("FetchSeriesList() error: %v", err)
	}

	if auth := got.Get("Authorization"); auth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want Bearer secret-token", auth)
	}
	if got.Get("X-Client-Identifier") == "" {
		t.Error("missing X-Client-Identifier header")
	}
	if got.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if ua := got.Get("User-Agent"); ua != userAgent {
		t.Errorf("User-Agent = %q, want %q", ua, userAgent)
	}
}
