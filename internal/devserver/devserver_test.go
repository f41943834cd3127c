package devserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kagemura/tosho/internal/domain"
)

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMalformedProgressBody(t *testing.T) {
	router := NewSeeded().Router()

	w := do(t, router, http.MethodPost, "/api/chapters/s1-ch1/progress", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUnknownRoutes(t *testing.T) {
	router := NewSeeded().Router()

	if w := do(t, router, http.MethodGet, "/api/series/nope/chapters", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown series status = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/api/chapters/nope/progress", `{"read":true}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown chapter status = %d, want 404", w.Code)
	}
}

func TestFailNextCountsDown(t *testing.T) {
	srv := NewSeeded()
	router := srv.Router()
	srv.FailNext(2)

	for i := 0; i < 2; i++ {
		if w := do(t, router, http.MethodGet, "/api/series", ""); w.Code != http.StatusInternalServerError {
			t.Errorf("request %d status = %d, want 500", i, w.Code)
		}
	}
	if w := do(t, router, http.MethodGet, "/api/series", ""); w.Code != http.StatusOK {
		t.Errorf("post-fault status = %d, want 200", w.Code)
	}
}

func TestActivityIsBounded(t *testing.T) {
	srv := NewSeeded()
	router := srv.Router()

	// s2 seeds 40 chapters, well past the activity cap
	for i := 1; i <= 25; i++ {
		path := "/api/chapters/" + chapterID("s2", i) + "/progress"
		if w := do(t, router, http.MethodPost, path, `{"read":true}`); w.Code != http.StatusOK {
			t.Fatalf("progress %d status = %d", i, w.Code)
		}
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.activity) != domain.MaxRecentActivity {
		t.Errorf("activity length = %d, want %d", len(srv.activity), domain.MaxRecentActivity)
	}
	if srv.activity[0].ChapterID != chapterID("s2", 25) {
		t.Errorf("activity[0] = %s, want most recent %s", srv.activity[0].ChapterID, chapterID("s2", 25))
	}
}
