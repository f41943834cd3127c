package prefs

import (
	"path/filepath"
	"testing"
)

func TestSetGetRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir(), "http://manga.local:8765")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	if err := store.Set(KeySortOrder, "recent"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	var order string
	if !store.Get(KeySortOrder, &order) || order != "recent" {
		t.Errorf("Get() = %q, want recent", order)
	}

	if err := store.Set(KeyPollInterval, 45); err != nil {
		t.Fatalf("Set(int) error: %v", err)
	}
	var seconds int
	if !store.Get(KeyPollInterval, &seconds) || seconds != 45 {
		t.Errorf("Get(int) = %d, want 45", seconds)
	}
}

func TestGetMissingKey(t *testing.T) {
	store, err := Open(t.TempDir(), "http://manga.local")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	var v string
	if store.Get("never-set", &v) {
		t.Error("Get() = true for missing key")
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	url := "http://manga.local"

	store, err := Open(dir, url)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := store.Set(KeyStatusFilter, "unread"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	store.Close()

	reopened, err := Open(dir, url)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	var filter string
	if !reopened.Get(KeyStatusFilter, &filter) || filter != "unread" {
		t.Errorf("after reopen Get() = %q, want unread", filter)
	}
}

func TestDelete(t *testing.T) {
	store, err := Open(t.TempDir(), "http://manga.local")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	store.Set(KeySortOrder, "title")
	store.Delete(KeySortOrder)

	var v string
	if store.Get(KeySortOrder, &v) {
		t.Errorf("Get() after Delete = %q, want miss", v)
	}
}

func TestServersGetSeparateNamespaces(t *testing.T) {
	dir := t.TempDir()

	a, err := Open(dir, "http://server-a")
	if err != nil {
		t.Fatalf("Open(a) error: %v", err)
	}
	defer a.Close()
	b, err := Open(dir, "http://server-b")
	if err != nil {
		t.Fatalf("Open(b) error: %v", err)
	}
	defer b.Close()

	a.Set(KeySortOrder, "recent")
	var v string
	if b.Get(KeySortOrder, &v) {
		t.Errorf("server-b saw server-a's preference %q", v)
	}
}

func TestURLNormalization(t *testing.T) {
	if hashServerURL("http://Manga.Local/") != hashServerURL("http://manga.local") {
		t.Error("trailing slash and case should not change the namespace")
	}
	if hashServerURL("http://a") == hashServerURL("http://b") {
		t.Error("distinct servers share a namespace")
	}
}

func TestMemoryOnlyMode(t *testing.T) {
	store, err := Open("", "http://manga.local")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	if err := store.Set(KeySortOrder, "title"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	var v string
	if !store.Get(KeySortOrder, &v) || v != "title" {
		t.Errorf("Get() = %q, want title", v)
	}

	// Nothing was written anywhere
	matches, _ := filepath.Glob(filepath.Join(".", "*.db"))
	if len(matches) != 0 {
		t.Errorf("memory-only store created files: %v", matches)
	}
}
