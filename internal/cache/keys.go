package cache

// Key identifies a cached query result
type Key string

// Well-known query keys. Chapter lists are keyed per series.
const (
	KeySeriesList Key = "series-list"
	KeyDashboard  Key = "dashboard-stats"
)

const chaptersPrefix = "series-chapters:"

// ChaptersKey returns the query key for a series' chapter list
func ChaptersKey(seriesID string) Key {
	return Key(chaptersPrefix + seriesID)
}

// SeriesIDOf extracts the series ID from a chapter-list key.
// Returns false for any other key shape.
func SeriesIDOf(key Key) (string, bool) {
	s := string(key)
	if len(s) <= len(chaptersPrefix) || s[:len(chaptersPrefix)] != chaptersPrefix {
		return "", false
	}
	return s[len(chaptersPrefix):], true
}
