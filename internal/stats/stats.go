// Package stats is the aggregation engine: pure projections from raw chapter
// records to series and library aggregates. Every percentage the application
// displays is computed here; view code never re-derives its own rounding.
//
// All functions are total over their inputs. Malformed counts clamp to zero
// instead of raising, so an aggregation bug can never surface as a panic.
package stats

import (
	"math"
	"time"

	"github.com/kagemura/tosho/internal/domain"
)

// StreakWindow caps how far back the reading streak walks
const StreakWindow = 30

// RoundPercent converts a read/total ratio to a 0-100 integer percent using
// round-half-up (8/15 -> 53, 9/15 -> 60). Zero or negative totals yield 0.
func RoundPercent(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	return int(math.Floor(float64(part)/float64(total)*100 + 0.5))
}

// SeriesProgressOf derives a series aggregate from its chapter records
func SeriesProgressOf(seriesID string, chapters []domain.Chapter) domain.SeriesProgress {
	read := 0
	for _, ch := range chapters {
		if ch.IsRead {
			read++
		}
	}
	return domain.SeriesProgress{
		ID:            seriesID,
		TotalChapters: len(chapters),
		ReadChapters:  read,
		Percent:       RoundPercent(read, len(chapters)),
	}
}

// LibraryStatsOf derives the library-wide aggregate from per-series
// aggregates. The overall percent is computed over the summed chapter
// counts, not averaged per series, so small series carry no extra weight.
// Recent activity and the streak are filled in by the caller, which owns
// the event history.
func LibraryStatsOf(seriesList []domain.SeriesProgress) domain.LibraryStats {
	out := domain.LibraryStats{TotalSeries: len(seriesList)}
	for _, sp := range seriesList {
		total := clamp(sp.TotalChapters)
		read := clamp(sp.ReadChapters)
		if read > total {
			read = total
		}
		out.TotalChapters += total
		out.ChaptersRead += read
		switch {
		case total > 0 && read == total:
			out.Breakdown.Completed++
		case read > 0:
			out.Breakdown.InProgress++
		default:
			out.Breakdown.Unread++
		}
	}
	out.OverallPercent = RoundPercent(out.ChaptersRead, out.TotalChapters)
	return out
}

// ChapterPercent returns how far into a chapter the reader is, 0-100.
// A chapter marked read reports exactly 100 regardless of its recorded page,
// so the flag and the percent can never disagree on screen.
func ChapterPercent(ch domain.Chapter) int {
	if ch.IsRead {
		return 100
	}
	if ch.PageCount <= 0 {
		return 0
	}
	page := ch.LastReadPage
	if page < 0 {
		page = 0
	}
	if page >= ch.PageCount {
		page = ch.PageCount - 1
	}
	return RoundPercent(page+1, ch.PageCount)
}

// ReadingStreak counts consecutive calendar days with at least one read
// event, walking backward one day at a time from asOf. The walk stops at the
// first day with no activity or after StreakWindow days. Only the unbroken
// run ending at asOf counts; activity before an earlier gap is ignored.
func ReadingStreak(events []domain.ReadEvent, asOf time.Time) int {
	days := make(map[string]struct{}, len(events))
	for _, ev := range events {
		d := time.Unix(ev.At, 0).In(asOf.Location())
		days[d.Format(time.DateOnly)] = struct{}{}
	}

	streak := 0
	for i := 0; i < StreakWindow; i++ {
		day := asOf.AddDate(0, 0, -i).Format(time.DateOnly)
		if _, ok := days[day]; !ok {
			break
		}
		streak++
	}
	return streak
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
