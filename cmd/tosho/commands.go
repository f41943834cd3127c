package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kagemura/tosho/internal/devserver"
	"github.com/kagemura/tosho/internal/search"
	"github.com/kagemura/tosho/internal/stats"
)

// Stats prints the library-wide dashboard aggregate
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(cmd); err != nil {
		return err
	}
	client, err := r.client()
	if err != nil {
		return err
	}

	dash, err := client.FetchDashboard(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch dashboard: %w", err)
	}

	fmt.Printf("Series:    %d (%d completed, %d in progress, %d unread)\n",
		dash.TotalSeries, dash.Breakdown.Completed, dash.Breakdown.InProgress, dash.Breakdown.Unread)
	fmt.Printf("Chapters:  %d/%d read (%d%%)\n", dash.ChaptersRead, dash.TotalChapters, dash.OverallPercent)
	fmt.Printf("Streak:    %d day(s)\n", dash.ReadingStreakDays)

	if len(dash.RecentActivity) > 0 {
		fmt.Println("\nRecent activity:")
		for _, ev := range dash.RecentActivity {
			fmt.Printf("  %s  %s ch. %g\n",
				time.Unix(ev.At, 0).Format("2006-01-02"), ev.SeriesTitle, ev.ChapterNumber)
		}
	}
	return nil
}

// List prints the series list, optionally narrowed to a fuzzy title match
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(cmd); err != nil {
		return err
	}
	client, err := r.client()
	if err != nil {
		return err
	}

	list, err := client.FetchSeriesList(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch series list: %w", err)
	}

	if query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")); query != "" {
		match, ok := search.MatchByTitle(query, list)
		if !ok {
			return fmt.Errorf("no series matching %q", query)
		}
		chapters, err := client.FetchChapters(ctx, match.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch chapters: %w", err)
		}
		sp := stats.SeriesProgressOf(match.ID, chapters)
		fmt.Printf("%s — %d/%d chapters (%d%%)\n", match.Title, sp.ReadChapters, sp.TotalChapters, sp.Percent)
		for _, ch := range chapters {
			mark := " "
			if ch.IsRead {
				mark = "x"
			}
			fmt.Printf("  [%s] %-40s %3d%%\n", mark, ch.DisplayTitle(), stats.ChapterPercent(ch))
		}
		return nil
	}

	for _, s := range list {
		pct := stats.RoundPercent(s.ReadChapters, s.TotalChapters)
		fmt.Printf("%-40s %3d/%-3d %3d%%\n", s.Title, s.ReadChapters, s.TotalChapters, pct)
	}
	return nil
}

// Serve runs a seeded in-memory server for local development
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	fmt.Printf("serving seeded library on %s\n", addr)
	return devserver.NewSeeded().Run(addr)
}
