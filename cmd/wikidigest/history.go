package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	if c.Page != "" {
		return c.pageHistory(deps)
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, wikidigest.RunFilter{Limit: c.Limit})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikidigest.ErrorMessage(err))
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs recorded yet. Use 'wikidigest run' to start one.")
		return nil
	}

	t := newTable(deps.Stdout)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Pages", "Changed", "OK", "Chunks", "Sent"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			wikidigest.ShortHash(r.ID),
			r.StartedAt.Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.PagesProcessed,
			r.PagesWithChanges,
			r.PagesSuccessful,
			r.Stats.ChunksIndexed,
			r.Stats.NotificationsSent,
		})
	}
	t.Render()
	return nil
}

func (c *HistoryCmd) pageHistory(deps *Dependencies) error {
	snaps, err := deps.Snapshots.FindSnapshotHistory(deps.Ctx, c.Page)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikidigest.ErrorMessage(err))
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintf(deps.Stdout, "Page %s has not been checked yet.\n", c.Page)
		return nil
	}

	t := newTable(deps.Stdout)
	t.AppendHeader(table.Row{"Version", "Hash", "Source version", "Captured"})
	for _, s := range snaps {
		t.AppendRow(table.Row{
			fmt.Sprintf("v%d", s.VersionNumber),
			wikidigest.ShortHash(s.ContentHash),
			s.SourceVersion,
			s.ExtractedAt.Format(time.DateTime),
		})
	}
	t.Render()
	return nil
}
