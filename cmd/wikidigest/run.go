package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fwojciec/wikidigest"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	ids := c.PageIDs
	if len(ids) == 0 {
		ids = deps.Config.PageIDs
	}
	if len(ids) == 0 {
		fmt.Fprintln(deps.Stderr, "error: no pages to process. Pass page IDs, set PAGE_IDS or use --pages.")
		return wikidigest.Errorf(wikidigest.EINVALID, "no pages to process")
	}

	summary, err := deps.Runner.Run(deps.Ctx, ids, c.Force)
	if summary != nil {
		printSummary(deps.Stdout, summary)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: run interrupted: %v\n", err)
		return err
	}

	if failed := summary.PagesProcessed - summary.PagesSuccessful; failed > 0 {
		if indexingFailed(summary) {
			// The snapshot is already saved, so only a forced run rebuilds the index.
			fmt.Fprintln(deps.Stderr, "hint: indexing failed for some pages; rerun with --force to rebuild their index.")
		}
		return wikidigest.Errorf(wikidigest.EINTERNAL, "%d of %d pages failed", failed, summary.PagesProcessed)
	}
	return nil
}

func indexingFailed(s *wikidigest.RunSummary) bool {
	for _, r := range s.Results {
		if slices.Contains(r.StepsFailed, wikidigest.StepIndexing) {
			return true
		}
	}
	return false
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func printSummary(w io.Writer, s *wikidigest.RunSummary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Page", "Title", "Version", "Changed", "Steps", "Status"})
	for _, r := range s.Results {
		status := "ok"
		if !r.Success {
			status = "FAILED: " + r.Error
		}
		t.AppendRow(table.Row{
			r.PageID,
			wikidigest.Truncate(r.Title, 40),
			versionLabel(r.Version, r.PreviousVersion),
			yesNo(r.HasChanges),
			fmt.Sprintf("%d/%d", len(r.StepsCompleted), len(r.StepsCompleted)+len(r.StepsFailed)),
			status,
		})
	}
	t.AppendFooter(table.Row{"", "", "", s.PagesWithChanges, "", fmt.Sprintf("%d/%d ok", s.PagesSuccessful, s.PagesProcessed)})
	t.Render()

	st := s.Stats
	fmt.Fprintf(w, "Images: %d downloaded, %d skipped, %d failed (%s saved)\n",
		st.ImagesDownloaded, st.ImagesSkipped, st.ImagesFailed, formatBytes(st.BytesSaved))
	fmt.Fprintf(w, "Descriptions: %d generated, %d cached, %d failed ($%.2f saved)\n",
		st.DescriptionsGenerated, st.DescriptionsCached, st.DescriptionsFailed, st.EstimatedCostSaved)
	fmt.Fprintf(w, "Artifacts: %d uploaded, %d unchanged; %d chunks indexed\n",
		st.ArtifactsUploaded, st.ArtifactsSkipped, st.ChunksIndexed)
	fmt.Fprintf(w, "Notifications: %d sent, %d failed\n", st.NotificationsSent, st.NotificationsFailed)
}

func versionLabel(version int, previous *int) string {
	switch {
	case version == 0:
		return "-"
	case previous == nil:
		return fmt.Sprintf("v%d (new)", version)
	case *previous == version:
		return fmt.Sprintf("v%d", version)
	}
	return fmt.Sprintf("v%d → v%d", *previous, version)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
