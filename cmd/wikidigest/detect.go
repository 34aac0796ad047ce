package main

import (
	"fmt"

	"github.com/fwojciec/wikidigest"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Run executes the detect command. Pages are checked one at a time; a page
// that cannot be checked is reported and the rest carry on.
func (c *DetectCmd) Run(deps *Dependencies) error {
	ids := c.PageIDs
	if len(ids) == 0 {
		ids = deps.Config.PageIDs
	}
	if len(ids) == 0 {
		fmt.Fprintln(deps.Stderr, "error: no pages to check. Pass page IDs, set PAGE_IDS or use --pages.")
		return wikidigest.Errorf(wikidigest.EINVALID, "no pages to check")
	}

	t := newTable(deps.Stdout)
	t.AppendHeader(table.Row{"Page", "Title", "Version", "Changed", "Summary"})

	var failed int
	for _, id := range ids {
		if err := deps.Ctx.Err(); err != nil {
			return err
		}
		det, page, err := deps.Checker.Detect(deps.Ctx, id, false)
		if err != nil {
			failed++
			t.AppendRow(table.Row{id, "", "", "", "error: " + wikidigest.ErrorMessage(err)})
			continue
		}
		t.AppendRow(table.Row{
			id,
			wikidigest.Truncate(page.Title, 40),
			versionLabel(det.VersionNumber, det.PreviousVersion),
			yesNo(det.HasChanges),
			wikidigest.Truncate(firstLine(det.ChangeSummary), 60),
		})
	}
	t.Render()

	if !c.Save {
		fmt.Fprintln(deps.Stdout, "Preview only; run with --save to record snapshots.")
	}
	if failed > 0 {
		return wikidigest.Errorf(wikidigest.EUNAVAILABLE, "%d of %d pages could not be checked", failed, len(ids))
	}
	return nil
}
