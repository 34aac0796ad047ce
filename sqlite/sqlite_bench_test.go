package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/sqlite"
	"github.com/stretchr/testify/require"
)

// BenchmarkSnapshotSweep simulates one sweep: every page gets a new version
// written with a compare-and-swap against the previous hash.
func BenchmarkSnapshotSweep(b *testing.B) {
	const pages = 100

	db := sqlite.NewDB(filepath.Join(b.TempDir(), "bench.db"))
	require.NoError(b, db.Open())
	defer db.Close()

	ctx := context.Background()
	svc := sqlite.NewSnapshotService(db)
	hashes := make([]string, pages)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for p := 0; p < pages; p++ {
			text := fmt.Sprintf("TITLE: Page %d\nVERSION: %d\n\nbody", p, i)
			snap := &wikidigest.PageSnapshot{
				PageID:        fmt.Sprintf("page-%d", p),
				VersionNumber: i + 1,
				ContentHash:   wikidigest.HashString(text),
				RawText:       text,
				SourceVersion: i + 1,
				ExtractedAt:   time.Now(),
			}
			if err := svc.PutSnapshot(ctx, snap, hashes[p]); err != nil {
				b.Fatal(err)
			}
			hashes[p] = snap.ContentHash
		}
	}
}
