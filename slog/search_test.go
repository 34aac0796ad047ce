package slog_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/mock"
	wdslog "github.com/fwojciec/wikidigest/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingSearchIndex(t *testing.T) {
	t.Parallel()

	t.Run("Upsert logs document count", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		idx := wdslog.NewLoggingSearchIndex(&mock.SearchIndex{
			UpsertFn: func(_ context.Context, _ []*wikidigest.IndexDocument) error { return nil },
		}, newLogger(&buf))

		err := idx.Upsert(context.Background(), []*wikidigest.IndexDocument{{}, {}})

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "index upsert")
		assert.Contains(t, buf.String(), "count=2")
		assert.Contains(t, buf.String(), "duration=")
	})

	t.Run("DeletePage logs error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		idx := wdslog.NewLoggingSearchIndex(&mock.SearchIndex{
			DeletePageFn: func(_ context.Context, _ string) error { return errors.New("connection failed") },
		}, newLogger(&buf))

		err := idx.DeletePage(context.Background(), "123")

		require.Error(t, err)
		assert.Contains(t, buf.String(), "page=123")
		assert.Contains(t, buf.String(), `err="connection failed"`)
	})

	t.Run("QueryPage logs result count", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		idx := wdslog.NewLoggingSearchIndex(&mock.SearchIndex{
			QueryPageFn: func(_ context.Context, _ string) ([]*wikidigest.IndexDocument, error) {
				return []*wikidigest.IndexDocument{{}, {}, {}}, nil
			},
		}, newLogger(&buf))

		docs, err := idx.QueryPage(context.Background(), "123")

		require.NoError(t, err)
		assert.Len(t, docs, 3)
		assert.Contains(t, buf.String(), "count=3")
	})
}
