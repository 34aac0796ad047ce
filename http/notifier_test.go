package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/wikidigest"
	wdhttp "github.com/fwojciec/wikidigest/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instantRetries() wdhttp.Option {
	return wdhttp.WithRetryDelays(make([]time.Duration, 3))
}

func TestNotifier_Send(t *testing.T) {
	t.Parallel()

	msg := &wikidigest.Message{To: "a@example.com", Subject: "Wiki Update: Page", HTMLBody: "<p>hi</p>"}

	t.Run("posts the message as JSON", func(t *testing.T) {
		t.Parallel()

		var got map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		err := wdhttp.NewNotifier(server.URL, nil, instantRetries()).Send(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, map[string]string{"to": "a@example.com", "subject": "Wiki Update: Page", "body": "<p>hi</p>"}, got)
	})

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		err := wdhttp.NewNotifier(server.URL, nil, instantRetries()).Send(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		err := wdhttp.NewNotifier(server.URL, nil, instantRetries()).Send(context.Background(), msg)

		assert.Equal(t, wikidigest.EINVALID, wikidigest.ErrorCode(err))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gives up after the retries run out", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		err := wdhttp.NewNotifier(server.URL, nil, instantRetries()).Send(context.Background(), msg)

		assert.Equal(t, wikidigest.EUNAVAILABLE, wikidigest.ErrorCode(err))
		assert.Equal(t, int32(4), calls.Load())
	})

	t.Run("rejects an empty recipient", func(t *testing.T) {
		t.Parallel()

		err := wdhttp.NewNotifier("http://unused", nil).Send(context.Background(), &wikidigest.Message{})

		assert.Equal(t, wikidigest.EINVALID, wikidigest.ErrorCode(err))
	})
}
