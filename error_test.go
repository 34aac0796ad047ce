package wikidigest_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/fwojciec/wikidigest"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := wikidigest.Errorf(wikidigest.ENOTFOUND, "page %q not found", "123")

	assert.Equal(t, wikidigest.ENOTFOUND, wikidigest.ErrorCode(err))
	assert.Equal(t, "page \"123\" not found", wikidigest.ErrorMessage(err))
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	t.Run("nil error has no code", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, wikidigest.ErrorCode(nil))
		assert.Empty(t, wikidigest.ErrorMessage(nil))
	})

	t.Run("wrapped application error keeps its code", func(t *testing.T) {
		t.Parallel()

		err := fmt.Errorf("fetch page: %w", wikidigest.Errorf(wikidigest.EUNAVAILABLE, "rate limited"))

		assert.Equal(t, wikidigest.EUNAVAILABLE, wikidigest.ErrorCode(err))
		assert.Equal(t, "rate limited", wikidigest.ErrorMessage(err))
		assert.True(t, wikidigest.IsTransient(err))
	})

	t.Run("other errors are internal", func(t *testing.T) {
		t.Parallel()

		err := errors.New("disk full")

		assert.Equal(t, wikidigest.EINTERNAL, wikidigest.ErrorCode(err))
		assert.Equal(t, "Internal error.", wikidigest.ErrorMessage(err))
		assert.False(t, wikidigest.IsTransient(err))
	})
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, ""},
		{http.StatusTooManyRequests, wikidigest.EUNAVAILABLE},
		{http.StatusInternalServerError, wikidigest.EUNAVAILABLE},
		{http.StatusServiceUnavailable, wikidigest.EUNAVAILABLE},
		{http.StatusNotFound, wikidigest.ENOTFOUND},
		{http.StatusConflict, wikidigest.ECONFLICT},
		{http.StatusPreconditionFailed, wikidigest.ECONFLICT},
		{http.StatusBadRequest, wikidigest.EINVALID},
		{http.StatusUnauthorized, wikidigest.EINVALID},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, wikidigest.StatusCode(tt.status))
		})
	}
}
