package bluemonday_test

import (
	"testing"

	"github.com/fwojciec/wikidigest/bluemonday"
	"github.com/stretchr/testify/assert"
)

func TestSanitizer_Sanitize(t *testing.T) {
	t.Parallel()

	s := bluemonday.NewSanitizer()

	t.Run("removes scripts", func(t *testing.T) {
		t.Parallel()

		got := s.Sanitize(`<p>Summary</p><script>alert(1)</script>`)

		assert.Equal(t, `<p>Summary</p>`, got)
	})

	t.Run("removes event handlers", func(t *testing.T) {
		t.Parallel()

		got := s.Sanitize(`<p onclick="steal()">Summary</p>`)

		assert.Equal(t, `<p>Summary</p>`, got)
	})

	t.Run("drops javascript links", func(t *testing.T) {
		t.Parallel()

		got := s.Sanitize(`<a href="javascript:alert(1)">open</a>`)

		assert.NotContains(t, got, "javascript:")
		assert.Contains(t, got, "open")
	})

	t.Run("keeps inline styles used by the email layout", func(t *testing.T) {
		t.Parallel()

		got := s.Sanitize(`<p style="margin: 8px 0; line-height: 1.5">Overview</p>`)

		assert.Contains(t, got, `style="`)
		assert.Contains(t, got, "line-height: 1.5")
		assert.Contains(t, got, "Overview")
	})

	t.Run("keeps links to the wiki page", func(t *testing.T) {
		t.Parallel()

		got := s.Sanitize(`<a href="https://wiki.example.com/wiki/spaces/ENG/pages/42">View page</a>`)

		assert.Contains(t, got, `href="https://wiki.example.com/wiki/spaces/ENG/pages/42"`)
		assert.Contains(t, got, `target="_blank"`)
	})
}
