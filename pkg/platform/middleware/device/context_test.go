package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	t.Run("empty agent", func(t *testing.T) {
		assert.Equal(t, "", Describe("  "))
	})

	t.Run("desktop chrome", func(t *testing.T) {
		got := Describe("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36")
		assert.Contains(t, got, "Chrome 120")
		assert.NotContains(t, got, "mobile")
	})

	t.Run("bots are flagged", func(t *testing.T) {
		assert.Equal(t, "bot", Describe("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"))
	})
}
