package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Database/storage layer", Describe(DB))
	assert.Equal(t, "", Describe("?"))
}

func TestGlyphsAreDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for glyph := range Descriptions {
		assert.False(t, seen[glyph], "duplicate glyph %s", glyph)
		seen[glyph] = true
	}
	assert.Len(t, seen, 5)
}
