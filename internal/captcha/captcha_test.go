package captcha

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G'}

func TestGenerate(t *testing.T) {
	g := New()

	text, image, err := g.Generate()
	require.NoError(t, err)

	assert.Len(t, text, defaultLength)
	for _, r := range text {
		assert.True(t, strings.ContainsRune(charPreset, r), "unexpected character %q", r)
	}

	require.Greater(t, len(image), len(pngHeader))
	assert.True(t, bytes.HasPrefix(image, pngHeader), "image must be a PNG")
}

func TestGenerateVaries(t *testing.T) {
	g := New()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		text, _, err := g.Generate()
		require.NoError(t, err)
		seen[text] = true
	}
	assert.Greater(t, len(seen), 1, "answers must not repeat every time")
}

func TestPresetAvoidsAmbiguousGlyphs(t *testing.T) {
	for _, r := range "0O1Ilgqo" {
		assert.False(t, strings.ContainsRune(charPreset, r), "ambiguous character %q in preset", r)
	}
}
