package thumbnail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsMaxDim(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 320, New(0).MaxDim)
	assert.Equal(t, 320, New(-5).MaxDim)
	assert.Equal(t, 128, New(128).MaxDim)
}

func TestShouldGeneratePrefersFiletypeHintOverExtension(t *testing.T) {
	t.Parallel()

	g := New(256)

	assert.True(t, g.ShouldGenerate("/mnt/payload.bin", "image/png"))
	assert.False(t, g.ShouldGenerate("/mnt/payload.png", "application/zip"), "an explicit non-image hint wins even over an image-looking extension")
	assert.True(t, g.ShouldGenerate("/mnt/photo.jpg", ""), "falls back to extension when no hint is given")
	assert.False(t, g.ShouldGenerate("/mnt/archive.zip", ""))
}

func TestOutputPathAppendsThumbSuffix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/mnt/photo.jpg.thumb.jpg", OutputPath("/mnt/photo.jpg"))
}
