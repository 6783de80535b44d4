package mime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeClasses(t *testing.T) {
	assert.True(t, IsImageMime("image/png"))
	assert.False(t, IsImageMime("application/pdf"))
	assert.True(t, IsDocumentMime("application/pdf"))
	assert.True(t, IsVideoMime("video/webm"))
	assert.True(t, IsEncodableMime("image/webp"))
	assert.False(t, IsEncodableMime("image/gif"))

	assert.True(t, IsUpscalableMime("video/mp4"))
	assert.True(t, IsUpscalableMime("image/tiff"))
	assert.False(t, IsUpscalableMime("text/html"))
}

func TestFromPath(t *testing.T) {
	assert.Equal(t, "image/jpeg", FromPath("/tmp/cat.JPG"))
	assert.Equal(t, "image/webp", FromPath("out.webp"))
	assert.Equal(t, "application/pdf", FromPath("scan.pdf"))
	assert.Equal(t, "", FromPath("notes.txt"))
}
