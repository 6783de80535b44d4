package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOriginMatcher(t *testing.T) {
	m := NewOriginMatcher(zap.NewNop(), []string{"example.com", "*.cdn.example.org", " "})

	tests := []struct {
		url      string
		valid    bool
		hostname string
	}{
		{"https://example.com/a.png", true, "example.com"},
		{"http://EXAMPLE.com:8080/a.png", true, "example.com"},
		{"https://img.cdn.example.org/a.png", true, "img.cdn.example.org"},
		{"https://evil.com/a.png", false, "evil.com"},
		{"ftp://example.com/a.png", false, ""},
		{"file:///etc/passwd", false, ""},
		{"://broken", false, ""},
	}

	for _, tt := range tests {
		valid, hostname := m.Match(tt.url)
		assert.Equal(t, tt.valid, valid, tt.url)
		assert.Equal(t, tt.hostname, hostname, tt.url)
	}
}

func TestOriginMatcher_NoRestriction(t *testing.T) {
	m := NewOriginMatcher(zap.NewNop(), nil)
	assert.True(t, m.AllowsAll())

	valid, hostname := m.Match("https://anywhere.net/x.jpg")
	assert.True(t, valid)
	assert.Equal(t, "anywhere.net", hostname)

	valid, _ = m.Match("gopher://anywhere.net/x.jpg")
	assert.False(t, valid)
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("payload")
	PutBuffer(buf)

	again := GetBuffer()
	assert.Zero(t, again.Len())
	PutBuffer(again)
}

func TestOriginMatcher_CachesParsedURLs(t *testing.T) {
	m := NewOriginMatcher(zap.NewNop(), []string{"example.com"})
	require.NotNil(t, m.parsed)

	const source = "https://example.com/a.png"
	valid, hostname := m.Match(source)
	assert.True(t, valid)
	assert.Equal(t, "example.com", hostname)

	m.parsed.Wait()
	cached, ok := m.parsed.Get(source)
	require.True(t, ok)
	assert.Equal(t, "/a.png", cached.Path)

	valid, hostname = m.Match(source)
	assert.True(t, valid)
	assert.Equal(t, "example.com", hostname)

	m.Match("://broken")
	m.parsed.Wait()
	_, ok = m.parsed.Get("://broken")
	assert.False(t, ok)
}
