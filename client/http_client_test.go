package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLimited(t *testing.T) {
	body, err := ReadLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(body))

	_, err = ReadLimited(strings.NewReader("123456"), 5)
	require.ErrorIs(t, err, ErrBodyTooLarge)

	body, err = ReadLimited(strings.NewReader("123456"), 0)
	require.NoError(t, err)
	assert.Len(t, body, 6)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("origin"))
	}))
	defer server.Close()

	resp, err := Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := ReadLimited(resp.Body, 1024)
	require.NoError(t, err)
	assert.Equal(t, "origin", string(body))
}
