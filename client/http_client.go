package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	transport  *http.Transport
	httpClient *http.Client
)

func init() {
	transport = &http.Transport{
		MaxIdleConns:        100,              // Maximum number of idle connections
		MaxIdleConnsPerHost: 10,               // Maximum idle connections per host
		IdleConnTimeout:     90 * time.Second, // How long to keep idle connections
		TLSHandshakeTimeout: 10 * time.Second, // TLS handshake timeout
		DisableCompression:  false,
		ForceAttemptHTTP2:   true,
	}

	httpClient = &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second, // Overall request timeout for origin fetches
	}
}

// GetHTTPClient returns the client used for origin fetches
func GetHTTPClient() *http.Client {
	return httpClient
}

// NewModelClient returns a client sharing the pooled transport with a longer
// timeout, since a single inference call can take far longer than a fetch.
func NewModelClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Fetch issues a GET for url bound to ctx.
func Fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	return httpClient.Do(req)
}

// ErrBodyTooLarge is returned by ReadLimited when r holds more than max bytes.
var ErrBodyTooLarge = errors.New("body exceeds size limit")

// ReadLimited reads r fully but fails once more than max bytes arrive.
// A max of 0 or less disables the limit.
func ReadLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, max)
	}

	return body, nil
}
