package pool

import (
	"net/url"
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

const parsedURLCacheSize = 1000

// OriginMatcher checks source URLs against the allowed origin hostnames.
// Entries containing "*" are wildcard patterns, the rest match exactly.
type OriginMatcher struct {
	logger   *zap.Logger
	exact    map[string]struct{}
	patterns []string

	// parsed URLs keyed by their raw string; nil when the cache could not be built
	parsed *ristretto.Cache[string, *url.URL]
}

func NewOriginMatcher(logger *zap.Logger, origins []string) *OriginMatcher {
	m := &OriginMatcher{
		logger: logger,
		exact:  make(map[string]struct{}, len(origins)),
	}

	parsed, err := ristretto.NewCache(&ristretto.Config[string, *url.URL]{
		NumCounters: parsedURLCacheSize * 10,
		MaxCost:     parsedURLCacheSize,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		logger.Warn("parsed url cache disabled", zap.Error(err))
	} else {
		m.parsed = parsed
	}

	for _, origin := range origins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		if origin == "" {
			continue
		}
		if strings.Contains(origin, "*") {
			m.patterns = append(m.patterns, origin)
		} else {
			m.exact[origin] = struct{}{}
		}
	}
	return m
}

// AllowsAll reports whether no origin restriction is configured.
func (m *OriginMatcher) AllowsAll() bool {
	return len(m.exact) == 0 && len(m.patterns) == 0
}

// Match parses urlStr and reports whether it is an http(s) URL on an allowed
// host. The hostname is returned either way when the URL parses.
func (m *OriginMatcher) Match(urlStr string) (valid bool, hostname string) {
	parsedUrl, err := m.parse(urlStr)
	if err != nil {
		return false, ""
	}

	if parsedUrl.Scheme != "http" && parsedUrl.Scheme != "https" {
		return false, ""
	}

	hostname = strings.ToLower(parsedUrl.Hostname())
	if hostname == "" {
		return false, ""
	}

	if m.AllowsAll() {
		return true, hostname
	}

	if _, ok := m.exact[hostname]; ok {
		m.logger.Debug("origin matched", zap.String("hostname", hostname))
		return true, hostname
	}

	for _, pattern := range m.patterns {
		if wildcard.Match(pattern, hostname) {
			m.logger.Debug("origin matched", zap.String("origin", pattern), zap.String("hostname", hostname))
			return true, hostname
		}
	}

	return false, hostname
}

// parse returns the cached *url.URL for urlStr, parsing it on a miss. Callers
// must not modify the result.
func (m *OriginMatcher) parse(urlStr string) (*url.URL, error) {
	if m.parsed != nil {
		if parsedUrl, ok := m.parsed.Get(urlStr); ok {
			return parsedUrl, nil
		}
	}

	parsedUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	if m.parsed != nil {
		m.parsed.Set(urlStr, parsedUrl, 1)
	}

	return parsedUrl, nil
}
