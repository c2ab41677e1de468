package edgecache

import (
	"net/http"
	"path"
	"strings"
)

// Policy selects how a request is served.
type Policy int

const (
	// Bypass sends the request to the network untouched.
	Bypass Policy = iota
	// CacheFirst serves a stored response when one exists.
	CacheFirst
	// NetworkFirst asks the network and falls back to a stored response.
	NetworkFirst
)

func (p Policy) String() string {
	switch p {
	case CacheFirst:
		return "cache-first"
	case NetworkFirst:
		return "network-first"
	default:
		return "bypass"
	}
}

// Rules decides which GET requests are static assets.
type Rules struct {
	StaticPrefixes   []string
	StaticExtensions []string
	StaticPaths      []string
}

// DefaultRules treats /static/, common asset extensions, and the web
// manifest as static.
func DefaultRules() Rules {
	return Rules{
		StaticPrefixes: []string{"/static/", "/_next/static/"},
		StaticExtensions: []string{
			".js", ".css", ".png", ".jpg", ".jpeg", ".svg", ".ico",
			".webp", ".woff", ".woff2", ".webmanifest",
		},
		StaticPaths: []string{"/manifest.json"},
	}
}

// Classify returns the policy for req. Non-GET requests bypass the cache,
// static assets are cache-first, and everything else is network-first.
func (r Rules) Classify(req *http.Request) Policy {
	if req.Method != http.MethodGet {
		return Bypass
	}
	p := req.URL.Path
	for _, sp := range r.StaticPaths {
		if p == sp {
			return CacheFirst
		}
	}
	for _, prefix := range r.StaticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return CacheFirst
		}
	}
	ext := strings.ToLower(path.Ext(p))
	for _, e := range r.StaticExtensions {
		if ext == e {
			return CacheFirst
		}
	}
	return NetworkFirst
}
