package edgecache

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		method string
		target string
		want   Policy
	}{
		{http.MethodGet, "/static/app.js", CacheFirst},
		{http.MethodGet, "/icons/logo.SVG", CacheFirst},
		{http.MethodGet, "/fonts/noto.woff2", CacheFirst},
		{http.MethodGet, "/manifest.json", CacheFirst},
		{http.MethodGet, "/items", NetworkFirst},
		{http.MethodGet, "/version", NetworkFirst},
		{http.MethodGet, "/", NetworkFirst},
		{http.MethodGet, "/search?q=app.js", NetworkFirst},
		{http.MethodPost, "/admin/items", Bypass},
		{http.MethodPost, "/static/app.js", Bypass},
		{http.MethodDelete, "/admin/categories/1", Bypass},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			assert.Equal(t, tt.want, rules.Classify(req))
		})
	}
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "cache-first", CacheFirst.String())
	assert.Equal(t, "network-first", NetworkFirst.String())
	assert.Equal(t, "bypass", Bypass.String())
}

func TestFamily(t *testing.T) {
	assert.Equal(t, "bunbetsu-shell-v", family("bunbetsu-shell-v1"))
	assert.Equal(t, "bunbetsu-shell-v", family("bunbetsu-shell-v12"))
	assert.Equal(t, "plain-v", family("plain"))
}
