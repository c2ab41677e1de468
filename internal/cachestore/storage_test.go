package cachestore

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storages returns one fresh instance of every Storage implementation.
func storages(t *testing.T) map[string]Storage {
	t.Helper()
	lite, err := OpenSQLite(filepath.Join(t.TempDir(), "cache", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })
	return map[string]Storage{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func sampleResponse(body string) *Response {
	return &Response{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": {"application/json"}, "X-Catalog-Version": {"7"}},
		Body:     []byte(body),
		StoredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		check func(t *testing.T, s Storage)
	}{
		{
			name: "put then match returns an equal copy",
			check: func(t *testing.T, s Storage) {
				b, err := s.Open(ctx, "bunbetsu-data-v7")
				require.NoError(t, err)
				require.NoError(t, b.Put(ctx, "/items", sampleResponse(`[1]`)))

				got, ok, err := b.Match(ctx, "/items")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, http.StatusOK, got.Status)
				assert.Equal(t, "7", got.Header.Get("X-Catalog-Version"))
				assert.Equal(t, `[1]`, string(got.Body))
				assert.True(t, got.StoredAt.Equal(sampleResponse("").StoredAt))

				got.Body[0] = 'x'
				again, _, err := b.Match(ctx, "/items")
				require.NoError(t, err)
				assert.Equal(t, `[1]`, string(again.Body), "stored entry must not be mutated through a copy")
			},
		},
		{
			name: "match miss",
			check: func(t *testing.T, s Storage) {
				b, err := s.Open(ctx, "c")
				require.NoError(t, err)
				_, ok, err := b.Match(ctx, "/absent")
				require.NoError(t, err)
				assert.False(t, ok)
			},
		},
		{
			name: "put replaces existing entry",
			check: func(t *testing.T, s Storage) {
				b, err := s.Open(ctx, "c")
				require.NoError(t, err)
				require.NoError(t, b.Put(ctx, "k", sampleResponse("old")))
				require.NoError(t, b.Put(ctx, "k", sampleResponse("new")))
				got, ok, err := b.Match(ctx, "k")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, "new", string(got.Body))
				keys, err := b.Keys(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"k"}, keys)
			},
		},
		{
			name: "buckets are isolated",
			check: func(t *testing.T, s Storage) {
				a, err := s.Open(ctx, "a")
				require.NoError(t, err)
				b, err := s.Open(ctx, "ab")
				require.NoError(t, err)
				require.NoError(t, a.Put(ctx, "k", sampleResponse("a")))
				_, ok, err := b.Match(ctx, "k")
				require.NoError(t, err)
				assert.False(t, ok)
			},
		},
		{
			name: "delete bucket removes its entries only",
			check: func(t *testing.T, s Storage) {
				a, err := s.Open(ctx, "a")
				require.NoError(t, err)
				ab, err := s.Open(ctx, "ab")
				require.NoError(t, err)
				require.NoError(t, a.Put(ctx, "k1", sampleResponse("1")))
				require.NoError(t, a.Put(ctx, "k2", sampleResponse("2")))
				require.NoError(t, ab.Put(ctx, "k1", sampleResponse("3")))

				ok, err := s.Delete(ctx, "a")
				require.NoError(t, err)
				assert.True(t, ok)
				ok, err = s.Delete(ctx, "a")
				require.NoError(t, err)
				assert.False(t, ok)

				has, err := s.Has(ctx, "a")
				require.NoError(t, err)
				assert.False(t, has)
				names, err := s.Names(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"ab"}, names)

				keys, err := ab.Keys(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"k1"}, keys)

				reopened, err := s.Open(ctx, "a")
				require.NoError(t, err)
				_, hit, err := reopened.Match(ctx, "k1")
				require.NoError(t, err)
				assert.False(t, hit)
			},
		},
		{
			name: "delete entry",
			check: func(t *testing.T, s Storage) {
				b, err := s.Open(ctx, "c")
				require.NoError(t, err)
				require.NoError(t, b.Put(ctx, "k", sampleResponse("x")))
				ok, err := b.Delete(ctx, "k")
				require.NoError(t, err)
				assert.True(t, ok)
				ok, err = b.Delete(ctx, "k")
				require.NoError(t, err)
				assert.False(t, ok)
			},
		},
		{
			name: "delete except keeps current and unrelated names",
			check: func(t *testing.T, s Storage) {
				for _, name := range []string{"shell-v1", "shell-v2", "shell-v3", "data-v9"} {
					_, err := s.Open(ctx, name)
					require.NoError(t, err)
				}
				deleted, err := DeleteExcept(ctx, s, "shell-", "shell-v3")
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"shell-v1", "shell-v2"}, deleted)

				names, err := s.Names(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"data-v9", "shell-v3"}, names)
			},
		},
		{
			name: "invalid names are rejected",
			check: func(t *testing.T, s Storage) {
				_, err := s.Open(ctx, "")
				assert.ErrorIs(t, err, ErrInvalidName)
				_, err = s.Open(ctx, "a\x00b")
				assert.ErrorIs(t, err, ErrInvalidName)
			},
		},
	}

	for _, tt := range tests {
		for kind, s := range storages(t) {
			t.Run(kind+"/"+tt.name, func(t *testing.T) {
				tt.check(t, s)
			})
		}
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	b, err := s.Open(ctx, "bunbetsu-data-v3")
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, "/items", sampleResponse("[]")))
	require.NoError(t, s.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	b2, err := s2.Open(ctx, "bunbetsu-data-v3")
	require.NoError(t, err)
	got, ok, err := b2.Match(ctx, "/items")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", string(got.Body))
}

func TestCaptureAndHTTPResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("hello")),
	}
	stored, err := Capture(resp, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(stored.Body))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body), "captured response stays readable")

	req, err := http.NewRequest(http.MethodGet, "http://example.test/x", nil)
	require.NoError(t, err)
	served := stored.HTTPResponse(req)
	assert.Equal(t, http.StatusOK, served.StatusCode)
	assert.Equal(t, "200 OK", served.Status)
	assert.Equal(t, int64(5), served.ContentLength)
	servedBody, err := io.ReadAll(served.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(servedBody))
}
