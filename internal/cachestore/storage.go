// Package cachestore is named storage for HTTP responses, shared by the edge
// cache interceptor and the client persistent cache. A Storage holds named
// buckets; a Bucket maps request keys to stored responses. Two
// implementations exist: Memory (an ordered in-process map) and SQLite (a
// file that survives restarts).
package cachestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Response is a stored HTTP response. Stored responses are never mutated;
// every read returns a copy.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Storage is a set of named buckets.
type Storage interface {
	// Open returns the bucket with the given name, creating it if needed.
	Open(ctx context.Context, name string) (Bucket, error)
	// Has reports whether a bucket with the given name exists.
	Has(ctx context.Context, name string) (bool, error)
	// Delete removes a bucket and all its entries. It reports whether the
	// bucket existed.
	Delete(ctx context.Context, name string) (bool, error)
	// Names lists bucket names in ascending order.
	Names(ctx context.Context) ([]string, error)
}

// Bucket maps request keys to responses.
type Bucket interface {
	Name() string
	// Match returns the stored response for key. The bool is false on a
	// miss.
	Match(ctx context.Context, key string) (*Response, bool, error)
	Put(ctx context.Context, key string, resp *Response) error
	Delete(ctx context.Context, key string) (bool, error)
	// Keys lists stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)
}

// Clone returns a deep copy of r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		Status:   r.Status,
		Header:   r.Header.Clone(),
		Body:     bytes.Clone(r.Body),
		StoredAt: r.StoredAt,
	}
}

// HTTPResponse builds an *http.Response serving a copy of r for req.
func (r *Response) HTTPResponse(req *http.Request) *http.Response {
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", r.Status, http.StatusText(r.Status)),
		StatusCode:    r.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(bytes.Clone(r.Body))),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}

// Capture reads resp's body, replaces it with an equivalent in-memory body
// so the caller can still consume it, and returns a Response for storage.
func Capture(resp *http.Response, now time.Time) (*Response, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: now,
	}, nil
}

// DeleteExcept deletes every bucket whose name starts with prefix except
// keep. It returns the deleted names. Deletion continues past individual
// failures; the first error is returned.
func DeleteExcept(ctx context.Context, s Storage, prefix, keep string) ([]string, error) {
	names, err := s.Names(ctx)
	if err != nil {
		return nil, err
	}
	var (
		deleted  []string
		firstErr error
	)
	for _, name := range names {
		if name == keep || !strings.HasPrefix(name, prefix) {
			continue
		}
		ok, err := s.Delete(ctx, name)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("deleting cache %q: %w", name, err)
			}
			continue
		}
		if ok {
			deleted = append(deleted, name)
		}
	}
	return deleted, firstErr
}
