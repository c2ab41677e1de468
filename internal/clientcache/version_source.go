package clientcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPVersionSource fetches the version from GET <base>/version.
type HTTPVersionSource struct {
	BaseURL string
	Client  *http.Client
}

// CurrentVersion implements VersionSource.
func (s *HTTPVersionSource) CurrentVersion(ctx context.Context) (int64, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(s.BaseURL, "/")+"/version", nil)
	if err != nil {
		return 0, fmt.Errorf("building version request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching version: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetching version: status %d", resp.StatusCode)
	}

	var body struct {
		Version *int64 `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding version: %w", err)
	}
	if body.Version == nil {
		return 0, fmt.Errorf("version missing from response")
	}
	return *body.Version, nil
}
