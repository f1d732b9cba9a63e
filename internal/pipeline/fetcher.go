package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves raw image bytes for a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads images over HTTP. Responses are read up to
// maxBytes+1 so oversize files are detected without buffering the
// whole body.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}
