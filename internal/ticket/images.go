// internal/ticket/images.go
package ticket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxParallelFetches bounds concurrent image downloads for one job
const maxParallelFetches = 4

// ImageFetcher resolves a URL to raw image bytes
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads images over HTTP(S) and decodes data URIs locally
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher with a per-request timeout and size cap
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads url, failing on non-2xx responses and oversized bodies
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "data:") {
		data := decodeBase64(url)
		if data == nil {
			return nil, fmt.Errorf("invalid data URI")
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

// ResolveImages returns a copy of job in which URL-only images carry the
// fetched bytes. Fetch failures are logged and leave the item unresolved so
// the compiler drops it.
func ResolveImages(ctx context.Context, job Job, fetcher ImageFetcher, logger *zap.Logger) Job {
	items := make([]Item, len(job.Items))
	copy(items, job.Items)

	if fetcher == nil {
		return Job{Items: items, Options: job.Options}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxParallelFetches)
	for i, it := range items {
		img, ok := it.(ImageItem)
		if !ok || len(img.Data) > 0 || img.URL == "" {
			continue
		}

		wg.Add(1)
		go func(i int, img ImageItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, err := fetcher.Fetch(ctx, img.URL)
			if err != nil {
				logger.Warn("Image fetch failed, item will be skipped",
					zap.Int("index", i),
					zap.String("url", img.URL),
					zap.Error(err),
				)
				return
			}
			img.Data = data
			items[i] = img
		}(i, img)
	}
	wg.Wait()

	return Job{Items: items, Options: job.Options}
}
