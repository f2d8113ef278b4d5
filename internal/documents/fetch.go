package documents

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"intake-backend/internal/extract"
)

// Fetcher downloads the bytes behind a retrieval URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPFetcher downloads over HTTP(S) with a hard size cap.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPFetcher constructs an HTTPFetcher. maxBytes <= 0 selects extract.MaxDocumentBytes.
func NewHTTPFetcher(maxBytes int64) *HTTPFetcher {
	if maxBytes <= 0 {
		maxBytes = extract.MaxDocumentBytes
	}
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: 60 * time.Second},
		MaxBytes: maxBytes,
	}
}

// Fetch returns the body of rawURL. Non-2xx responses wrap ErrDownloadFailed;
// bodies over MaxBytes yield ErrTooLarge. The response body is always closed.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url", ErrDownloadFailed)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	req.Header.Set("Accept", "*/*")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d %s", ErrDownloadFailed, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if resp.ContentLength > f.MaxBytes {
		return nil, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if int64(len(data)) > f.MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
