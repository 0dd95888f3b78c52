// Package fetch resolves comparison inputs into plain bill text,
// whether they arrive as local files, pasted text or URLs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultMaxBodySize caps fetched response bodies. Bill text pages
	// are large but not this large.
	defaultMaxBodySize = 20 << 20 // 20 MB

	maxRedirects = 5

	// userAgent mimics a desktop browser; congress.gov rejects
	// obviously non-browser clients.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// ErrTooLarge is returned when a response body exceeds the size cap.
var ErrTooLarge = errors.New("response body too large")

// Fetcher retrieves web pages with a shared outbound rate limit so
// repeated comparisons stay polite to congress.gov.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	maxBodySize int64
}

// NewFetcher creates a Fetcher with the given per-request timeout and
// outbound requests-per-second limit.
func NewFetcher(timeout time.Duration, requestsPerSec float64) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				return nil
			},
		},
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSec), 2),
		maxBodySize: defaultMaxBodySize,
	}
}

// FetchPage retrieves the raw HTML at urlStr. It blocks on the rate
// limiter first, so a burst of comparisons queues instead of hammering
// the source site.
func (f *Fetcher) FetchPage(ctx context.Context, urlStr string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", urlStr, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, urlStr, f.maxBodySize)
	}
	return body, nil
}
