// Package crawler fetches a fixed inventory of URLs, one CrawlResult per
// URL, preserving input order. Redirects are followed manually so each hop
// is recorded; failed fetches are retried with exponential backoff before
// being reported as a transport failure (§4.3 of the audit specification).
package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
	"github.com/coastvine/seoauditor/pkg/ratelimit"
)

// Crawler fetches URLs according to CrawlSettings, bounding concurrency and
// pacing requests with a shared rate limiter.
type Crawler struct {
	cfg     config.CrawlSettings
	client  *http.Client
	limiter *ratelimit.Limiter
}

// New builds a Crawler whose HTTP client never follows redirects
// automatically — Fetch walks the chain itself so every hop lands in
// CrawlResult.Redirects.
func New(cfg config.CrawlSettings) *Crawler {
	rps := 0.0
	if cfg.RateDelayMs > 0 {
		rps = 1000.0 / float64(cfg.RateDelayMs)
	}
	return &Crawler{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: ratelimit.NewLimiter(rps, 0),
	}
}

// Stop releases the crawler's rate limiter resources.
func (c *Crawler) Stop() {
	c.limiter.Stop()
}

// CrawlBatch fetches every URL in urls concurrently (bounded by
// cfg.Concurrency) and returns one CrawlResult per URL, in the same order
// as the input.
func (c *Crawler) CrawlBatch(ctx context.Context, urls []string) []model.CrawlResult {
	results := make([]model.CrawlResult, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	if c.cfg.Concurrency > 0 {
		g.SetLimit(c.cfg.Concurrency)
	}

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			results[i] = c.fetchWithRetry(gCtx, u)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// CrawlInBatches splits urls into chunks of batchSize and crawls each chunk
// in turn via CrawlBatch, invoking onBatch after every chunk so callers can
// persist progress between batches.
func (c *Crawler) CrawlInBatches(ctx context.Context, urls []string, batchSize int, onBatch func(batchIndex int, results []model.CrawlResult)) {
	if batchSize <= 0 {
		batchSize = len(urls)
	}
	for start, idx := 0, 0; start < len(urls); start, idx = start+batchSize, idx+1 {
		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}
		results := c.CrawlBatch(ctx, urls[start:end])
		if onBatch != nil {
			onBatch(idx, results)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Crawler) fetchWithRetry(ctx context.Context, targetURL string) model.CrawlResult {
	attempts := c.cfg.MaxRetries + 1
	var last model.CrawlResult
	for n := 1; n <= attempts; n++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.CrawlResult{RequestedURL: targetURL, Error: err.Error(), StartedAt: time.Now().UTC(), EndedAt: time.Now().UTC()}
		}

		last = c.fetch(ctx, targetURL)
		if last.Success() {
			return last
		}
		if n < attempts {
			delay := time.Duration(c.cfg.RetryBaseDelayMs) * time.Duration(1<<uint(n-1)) * time.Millisecond
			slog.Default().Warn("crawl attempt failed, retrying", "url", targetURL, "attempt", n, "err", last.Error, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return last
			}
		}
	}
	return last
}

// fetch performs a single attempt, manually walking up to MaxRedirects hops
// so each intermediate status and Location is captured.
func (c *Crawler) fetch(ctx context.Context, targetURL string) model.CrawlResult {
	start := time.Now().UTC()
	result := model.CrawlResult{RequestedURL: targetURL, FinalURL: targetURL, StartedAt: start}

	currentURL := targetURL
	var redirects []model.RedirectHop

	for hop := 0; ; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, currentURL, nil)
		if err != nil {
			result.Error = fmt.Sprintf("build request: %v", err)
			result.EndedAt = time.Now().UTC()
			result.DurationMs = result.EndedAt.Sub(start).Milliseconds()
			return result
		}
		c.setHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			result.Error = fmt.Sprintf("request failed: %v", err)
			result.EndedAt = time.Now().UTC()
			result.DurationMs = result.EndedAt.Sub(start).Milliseconds()
			return result
		}

		if isRedirectStatus(resp.StatusCode) {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			redirects = append(redirects, model.RedirectHop{URL: currentURL, Status: resp.StatusCode})

			if hop >= c.cfg.MaxRedirects || loc == "" {
				result.StatusCode = resp.StatusCode
				result.FinalURL = currentURL
				result.Redirects = redirects
				result.Headers = lowerHeaders(resp.Header)
				result.EndedAt = time.Now().UTC()
				result.DurationMs = result.EndedAt.Sub(start).Milliseconds()
				return result
			}

			next, err := req.URL.Parse(loc)
			if err != nil {
				result.Error = fmt.Sprintf("bad redirect location: %v", err)
				result.EndedAt = time.Now().UTC()
				result.DurationMs = result.EndedAt.Sub(start).Milliseconds()
				return result
			}
			currentURL = next.String()
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			result.Error = fmt.Sprintf("read body: %v", err)
		}

		result.StatusCode = resp.StatusCode
		result.FinalURL = currentURL
		result.Redirects = redirects
		result.Headers = lowerHeaders(resp.Header)
		result.Body = string(body)
		result.EndedAt = time.Now().UTC()
		result.DurationMs = result.EndedAt.Sub(start).Milliseconds()
		return result
	}
}

func (c *Crawler) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9,ar;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")
}

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func lowerHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[strings.ToLower(k)] = v[0]
		}
	}
	return out
}
