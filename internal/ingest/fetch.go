package ingest

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/gridsight/heatgrid-cli/internal/resilience"
)

// Fetcher downloads raw feed files over HTTP with retries and a shared rate
// limit, so repeated ingests stay polite to the NOAA/EIA mirrors.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	retry     resilience.RetryConfig
}

// FetchOptions configures a Fetcher.
type FetchOptions struct {
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RequestsPerSec float64
}

// NewFetcher creates a Fetcher with sane defaults for unset options.
func NewFetcher(opts FetchOptions) *Fetcher {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		userAgent: opts.UserAgent,
		retry: resilience.RetryConfig{
			MaxAttempts:    retries,
			InitialBackoff: 500 * time.Millisecond,
		},
	}
}

// Download fetches url into dest. Transient failures (throttling, 5xx,
// network resets) are retried with backoff; anything else fails immediately.
func (f *Fetcher) Download(ctx context.Context, url, dest string) error {
	cfg := f.retry
	cfg.OnRetry = resilience.RetryLogger("feed-mirror", url)

	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
		return f.downloadOnce(ctx, url, dest)
	})
	return eris.Wrapf(err, "fetch: download %s", url)
}

func (f *Fetcher) downloadOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("download returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, resp.Body); err != nil {
		return eris.Wrap(err, "write file")
	}
	return nil
}
