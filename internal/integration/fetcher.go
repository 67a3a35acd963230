// Package integration handles external service interactions
package integration

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

// FetcherOptions configures the page fetcher
type FetcherOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration
}

// PageFetcher downloads HTML pages and other documents over HTTP
type PageFetcher struct {
	client *resty.Client
}

// NewPageFetcher creates a fetcher with a bounded timeout and retries on
// transient failures
func NewPageFetcher(opts FetcherOptions) *PageFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "berlin-covid/1.0"
	}
	if opts.RetryWait == 0 {
		opts.RetryWait = time.Second
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetRetryCount(opts.MaxRetries)
	client.SetRetryWaitTime(opts.RetryWait)
	client.SetRetryMaxWaitTime(opts.RetryWait * 8)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return res.StatusCode() == http.StatusTooManyRequests || res.StatusCode() >= 500
	})

	return &PageFetcher{client: client}
}

// Fetch retrieves the body of url. Any failure is a FetchError.
func (f *PageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	zap.L().Debug("sending HTTP request", zap.String("url", url))

	res, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		zap.L().Warn("error fetching page", zap.String("url", url), zap.Error(err))
		return nil, entities.NewFetchError(url, eris.Wrap(err, "failed to fetch the webpage"))
	}
	if res.StatusCode() < 200 || res.StatusCode() > 299 {
		zap.L().Warn("received unexpected status code",
			zap.String("url", url),
			zap.Int("status", res.StatusCode()),
		)
		return nil, entities.NewFetchError(url, eris.Errorf("unexpected status code: %s", res.Status()))
	}

	zap.L().Debug("received HTTP response",
		zap.String("url", url),
		zap.String("status", res.Status()),
		zap.Int("bytes", len(res.Body())),
		zap.Duration("elapsed", res.Time()),
	)
	return res.Body(), nil
}

// FetchDocument retrieves url and parses it as HTML
func (f *PageFetcher) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, entities.NewFetchError(url, eris.Wrap(err, "failed to parse the webpage"))
	}
	return doc, nil
}
