// Package scraper provides the shared outbound HTTP client used by every
// lookup: randomized User-Agent, bounded retries with backoff, gzip and
// charset decoding, HTML and JSON helpers, and classification of failures
// into upstream and connectivity errors.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/tulul/tululbot/internal/config"
	domerrors "github.com/tulul/tululbot/internal/errors"
	"github.com/tulul/tululbot/internal/metrics"
)

// MaxBodySize is the largest response body accepted. Larger bodies are
// rejected rather than cut short.
const MaxBodySize = 4 << 20

// Options configures a Client.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Metrics    *metrics.Metrics

	// HTTPClient overrides the underlying client, e.g. in tests.
	HTTPClient *http.Client
}

// Client is an HTTP client for upstream lookups.
type Client struct {
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	metrics    *metrics.Metrics
}

// NewClient creates a new client. Zero options fall back to config defaults.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = config.ScraperRequest
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = config.ScraperRetryInitial
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		httpClient: hc,
		maxRetries: max(opts.MaxRetries, 0),
		retryDelay: opts.RetryDelay,
		metrics:    opts.Metrics,
	}
}

// Get performs a GET with retries. source names the upstream in errors and
// metrics. The caller must close the response body.
//
// Network failures yield *errors.ConnectivityError; non-2xx responses yield
// *errors.UpstreamError. 4xx responses other than 408 and 429 are not retried.
func (c *Client) Get(ctx context.Context, source, rawURL string) (*http.Response, error) {
	start := time.Now()
	var resp *http.Response

	err := RetryWithBackoff(ctx, c.maxRetries, c.retryDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", uarand.GetRandom())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9,id;q=0.8")
		req.Header.Set("Accept-Encoding", "gzip")

		r, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return Permanent(ctx.Err())
			}
			return domerrors.NewConnectivityError(source, rawURL, err)
		}

		if r.StatusCode < 200 || r.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
			_ = r.Body.Close()
			upErr := domerrors.NewUpstreamError(source, rawURL, r.StatusCode, fmt.Errorf("unexpected status %s", r.Status))
			if r.StatusCode >= 400 && r.StatusCode < 500 && r.StatusCode != http.StatusRequestTimeout && r.StatusCode != http.StatusTooManyRequests {
				return Permanent(upErr)
			}
			return upErr
		}

		resp = r
		return nil
	})

	if err != nil {
		err = domerrors.Classify(source, rawURL, err)
		c.record(source, err, start)
		return nil, err
	}
	c.record(source, nil, start)
	return resp, nil
}

func (c *Client) record(source string, err error, start time.Time) {
	status := "success"
	switch {
	case err == nil:
	case domerrors.IsConnectivity(err):
		status = "connectivity_error"
	default:
		status = "upstream_error"
	}
	c.metrics.RecordUpstream(source, status, time.Since(start).Seconds())
}

// GetBody performs a GET and returns the decoded body as UTF-8.
func (c *Client) GetBody(ctx context.Context, source, rawURL string) ([]byte, error) {
	resp, err := c.Get(ctx, source, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, domerrors.NewUpstreamError(source, rawURL, resp.StatusCode, err)
	}
	body, err := io.ReadAll(io.LimitReader(reader, MaxBodySize+1))
	if err != nil {
		return nil, domerrors.Classify(source, rawURL, fmt.Errorf("read body: %w", err))
	}
	if len(body) > MaxBodySize {
		return nil, domerrors.NewUpstreamError(source, rawURL, resp.StatusCode,
			fmt.Errorf("response body exceeds %d bytes", MaxBodySize))
	}
	return body, nil
}

// GetDocument performs a GET and parses the response as HTML.
func (c *Client) GetDocument(ctx context.Context, source, rawURL string) (*goquery.Document, error) {
	body, err := c.GetBody(ctx, source, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, domerrors.NewUpstreamError(source, rawURL, 0, fmt.Errorf("failed to parse HTML: %w", err))
	}
	return doc, nil
}

// GetJSON performs a GET and decodes the JSON body into v. A body that is
// not valid JSON is an upstream error.
func (c *Client) GetJSON(ctx context.Context, source, rawURL string, v any) error {
	body, err := c.GetBody(ctx, source, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domerrors.NewUpstreamError(source, rawURL, 0, fmt.Errorf("failed to decode JSON: %w", err))
	}
	return nil
}

// decodeBody undoes gzip content encoding and converts non-UTF-8 charsets.
func decodeBody(resp *http.Response) (io.Reader, error) {
	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		reader = gz
	}

	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return reader, nil
	}
	name := strings.ToLower(params["charset"])
	if name == "" || name == "utf-8" || name == "utf8" {
		return reader, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return reader, nil
	}
	return transform.NewReader(reader, enc.NewDecoder()), nil
}
