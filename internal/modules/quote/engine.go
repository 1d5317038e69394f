// Package quote serves random tulul quotes from a YAML document hosted on
// GitHub. The parsed list is cached in memory and replaced only by a fully
// successful refresh.
package quote

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tulul/tululbot/internal/config"
	"github.com/tulul/tululbot/internal/ctxutil"
	domerrors "github.com/tulul/tululbot/internal/errors"
	"github.com/tulul/tululbot/internal/logger"
	"github.com/tulul/tululbot/internal/metrics"
	"github.com/tulul/tululbot/internal/scraper"
)

// Module constants.
const (
	ModuleName = "quote"

	// DefaultRawBaseURL is where a document is fetched for a given commit sha.
	DefaultRawBaseURL = "https://raw.githubusercontent.com/tulul/tulul-quotes"

	sourceDocument = "quote"
	sourceBranch   = "github"
	refreshKey     = "quote:refresh"
)

// Record is one entry of the quote document.
type Record struct {
	Quote     string `yaml:"quote"`
	Author    string `yaml:"author"`
	AuthorBio string `yaml:"author_bio"`
}

// String formats the record as "<quote> - <author>, <author_bio>".
func (r Record) String() string {
	return fmt.Sprintf("%s - %s, %s", r.Quote, r.Author, r.AuthorBio)
}

type document struct {
	Quotes []Record `yaml:"quotes"`
}

type branchInfo struct {
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// Fetcher retrieves upstream documents. *scraper.Client satisfies it.
type Fetcher interface {
	GetBody(ctx context.Context, source, rawURL string) ([]byte, error)
	GetJSON(ctx context.Context, source, rawURL string, v any) error
}

// SnapshotStore persists the last document that parsed successfully.
// LoadSnapshot returns errors.ErrNotFound when nothing was saved yet.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, fingerprint string, document []byte) error
	LoadSnapshot(ctx context.Context) (fingerprint string, document []byte, err error)
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	DocumentURL     string
	BranchURL       string
	RawBaseURL      string
	RefreshInterval time.Duration
	Snapshots       SnapshotStore
	Metrics         *metrics.Metrics
	Logger          *logger.Logger

	// Clock and Intn are replaced in tests.
	Clock func() time.Time
	Intn  func(n int) int
}

// Engine holds the quote cache.
type Engine struct {
	fetcher   Fetcher
	group     *scraper.Group
	snapshots SnapshotStore
	metrics   *metrics.Metrics
	logger    *logger.Logger
	clock     func() time.Time
	intn      func(n int) int

	branchURL  string
	rawBaseURL string
	interval   time.Duration

	mu          sync.RWMutex
	cache       []Record
	documentURL string
	documentSHA string
	appliedSHA  string
	lastCheck   time.Time

	// gate serializes fingerprint checks.
	gate sync.Mutex
}

// NewEngine creates an engine with an empty cache.
func NewEngine(fetcher Fetcher, opts Options) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		group:       scraper.NewGroup(opts.Metrics),
		snapshots:   opts.Snapshots,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		clock:       opts.Clock,
		intn:        opts.Intn,
		branchURL:   opts.BranchURL,
		rawBaseURL:  opts.RawBaseURL,
		interval:    opts.RefreshInterval,
		documentURL: opts.DocumentURL,
	}
	if e.documentURL == "" {
		e.documentURL = config.DefaultQuoteURL
	}
	if e.branchURL == "" {
		e.branchURL = config.DefaultQuoteBranchURL
	}
	if e.rawBaseURL == "" {
		e.rawBaseURL = DefaultRawBaseURL
	}
	if e.interval <= 0 {
		e.interval = config.QuoteRefreshInterval
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.intn == nil {
		e.intn = rand.IntN
	}
	if e.logger == nil {
		e.logger = logger.New("info")
	}
	e.logger = e.logger.WithModule(ModuleName)
	return e
}

// Size returns the number of cached quotes.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// DocumentURL returns the URL the next refresh will fetch.
func (e *Engine) DocumentURL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.documentURL
}

// RetrieveRandom returns a uniformly chosen quote. An empty cache is
// refreshed synchronously first.
func (e *Engine) RetrieveRandom(ctx context.Context) (string, error) {
	if e.Size() == 0 {
		if err := e.RefreshCache(ctx); err != nil {
			return "", err
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.cache) == 0 {
		return "", domerrors.NewUpstreamError(sourceDocument, e.documentURL, 0, errors.New("quote cache is empty"))
	}
	return e.cache[e.intn(len(e.cache))].String(), nil
}

// RefreshCache fetches and parses the document, replacing the cache only on
// success. Concurrent calls share one fetch. When the cache is empty and the
// fetch fails, the last saved snapshot is loaded instead.
func (e *Engine) RefreshCache(ctx context.Context) error {
	_, err := e.group.Do(ctx, refreshKey, func() (any, error) {
		detached, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), config.WebhookProcessing)
		defer cancel()
		return nil, e.refresh(detached)
	})
	return err
}

func (e *Engine) refresh(ctx context.Context) error {
	e.mu.RLock()
	url, sha := e.documentURL, e.documentSHA
	e.mu.RUnlock()

	raw, records, err := e.fetch(ctx, url)
	if err != nil {
		e.metrics.RecordQuoteRefresh("error")
		if e.Size() == 0 && e.restoreSnapshot(ctx) {
			return nil
		}
		return err
	}

	e.replace(records)
	e.mu.Lock()
	e.appliedSHA = sha
	e.mu.Unlock()
	e.metrics.RecordQuoteRefresh("success")
	e.logger.WithField("count", len(records)).Debug("Quote cache refreshed")

	if e.snapshots != nil {
		if err := e.snapshots.SaveSnapshot(ctx, sha, raw); err != nil {
			e.logger.WithError(err).Warn("Failed to save quote snapshot")
		}
	}
	return nil
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, []Record, error) {
	body, err := e.fetcher.GetBody(ctx, sourceDocument, url)
	if err != nil {
		return nil, nil, err
	}
	records, err := Parse(body)
	if err != nil {
		return nil, nil, domerrors.NewUpstreamError(sourceDocument, url, 0, err)
	}
	return body, records, nil
}

func (e *Engine) restoreSnapshot(ctx context.Context) bool {
	if e.snapshots == nil {
		return false
	}
	sha, raw, err := e.snapshots.LoadSnapshot(ctx)
	if err != nil {
		if !domerrors.IsNotFound(err) {
			e.logger.WithError(err).Warn("Failed to load quote snapshot")
		}
		return false
	}
	records, err := Parse(raw)
	if err != nil {
		e.logger.WithError(err).Warn("Stored quote snapshot is unusable")
		return false
	}

	e.replace(records)
	e.metrics.RecordQuoteRefresh("snapshot")
	e.logger.WithField("count", len(records)).WithField("sha", sha).Info("Quote cache restored from snapshot")
	return true
}

func (e *Engine) replace(records []Record) {
	e.mu.Lock()
	e.cache = records
	e.mu.Unlock()
	e.metrics.SetQuoteCacheSize(len(records))
}

// RefreshIfApplicable checks the upstream branch head at most once per
// refresh interval and refreshes when the commit changed or the cache is
// empty. It reports whether a refresh happened. A failed fingerprint check
// is logged and reported as (false, nil).
func (e *Engine) RefreshIfApplicable(ctx context.Context) (bool, error) {
	e.gate.Lock()
	defer e.gate.Unlock()

	now := e.clock()
	e.mu.RLock()
	due := e.lastCheck.IsZero() || now.Sub(e.lastCheck) >= e.interval
	e.mu.RUnlock()
	if !due {
		return false, nil
	}

	var info branchInfo
	if err := e.fetcher.GetJSON(ctx, sourceBranch, e.branchURL, &info); err != nil {
		e.logger.WithError(err).Warn("Quote fingerprint check failed")
		return false, nil
	}
	sha := info.Commit.SHA
	if sha == "" {
		e.logger.Warn("Quote fingerprint check returned no commit sha")
		return false, nil
	}

	e.mu.Lock()
	e.lastCheck = now
	changed := sha != e.appliedSHA || len(e.cache) == 0
	if changed {
		e.documentSHA = sha
		e.documentURL = fmt.Sprintf("%s/%s/quote.yaml", e.rawBaseURL, sha)
	}
	e.mu.Unlock()

	if !changed {
		return false, nil
	}
	if err := e.RefreshCache(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Parse decodes a quote document. A document without quotes is an error.
func Parse(raw []byte) ([]Record, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse quote document: %w", err)
	}
	if len(doc.Quotes) == 0 {
		return nil, errors.New("quote document has no quotes")
	}
	return doc.Quotes, nil
}

// Handle serves /quote: a best-effort fingerprint check, then a random pick.
func (e *Engine) Handle(ctx context.Context) (string, error) {
	if _, err := e.RefreshIfApplicable(ctx); err != nil {
		e.logger.WithError(err).Warn("Quote refresh failed, serving cached quotes")
	}
	return e.RetrieveRandom(ctx)
}
