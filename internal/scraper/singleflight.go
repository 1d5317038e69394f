package scraper

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/tulul/tululbot/internal/metrics"
)

// Group collapses concurrent calls for the same key into one execution.
type Group struct {
	group   singleflight.Group
	metrics *metrics.Metrics
}

// NewGroup creates a new group. m may be nil.
func NewGroup(m *metrics.Metrics) *Group {
	return &Group{metrics: m}
}

// Do runs fn once per key among concurrent callers and hands every caller
// the same result. A caller whose ctx ends stops waiting; the execution
// itself keeps running for the others.
func (g *Group) Do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	ch := g.group.DoChan(key, fn)
	select {
	case res := <-ch:
		if res.Shared {
			g.metrics.RecordSingleflightDedup(key)
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Forget removes a key from the group, allowing new calls to execute.
func (g *Group) Forget(key string) {
	g.group.Forget(key)
}
