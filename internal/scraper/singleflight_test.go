package scraper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroup_SingleExecution(t *testing.T) {
	t.Parallel()
	g := NewGroup(nil)
	var execs atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = g.Do(context.Background(), "quote", func() (any, error) {
				execs.Add(1)
				<-release
				return "result", nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), execs.Load())
	for _, r := range results {
		assert.Equal(t, "result", r)
	}
}

func TestGroup_ErrorShared(t *testing.T) {
	t.Parallel()
	g := NewGroup(nil)
	want := errors.New("fetch failed")

	_, err := g.Do(context.Background(), "k", func() (any, error) { return nil, want })
	assert.Same(t, want, err)
}

func TestGroup_CallerContextCanceled(t *testing.T) {
	t.Parallel()
	g := NewGroup(nil)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Do(ctx, "slow", func() (any, error) {
		<-release
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
