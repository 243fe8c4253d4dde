package cache

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Deduplicator collapses concurrent identical completion calls into one
type Deduplicator struct {
	group        singleflight.Group
	requests     atomic.Int64
	deduplicated atomic.Int64
}

// DedupStats represents deduplication statistics
type DedupStats struct {
	Requests     int64 `json:"requests"`
	Deduplicated int64 `json:"deduplicated"`
}

// NewDeduplicator creates a new deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Execute runs fn once per key among concurrent callers. fn gets a context
// detached from the first caller's cancellation, so it must bound itself.
// A caller whose ctx ends stops waiting; the shared call keeps running for the others.
func (d *Deduplicator) Execute(ctx context.Context, key CacheKey, fn func(context.Context) (string, error)) (string, error) {
	d.requests.Add(1)

	shared := context.WithoutCancel(ctx)
	ch := d.group.DoChan(string(key), func() (interface{}, error) {
		return fn(shared)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			d.deduplicated.Add(1)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Stats returns deduplication statistics
func (d *Deduplicator) Stats() DedupStats {
	return DedupStats{
		Requests:     d.requests.Load(),
		Deduplicated: d.deduplicated.Load(),
	}
}

// DedupRate is the share of calls that piggybacked on another
func (d *Deduplicator) DedupRate() float64 {
	stats := d.Stats()
	if stats.Requests == 0 {
		return 0.0
	}
	return float64(stats.Deduplicated) / float64(stats.Requests)
}
