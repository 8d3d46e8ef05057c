package util

import (
	"context"
	"sync"

	"github.com/regtrace/lineage/pkg/store"
)

// BuildSource is the storage surface the cache needs: a cheap currency
// check plus the full load.
type BuildSource interface {
	LatestBuildID(ctx context.Context, graphID string) (int64, error)
	LoadLatestBuild(ctx context.Context, graphID string) (*store.StoredBuild, error)
}

// BuildCache keeps the most recently loaded build per graph id. Every Get
// re-checks the latest build id against storage, so a rebuild committed by
// the worker is picked up on the next request without any invalidation
// channel between the processes.
type BuildCache struct {
	mu     sync.Mutex
	builds map[string]*store.StoredBuild
}

// NewBuildCache creates an empty cache.
func NewBuildCache() *BuildCache {
	return &BuildCache{
		builds: make(map[string]*store.StoredBuild),
	}
}

// Get returns the current build of the given graph, loading it from
// storage when the cached copy is missing or stale.
func (c *BuildCache) Get(ctx context.Context, source BuildSource, graphID string) (*store.StoredBuild, error) {
	latest, err := source.LatestBuildID(ctx, graphID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	cached, ok := c.builds[graphID]
	c.mu.Unlock()
	if ok && cached.BuildID == latest {
		return cached, nil
	}

	loaded, err := source.LoadLatestBuild(ctx, graphID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.builds[graphID] = loaded
	c.mu.Unlock()

	return loaded, nil
}

// Forget drops the cached build of one graph.
func (c *BuildCache) Forget(graphID string) {
	c.mu.Lock()
	delete(c.builds, graphID)
	c.mu.Unlock()
}
