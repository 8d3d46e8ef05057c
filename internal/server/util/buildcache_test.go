package util

import (
	"context"
	"errors"
	"testing"

	"github.com/regtrace/lineage/pkg/common"
	"github.com/regtrace/lineage/pkg/store"
)

type fakeSource struct {
	latest    int64
	latestErr error
	loads     int
	loadErr   error
}

func (f *fakeSource) LatestBuildID(ctx context.Context, graphID string) (int64, error) {
	return f.latest, f.latestErr
}

func (f *fakeSource) LoadLatestBuild(ctx context.Context, graphID string) (*store.StoredBuild, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.loads++
	return &store.StoredBuild{
		BuildID: f.latest,
		GraphID: graphID,
		Graph:   common.NewGraph(graphID),
	}, nil
}

func TestBuildCacheReusesCurrentBuild(t *testing.T) {
	source := &fakeSource{latest: 7}
	cache := NewBuildCache()

	first, err := cache.Get(context.Background(), source, "default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := cache.Get(context.Background(), source, "default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Error("expected cached build to be reused")
	}
	if source.loads != 1 {
		t.Errorf("expected 1 load, got %d", source.loads)
	}
}

func TestBuildCacheReloadsAfterNewBuild(t *testing.T) {
	source := &fakeSource{latest: 1}
	cache := NewBuildCache()

	if _, err := cache.Get(context.Background(), source, "default"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	source.latest = 2
	reloaded, err := cache.Get(context.Background(), source, "default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.BuildID != 2 {
		t.Errorf("expected build 2, got %d", reloaded.BuildID)
	}
	if source.loads != 2 {
		t.Errorf("expected 2 loads, got %d", source.loads)
	}
}

func TestBuildCacheForget(t *testing.T) {
	source := &fakeSource{latest: 3}
	cache := NewBuildCache()

	if _, err := cache.Get(context.Background(), source, "default"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	cache.Forget("default")
	if _, err := cache.Get(context.Background(), source, "default"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if source.loads != 2 {
		t.Errorf("expected reload after Forget, got %d loads", source.loads)
	}
}

func TestBuildCachePropagatesErrors(t *testing.T) {
	want := errors.New("no stored build for graph")
	cache := NewBuildCache()

	_, err := cache.Get(context.Background(), &fakeSource{latestErr: want}, "default")
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
