package store

import (
	"context"
	"time"

	"github.com/regtrace/lineage/pkg/analytics"
	"github.com/regtrace/lineage/pkg/common"
	"github.com/regtrace/lineage/pkg/graph"
)

// SaveBuildParams carries one completed build plus the analytics computed
// from it. Hubs and Correlation are persisted alongside the graph so the
// API can serve them without recomputing.
type SaveBuildParams struct {
	GraphID     string
	Build       *graph.BuildResult
	Hubs        []analytics.HubRank
	Correlation analytics.CorrelationResult
}

// StoredBuild is a persisted build loaded back from storage. RowErrors is a
// count only; the individual row findings live in the worker logs.
type StoredBuild struct {
	BuildID     int64
	GraphID     string
	CreatedAt   time.Time
	RecordCount int
	RowErrors   int
	Graph       *common.Graph
	Mismatches  []common.CrossSourceMismatch
	Hubs        []analytics.HubRank
	Correlation analytics.CorrelationResult
}

// GraphStorage defines the interface for persisting and loading reconciled
// citation graphs. A save replaces any prior build of the same graph;
// incremental updates are not supported, rebuilds always start from the
// source exports.
type GraphStorage interface {
	SaveBuild(ctx context.Context, params SaveBuildParams) (int64, error)
	LoadLatestBuild(ctx context.Context, graphID string) (*StoredBuild, error)
	DeleteGraph(ctx context.Context, graphID string) error
}
