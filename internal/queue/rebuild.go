package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/regtrace/lineage/internal/storage"
	"github.com/regtrace/lineage/internal/util"
	"github.com/regtrace/lineage/pkg/analytics"
	"github.com/regtrace/lineage/pkg/common"
	"github.com/regtrace/lineage/pkg/graph"
	"github.com/regtrace/lineage/pkg/leaselock"
	"github.com/regtrace/lineage/pkg/loader"
	csvloader "github.com/regtrace/lineage/pkg/loader/csv"
	ioloader "github.com/regtrace/lineage/pkg/loader/io"
	s3loader "github.com/regtrace/lineage/pkg/loader/s3"
	"github.com/regtrace/lineage/pkg/logger"
	"github.com/regtrace/lineage/pkg/normalize"
	"github.com/regtrace/lineage/pkg/store"
	graphstorage "github.com/regtrace/lineage/pkg/store/pgx"
)

// ProcessRebuildMessage handles one rebuild job: load the referenced source
// exports, build the citation graph, compute the stored analytics and
// replace the previous build. A per-graph lease serializes concurrent
// rebuilds of the same graph.
func ProcessRebuildMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(RebuildMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}
	if data.GraphID == "" {
		return errors.New("rebuild message has no graph_id")
	}
	if len(data.Sources) == 0 {
		return errors.New("rebuild message names no sources")
	}

	logger.Info(
		"[Queue] Rebuild requested",
		"graph_id", data.GraphID,
		"correlation_id", data.CorrelationID,
		"sources", len(data.Sources),
	)

	// SOURCE_BACKEND=local reads exports straight from disk, which keeps
	// single-host deployments free of object storage. Prefix expansion is
	// S3-only; local refs must name files.
	var baseLoader loader.SourceFileLoader
	if util.GetEnvString("SOURCE_BACKEND", "s3") == "local" {
		baseLoader = ioloader.NewFileLoader()
		s3Client = nil
	} else {
		s3Bucket := util.GetEnvString("AWS_BUCKET", "lineage")
		baseLoader = s3loader.NewLoaderWithClient(s3Bucket, s3Client)
	}
	tables := csvloader.NewTableLoader(baseLoader)

	batches, err := collectBatches(ctx, s3Client, tables, baseLoader, data.Sources)
	if err != nil {
		return err
	}

	locks := leaselock.New(conn)
	return locks.WithLease(ctx, "rebuild:"+data.GraphID, leaselock.Options{
		TTL:         10 * time.Minute,
		Wait:        true,
		TokenPrefix: "rebuild-",
	}, func(ctx context.Context) error {
		return rebuildGraph(ctx, conn, data.GraphID, batches)
	})
}

// ProcessDeleteMessage drops every stored build of the named graph.
func ProcessDeleteMessage(ctx context.Context, conn *pgxpool.Pool, msg string) error {
	data := new(DeleteMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}
	if data.GraphID == "" {
		return errors.New("delete message has no graph_id")
	}

	locks := leaselock.New(conn)
	return locks.WithLease(ctx, "rebuild:"+data.GraphID, leaselock.Options{
		TTL:         time.Minute,
		Wait:        true,
		TokenPrefix: "delete-",
	}, func(ctx context.Context) error {
		storageDB := graphstorage.NewGraphDBStorageWithConnection(conn)
		if err := storageDB.DeleteGraph(ctx, data.GraphID); err != nil {
			return err
		}
		logger.Info("[Queue] Graph deleted", "graph_id", data.GraphID, "correlation_id", data.CorrelationID)
		return nil
	})
}

func collectBatches(
	ctx context.Context,
	s3Client *awss3.Client,
	tables *csvloader.TableLoader,
	baseLoader loader.SourceFileLoader,
	sources []SourceRef,
) ([]normalize.SourceBatch, error) {
	batches := make([]normalize.SourceBatch, 0, len(sources))

	for _, ref := range sources {
		kind, err := parseSourceKind(ref.Source)
		if err != nil {
			return nil, err
		}

		paths := []string{ref.Path}
		if strings.HasSuffix(ref.Path, "/") {
			if s3Client == nil {
				return nil, fmt.Errorf("source prefix %q requires the s3 backend", ref.Path)
			}
			keys, err := storage.ListFilesWithPrefix(ctx, s3Client, ref.Path)
			if err != nil {
				return nil, err
			}
			paths = paths[:0]
			for _, key := range keys {
				if strings.HasSuffix(strings.ToLower(key), ".csv") {
					paths = append(paths, key)
				}
			}
			if len(paths) == 0 {
				return nil, fmt.Errorf("source prefix %q contains no csv exports", ref.Path)
			}
		}

		for _, path := range paths {
			file := loader.SourceFile{
				ID:     string(kind) + ":" + path,
				Source: kind,
				Path:   path,
				Loader: baseLoader,
			}
			table, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (csvloader.Table, error) {
				return tables.GetTable(ctx, file)
			})
			if err != nil {
				return nil, fmt.Errorf("load source %s (%s): %w", ref.Source, path, err)
			}
			batches = append(batches, normalize.SourceBatch{
				Source: kind,
				Header: table.Header,
				Rows:   table.Rows,
			})
		}
	}

	return batches, nil
}

func parseSourceKind(raw string) (common.SourceKind, error) {
	switch common.SourceKind(strings.ToLower(strings.TrimSpace(raw))) {
	case common.SourceDirectMap:
		return common.SourceDirectMap, nil
	case common.SourceExtraction:
		return common.SourceExtraction, nil
	case common.SourceMetadata:
		return common.SourceMetadata, nil
	case common.SourceSupplement:
		return common.SourceSupplement, nil
	}
	return "", fmt.Errorf("unknown source kind %q", raw)
}

func rebuildGraph(ctx context.Context, conn *pgxpool.Pool, graphID string, batches []normalize.SourceBatch) error {
	client := graph.NewClient(graph.NewClientParams{
		ParallelSources: util.GetEnvInt("GRAPH_PARALLEL_SOURCES", 4),
	})

	build, err := client.Build(ctx, graphID, batches)
	if err != nil {
		return err
	}

	hubs := analytics.HubRanking(build.Graph, 0)
	correlation := analytics.ReviewTimeCorrelation(build.Graph)

	storageDB := graphstorage.NewGraphDBStorageWithConnection(conn)
	buildID, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (int64, error) {
		return storageDB.SaveBuild(ctx, store.SaveBuildParams{
			GraphID:     graphID,
			Build:       build,
			Hubs:        hubs,
			Correlation: correlation,
		})
	})
	if err != nil {
		return err
	}

	logger.Info(
		"[Queue] Rebuild stored",
		"graph_id", graphID,
		"build_id", buildID,
		"entities", build.Graph.NodeCount(),
		"edges", build.Graph.EdgeCount(),
		"row_errors", len(build.RowErrors),
		"mismatches", len(build.Mismatches),
		"dangling", len(build.Dangling),
	)
	return nil
}
