package pgx

import (
	"context"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/regtrace/lineage/pkg/logger"
	"github.com/regtrace/lineage/pkg/store"
)

const saveChunk = 500

// SaveBuild persists one completed build and its analytics in a single
// transaction, then drops every older build of the same graph. Readers that
// load mid-save see either the previous build or the new one, never a mix.
func (s *GraphDBStorage) SaveBuild(ctx context.Context, params store.SaveBuildParams) (int64, error) {
	if params.Build == nil || params.Build.Graph == nil {
		return 0, errors.New("save build: build result is empty")
	}
	g := params.Build.Graph

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var buildID int64
	err = tx.QueryRow(
		ctx,
		`INSERT INTO lineage_builds (graph_id, record_count, row_errors) VALUES ($1, $2, $3) RETURNING id`,
		params.GraphID,
		params.Build.RecordCount,
		len(params.Build.RowErrors),
	).Scan(&buildID)
	if err != nil {
		return 0, err
	}

	keys := g.Keys()
	err = store.ChunkRange(len(keys), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, key := range keys[start:end] {
			entity, ok := g.EntityByString(key)
			if !ok {
				continue
			}
			batch.Queue(
				`INSERT INTO lineage_entities
					(build_id, key, applicant, device_name, product_code, doc_type, committee,
					 decision_date, date_received, review_days, third_party, expedited, summary, stub)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
				buildID, key, entity.Applicant, entity.DeviceName, entity.ProductCode,
				entity.DocType, entity.Committee, entity.DecisionDate, entity.DateReceived,
				entity.ReviewDays, entity.ThirdParty, entity.Expedited, entity.Summary, entity.Stub,
			)
			for _, p := range entity.Provenance {
				batch.Queue(
					`INSERT INTO lineage_provenance (build_id, entity_key, source, records) VALUES ($1, $2, $3, $4)`,
					buildID, key, string(p.Source), p.Records,
				)
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, err
	}

	edges := g.Edges()
	err = store.ChunkRange(len(edges), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for i := start; i < end; i++ {
			e := edges[i]
			batch.Queue(
				`INSERT INTO lineage_edges (build_id, seq, from_key, to_key, ordinal, source, self_citation, stub_target)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				buildID, i, e.From.String(), e.To.String(), e.Ordinal, string(e.Source), e.SelfCitation, e.StubTarget,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, err
	}

	mismatches := params.Build.Mismatches
	err = store.ChunkRange(len(mismatches), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for i := start; i < end; i++ {
			m := mismatches[i]
			batch.Queue(
				`INSERT INTO lineage_mismatches (build_id, seq, key, field, kept, kept_source, dropped, dropped_source)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				buildID, i, m.Key.String(), m.Field, m.Kept, string(m.KeptSource), m.Dropped, string(m.DroppedSource),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, err
	}

	err = store.ChunkRange(len(params.Hubs), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, h := range params.Hubs[start:end] {
			batch.Queue(
				`INSERT INTO lineage_hub_ranks (build_id, rank, key, in_degree) VALUES ($1, $2, $3, $4)`,
				buildID, h.Rank, h.Key.String(), h.InDegree,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(
		ctx,
		`INSERT INTO lineage_correlation (build_id, coefficient, samples, excluded, insufficient, reason)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		buildID,
		params.Correlation.Coefficient,
		params.Correlation.Samples,
		params.Correlation.Excluded,
		params.Correlation.Insufficient,
		params.Correlation.Reason,
	)
	if err != nil {
		return 0, err
	}

	// Older builds go away with the same commit; children cascade.
	_, err = tx.Exec(
		ctx,
		`DELETE FROM lineage_builds WHERE graph_id = $1 AND id <> $2`,
		params.GraphID,
		buildID,
	)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	logger.Info(
		"[Store] Build saved",
		"graph_id", params.GraphID,
		"build_id", buildID,
		"entities", len(keys),
		"edges", len(edges),
		"mismatches", len(mismatches),
	)

	return buildID, nil
}

// DeleteGraph removes every stored build of the given graph.
func (s *GraphDBStorage) DeleteGraph(ctx context.Context, graphID string) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	_, err := s.conn.Exec(ctx, `DELETE FROM lineage_builds WHERE graph_id = $1`, graphID)
	return err
}
