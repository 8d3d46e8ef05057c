package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/regtrace/lineage/pkg/analytics"
	"github.com/regtrace/lineage/pkg/common"
	"github.com/regtrace/lineage/pkg/normalize"
	"github.com/regtrace/lineage/pkg/store"
)

// ErrNoBuild is returned when a graph has no stored build yet.
var ErrNoBuild = errors.New("no stored build for graph")

// LatestBuildID returns the id of the most recent build of the given graph
// without loading it. Callers use it to decide whether a cached build is
// still current.
func (s *GraphDBStorage) LatestBuildID(ctx context.Context, graphID string) (int64, error) {
	var id int64
	err := s.conn.QueryRow(
		ctx,
		`SELECT id FROM lineage_builds WHERE graph_id = $1 ORDER BY id DESC LIMIT 1`,
		graphID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return 0, ErrNoBuild
		}
		return 0, err
	}
	return id, nil
}

// LoadLatestBuild reconstructs the most recent build of the given graph
// from storage.
func (s *GraphDBStorage) LoadLatestBuild(ctx context.Context, graphID string) (*store.StoredBuild, error) {
	loaded := &store.StoredBuild{GraphID: graphID}

	err := s.conn.QueryRow(
		ctx,
		`SELECT id, record_count, row_errors, created_at
		 FROM lineage_builds WHERE graph_id = $1 ORDER BY id DESC LIMIT 1`,
		graphID,
	).Scan(&loaded.BuildID, &loaded.RecordCount, &loaded.RowErrors, &loaded.CreatedAt)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, ErrNoBuild
		}
		return nil, err
	}

	g := common.NewGraph(graphID)
	if err := s.loadEntities(ctx, loaded.BuildID, g); err != nil {
		return nil, err
	}
	if err := s.loadEdges(ctx, loaded.BuildID, g); err != nil {
		return nil, err
	}
	loaded.Graph = g

	if err := s.loadMismatches(ctx, loaded.BuildID, loaded); err != nil {
		return nil, err
	}
	if err := s.loadHubs(ctx, loaded.BuildID, g, loaded); err != nil {
		return nil, err
	}
	if err := s.loadCorrelation(ctx, loaded.BuildID, loaded); err != nil {
		return nil, err
	}

	return loaded, nil
}

func (s *GraphDBStorage) loadEntities(ctx context.Context, buildID int64, g *common.Graph) error {
	rows, err := s.conn.Query(
		ctx,
		`SELECT key, applicant, device_name, product_code, doc_type, committee,
		        decision_date, date_received, review_days, third_party, expedited, summary, stub
		 FROM lineage_entities WHERE build_id = $1 ORDER BY key`,
		buildID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var keyText string
		entity := &common.Entity{}
		err := rows.Scan(
			&keyText, &entity.Applicant, &entity.DeviceName, &entity.ProductCode,
			&entity.DocType, &entity.Committee, &entity.DecisionDate, &entity.DateReceived,
			&entity.ReviewDays, &entity.ThirdParty, &entity.Expedited, &entity.Summary, &entity.Stub,
		)
		if err != nil {
			return err
		}
		entity.Key, err = normalize.ParseKey(keyText)
		if err != nil {
			return fmt.Errorf("stored entity key %q: %w", keyText, err)
		}
		g.AddEntity(entity)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return s.loadProvenance(ctx, buildID, g)
}

func (s *GraphDBStorage) loadProvenance(ctx context.Context, buildID int64, g *common.Graph) error {
	rows, err := s.conn.Query(
		ctx,
		`SELECT entity_key, source, records
		 FROM lineage_provenance WHERE build_id = $1 ORDER BY id`,
		buildID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var keyText, source string
		var records int
		if err := rows.Scan(&keyText, &source, &records); err != nil {
			return err
		}
		entity, ok := g.EntityByString(keyText)
		if !ok {
			return fmt.Errorf("stored provenance references unknown entity %q", keyText)
		}
		entity.Provenance = append(entity.Provenance, common.Provenance{
			Source:  common.SourceKind(source),
			Records: records,
		})
	}
	return rows.Err()
}

func (s *GraphDBStorage) loadEdges(ctx context.Context, buildID int64, g *common.Graph) error {
	rows, err := s.conn.Query(
		ctx,
		`SELECT from_key, to_key, ordinal, source, self_citation, stub_target
		 FROM lineage_edges WHERE build_id = $1 ORDER BY seq`,
		buildID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var fromText, toText, source string
		edge := common.CitationEdge{}
		if err := rows.Scan(&fromText, &toText, &edge.Ordinal, &source, &edge.SelfCitation, &edge.StubTarget); err != nil {
			return err
		}
		if edge.From, err = normalize.ParseKey(fromText); err != nil {
			return fmt.Errorf("stored edge key %q: %w", fromText, err)
		}
		if edge.To, err = normalize.ParseKey(toText); err != nil {
			return fmt.Errorf("stored edge key %q: %w", toText, err)
		}
		edge.Source = common.SourceKind(source)
		g.AddEdge(edge)
	}
	return rows.Err()
}

func (s *GraphDBStorage) loadMismatches(ctx context.Context, buildID int64, loaded *store.StoredBuild) error {
	rows, err := s.conn.Query(
		ctx,
		`SELECT key, field, kept, kept_source, dropped, dropped_source
		 FROM lineage_mismatches WHERE build_id = $1 ORDER BY seq`,
		buildID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var keyText, keptSource, droppedSource string
		m := common.CrossSourceMismatch{}
		if err := rows.Scan(&keyText, &m.Field, &m.Kept, &keptSource, &m.Dropped, &droppedSource); err != nil {
			return err
		}
		if m.Key, err = normalize.ParseKey(keyText); err != nil {
			return fmt.Errorf("stored mismatch key %q: %w", keyText, err)
		}
		m.KeptSource = common.SourceKind(keptSource)
		m.DroppedSource = common.SourceKind(droppedSource)
		loaded.Mismatches = append(loaded.Mismatches, m)
	}
	return rows.Err()
}

func (s *GraphDBStorage) loadHubs(ctx context.Context, buildID int64, g *common.Graph, loaded *store.StoredBuild) error {
	rows, err := s.conn.Query(
		ctx,
		`SELECT rank, key, in_degree
		 FROM lineage_hub_ranks WHERE build_id = $1 ORDER BY rank`,
		buildID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var keyText string
		hub := analytics.HubRank{}
		if err := rows.Scan(&hub.Rank, &keyText, &hub.InDegree); err != nil {
			return err
		}
		if hub.Key, err = normalize.ParseKey(keyText); err != nil {
			return fmt.Errorf("stored hub key %q: %w", keyText, err)
		}
		if entity, ok := g.Entity(hub.Key); ok {
			hub.Applicant = entity.Applicant
			hub.DeviceName = entity.DeviceName
			hub.ProductCode = entity.ProductCode
			hub.Stub = entity.Stub
		}
		loaded.Hubs = append(loaded.Hubs, hub)
	}
	return rows.Err()
}

func (s *GraphDBStorage) loadCorrelation(ctx context.Context, buildID int64, loaded *store.StoredBuild) error {
	err := s.conn.QueryRow(
		ctx,
		`SELECT coefficient, samples, excluded, insufficient, reason
		 FROM lineage_correlation WHERE build_id = $1`,
		buildID,
	).Scan(
		&loaded.Correlation.Coefficient,
		&loaded.Correlation.Samples,
		&loaded.Correlation.Excluded,
		&loaded.Correlation.Insufficient,
		&loaded.Correlation.Reason,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		loaded.Correlation = analytics.CorrelationResult{
			Insufficient: true,
			Reason:       "no correlation stored for build",
		}
		return nil
	}
	return err
}
