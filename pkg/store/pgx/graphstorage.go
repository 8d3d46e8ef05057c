package pgx

import (
	"context"
	"sync"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements the GraphStorage interface on PostgreSQL. Each
// build is saved in a single transaction; loading reconstructs the graph
// from the latest build of a graph id.
type GraphDBStorage struct {
	conn   pgxIConn
	dbLock sync.Mutex
}

// NewGraphDBStorageWithConnection creates a new GraphDBStorage using an
// existing database connection or pool.
func NewGraphDBStorageWithConnection(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{
		conn: conn,
	}
}

// Migrate creates the storage schema if it does not exist yet. It is safe
// to call on every startup.
func (s *GraphDBStorage) Migrate(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS lineage_builds (
	id           BIGSERIAL PRIMARY KEY,
	graph_id     TEXT NOT NULL,
	record_count INT NOT NULL,
	row_errors   INT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS lineage_builds_graph_idx ON lineage_builds (graph_id, id DESC);

CREATE TABLE IF NOT EXISTS lineage_entities (
	id            BIGSERIAL PRIMARY KEY,
	build_id      BIGINT NOT NULL REFERENCES lineage_builds(id) ON DELETE CASCADE,
	key           TEXT NOT NULL,
	applicant     TEXT NOT NULL DEFAULT '',
	device_name   TEXT NOT NULL DEFAULT '',
	product_code  TEXT NOT NULL DEFAULT '',
	doc_type      TEXT NOT NULL DEFAULT '',
	committee     TEXT NOT NULL DEFAULT '',
	decision_date TIMESTAMPTZ,
	date_received TIMESTAMPTZ,
	review_days   INT,
	third_party   BOOLEAN,
	expedited     BOOLEAN,
	summary       BOOLEAN,
	stub          BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (build_id, key)
);

CREATE TABLE IF NOT EXISTS lineage_provenance (
	id         BIGSERIAL PRIMARY KEY,
	build_id   BIGINT NOT NULL REFERENCES lineage_builds(id) ON DELETE CASCADE,
	entity_key TEXT NOT NULL,
	source     TEXT NOT NULL,
	records    INT NOT NULL
);
CREATE INDEX IF NOT EXISTS lineage_provenance_entity_idx ON lineage_provenance (build_id, entity_key, id);

CREATE TABLE IF NOT EXISTS lineage_edges (
	id            BIGSERIAL PRIMARY KEY,
	build_id      BIGINT NOT NULL REFERENCES lineage_builds(id) ON DELETE CASCADE,
	seq           INT NOT NULL,
	from_key      TEXT NOT NULL,
	to_key        TEXT NOT NULL,
	ordinal       INT NOT NULL,
	source        TEXT NOT NULL,
	self_citation BOOLEAN NOT NULL DEFAULT FALSE,
	stub_target   BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS lineage_edges_build_idx ON lineage_edges (build_id, seq);

CREATE TABLE IF NOT EXISTS lineage_mismatches (
	id             BIGSERIAL PRIMARY KEY,
	build_id       BIGINT NOT NULL REFERENCES lineage_builds(id) ON DELETE CASCADE,
	seq            INT NOT NULL,
	key            TEXT NOT NULL,
	field          TEXT NOT NULL,
	kept           TEXT NOT NULL,
	kept_source    TEXT NOT NULL,
	dropped        TEXT NOT NULL,
	dropped_source TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS lineage_mismatches_build_idx ON lineage_mismatches (build_id, seq);

CREATE TABLE IF NOT EXISTS lineage_hub_ranks (
	id        BIGSERIAL PRIMARY KEY,
	build_id  BIGINT NOT NULL REFERENCES lineage_builds(id) ON DELETE CASCADE,
	rank      INT NOT NULL,
	key       TEXT NOT NULL,
	in_degree INT NOT NULL
);
CREATE INDEX IF NOT EXISTS lineage_hub_ranks_build_idx ON lineage_hub_ranks (build_id, rank);

CREATE TABLE IF NOT EXISTS lineage_correlation (
	build_id     BIGINT PRIMARY KEY REFERENCES lineage_builds(id) ON DELETE CASCADE,
	coefficient  DOUBLE PRECISION NOT NULL,
	samples      INT NOT NULL,
	excluded     INT NOT NULL,
	insufficient BOOLEAN NOT NULL,
	reason       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS app_locks (
	lock_key   TEXT PRIMARY KEY,
	locked_by  TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
`
