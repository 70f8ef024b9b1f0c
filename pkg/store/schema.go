package store

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/pkg/models"
)

// Schema is the portable table definition, used verbatim for the embedded
// SQLite database. The Postgres deployment uses the migrations under db/pg.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
	entity_id   TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	status      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS identifiers (
	identifier_type  TEXT NOT NULL,
	value            TEXT NOT NULL,
	normalized_value TEXT NOT NULL,
	confidence       REAL NOT NULL,
	first_seen_at    TEXT NOT NULL,
	last_seen_at     TEXT NOT NULL,
	provenance       TEXT,
	PRIMARY KEY (identifier_type, normalized_value)
);

CREATE TABLE IF NOT EXISTS aliases (
	identifier_type  TEXT NOT NULL,
	normalized_value TEXT NOT NULL,
	entity_id        TEXT NOT NULL,
	confidence       REAL NOT NULL,
	created_at       TEXT NOT NULL,
	caused_by        TEXT NOT NULL,
	provenance       TEXT,
	PRIMARY KEY (identifier_type, normalized_value)
);

CREATE INDEX IF NOT EXISTS idx_aliases_entity_id ON aliases (entity_id);

CREATE TABLE IF NOT EXISTS merge_records (
	merge_id       INTEGER PRIMARY KEY,
	from_entity_id TEXT NOT NULL,
	to_entity_id   TEXT NOT NULL,
	reason         TEXT NOT NULL,
	timestamp      TEXT NOT NULL,
	caused_by      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entity_redirects (
	from_entity_id TEXT PRIMARY KEY,
	to_entity_id   TEXT NOT NULL,
	timestamp      TEXT NOT NULL,
	reason         TEXT NOT NULL,
	caused_by      TEXT NOT NULL
);
`

// OpenSQLite opens (or creates) an embedded SQLite database at path and
// applies the schema. Use ":memory:" for a throwaway database; the pool is
// pinned to one connection so the in-memory database is shared.
func OpenSQLite(ctx context.Context, path string, logger ectologger.Logger) (database.DB, error) {
	sqlxDB, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", models.ErrStoreFailure, err)
	}
	sqlxDB.SetMaxOpenConns(1)

	db := database.NewDatabaseInstance(sqlxDB, logger)
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", models.ErrStoreFailure, err)
	}
	return db, nil
}
