package db

import (
	"context"
	"fmt"
)

// schema creates the three recipe relations. There are no
// foreign keys: link rows are kept consistent by write ordering in the
// composition service, and recipectl repairs whatever a partial failure left.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS recipe (
		id          UUID PRIMARY KEY,
		rec_name    TEXT NOT NULL,
		inserted_at TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		version     BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS ingredient (
		id   UUID PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recipe_ingredients (
		amount   DOUBLE PRECISION NOT NULL,
		unit     TEXT NOT NULL,
		recid    UUID NOT NULL,
		indid    UUID NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (recid, indid)
	)`,
	`CREATE INDEX IF NOT EXISTS recipe_ingredients_indid_idx ON recipe_ingredients (indid)`,
}

// EnsureSchema applies the idempotent DDL. It is wired as the bootstrap DB
// init hook.
func EnsureSchema(ctx context.Context, db *DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	db.log.Info("database schema ensured", "statements", len(schema))
	return nil
}
