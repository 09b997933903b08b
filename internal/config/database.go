package config

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// InitDatabase creates the record tables and the unique indexes that back
// each collection's natural uniqueness key. All statements are idempotent so
// the bootstrap can run on every (re)connect.
func InitDatabase(db *sql.DB, logger *zap.Logger) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS physical_activities (
			id CHAR(24) PRIMARY KEY,
			child_id CHAR(24) NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			duration BIGINT NOT NULL,
			name TEXT NOT NULL,
			calories NUMERIC,
			steps INTEGER,
			distance NUMERIC,
			levels JSONB,
			heart_rate JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sleeps (
			id CHAR(24) PRIMARY KEY,
			child_id CHAR(24) NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			duration BIGINT NOT NULL,
			type TEXT NOT NULL,
			pattern JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS weights (
			id CHAR(24) PRIMARY KEY,
			child_id CHAR(24) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			value NUMERIC NOT NULL,
			unit TEXT NOT NULL,
			body_fat NUMERIC,
			body_fat_id CHAR(24),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS body_fats (
			id CHAR(24) PRIMARY KEY,
			child_id CHAR(24) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			value NUMERIC NOT NULL,
			unit TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id CHAR(24) PRIMARY KEY,
			child_id CHAR(24) NOT NULL,
			type TEXT NOT NULL,
			date DATE NOT NULL,
			value INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS environments (
			id CHAR(24) PRIMARY KEY,
			institution_id CHAR(24) NOT NULL,
			location JSONB,
			measurements JSONB NOT NULL,
			climatized BOOLEAN,
			timestamp TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Natural uniqueness keys: duplicate sync deliveries must hit these, not
	// create a second row.
	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_activities_child_start ON physical_activities(child_id, start_time)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_sleeps_child_start ON sleeps(child_id, start_time)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_weights_child_ts ON weights(child_id, timestamp)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_body_fats_child_ts ON body_fats(child_id, timestamp)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_logs_child_type_date ON logs(child_id, type, date)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_environments_inst_ts ON environments(institution_id, timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_activities_child ON physical_activities(child_id)",
		"CREATE INDEX IF NOT EXISTS idx_sleeps_child ON sleeps(child_id)",
		"CREATE INDEX IF NOT EXISTS idx_environments_inst ON environments(institution_id)",
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			logger.Warn("failed to create index", zap.Error(err))
		}
	}

	return nil
}
