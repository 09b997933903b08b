package repository

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/connection"
	"github.com/IANDYI/tracking-sync/internal/core/domain"
	"github.com/IANDYI/tracking-sync/internal/core/ports"
)

const logColumns = "id, child_id, type, date, value, created_at"

// LogRepository persists daily activity logs. A log is keyed by
// (child_id, type, date); re-syncing the same day overwrites the value.
type LogRepository struct {
	*Postgres
}

// NewLogRepository creates the log repository.
func NewLogRepository(store *connection.StoreManager, logger *zap.Logger) *LogRepository {
	return &LogRepository{Postgres: NewPostgres(store, logger)}
}

func (r *LogRepository) Create(ctx context.Context, logRecord *domain.Log) (*domain.Log, error) {
	persisted := *logRecord
	persisted.ID = domain.NewObjectID()

	err := r.execute(ctx, "create log", func(db *sql.DB) error {
		query := `INSERT INTO logs (id, child_id, type, date, value)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`
		var createdAt time.Time
		err := db.QueryRowContext(ctx, query,
			persisted.ID,
			logRecord.ChildID,
			string(logRecord.Type),
			logRecord.Date,
			logRecord.Value,
		).Scan(&createdAt)
		if err != nil {
			return err
		}
		persisted.CreatedAt = &createdAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &persisted, nil
}

func (r *LogRepository) Find(ctx context.Context, query ports.Query) ([]*domain.Log, error) {
	var logs []*domain.Log
	err := r.execute(ctx, "find logs", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		suffix, suffixArgs := buildSuffix(query, len(args))
		rows, err := db.QueryContext(ctx,
			"SELECT "+logColumns+" FROM logs"+where+suffix,
			append(args, suffixArgs...)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		logs = logs[:0]
		for rows.Next() {
			logRecord, err := scanLog(rows)
			if err != nil {
				return err
			}
			logs = append(logs, logRecord)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *LogRepository) FindOne(ctx context.Context, query ports.Query) (*domain.Log, error) {
	var logRecord *domain.Log
	err := r.execute(ctx, "find log", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		rows, err := db.QueryContext(ctx,
			"SELECT "+logColumns+" FROM logs"+where+" LIMIT 1", args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		logRecord, err = scanLog(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return logRecord, nil
}

// UpdateValue overwrites the value of the log identified by its natural key.
func (r *LogRepository) UpdateValue(ctx context.Context, logRecord *domain.Log) (*domain.Log, error) {
	var updated *domain.Log
	err := r.execute(ctx, "update log", func(db *sql.DB) error {
		query := `UPDATE logs SET value = $1
			WHERE child_id = $2 AND type = $3 AND date = $4
			RETURNING ` + logColumns
		rows, err := db.QueryContext(ctx, query,
			logRecord.Value,
			logRecord.ChildID,
			string(logRecord.Type),
			logRecord.Date,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		updated, err = scanLog(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CheckExist reports whether a log with the same natural key
// (child_id, type, date) is already registered.
func (r *LogRepository) CheckExist(ctx context.Context, logRecord *domain.Log) (bool, error) {
	var exists bool
	err := r.execute(ctx, "check log exists", func(db *sql.DB) error {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM logs WHERE child_id = $1 AND type = $2 AND date = $3",
			logRecord.ChildID, string(logRecord.Type), logRecord.Date).Scan(&count)
		exists = count > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *LogRepository) RemoveAllByChild(ctx context.Context, childID string) error {
	return r.execute(ctx, "remove logs by child", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, "DELETE FROM logs WHERE child_id = $1", childID)
		return err
	})
}

func scanLog(rows *sql.Rows) (*domain.Log, error) {
	var logRecord domain.Log
	var (
		logType   string
		date      time.Time
		value     int
		createdAt time.Time
	)
	err := rows.Scan(&logRecord.ID, &logRecord.ChildID, &logType, &date, &value, &createdAt)
	if err != nil {
		return nil, err
	}

	logRecord.ID = trimID(logRecord.ID)
	logRecord.ChildID = trimID(logRecord.ChildID)
	logRecord.Type = domain.LogType(logType)
	logRecord.Date = date.Format(domain.LogDateLayout)
	logRecord.Value = &value
	logRecord.CreatedAt = &createdAt
	return &logRecord, nil
}

var _ ports.LogRepository = (*LogRepository)(nil)
