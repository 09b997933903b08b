package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/connection"
	"github.com/IANDYI/tracking-sync/internal/core/domain"
	"github.com/IANDYI/tracking-sync/internal/core/ports"
)

const sleepColumns = "id, child_id, start_time, end_time, duration, type, pattern, created_at"

// SleepRepository persists sleep records. The pattern data set is value-owned
// by its record and stored inline as JSONB.
type SleepRepository struct {
	*Postgres
}

// NewSleepRepository creates the sleep repository.
func NewSleepRepository(store *connection.StoreManager, logger *zap.Logger) *SleepRepository {
	return &SleepRepository{Postgres: NewPostgres(store, logger)}
}

func (r *SleepRepository) Create(ctx context.Context, sleep *domain.Sleep) (*domain.Sleep, error) {
	persisted := *sleep
	persisted.ID = domain.NewObjectID()

	pattern, err := json.Marshal(sleep.Pattern)
	if err != nil {
		return nil, errNotStorable("Sleep", err)
	}

	err = r.execute(ctx, "create sleep", func(db *sql.DB) error {
		query := `INSERT INTO sleeps (id, child_id, start_time, end_time, duration, type, pattern)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at`
		var createdAt time.Time
		err := db.QueryRowContext(ctx, query,
			persisted.ID,
			sleep.ChildID,
			sleep.StartTime,
			sleep.EndTime,
			sleep.Duration,
			string(sleep.Type),
			pattern,
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

func (r *SleepRepository) Find(ctx context.Context, query ports.Query) ([]*domain.Sleep, error) {
	var sleeps []*domain.Sleep
	err := r.execute(ctx, "find sleeps", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		suffix, suffixArgs := buildSuffix(query, len(args))
		rows, err := db.QueryContext(ctx,
			"SELECT "+sleepColumns+" FROM sleeps"+where+suffix,
			append(args, suffixArgs...)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		sleeps = sleeps[:0]
		for rows.Next() {
			sleep, err := scanSleep(rows)
			if err != nil {
				return err
			}
			sleeps = append(sleeps, sleep)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return sleeps, nil
}

func (r *SleepRepository) FindOne(ctx context.Context, query ports.Query) (*domain.Sleep, error) {
	var sleep *domain.Sleep
	err := r.execute(ctx, "find sleep", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		rows, err := db.QueryContext(ctx,
			"SELECT "+sleepColumns+" FROM sleeps"+where+" LIMIT 1", args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		sleep, err = scanSleep(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sleep, nil
}

func (r *SleepRepository) UpdateByChild(ctx context.Context, sleep *domain.Sleep, childID string) (*domain.Sleep, error) {
	if sleep.CreatedAt != nil {
		return nil, errCreatedAtImmutable("Sleep")
	}

	pattern, err := json.Marshal(sleep.Pattern)
	if err != nil {
		return nil, errNotStorable("Sleep", err)
	}

	var updated *domain.Sleep
	err = r.execute(ctx, "update sleep", func(db *sql.DB) error {
		query := `UPDATE sleeps SET
			start_time = $1, end_time = $2, duration = $3, type = $4, pattern = $5
			WHERE id = $6 AND child_id = $7
			RETURNING ` + sleepColumns
		rows, err := db.QueryContext(ctx, query,
			sleep.StartTime,
			sleep.EndTime,
			sleep.Duration,
			string(sleep.Type),
			pattern,
			sleep.ID,
			childID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		updated, err = scanSleep(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *SleepRepository) RemoveByChild(ctx context.Context, sleepID, childID string) (bool, error) {
	var removed bool
	err := r.execute(ctx, "remove sleep", func(db *sql.DB) error {
		result, err := db.ExecContext(ctx,
			"DELETE FROM sleeps WHERE id = $1 AND child_id = $2", sleepID, childID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		removed = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// CheckExist reports whether a sleep with the same natural key
// (child_id, start_time) is already registered.
func (r *SleepRepository) CheckExist(ctx context.Context, sleep *domain.Sleep) (bool, error) {
	var exists bool
	err := r.execute(ctx, "check sleep exists", func(db *sql.DB) error {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sleeps WHERE child_id = $1 AND start_time = $2",
			sleep.ChildID, sleep.StartTime).Scan(&count)
		exists = count > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *SleepRepository) RemoveAllByChild(ctx context.Context, childID string) error {
	return r.execute(ctx, "remove sleeps by child", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, "DELETE FROM sleeps WHERE child_id = $1", childID)
		return err
	})
}

func scanSleep(rows *sql.Rows) (*domain.Sleep, error) {
	var sleep domain.Sleep
	var (
		startTime, endTime, createdAt time.Time
		duration                      int64
		sleepType                     string
		pattern                       []byte
	)
	err := rows.Scan(&sleep.ID, &sleep.ChildID, &startTime, &endTime, &duration,
		&sleepType, &pattern, &createdAt)
	if err != nil {
		return nil, err
	}

	sleep.ID = trimID(sleep.ID)
	sleep.ChildID = trimID(sleep.ChildID)
	sleep.StartTime = &startTime
	sleep.EndTime = &endTime
	sleep.Duration = &duration
	sleep.Type = domain.SleepType(sleepType)
	sleep.CreatedAt = &createdAt
	if len(pattern) > 0 {
		sleep.Pattern = &domain.SleepPattern{}
		if err := json.Unmarshal(pattern, sleep.Pattern); err != nil {
			return nil, err
		}
	}
	return &sleep, nil
}

var _ ports.SleepRepository = (*SleepRepository)(nil)
