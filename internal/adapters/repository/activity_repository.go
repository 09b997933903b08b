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

const activityColumns = "id, child_id, start_time, end_time, duration, name, calories, steps, distance, levels, heart_rate, created_at"

// ActivityRepository persists physical activity records.
type ActivityRepository struct {
	*Postgres
}

// NewActivityRepository creates the physical activity repository.
func NewActivityRepository(store *connection.StoreManager, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{Postgres: NewPostgres(store, logger)}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *domain.PhysicalActivity) (*domain.PhysicalActivity, error) {
	persisted := *activity
	persisted.ID = domain.NewObjectID()

	levels, heartRate, err := marshalActivityNested(activity)
	if err != nil {
		return nil, errNotStorable("Physical Activity", err)
	}

	err = r.execute(ctx, "create activity", func(db *sql.DB) error {
		query := `INSERT INTO physical_activities
			(id, child_id, start_time, end_time, duration, name, calories, steps, distance, levels, heart_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at`
		var createdAt time.Time
		err := db.QueryRowContext(ctx, query,
			persisted.ID,
			activity.ChildID,
			activity.StartTime,
			activity.EndTime,
			activity.Duration,
			activity.Name,
			nullFloat(activity.Calories),
			nullInt(activity.Steps),
			nullFloat(activity.Distance),
			levels,
			heartRate,
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

func (r *ActivityRepository) Find(ctx context.Context, query ports.Query) ([]*domain.PhysicalActivity, error) {
	var activities []*domain.PhysicalActivity
	err := r.execute(ctx, "find activities", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		suffix, suffixArgs := buildSuffix(query, len(args))
		rows, err := db.QueryContext(ctx,
			"SELECT "+activityColumns+" FROM physical_activities"+where+suffix,
			append(args, suffixArgs...)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		activities = activities[:0]
		for rows.Next() {
			activity, err := scanActivity(rows)
			if err != nil {
				return err
			}
			activities = append(activities, activity)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *ActivityRepository) FindOne(ctx context.Context, query ports.Query) (*domain.PhysicalActivity, error) {
	var activity *domain.PhysicalActivity
	err := r.execute(ctx, "find activity", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		rows, err := db.QueryContext(ctx,
			"SELECT "+activityColumns+" FROM physical_activities"+where+" LIMIT 1", args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		activity, err = scanActivity(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

func (r *ActivityRepository) UpdateByChild(ctx context.Context, activity *domain.PhysicalActivity, childID string) (*domain.PhysicalActivity, error) {
	if activity.CreatedAt != nil {
		return nil, errCreatedAtImmutable("Physical Activity")
	}

	levels, heartRate, err := marshalActivityNested(activity)
	if err != nil {
		return nil, errNotStorable("Physical Activity", err)
	}

	var updated *domain.PhysicalActivity
	err = r.execute(ctx, "update activity", func(db *sql.DB) error {
		// created_at is never written on update: the store owns it.
		query := `UPDATE physical_activities SET
			start_time = $1, end_time = $2, duration = $3, name = $4,
			calories = $5, steps = $6, distance = $7, levels = $8, heart_rate = $9
			WHERE id = $10 AND child_id = $11
			RETURNING ` + activityColumns
		rows, err := db.QueryContext(ctx, query,
			activity.StartTime,
			activity.EndTime,
			activity.Duration,
			activity.Name,
			nullFloat(activity.Calories),
			nullInt(activity.Steps),
			nullFloat(activity.Distance),
			levels,
			heartRate,
			activity.ID,
			childID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		updated, err = scanActivity(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ActivityRepository) RemoveByChild(ctx context.Context, activityID, childID string) (bool, error) {
	var removed bool
	err := r.execute(ctx, "remove activity", func(db *sql.DB) error {
		result, err := db.ExecContext(ctx,
			"DELETE FROM physical_activities WHERE id = $1 AND child_id = $2", activityID, childID)
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

// CheckExist reports whether an activity with the same natural key
// (child_id, start_time) is already registered.
func (r *ActivityRepository) CheckExist(ctx context.Context, activity *domain.PhysicalActivity) (bool, error) {
	var exists bool
	err := r.execute(ctx, "check activity exists", func(db *sql.DB) error {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM physical_activities WHERE child_id = $1 AND start_time = $2",
			activity.ChildID, activity.StartTime).Scan(&count)
		exists = count > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ActivityRepository) RemoveAllByChild(ctx context.Context, childID string) error {
	return r.execute(ctx, "remove activities by child", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, "DELETE FROM physical_activities WHERE child_id = $1", childID)
		return err
	})
}

func marshalActivityNested(activity *domain.PhysicalActivity) (levels, heartRate interface{}, err error) {
	if len(activity.Levels) > 0 {
		b, err := json.Marshal(activity.Levels)
		if err != nil {
			return nil, nil, err
		}
		levels = b
	}
	if activity.HeartRate != nil {
		b, err := json.Marshal(activity.HeartRate)
		if err != nil {
			return nil, nil, err
		}
		heartRate = b
	}
	return levels, heartRate, nil
}

func scanActivity(rows *sql.Rows) (*domain.PhysicalActivity, error) {
	var activity domain.PhysicalActivity
	var (
		startTime, endTime, createdAt time.Time
		duration                      int64
		calories, distance            sql.NullFloat64
		steps                         sql.NullInt64
		levels, heartRate             []byte
	)
	err := rows.Scan(&activity.ID, &activity.ChildID, &startTime, &endTime, &duration,
		&activity.Name, &calories, &steps, &distance, &levels, &heartRate, &createdAt)
	if err != nil {
		return nil, err
	}

	activity.ID = trimID(activity.ID)
	activity.ChildID = trimID(activity.ChildID)
	activity.StartTime = &startTime
	activity.EndTime = &endTime
	activity.Duration = &duration
	activity.CreatedAt = &createdAt
	activity.Calories = floatPtr(calories)
	activity.Distance = floatPtr(distance)
	activity.Steps = intPtr(steps)
	if len(levels) > 0 {
		if err := json.Unmarshal(levels, &activity.Levels); err != nil {
			return nil, err
		}
	}
	if len(heartRate) > 0 {
		activity.HeartRate = &domain.HeartRate{}
		if err := json.Unmarshal(heartRate, activity.HeartRate); err != nil {
			return nil, err
		}
	}
	return &activity, nil
}

var _ ports.PhysicalActivityRepository = (*ActivityRepository)(nil)
