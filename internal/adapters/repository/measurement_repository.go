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

const weightColumns = "id, child_id, timestamp, value, unit, body_fat, body_fat_id, created_at"
const bodyFatColumns = "id, child_id, timestamp, value, unit, created_at"

// WeightRepository persists weight measurements. A weight may reference a
// body fat record by id; the reference carries no lifecycle ownership.
type WeightRepository struct {
	*Postgres
}

// NewWeightRepository creates the weight repository.
func NewWeightRepository(store *connection.StoreManager, logger *zap.Logger) *WeightRepository {
	return &WeightRepository{Postgres: NewPostgres(store, logger)}
}

func (r *WeightRepository) Create(ctx context.Context, weight *domain.Weight) (*domain.Weight, error) {
	persisted := *weight
	persisted.ID = domain.NewObjectID()

	err := r.execute(ctx, "create weight", func(db *sql.DB) error {
		query := `INSERT INTO weights (id, child_id, timestamp, value, unit, body_fat, body_fat_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at`
		var createdAt time.Time
		err := db.QueryRowContext(ctx, query,
			persisted.ID,
			weight.ChildID,
			weight.Timestamp,
			weight.Value,
			weight.Unit,
			nullFloat(weight.BodyFat),
			nullString(weight.BodyFatID),
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

func (r *WeightRepository) Find(ctx context.Context, query ports.Query) ([]*domain.Weight, error) {
	var weights []*domain.Weight
	err := r.execute(ctx, "find weights", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		suffix, suffixArgs := buildSuffix(query, len(args))
		rows, err := db.QueryContext(ctx,
			"SELECT "+weightColumns+" FROM weights"+where+suffix,
			append(args, suffixArgs...)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		weights = weights[:0]
		for rows.Next() {
			weight, err := scanWeight(rows)
			if err != nil {
				return err
			}
			weights = append(weights, weight)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return weights, nil
}

func (r *WeightRepository) FindOne(ctx context.Context, query ports.Query) (*domain.Weight, error) {
	var weight *domain.Weight
	err := r.execute(ctx, "find weight", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		rows, err := db.QueryContext(ctx,
			"SELECT "+weightColumns+" FROM weights"+where+" LIMIT 1", args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		weight, err = scanWeight(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return weight, nil
}

func (r *WeightRepository) RemoveByChild(ctx context.Context, weightID, childID string) (bool, error) {
	var removed bool
	err := r.execute(ctx, "remove weight", func(db *sql.DB) error {
		result, err := db.ExecContext(ctx,
			"DELETE FROM weights WHERE id = $1 AND child_id = $2", weightID, childID)
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

// CheckExist reports whether a weight with the same natural key
// (child_id, timestamp) is already registered.
func (r *WeightRepository) CheckExist(ctx context.Context, weight *domain.Weight) (bool, error) {
	var exists bool
	err := r.execute(ctx, "check weight exists", func(db *sql.DB) error {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM weights WHERE child_id = $1 AND timestamp = $2",
			weight.ChildID, weight.Timestamp).Scan(&count)
		exists = count > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *WeightRepository) RemoveAllByChild(ctx context.Context, childID string) error {
	return r.execute(ctx, "remove weights by child", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, "DELETE FROM weights WHERE child_id = $1", childID)
		return err
	})
}

func scanWeight(rows *sql.Rows) (*domain.Weight, error) {
	var weight domain.Weight
	var (
		timestamp, createdAt time.Time
		value                float64
		bodyFat              sql.NullFloat64
		bodyFatID            sql.NullString
	)
	err := rows.Scan(&weight.ID, &weight.ChildID, &timestamp, &value, &weight.Unit,
		&bodyFat, &bodyFatID, &createdAt)
	if err != nil {
		return nil, err
	}

	weight.ID = trimID(weight.ID)
	weight.ChildID = trimID(weight.ChildID)
	weight.Timestamp = &timestamp
	weight.Value = &value
	weight.BodyFat = floatPtr(bodyFat)
	weight.BodyFatID = stringOrEmpty(bodyFatID)
	weight.CreatedAt = &createdAt
	return &weight, nil
}

var _ ports.WeightRepository = (*WeightRepository)(nil)

// BodyFatRepository persists body fat measurements.
type BodyFatRepository struct {
	*Postgres
}

// NewBodyFatRepository creates the body fat repository.
func NewBodyFatRepository(store *connection.StoreManager, logger *zap.Logger) *BodyFatRepository {
	return &BodyFatRepository{Postgres: NewPostgres(store, logger)}
}

func (r *BodyFatRepository) Create(ctx context.Context, bodyFat *domain.BodyFat) (*domain.BodyFat, error) {
	persisted := *bodyFat
	persisted.ID = domain.NewObjectID()

	err := r.execute(ctx, "create body fat", func(db *sql.DB) error {
		query := `INSERT INTO body_fats (id, child_id, timestamp, value, unit)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`
		var createdAt time.Time
		err := db.QueryRowContext(ctx, query,
			persisted.ID,
			bodyFat.ChildID,
			bodyFat.Timestamp,
			bodyFat.Value,
			bodyFat.Unit,
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

func (r *BodyFatRepository) Find(ctx context.Context, query ports.Query) ([]*domain.BodyFat, error) {
	var bodyFats []*domain.BodyFat
	err := r.execute(ctx, "find body fats", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		suffix, suffixArgs := buildSuffix(query, len(args))
		rows, err := db.QueryContext(ctx,
			"SELECT "+bodyFatColumns+" FROM body_fats"+where+suffix,
			append(args, suffixArgs...)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		bodyFats = bodyFats[:0]
		for rows.Next() {
			bodyFat, err := scanBodyFat(rows)
			if err != nil {
				return err
			}
			bodyFats = append(bodyFats, bodyFat)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return bodyFats, nil
}

func (r *BodyFatRepository) FindOne(ctx context.Context, query ports.Query) (*domain.BodyFat, error) {
	var bodyFat *domain.BodyFat
	err := r.execute(ctx, "find body fat", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		rows, err := db.QueryContext(ctx,
			"SELECT "+bodyFatColumns+" FROM body_fats"+where+" LIMIT 1", args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		bodyFat, err = scanBodyFat(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bodyFat, nil
}

func (r *BodyFatRepository) RemoveByChild(ctx context.Context, bodyFatID, childID string) (bool, error) {
	var removed bool
	err := r.execute(ctx, "remove body fat", func(db *sql.DB) error {
		result, err := db.ExecContext(ctx,
			"DELETE FROM body_fats WHERE id = $1 AND child_id = $2", bodyFatID, childID)
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

// CheckExist reports whether a body fat with the same natural key
// (child_id, timestamp) is already registered.
func (r *BodyFatRepository) CheckExist(ctx context.Context, bodyFat *domain.BodyFat) (bool, error) {
	var exists bool
	err := r.execute(ctx, "check body fat exists", func(db *sql.DB) error {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM body_fats WHERE child_id = $1 AND timestamp = $2",
			bodyFat.ChildID, bodyFat.Timestamp).Scan(&count)
		exists = count > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *BodyFatRepository) RemoveAllByChild(ctx context.Context, childID string) error {
	return r.execute(ctx, "remove body fats by child", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, "DELETE FROM body_fats WHERE child_id = $1", childID)
		return err
	})
}

func scanBodyFat(rows *sql.Rows) (*domain.BodyFat, error) {
	var bodyFat domain.BodyFat
	var (
		timestamp, createdAt time.Time
		value                float64
	)
	err := rows.Scan(&bodyFat.ID, &bodyFat.ChildID, &timestamp, &value, &bodyFat.Unit, &createdAt)
	if err != nil {
		return nil, err
	}

	bodyFat.ID = trimID(bodyFat.ID)
	bodyFat.ChildID = trimID(bodyFat.ChildID)
	bodyFat.Timestamp = &timestamp
	bodyFat.Value = &value
	bodyFat.CreatedAt = &createdAt
	return &bodyFat, nil
}

var _ ports.BodyFatRepository = (*BodyFatRepository)(nil)
