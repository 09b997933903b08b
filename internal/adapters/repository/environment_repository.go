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

const environmentColumns = "id, institution_id, location, measurements, climatized, timestamp, created_at"

// EnvironmentRepository persists ambient readings of an institution.
type EnvironmentRepository struct {
	*Postgres
}

// NewEnvironmentRepository creates the environment repository.
func NewEnvironmentRepository(store *connection.StoreManager, logger *zap.Logger) *EnvironmentRepository {
	return &EnvironmentRepository{Postgres: NewPostgres(store, logger)}
}

func (r *EnvironmentRepository) Create(ctx context.Context, env *domain.Environment) (*domain.Environment, error) {
	persisted := *env
	persisted.ID = domain.NewObjectID()

	var location interface{}
	if env.Location != nil {
		b, err := json.Marshal(env.Location)
		if err != nil {
			return nil, errNotStorable("Environment", err)
		}
		location = b
	}
	measurements, err := json.Marshal(env.Measurements)
	if err != nil {
		return nil, errNotStorable("Environment", err)
	}

	err = r.execute(ctx, "create environment", func(db *sql.DB) error {
		query := `INSERT INTO environments (id, institution_id, location, measurements, climatized, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at`
		var createdAt time.Time
		err := db.QueryRowContext(ctx, query,
			persisted.ID,
			env.InstitutionID,
			location,
			measurements,
			nullBool(env.Climatized),
			env.Timestamp,
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

func (r *EnvironmentRepository) Find(ctx context.Context, query ports.Query) ([]*domain.Environment, error) {
	var envs []*domain.Environment
	err := r.execute(ctx, "find environments", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		suffix, suffixArgs := buildSuffix(query, len(args))
		rows, err := db.QueryContext(ctx,
			"SELECT "+environmentColumns+" FROM environments"+where+suffix,
			append(args, suffixArgs...)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		envs = envs[:0]
		for rows.Next() {
			env, err := scanEnvironment(rows)
			if err != nil {
				return err
			}
			envs = append(envs, env)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}

func (r *EnvironmentRepository) FindOne(ctx context.Context, query ports.Query) (*domain.Environment, error) {
	var env *domain.Environment
	err := r.execute(ctx, "find environment", func(db *sql.DB) error {
		where, args := buildWhere(query.Filters)
		rows, err := db.QueryContext(ctx,
			"SELECT "+environmentColumns+" FROM environments"+where+" LIMIT 1", args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if !rows.Next() {
			return sql.ErrNoRows
		}
		env, err = scanEnvironment(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (r *EnvironmentRepository) RemoveByInstitution(ctx context.Context, environmentID, institutionID string) (bool, error) {
	var removed bool
	err := r.execute(ctx, "remove environment", func(db *sql.DB) error {
		result, err := db.ExecContext(ctx,
			"DELETE FROM environments WHERE id = $1 AND institution_id = $2", environmentID, institutionID)
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

// CheckExist reports whether an environment with the same natural key
// (institution_id, timestamp) is already registered.
func (r *EnvironmentRepository) CheckExist(ctx context.Context, env *domain.Environment) (bool, error) {
	var exists bool
	err := r.execute(ctx, "check environment exists", func(db *sql.DB) error {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM environments WHERE institution_id = $1 AND timestamp = $2",
			env.InstitutionID, env.Timestamp).Scan(&count)
		exists = count > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *EnvironmentRepository) RemoveAllByInstitution(ctx context.Context, institutionID string) error {
	return r.execute(ctx, "remove environments by institution", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, "DELETE FROM environments WHERE institution_id = $1", institutionID)
		return err
	})
}

func scanEnvironment(rows *sql.Rows) (*domain.Environment, error) {
	var env domain.Environment
	var (
		location, measurements []byte
		climatized             sql.NullBool
		timestamp, createdAt   time.Time
	)
	err := rows.Scan(&env.ID, &env.InstitutionID, &location, &measurements,
		&climatized, &timestamp, &createdAt)
	if err != nil {
		return nil, err
	}

	env.ID = trimID(env.ID)
	env.InstitutionID = trimID(env.InstitutionID)
	env.Timestamp = &timestamp
	env.CreatedAt = &createdAt
	env.Climatized = boolPtr(climatized)
	if len(location) > 0 {
		env.Location = &domain.Location{}
		if err := json.Unmarshal(location, env.Location); err != nil {
			return nil, err
		}
	}
	if len(measurements) > 0 {
		if err := json.Unmarshal(measurements, &env.Measurements); err != nil {
			return nil, err
		}
	}
	return &env, nil
}

var _ ports.EnvironmentRepository = (*EnvironmentRepository)(nil)
