package ports

import (
	"context"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

// Query is an opaque filter + pagination + sort passthrough handed to a
// repository. Filter keys are persisted column names.
type Query struct {
	Filters map[string]interface{}
	Page    int
	Limit   int
	// Sort column; prefix with "-" for descending order.
	Sort string
}

// NewQuery creates a Query with sane pagination defaults.
func NewQuery() Query {
	return Query{Filters: map[string]interface{}{}, Page: 1, Limit: 100}
}

// PhysicalActivityRepository defines persistence for physical activity records.
// Natural uniqueness key: (child_id, start_time).
type PhysicalActivityRepository interface {
	// Create persists a new activity, assigning its id and created_at.
	// Returns ConflictError on a natural key violation.
	Create(ctx context.Context, activity *domain.PhysicalActivity) (*domain.PhysicalActivity, error)

	// Find retrieves activities matching the query.
	Find(ctx context.Context, query Query) ([]*domain.PhysicalActivity, error)

	// FindOne retrieves a single activity or NotFoundError.
	FindOne(ctx context.Context, query Query) (*domain.PhysicalActivity, error)

	// UpdateByChild updates the activity identified by its id for the given
	// child. Returns NotFoundError if the target is absent and a
	// ValidationError if created_at is set on the input.
	UpdateByChild(ctx context.Context, activity *domain.PhysicalActivity, childID string) (*domain.PhysicalActivity, error)

	// RemoveByChild removes one activity by id and child. False means the
	// target was already absent, which callers treat as success.
	RemoveByChild(ctx context.Context, activityID, childID string) (bool, error)

	// CheckExist reports whether an activity with the same natural key exists.
	CheckExist(ctx context.Context, activity *domain.PhysicalActivity) (bool, error)

	// RemoveAllByChild removes every activity of a child. Zero rows is success.
	RemoveAllByChild(ctx context.Context, childID string) error
}

// SleepRepository defines persistence for sleep records.
// Natural uniqueness key: (child_id, start_time).
type SleepRepository interface {
	Create(ctx context.Context, sleep *domain.Sleep) (*domain.Sleep, error)
	Find(ctx context.Context, query Query) ([]*domain.Sleep, error)
	FindOne(ctx context.Context, query Query) (*domain.Sleep, error)
	UpdateByChild(ctx context.Context, sleep *domain.Sleep, childID string) (*domain.Sleep, error)
	RemoveByChild(ctx context.Context, sleepID, childID string) (bool, error)
	CheckExist(ctx context.Context, sleep *domain.Sleep) (bool, error)
	RemoveAllByChild(ctx context.Context, childID string) error
}

// WeightRepository defines persistence for weight measurements.
// Natural uniqueness key: (child_id, timestamp).
type WeightRepository interface {
	Create(ctx context.Context, weight *domain.Weight) (*domain.Weight, error)
	Find(ctx context.Context, query Query) ([]*domain.Weight, error)
	FindOne(ctx context.Context, query Query) (*domain.Weight, error)
	RemoveByChild(ctx context.Context, weightID, childID string) (bool, error)
	CheckExist(ctx context.Context, weight *domain.Weight) (bool, error)
	RemoveAllByChild(ctx context.Context, childID string) error
}

// BodyFatRepository defines persistence for body fat measurements.
// Natural uniqueness key: (child_id, timestamp).
type BodyFatRepository interface {
	Create(ctx context.Context, bodyFat *domain.BodyFat) (*domain.BodyFat, error)
	Find(ctx context.Context, query Query) ([]*domain.BodyFat, error)
	FindOne(ctx context.Context, query Query) (*domain.BodyFat, error)
	RemoveByChild(ctx context.Context, bodyFatID, childID string) (bool, error)
	CheckExist(ctx context.Context, bodyFat *domain.BodyFat) (bool, error)
	RemoveAllByChild(ctx context.Context, childID string) error
}

// LogRepository defines persistence for daily activity logs.
// Natural uniqueness key: (child_id, type, date).
type LogRepository interface {
	Create(ctx context.Context, logRecord *domain.Log) (*domain.Log, error)
	Find(ctx context.Context, query Query) ([]*domain.Log, error)
	FindOne(ctx context.Context, query Query) (*domain.Log, error)

	// UpdateValue overwrites the value of the log identified by its natural
	// key. Returns NotFoundError if the target is absent.
	UpdateValue(ctx context.Context, logRecord *domain.Log) (*domain.Log, error)

	CheckExist(ctx context.Context, logRecord *domain.Log) (bool, error)
	RemoveAllByChild(ctx context.Context, childID string) error
}

// EnvironmentRepository defines persistence for environment readings.
// Natural uniqueness key: (institution_id, timestamp).
type EnvironmentRepository interface {
	Create(ctx context.Context, env *domain.Environment) (*domain.Environment, error)
	Find(ctx context.Context, query Query) ([]*domain.Environment, error)
	FindOne(ctx context.Context, query Query) (*domain.Environment, error)
	RemoveByInstitution(ctx context.Context, environmentID, institutionID string) (bool, error)
	CheckExist(ctx context.Context, env *domain.Environment) (bool, error)
	RemoveAllByInstitution(ctx context.Context, institutionID string) error
}
