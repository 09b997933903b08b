// Package repository implements the persistence layer over Postgres. Every
// repository translates storage-driver failures into the domain error
// taxonomy at its boundary: callers never see a raw pq error.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/connection"
	"github.com/IANDYI/tracking-sync/internal/core/domain"
	"github.com/IANDYI/tracking-sync/internal/core/ports"
)

const uniqueViolation = "23505"

// Postgres is the shared base of all collection repositories: circuit
// breaker, bounded retry and error translation around one store connection
// manager.
type Postgres struct {
	store      *connection.StoreManager
	cb         *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewPostgres creates the shared repository base.
func NewPostgres(store *connection.StoreManager, logger *zap.Logger) *Postgres {
	settings := gobreaker.Settings{
		Name:        "database",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	return &Postgres{
		store:      store,
		cb:         gobreaker.NewCircuitBreaker(settings),
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     logger,
	}
}

// execute runs fn against the live database handle with retry and breaker
// protection, then translates the outcome into the domain taxonomy.
func (r *Postgres) execute(ctx context.Context, op string, fn func(db *sql.DB) error) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		db, err := r.store.DB()
		if err != nil {
			return nil, err
		}
		var lastErr error
		for i := 0; i < r.maxRetries; i++ {
			lastErr = fn(db)
			if lastErr == nil {
				return nil, nil
			}
			if !isTransient(lastErr) {
				return nil, lastErr
			}
			if i < r.maxRetries-1 {
				select {
				case <-time.After(r.retryDelay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
		return nil, lastErr
	})
	return r.translate(op, err)
}

// isTransient reports whether an error is worth an in-process retry.
// Constraint violations and missing rows are definitive; connection-level
// failures are not.
func isTransient(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return false
	}
	return true
}

// translate maps a storage-level failure to the domain error taxonomy.
func (r *Postgres) translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return &domain.ConflictError{Message: "A registration with the same unique data already exists!"}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: op + ": resource not found"}
	}
	if errors.Is(err, domain.ErrUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("%s: %w", op, domain.ErrUnavailable)
	}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return err
	}
	return &domain.RepositoryError{Op: op, Err: err}
}

// buildWhere renders a Query's filter map into a WHERE clause with
// positional arguments. Filter keys are trusted column names supplied by the
// caller, never external input.
func buildWhere(filters map[string]interface{}) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	// Stable argument order for tests and query plan reuse.
	sort.Strings(keys)

	var clauses []string
	var args []interface{}
	for i, k := range keys {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, filters[k])
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// buildSuffix renders ORDER BY / LIMIT / OFFSET for a Query.
func buildSuffix(query ports.Query, argOffset int) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	if query.Sort != "" {
		column := query.Sort
		direction := "ASC"
		if strings.HasPrefix(column, "-") {
			column = column[1:]
			direction = "DESC"
		}
		sb.WriteString(fmt.Sprintf(" ORDER BY %s %s", column, direction))
	}
	if query.Limit > 0 {
		argOffset++
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argOffset))
		args = append(args, query.Limit)
		if query.Page > 1 {
			argOffset++
			sb.WriteString(fmt.Sprintf(" OFFSET $%d", argOffset))
			args = append(args, (query.Page-1)*query.Limit)
		}
	}
	return sb.String(), args
}

// errNotStorable is raised when an entity's nested parts cannot be encoded
// for storage. The failure is deterministic, so callers must treat it as a
// definitive skip, never as a retryable store fault.
func errNotStorable(kind string, err error) error {
	return domain.NewValidationError(kind+" could not be encoded for storage...", err.Error())
}

// errCreatedAtImmutable is raised when an update carries a client-set
// created_at: the store assigns it and it must never be overwritten.
func errCreatedAtImmutable(kind string) error {
	return domain.NewValidationError("created_at field is invalid...",
		kind+" validation failed: created_at is assigned by the server and can not be updated!")
}
