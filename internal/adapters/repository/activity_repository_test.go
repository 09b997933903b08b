package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
	"github.com/IANDYI/tracking-sync/internal/core/ports"
)

const (
	testChildID    = "5a62be07de34500146d9c544"
	testActivityID = "5a62be07d6f33400146c9b61"
)

func testActivity() *domain.PhysicalActivity {
	start := time.Date(2018, 8, 7, 8, 25, 0, 0, time.UTC)
	end := start.Add(25 * time.Minute)
	duration := end.Sub(start).Milliseconds()
	calories := 200.0
	return &domain.PhysicalActivity{
		ChildID:   testChildID,
		StartTime: &start,
		EndTime:   &end,
		Duration:  &duration,
		Name:      "walk",
		Calories:  &calories,
	}
}

func activityRows(activity *domain.PhysicalActivity, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "child_id", "start_time", "end_time", "duration", "name",
		"calories", "steps", "distance", "levels", "heart_rate", "created_at",
	}).AddRow(
		testActivityID, activity.ChildID, *activity.StartTime, *activity.EndTime,
		*activity.Duration, activity.Name, *activity.Calories, nil, nil, nil, nil, createdAt,
	)
}

func TestActivityRepository_Create_AssignsIDAndCreatedAt(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	createdAt := time.Date(2018, 8, 7, 8, 30, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO physical_activities").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	activity := testActivity()
	persisted, err := repo.Create(context.Background(), activity)

	require.NoError(t, err)
	assert.True(t, domain.IsValidObjectID(persisted.ID))
	require.NotNil(t, persisted.CreatedAt)
	assert.Equal(t, createdAt, *persisted.CreatedAt)
	// The input is never mutated.
	assert.Empty(t, activity.ID)
	assert.Nil(t, activity.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_Create_UniqueViolationIsConflict(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	mock.ExpectQuery("INSERT INTO physical_activities").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), testActivity())

	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_Create_StoreDisconnectedIsUnavailable(t *testing.T) {
	repo := NewActivityRepository(newDisconnectedStore(t), zap.NewNop())

	_, err := repo.Create(context.Background(), testActivity())

	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestActivityRepository_FindOne_ReturnsRecord(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	activity := testActivity()
	createdAt := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM physical_activities WHERE child_id = ").
		WithArgs(testChildID).
		WillReturnRows(activityRows(activity, createdAt))

	query := ports.NewQuery()
	query.Filters["child_id"] = testChildID
	found, err := repo.FindOne(context.Background(), query)

	require.NoError(t, err)
	assert.Equal(t, testActivityID, found.ID)
	assert.Equal(t, testChildID, found.ChildID)
	assert.Equal(t, *activity.Duration, *found.Duration)
	assert.Equal(t, *activity.Calories, *found.Calories)
	assert.Nil(t, found.Steps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_FindOne_MissingIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	mock.ExpectQuery("SELECT (.+) FROM physical_activities").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "child_id", "start_time", "end_time", "duration", "name",
			"calories", "steps", "distance", "levels", "heart_rate", "created_at",
		}))

	query := ports.NewQuery()
	query.Filters["id"] = testActivityID
	_, err := repo.FindOne(context.Background(), query)

	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestActivityRepository_UpdateByChild_RejectsClientCreatedAt(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	activity := testActivity()
	activity.ID = testActivityID
	now := time.Now().UTC()
	activity.CreatedAt = &now

	_, err := repo.UpdateByChild(context.Background(), activity, testChildID)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Description, "created_at is assigned by the server")
	// The store is never touched.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepository_UpdateByChild_MissingTargetIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	mock.ExpectQuery("UPDATE physical_activities SET").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "child_id", "start_time", "end_time", "duration", "name",
			"calories", "steps", "distance", "levels", "heart_rate", "created_at",
		}))

	activity := testActivity()
	activity.ID = testActivityID
	_, err := repo.UpdateByChild(context.Background(), activity, testChildID)

	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestActivityRepository_RemoveByChild(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	mock.ExpectExec("DELETE FROM physical_activities WHERE id = ").
		WithArgs(testActivityID, testChildID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.RemoveByChild(context.Background(), testActivityID, testChildID)

	require.NoError(t, err)
	assert.True(t, removed)
}

func TestActivityRepository_RemoveByChild_AbsentTargetIsNotAnError(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	mock.ExpectExec("DELETE FROM physical_activities WHERE id = ").
		WithArgs(testActivityID, testChildID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.RemoveByChild(context.Background(), testActivityID, testChildID)

	require.NoError(t, err)
	assert.False(t, removed)
}

func TestActivityRepository_CheckExist(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	activity := testActivity()
	mock.ExpectQuery("SELECT COUNT(.+) FROM physical_activities").
		WithArgs(activity.ChildID, *activity.StartTime).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.CheckExist(context.Background(), activity)

	require.NoError(t, err)
	assert.True(t, exists)
}

func TestActivityRepository_RemoveAllByChild(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewActivityRepository(store, zap.NewNop())

	mock.ExpectExec("DELETE FROM physical_activities WHERE child_id = ").
		WithArgs(testChildID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	assert.NoError(t, repo.RemoveAllByChild(context.Background(), testChildID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
