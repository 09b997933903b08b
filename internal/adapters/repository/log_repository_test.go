package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

func testLog() *domain.Log {
	value := 7000
	return &domain.Log{
		ChildID: testChildID,
		Type:    domain.LogTypeSteps,
		Date:    "2019-03-11",
		Value:   &value,
	}
}

func logRows(logRecord *domain.Log, createdAt time.Time) *sqlmock.Rows {
	date, _ := time.Parse(domain.LogDateLayout, logRecord.Date)
	return sqlmock.NewRows([]string{"id", "child_id", "type", "date", "value", "created_at"}).
		AddRow(testActivityID, logRecord.ChildID, string(logRecord.Type), date, *logRecord.Value, createdAt)
}

func TestLogRepository_Create(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewLogRepository(store, zap.NewNop())

	createdAt := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO logs").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	persisted, err := repo.Create(context.Background(), testLog())

	require.NoError(t, err)
	assert.True(t, domain.IsValidObjectID(persisted.ID))
	assert.Equal(t, createdAt, *persisted.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRepository_UpdateValue_OverwritesByNaturalKey(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewLogRepository(store, zap.NewNop())

	logRecord := testLog()
	mock.ExpectQuery("UPDATE logs SET value = ").
		WithArgs(logRecord.Value, logRecord.ChildID, string(logRecord.Type), logRecord.Date).
		WillReturnRows(logRows(logRecord, time.Now().UTC()))

	updated, err := repo.UpdateValue(context.Background(), logRecord)

	require.NoError(t, err)
	assert.Equal(t, logRecord.Date, updated.Date, "date round-trips in yyyy-MM-dd form")
	assert.Equal(t, *logRecord.Value, *updated.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRepository_UpdateValue_MissingTargetIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewLogRepository(store, zap.NewNop())

	mock.ExpectQuery("UPDATE logs SET value = ").
		WillReturnRows(sqlmock.NewRows([]string{"id", "child_id", "type", "date", "value", "created_at"}))

	_, err := repo.UpdateValue(context.Background(), testLog())

	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestLogRepository_CheckExist(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewLogRepository(store, zap.NewNop())

	logRecord := testLog()
	mock.ExpectQuery("SELECT COUNT(.+) FROM logs").
		WithArgs(logRecord.ChildID, string(logRecord.Type), logRecord.Date).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := repo.CheckExist(context.Background(), logRecord)

	require.NoError(t, err)
	assert.False(t, exists)
}
