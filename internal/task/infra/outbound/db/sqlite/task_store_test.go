package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedSQLite "github.com/davicafu/neuroassist/internal/shared/infra/platform/db/sqlite"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
)

func setupStore(t *testing.T) (*TaskStoreSQLite, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	// Con memoria compartida cada conexión vería una base distinta.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(context.Background(), db))
	return NewTaskStoreSQLite(db), db
}

func newRecord(t *testing.T, title string) taskDomain.TaskRecord {
	t.Helper()
	task, err := taskDomain.NewTask(title,
		taskDomain.WithPriority(taskDomain.PriorityHigh),
		taskDomain.WithTags("work", "q3"),
		taskDomain.WithDueDate(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
	)
	require.NoError(t, err)
	return taskDomain.ToRecord(task)
}

func TestTaskStoreSQLite_InsertAndFetch(t *testing.T) {
	// ARRANGE
	store, _ := setupStore(t)
	ctx := context.Background()
	rec := newRecord(t, "Preparar informe")

	// ACT
	require.NoError(t, store.Insert(ctx, rec))
	records, err := store.FetchAll(ctx)

	// ASSERT
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])

	decoded, err := taskDomain.FromRecord(records[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "q3"}, decoded.Tags)
}

func TestTaskStoreSQLite_UpdateByID(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	rec := newRecord(t, "Llamar al banco")
	require.NoError(t, store.Insert(ctx, rec))

	rec.Title = "Llamar al banco hoy"
	found, err := store.UpdateByID(ctx, uuid.MustParse(rec.ID), rec)
	require.NoError(t, err)
	assert.True(t, found)

	records, err := store.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Llamar al banco hoy", records[0].Title)
}

func TestTaskStoreSQLite_MissingIDReportsNotFound(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	rec := newRecord(t, "Fantasma")

	found, err := store.UpdateByID(ctx, uuid.MustParse(rec.ID), rec)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = store.DeleteByID(ctx, uuid.MustParse(rec.ID))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTaskStoreSQLite_WritesOutboxEvents(t *testing.T) {
	// ARRANGE
	store, db := setupStore(t)
	ctx := context.Background()
	rec := newRecord(t, "Comprar leche")

	// ACT
	require.NoError(t, store.Insert(ctx, rec))
	found, err := store.DeleteByID(ctx, uuid.MustParse(rec.ID))
	require.NoError(t, err)
	require.True(t, found)

	// ASSERT: un evento por escritura, en orden, con el id de la tarea
	outbox := sharedSQLite.NewOutboxRepoSQLite(db)
	events, err := outbox.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, taskDomain.TaskCreated, events[0].EventType)
	assert.Equal(t, taskDomain.TaskDeleted, events[1].EventType)
	assert.Equal(t, rec.ID, events[0].AggregateID)

	require.NoError(t, outbox.MarkOutboxProcessed(ctx, events[0].ID))
	pending, err := outbox.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestTaskStoreSQLite_DuplicateInsertFails(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	rec := newRecord(t, "Duplicada")

	require.NoError(t, store.Insert(ctx, rec))
	assert.Error(t, store.Insert(ctx, rec))

	records, err := store.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
