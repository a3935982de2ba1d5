package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
)

func newRecord(t *testing.T, title string) taskDomain.TaskRecord {
	t.Helper()
	task, err := taskDomain.NewTask(title)
	require.NoError(t, err)
	return taskDomain.ToRecord(task)
}

func TestTaskStoreMemory_KeepsInsertionOrder(t *testing.T) {
	store := NewTaskStoreMemory()
	ctx := context.Background()
	a, b, c := newRecord(t, "a"), newRecord(t, "b"), newRecord(t, "c")

	require.NoError(t, store.Insert(ctx, a))
	require.NoError(t, store.Insert(ctx, b))
	require.NoError(t, store.Insert(ctx, c))
	found, err := store.DeleteByID(ctx, uuid.MustParse(b.ID))
	require.NoError(t, err)
	require.True(t, found)

	records, err := store.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []taskDomain.TaskRecord{a, c}, records)
}

func TestTaskStoreMemory_FailWrites(t *testing.T) {
	// ARRANGE
	store := NewTaskStoreMemory()
	ctx := context.Background()
	rec := newRecord(t, "Pagar luz")
	require.NoError(t, store.Insert(ctx, rec))
	store.FailWrites(true)

	// ACT
	insertErr := store.Insert(ctx, newRecord(t, "Otra"))
	_, updateErr := store.UpdateByID(ctx, uuid.MustParse(rec.ID), rec)
	_, deleteErr := store.DeleteByID(ctx, uuid.MustParse(rec.ID))

	// ASSERT
	assert.ErrorIs(t, insertErr, ErrInjected)
	assert.ErrorIs(t, updateErr, ErrInjected)
	assert.ErrorIs(t, deleteErr, ErrInjected)

	records, err := store.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestTaskStoreMemory_NotFound(t *testing.T) {
	store := NewTaskStoreMemory()
	rec := newRecord(t, "x")

	found, err := store.UpdateByID(context.Background(), uuid.MustParse(rec.ID), rec)

	require.NoError(t, err)
	assert.False(t, found)
}
