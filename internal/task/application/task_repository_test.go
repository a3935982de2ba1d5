package application

import (
	"context"
	"sync"
	"testing"
	"time"

	sharedDomain "github.com/davicafu/neuroassist/internal/shared/domain"
	sharedCache "github.com/davicafu/neuroassist/internal/shared/infra/platform/cache"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
	"github.com/davicafu/neuroassist/internal/task/infra/outbound/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T, store taskDomain.TaskStore, cache sharedCache.Cache) *TaskRepository {
	t.Helper()
	repo := NewTaskRepository(store, cache, Config{
		StoreTimeout: time.Second,
		SummaryTTL:   time.Minute,
		Now:          func() time.Time { return fixedNow },
	}, zap.NewNop())
	t.Cleanup(repo.Close)
	return repo
}

func mustTask(t *testing.T, title string, opts ...taskDomain.TaskOption) *taskDomain.Task {
	t.Helper()
	task, err := taskDomain.NewTask(title, opts...)
	require.NoError(t, err)
	return task
}

func titles(tasks []*taskDomain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestTaskRepository_StartsLoadingUntilRefresh(t *testing.T) {
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)

	assert.True(t, repo.State().Loading)

	snap, err := repo.Refresh(context.Background())

	require.NoError(t, err)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Tasks)
	assert.Empty(t, snap.Err)
}

func TestTaskRepository_SortOrder(t *testing.T) {
	// ARRANGE
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()
	base := fixedNow.Add(-48 * time.Hour)
	due1 := fixedNow.Add(24 * time.Hour)
	due2 := fixedNow.Add(72 * time.Hour)

	done := mustTask(t, "done urgent", taskDomain.WithPriority(taskDomain.PriorityUrgent), taskDomain.WithCreatedAt(base))
	done.Complete()

	tasks := []*taskDomain.Task{
		done,
		mustTask(t, "low", taskDomain.WithPriority(taskDomain.PriorityLow), taskDomain.WithCreatedAt(base)),
		mustTask(t, "high undated", taskDomain.WithPriority(taskDomain.PriorityHigh), taskDomain.WithCreatedAt(base)),
		mustTask(t, "high due later", taskDomain.WithPriority(taskDomain.PriorityHigh), taskDomain.WithDueDate(due2), taskDomain.WithCreatedAt(base)),
		mustTask(t, "high due soon", taskDomain.WithPriority(taskDomain.PriorityHigh), taskDomain.WithDueDate(due1), taskDomain.WithCreatedAt(base)),
		mustTask(t, "medium older", taskDomain.WithCreatedAt(base)),
		mustTask(t, "medium newer", taskDomain.WithCreatedAt(base.Add(time.Hour))),
		mustTask(t, "urgent", taskDomain.WithPriority(taskDomain.PriorityUrgent), taskDomain.WithCreatedAt(base)),
	}

	// ACT
	var snap Snapshot
	for _, task := range tasks {
		var err error
		snap, err = repo.AddTask(ctx, task)
		require.NoError(t, err)
	}

	// ASSERT
	assert.Equal(t, []string{
		"urgent",
		"high due soon",
		"high due later",
		"high undated",
		"medium newer",
		"medium older",
		"low",
		"done urgent",
	}, titles(snap.Tasks))
	assert.Equal(t, titles(snap.Tasks), titles(repo.Tasks()))
}

func TestSortTasks_IDBreaksTies(t *testing.T) {
	created := fixedNow.Add(-time.Hour)
	a := mustTask(t, "a", taskDomain.WithCreatedAt(created))
	b := mustTask(t, "b", taskDomain.WithCreatedAt(created))
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

	tasks := []*taskDomain.Task{b, a}
	SortTasks(tasks)

	assert.Equal(t, []string{"a", "b"}, titles(tasks))
}

func TestTaskRepository_AddTask_ValidationNeverReachesStore(t *testing.T) {
	// ARRANGE
	store := memory.NewTaskStoreMemory()
	repo := newTestRepo(t, store, nil)
	invalid := mustTask(t, "válida")
	invalid.Title = "   "

	// ACT
	_, err := repo.AddTask(context.Background(), invalid)

	// ASSERT
	assert.ErrorIs(t, err, taskDomain.ErrInvalidTask)
	records, fetchErr := store.FetchAll(context.Background())
	require.NoError(t, fetchErr)
	assert.Empty(t, records)
}

func TestTaskRepository_WriteFailureKeepsView(t *testing.T) {
	// ARRANGE
	store := memory.NewTaskStoreMemory()
	repo := newTestRepo(t, store, nil)
	ctx := context.Background()

	_, err := repo.AddTask(ctx, mustTask(t, "Comprar pan"))
	require.NoError(t, err)
	before := repo.Tasks()

	store.FailWrites(true)

	// ACT
	snap, err := repo.AddTask(ctx, mustTask(t, "No se guarda"))

	// ASSERT
	assert.ErrorIs(t, err, taskDomain.ErrPersistence)
	assert.ErrorIs(t, err, memory.ErrInjected)
	assert.NotEmpty(t, snap.Err)
	assert.Contains(t, snap.Err, "failed to add task")
	assert.Equal(t, titles(before), titles(snap.Tasks))
	assert.Equal(t, titles(before), titles(repo.Tasks()))

	// La siguiente operación correcta limpia el error
	store.FailWrites(false)
	snap, err = repo.AddTask(ctx, mustTask(t, "Ahora sí"))
	require.NoError(t, err)
	assert.Empty(t, snap.Err)
	assert.Len(t, snap.Tasks, 2)
}

func TestTaskRepository_UpdateTask(t *testing.T) {
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()
	task := mustTask(t, "Reunión")
	_, err := repo.AddTask(ctx, task)
	require.NoError(t, err)

	task.Title = "Reunión con el equipo"
	task.AddTag("work")
	snap, err := repo.UpdateTask(ctx, task)

	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "Reunión con el equipo", snap.Tasks[0].Title)
	assert.Equal(t, []string{"work"}, snap.Tasks[0].Tags)
}

func TestTaskRepository_MissingIDSurfacesNotFound(t *testing.T) {
	// ARRANGE
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()
	_, err := repo.AddTask(ctx, mustTask(t, "Existe"))
	require.NoError(t, err)
	ghost := mustTask(t, "No existe")

	// ACT
	updSnap, updErr := repo.UpdateTask(ctx, ghost)
	delSnap, delErr := repo.DeleteTask(ctx, ghost.ID)

	// ASSERT
	assert.ErrorIs(t, updErr, taskDomain.ErrTaskNotFound)
	assert.ErrorIs(t, delErr, taskDomain.ErrTaskNotFound)
	assert.Equal(t, []string{"Existe"}, titles(updSnap.Tasks))
	assert.Equal(t, []string{"Existe"}, titles(delSnap.Tasks))
	assert.Contains(t, delSnap.Err, "failed to delete task")
}

func TestTaskRepository_DeleteTask(t *testing.T) {
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()
	keep := mustTask(t, "Se queda")
	drop := mustTask(t, "Se va")
	_, err := repo.AddTask(ctx, keep)
	require.NoError(t, err)
	_, err = repo.AddTask(ctx, drop)
	require.NoError(t, err)

	snap, err := repo.DeleteTask(ctx, drop.ID)

	require.NoError(t, err)
	assert.Equal(t, []string{"Se queda"}, titles(snap.Tasks))
	_, err = repo.GetTaskByID(drop.ID)
	assert.ErrorIs(t, err, taskDomain.ErrTaskNotFound)
}

func TestTaskRepository_ToggleIsItsOwnInverse(t *testing.T) {
	// ARRANGE
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()
	task := mustTask(t, "Ir al gimnasio")
	_, err := repo.AddTask(ctx, task)
	require.NoError(t, err)

	// ACT
	snap, err := repo.ToggleTaskCompletion(ctx, task)
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	toggled := snap.Tasks[0]
	assert.True(t, toggled.IsCompleted)
	assert.NotNil(t, toggled.CompletedAt)

	snap, err = repo.ToggleTaskCompletion(ctx, toggled)
	require.NoError(t, err)

	// ASSERT
	back := snap.Tasks[0]
	assert.Equal(t, task.IsCompleted, back.IsCompleted)
	assert.Nil(t, back.CompletedAt)
	// La tarea original no se modifica
	assert.False(t, task.IsCompleted)
}

func TestTaskRepository_SkipsMalformedRecords(t *testing.T) {
	// ARRANGE
	store := memory.NewTaskStoreMemory()
	good := mustTask(t, "Buena")
	bad := taskDomain.ToRecord(mustTask(t, "Mala"))
	bad.CreatedAt = "ayer por la tarde"
	store.Seed(taskDomain.ToRecord(good), bad)
	repo := newTestRepo(t, store, nil)

	// ACT
	snap, err := repo.FetchTasks(context.Background())

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, []string{"Buena"}, titles(snap.Tasks))
	assert.Equal(t, 1, snap.Skipped)
	assert.NotEmpty(t, snap.Err)
}

func TestTaskRepository_FetchFailureKeepsView(t *testing.T) {
	store := memory.NewTaskStoreMemory()
	store.Seed(taskDomain.ToRecord(mustTask(t, "Guardada")))
	repo := newTestRepo(t, store, nil)
	ctx := context.Background()
	_, err := repo.Refresh(ctx)
	require.NoError(t, err)

	store.FailFetch(true)
	snap, err := repo.Refresh(ctx)

	assert.ErrorIs(t, err, taskDomain.ErrPersistence)
	assert.False(t, snap.Loading)
	assert.Equal(t, []string{"Guardada"}, titles(snap.Tasks))
}

func TestTaskRepository_SearchTasks(t *testing.T) {
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()
	for _, title := range []string{"Buy milk", "Call mom", "Book dentist"} {
		_, err := repo.AddTask(ctx, mustTask(t, title))
		require.NoError(t, err)
	}

	assert.Len(t, repo.SearchTasks(""), 3)
	assert.Empty(t, repo.SearchTasks("ZZZ"))
	assert.Equal(t, []string{"Buy milk"}, titles(repo.SearchTasks("MILK")))
}

func TestTaskRepository_GetTaskCount(t *testing.T) {
	// ARRANGE: 5 tareas, 2 completadas, 1 pendiente vencida
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()
	yesterday := fixedNow.Add(-24 * time.Hour)
	tomorrow := fixedNow.Add(24 * time.Hour)

	done1 := mustTask(t, "hecha 1", taskDomain.WithDueDate(yesterday))
	done1.Complete()
	done2 := mustTask(t, "hecha 2")
	done2.Complete()

	for _, task := range []*taskDomain.Task{
		done1,
		done2,
		mustTask(t, "vencida", taskDomain.WithDueDate(yesterday)),
		mustTask(t, "mañana", taskDomain.WithDueDate(tomorrow)),
		mustTask(t, "sin fecha"),
	} {
		_, err := repo.AddTask(ctx, task)
		require.NoError(t, err)
	}

	// ACT
	count := repo.GetTaskCount()

	// ASSERT
	assert.Equal(t, TaskCount{Total: 5, Completed: 2, Pending: 3, Overdue: 1}, count)
	assert.Equal(t, []string{"vencida"}, titles(repo.GetOverdueTasks()))
	assert.Len(t, repo.GetTasksByCompletion(true), 2)
	assert.Len(t, repo.GetTasksByCompletion(false), 3)
}

func TestTaskRepository_DateBuckets(t *testing.T) {
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()

	for _, task := range []*taskDomain.Task{
		mustTask(t, "hoy", taskDomain.WithDueDate(fixedNow.Add(3*time.Hour))),
		mustTask(t, "en tres días", taskDomain.WithDueDate(fixedNow.Add(72*time.Hour))),
		mustTask(t, "en un mes", taskDomain.WithDueDate(fixedNow.AddDate(0, 1, 0))),
		mustTask(t, "urgente", taskDomain.WithPriority(taskDomain.PriorityUrgent)),
	} {
		_, err := repo.AddTask(ctx, task)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"hoy"}, titles(repo.GetTasksDueToday()))
	assert.ElementsMatch(t, []string{"hoy", "en tres días"}, titles(repo.GetTasksDueThisWeek()))
	assert.ElementsMatch(t, []string{"hoy", "urgente"}, titles(repo.GetProminentTasks()))
	assert.Equal(t, []string{"urgente"}, titles(repo.GetTasksByPriority(taskDomain.PriorityUrgent)))
}

func TestTaskRepository_QueryAndCategory(t *testing.T) {
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()

	for _, task := range []*taskDomain.Task{
		mustTask(t, "Buy groceries and milk", taskDomain.WithPriority(taskDomain.PriorityHigh)),
		mustTask(t, "Read book chapter", taskDomain.WithTags("learning")),
		mustTask(t, "Team meeting", taskDomain.WithTags("work")),
	} {
		_, err := repo.AddTask(ctx, task)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Buy groceries and milk"}, titles(repo.GetTasksByCategory(taskDomain.CategoryShopping)))
	assert.Equal(t, []string{"Read book chapter"}, titles(repo.GetTasksByCategory(taskDomain.CategoryLearning)))

	got := repo.Query(sharedDomain.And(
		taskDomain.CompletedCriteria{Completed: false},
		taskDomain.TagCriteria{Tag: "WORK"},
	))
	assert.Equal(t, []string{"Team meeting"}, titles(got))

	got = repo.Query(sharedDomain.And(
		taskDomain.TitleLikeCriteria{Title: "BOOK"},
		taskDomain.CategoryCriteria{Category: taskDomain.CategoryLearning},
	))
	assert.Equal(t, []string{"Read book chapter"}, titles(got))

	got = repo.Query(taskDomain.PriorityCriteria{Priority: taskDomain.PriorityHigh})
	assert.Equal(t, []string{"Buy groceries and milk"}, titles(got))

	assert.Len(t, repo.Query(nil), 3)
}

func TestTaskRepository_ReadsReturnCopies(t *testing.T) {
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	_, err := repo.AddTask(context.Background(), mustTask(t, "Original"))
	require.NoError(t, err)

	repo.Tasks()[0].Title = "Modificada fuera"

	assert.Equal(t, "Original", repo.Tasks()[0].Title)
}

func TestTaskRepository_SubscribeDeliversInOrder(t *testing.T) {
	// ARRANGE
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()
	updates, cancel := repo.Subscribe(0)
	defer cancel()

	// ACT
	_, err := repo.Refresh(ctx)
	require.NoError(t, err)
	task := mustTask(t, "Primera")
	_, err = repo.AddTask(ctx, task)
	require.NoError(t, err)
	_, err = repo.DeleteTask(ctx, uuid.New())
	require.Error(t, err)

	// ASSERT: refresh publica Loading y después el resultado
	var got []Update
	for i := 0; i < 4; i++ {
		select {
		case u := <-updates:
			got = append(got, u)
		case <-time.After(time.Second):
			t.Fatalf("timeout esperando la actualización %d", i)
		}
	}
	assert.True(t, got[0].Snapshot.Loading)
	assert.Equal(t, ChangeRefresh, got[0].Change.Op)
	assert.False(t, got[1].Snapshot.Loading)
	assert.Equal(t, ChangeAdd, got[2].Change.Op)
	assert.Equal(t, task.ID, got[2].Change.TaskID)
	assert.Len(t, got[2].Snapshot.Tasks, 1)
	assert.True(t, got[3].Change.Failed)
	assert.NotEmpty(t, got[3].Snapshot.Err)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].Seq+1, got[i].Seq)
	}
}

func TestTaskRepository_SubscribersGetTheirOwnChangeTask(t *testing.T) {
	// ARRANGE
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	first, cancelFirst := repo.Subscribe(1)
	defer cancelFirst()
	second, cancelSecond := repo.Subscribe(1)
	defer cancelSecond()

	// ACT
	_, err := repo.AddTask(context.Background(), mustTask(t, "Compartida"))
	require.NoError(t, err)

	receive := func(ch <-chan Update) Update {
		select {
		case u := <-ch:
			return u
		case <-time.After(time.Second):
			t.Fatal("timeout esperando la actualización")
			return Update{}
		}
	}
	a := receive(first)
	b := receive(second)
	require.NotNil(t, a.Change.Task)
	a.Change.Task.Title = "Modificada por un suscriptor"

	// ASSERT
	require.NotNil(t, b.Change.Task)
	assert.Equal(t, "Compartida", b.Change.Task.Title)
}

func TestTaskRepository_WritesTrimmedTitle(t *testing.T) {
	// ARRANGE
	store := memory.NewTaskStoreMemory()
	repo := newTestRepo(t, store, nil)
	ctx := context.Background()
	task := mustTask(t, "Informe")
	_, err := repo.AddTask(ctx, task)
	require.NoError(t, err)

	// ACT
	edited := task.Clone()
	edited.Title = "  Informe final  "
	_, err = repo.UpdateTask(ctx, edited)
	require.NoError(t, err)

	// ASSERT: el store guarda el título ya recortado
	records, err := store.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Informe final", records[0].Title)
	assert.Equal(t, "  Informe final  ", edited.Title)
}

func TestTaskRepository_ConcurrentWritesAreSerialized(t *testing.T) {
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddTask(ctx, mustTask(t, "concurrente"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, repo.Tasks(), 20)
	assert.Equal(t, 20, repo.GetTaskCount().Total)
}

func TestTaskRepository_CloseRejectsNewOperations(t *testing.T) {
	repo := NewTaskRepository(memory.NewTaskStoreMemory(), nil, Config{}, zap.NewNop())
	updates, _ := repo.Subscribe(1)

	repo.Close()
	repo.Close()

	_, err := repo.AddTask(context.Background(), mustTask(t, "tarde"))
	assert.ErrorIs(t, err, ErrRepositoryClosed)

	_, open := <-updates
	assert.False(t, open)
}

func TestTaskRepository_CachedSummary(t *testing.T) {
	// ARRANGE
	cache := sharedCache.NewInMemoryCache(time.Minute, time.Minute)
	defer cache.Stop()
	repo := newTestRepo(t, memory.NewTaskStoreMemory(), cache)
	ctx := context.Background()
	urgent := mustTask(t, "urgente", taskDomain.WithPriority(taskDomain.PriorityUrgent))
	_, err := repo.AddTask(ctx, urgent)
	require.NoError(t, err)

	// ACT: la escritura en caché es asíncrona
	require.Eventually(t, func() bool {
		var s TaskSummary
		hit, _ := cache.Get(ctx, taskDomain.TaskSummaryCacheKey, &s)
		return hit && s.Count.Total == 1
	}, time.Second, 10*time.Millisecond)

	summary := repo.CachedSummary(ctx)

	// ASSERT
	assert.Equal(t, TaskCount{Total: 1, Pending: 1}, summary.Count)
	assert.Equal(t, []string{urgent.ID.String()}, summary.ProminentIDs)
}
