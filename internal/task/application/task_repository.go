package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	// --- Importaciones del dominio y compartidas ---
	sharedDomain "github.com/davicafu/neuroassist/internal/shared/domain"
	sharedCache "github.com/davicafu/neuroassist/internal/shared/infra/platform/cache"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrRepositoryClosed = errors.New("task repository closed")

// ChangeOp identifica la operación que produjo una actualización.
type ChangeOp string

const (
	ChangeRefresh ChangeOp = "refresh"
	ChangeAdd     ChangeOp = "add"
	ChangeUpdate  ChangeOp = "update"
	ChangeDelete  ChangeOp = "delete"
)

// Change describe qué pasó. Task es la tarea tal y como se envió al store
// (nil en refresh y delete). Failed indica que el store no aplicó el cambio.
type Change struct {
	Op     ChangeOp
	TaskID uuid.UUID
	Task   *taskDomain.Task
	Failed bool
}

// Snapshot es el estado publicado: la vista ordenada más el canal de error consultivo.
type Snapshot struct {
	Tasks   []*taskDomain.Task
	Loading bool
	Err     string
	Skipped int
}

// clone da a cada suscriptor su propia copia de la tarea.
func (c Change) clone() Change {
	if c.Task != nil {
		c.Task = c.Task.Clone()
	}
	return c
}

func (s Snapshot) clone() Snapshot {
	s.Tasks = cloneTasks(s.Tasks)
	return s
}

// Update es lo que reciben los suscriptores, en el mismo orden en que se publicó.
type Update struct {
	Seq      uint64
	Change   Change
	Snapshot Snapshot
}

// Config agrupa los ajustes del repositorio.
type Config struct {
	StoreTimeout time.Duration    // tope local para cada llamada al store
	SummaryTTL   time.Duration    // TTL del resumen en caché
	Now          func() time.Time // reloj para los campos derivados; time.Now si es nil
}

type operation struct {
	run    func() (Snapshot, error)
	result chan opResult
}

type opResult struct {
	snap Snapshot
	err  error
}

// TaskRepository es el único dueño del store. Las mutaciones se ejecutan en un
// solo worker, en orden de llegada, y la vista sólo la escribe ese worker.
type TaskRepository struct {
	store taskDomain.TaskStore
	cache sharedCache.Cache
	log   *zap.Logger
	cfg   Config

	ops       chan operation
	closing   chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	state Snapshot
	seq   uint64

	subMu   sync.Mutex
	subs    map[int]*subscriber
	nextSub int
}

// NewTaskRepository arranca el worker. El estado inicial es Loading hasta el primer Refresh.
func NewTaskRepository(store taskDomain.TaskStore, cache sharedCache.Cache, cfg Config, log *zap.Logger) *TaskRepository {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	r := &TaskRepository{
		store:   store,
		cache:   cache,
		log:     log,
		cfg:     cfg,
		ops:     make(chan operation),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
		state:   Snapshot{Tasks: []*taskDomain.Task{}, Loading: true},
		subs:    make(map[int]*subscriber),
	}
	go r.worker()
	return r
}

func (r *TaskRepository) worker() {
	defer close(r.stopped)
	for {
		select {
		case op := <-r.ops:
			snap, err := op.run()
			op.result <- opResult{snap: snap, err: err}
		case <-r.closing:
			return
		}
	}
}

// submit encola la operación y espera su resultado. ctx sólo acota la espera:
// una vez aceptada, la escritura llega hasta el final.
func (r *TaskRepository) submit(ctx context.Context, run func() (Snapshot, error)) (Snapshot, error) {
	op := operation{run: run, result: make(chan opResult, 1)}

	select {
	case r.ops <- op:
	case <-r.closing:
		return r.State(), ErrRepositoryClosed
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}

	select {
	case res := <-op.result:
		return res.snap, res.err
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}
}

// Close deja de aceptar operaciones, espera a la que esté en curso y cierra
// los canales de los suscriptores tras entregarles lo pendiente.
func (r *TaskRepository) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)
		<-r.stopped

		r.subMu.Lock()
		for id, s := range r.subs {
			s.drain()
			delete(r.subs, id)
		}
		r.subMu.Unlock()
		r.log.Info("🛑 Task repository cerrado")
	})
}

// ------------------ Mutaciones ------------------

// AddTask valida y persiste la tarea. Un error de validación nunca llega al store.
func (r *TaskRepository) AddTask(ctx context.Context, t *taskDomain.Task) (Snapshot, error) {
	if err := t.Validate(); err != nil {
		return r.State(), err
	}
	task := t.Clone()
	task.Title = strings.TrimSpace(task.Title)
	change := Change{Op: ChangeAdd, TaskID: task.ID, Task: task}

	return r.submit(ctx, func() (Snapshot, error) {
		err := r.withStore(func(ctx context.Context) error {
			return r.store.Insert(ctx, taskDomain.ToRecord(task))
		})
		if err != nil {
			r.log.Error("Failed to add task", zap.String("task_id", task.ID.String()), zap.Error(err))
			return r.fail(change, fmt.Errorf("failed to add task: %w: %w", taskDomain.ErrPersistence, err))
		}
		return r.reload(change)
	})
}

// UpdateTask reemplaza la tarea con el mismo id. Si no existe devuelve
// ErrTaskNotFound y la vista no cambia.
func (r *TaskRepository) UpdateTask(ctx context.Context, t *taskDomain.Task) (Snapshot, error) {
	if err := t.Validate(); err != nil {
		return r.State(), err
	}
	task := t.Clone()
	task.Title = strings.TrimSpace(task.Title)
	change := Change{Op: ChangeUpdate, TaskID: task.ID, Task: task}

	return r.submit(ctx, func() (Snapshot, error) {
		var found bool
		err := r.withStore(func(ctx context.Context) error {
			var errStore error
			found, errStore = r.store.UpdateByID(ctx, task.ID, taskDomain.ToRecord(task))
			return errStore
		})
		if err != nil {
			r.log.Error("Failed to update task", zap.String("task_id", task.ID.String()), zap.Error(err))
			return r.fail(change, fmt.Errorf("failed to update task: %w: %w", taskDomain.ErrPersistence, err))
		}
		if !found {
			r.log.Warn("Task not found", zap.String("task_id", task.ID.String()))
			return r.fail(change, fmt.Errorf("failed to update task: %w: %s", taskDomain.ErrTaskNotFound, task.ID))
		}
		return r.reload(change)
	})
}

// DeleteTask elimina por id. Si no existe devuelve ErrTaskNotFound y la vista no cambia.
func (r *TaskRepository) DeleteTask(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	change := Change{Op: ChangeDelete, TaskID: id}

	return r.submit(ctx, func() (Snapshot, error) {
		var found bool
		err := r.withStore(func(ctx context.Context) error {
			var errStore error
			found, errStore = r.store.DeleteByID(ctx, id)
			return errStore
		})
		if err != nil {
			r.log.Error("Failed to delete task", zap.String("task_id", id.String()), zap.Error(err))
			return r.fail(change, fmt.Errorf("failed to delete task: %w: %w", taskDomain.ErrPersistence, err))
		}
		if !found {
			r.log.Warn("Task not found", zap.String("task_id", id.String()))
			return r.fail(change, fmt.Errorf("failed to delete task: %w: %s", taskDomain.ErrTaskNotFound, id))
		}
		return r.reload(change)
	})
}

// ToggleTaskCompletion invierte el estado de completado y lo guarda como un update.
// La tarea recibida no se modifica.
func (r *TaskRepository) ToggleTaskCompletion(ctx context.Context, t *taskDomain.Task) (Snapshot, error) {
	if t == nil {
		return r.State(), fmt.Errorf("%w: nil task", taskDomain.ErrInvalidTask)
	}
	toggled := t.Clone()
	toggled.ToggleCompletion()
	return r.UpdateTask(ctx, toggled)
}

// FetchTasks recarga la vista completa desde el store. Publica primero un
// snapshot en Loading y después el resultado.
func (r *TaskRepository) FetchTasks(ctx context.Context) (Snapshot, error) {
	change := Change{Op: ChangeRefresh}

	return r.submit(ctx, func() (Snapshot, error) {
		r.mu.Lock()
		r.state.Loading = true
		r.mu.Unlock()
		r.publish(change)

		return r.reload(change)
	})
}

// Refresh es un alias de FetchTasks.
func (r *TaskRepository) Refresh(ctx context.Context) (Snapshot, error) {
	return r.FetchTasks(ctx)
}

// ------------------ Worker (sólo se llaman desde el worker) ------------------

func (r *TaskRepository) withStore(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

// reload lee todo el store, descarta los registros corruptos y reemplaza la vista.
func (r *TaskRepository) reload(change Change) (Snapshot, error) {
	var records []taskDomain.TaskRecord
	err := r.withStore(func(ctx context.Context) error {
		var errStore error
		records, errStore = r.store.FetchAll(ctx)
		return errStore
	})
	if err != nil {
		r.log.Error("Failed to fetch tasks", zap.Error(err))
		return r.fail(change, fmt.Errorf("failed to fetch tasks: %w: %w", taskDomain.ErrPersistence, err))
	}

	tasks := make([]*taskDomain.Task, 0, len(records))
	skipped := 0
	for _, rec := range records {
		t, err := taskDomain.FromRecord(rec)
		if err != nil {
			skipped++
			r.log.Warn("Skipping malformed task record", zap.String("record_id", rec.ID), zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	SortTasks(tasks)

	advisory := ""
	if skipped > 0 {
		advisory = fmt.Sprintf("skipped %d malformed task record(s)", skipped)
	}

	r.mu.Lock()
	r.state = Snapshot{Tasks: tasks, Loading: false, Err: advisory, Skipped: skipped}
	r.mu.Unlock()

	snap := r.publish(change)
	r.refreshSummary(tasks)
	return snap, nil
}

// fail deja la vista como estaba y expone el error en el canal consultivo.
func (r *TaskRepository) fail(change Change, err error) (Snapshot, error) {
	change.Failed = true

	r.mu.Lock()
	r.state.Loading = false
	r.state.Err = err.Error()
	r.mu.Unlock()

	return r.publish(change), err
}

// publish numera el estado actual y lo reparte a los suscriptores.
func (r *TaskRepository) publish(change Change) Snapshot {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	snap := r.state.clone()
	r.mu.Unlock()

	r.subMu.Lock()
	for _, s := range r.subs {
		s.enqueue(Update{Seq: seq, Change: change.clone(), Snapshot: snap.clone()})
	}
	r.subMu.Unlock()

	return snap
}

func (r *TaskRepository) refreshSummary(tasks []*taskDomain.Task) {
	sharedCache.AsyncCacheSet(r.cache, taskDomain.TaskSummaryCacheKey, buildSummary(tasks, r.cfg.Now()), r.cfg.SummaryTTL, r.log)
}

// ------------------ Suscripción ------------------

// Subscribe devuelve un canal con cada snapshot publicado a partir de ahora, en orden.
// cancel cierra el canal; se puede llamar más de una vez.
func (r *TaskRepository) Subscribe(buffer int) (<-chan Update, func()) {
	s := newSubscriber(buffer)

	r.subMu.Lock()
	select {
	case <-r.closing:
		r.subMu.Unlock()
		s.drain()
		return s.out, func() {}
	default:
	}
	id := r.nextSub
	r.nextSub++
	r.subs[id] = s
	r.subMu.Unlock()

	cancel := func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
		s.stop()
	}
	return s.out, cancel
}

// ------------------ Lecturas (sobre el snapshot actual) ------------------

// State devuelve una copia del estado publicado.
func (r *TaskRepository) State() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

// Tasks devuelve la vista ordenada.
func (r *TaskRepository) Tasks() []*taskDomain.Task {
	return r.filter(func(*taskDomain.Task) bool { return true })
}

func (r *TaskRepository) filter(keep func(*taskDomain.Task) bool) []*taskDomain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filterTasks(r.state.Tasks, keep)
}

func (r *TaskRepository) GetTaskByID(id uuid.UUID) (*taskDomain.Task, error) {
	found := r.filter(func(t *taskDomain.Task) bool { return t.ID == id })
	if len(found) == 0 {
		return nil, taskDomain.ErrTaskNotFound
	}
	return found[0], nil
}

func (r *TaskRepository) GetTasksByCompletion(completed bool) []*taskDomain.Task {
	return r.filter(func(t *taskDomain.Task) bool { return t.IsCompleted == completed })
}

func (r *TaskRepository) GetTasksByPriority(p taskDomain.Priority) []*taskDomain.Task {
	return r.filter(func(t *taskDomain.Task) bool { return t.Priority.OrDefault() == p.OrDefault() })
}

func (r *TaskRepository) GetOverdueTasks() []*taskDomain.Task {
	now := r.cfg.Now()
	return r.filter(func(t *taskDomain.Task) bool { return t.IsOverdue(now) })
}

func (r *TaskRepository) GetTasksDueToday() []*taskDomain.Task {
	now := r.cfg.Now()
	return r.filter(func(t *taskDomain.Task) bool { return t.IsDueToday(now) })
}

func (r *TaskRepository) GetTasksDueThisWeek() []*taskDomain.Task {
	now := r.cfg.Now()
	return r.filter(func(t *taskDomain.Task) bool { return t.IsDueThisWeek(now) })
}

// GetProminentTasks devuelve las pendientes que la UI debe destacar.
func (r *TaskRepository) GetProminentTasks() []*taskDomain.Task {
	now := r.cfg.Now()
	return r.filter(func(t *taskDomain.Task) bool { return !t.IsCompleted && t.IsProminent(now) })
}

func (r *TaskRepository) GetTasksByCategory(c taskDomain.Category) []*taskDomain.Task {
	return r.filter(func(t *taskDomain.Task) bool { return t.DetectedCategories().Has(c) })
}

// SearchTasks filtra por subcadena del título. Una consulta vacía devuelve toda la vista.
func (r *TaskRepository) SearchTasks(query string) []*taskDomain.Task {
	if query == "" {
		return r.Tasks()
	}
	return r.filter(func(t *taskDomain.Task) bool { return matchesQuery(t, query) })
}

// Query aplica criterios genéricos sobre la vista. nil devuelve toda la vista.
func (r *TaskRepository) Query(criteria sharedDomain.Criteria) []*taskDomain.Task {
	if criteria == nil {
		return r.Tasks()
	}
	conds := criteria.ToConditions()
	return r.filter(func(t *taskDomain.Task) bool { return matchTaskCriteria(t, conds) })
}

func (r *TaskRepository) GetTaskCount() TaskCount {
	now := r.cfg.Now()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return countTasks(r.state.Tasks, now)
}

// Summary calcula el resumen actual (el mismo que se guarda en caché).
func (r *TaskRepository) Summary() TaskSummary {
	now := r.cfg.Now()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return buildSummary(r.state.Tasks, now)
}
