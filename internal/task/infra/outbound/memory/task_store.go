package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
	"github.com/google/uuid"
)

// ErrInjected es el error que devuelven las escrituras cuando se fuerza un fallo.
var ErrInjected = errors.New("injected store failure")

// TaskStoreMemory guarda los registros en un mapa, conservando el orden de inserción.
// Sirve para tests y ejecuciones efímeras.
type TaskStoreMemory struct {
	mu         sync.Mutex
	records    map[string]taskDomain.TaskRecord
	order      []string
	failWrites bool
	failFetch  bool
}

func NewTaskStoreMemory() *TaskStoreMemory {
	return &TaskStoreMemory{records: make(map[string]taskDomain.TaskRecord)}
}

// FailWrites hace que Insert, UpdateByID y DeleteByID devuelvan ErrInjected.
func (s *TaskStoreMemory) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

// FailFetch hace que FetchAll devuelva ErrInjected.
func (s *TaskStoreMemory) FailFetch(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFetch = fail
}

// Seed guarda registros tal cual, sin validarlos (para simular datos corruptos).
func (s *TaskStoreMemory) Seed(records ...taskDomain.TaskRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.put(r)
	}
}

func (s *TaskStoreMemory) Insert(ctx context.Context, r taskDomain.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return ErrInjected
	}
	if _, exists := s.records[r.ID]; exists {
		return fmt.Errorf("task %s already exists", r.ID)
	}
	s.put(r)
	return nil
}

func (s *TaskStoreMemory) UpdateByID(ctx context.Context, id uuid.UUID, r taskDomain.TaskRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return false, ErrInjected
	}
	key := id.String()
	if _, exists := s.records[key]; !exists {
		return false, nil
	}
	r.ID = key
	s.records[key] = r
	return true, nil
}

func (s *TaskStoreMemory) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return false, ErrInjected
	}
	key := id.String()
	if _, exists := s.records[key]; !exists {
		return false, nil
	}
	delete(s.records, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *TaskStoreMemory) FetchAll(ctx context.Context) ([]taskDomain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failFetch {
		return nil, ErrInjected
	}
	out := make([]taskDomain.TaskRecord, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.records[k])
	}
	return out, nil
}

func (s *TaskStoreMemory) put(r taskDomain.TaskRecord) {
	if _, exists := s.records[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.records[r.ID] = r
}

var _ taskDomain.TaskStore = (*TaskStoreMemory)(nil)
