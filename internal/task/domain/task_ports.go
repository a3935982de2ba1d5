package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidTask     = errors.New("invalid task")
	ErrPersistence     = errors.New("persistence error")
	ErrMalformedRecord = errors.New("malformed task record")
)

// --- Store de Tasks ---

// TaskStore es el almacenamiento durable detrás del repositorio.
// Una escritura que devuelve nil ya es durable y FetchAll refleja todas
// las escrituras completadas.
type TaskStore interface {
	Insert(ctx context.Context, r TaskRecord) error
	UpdateByID(ctx context.Context, id uuid.UUID, r TaskRecord) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	FetchAll(ctx context.Context) ([]TaskRecord, error)
}

// TaskAnalyticsRepository recibe un registro por cada cambio publicado.
type TaskAnalyticsRepository interface {
	LogChanges(ctx context.Context, changes []ChangeLog) error
	GetAverageCompletionTime(ctx context.Context, start, end time.Time) (time.Duration, error)
}

// ChangeLog es una fila de analítica: la tarea tal y como quedó tras el cambio.
type ChangeLog struct {
	EventType string
	Record    TaskRecord
	EventTime time.Time
}

// ---------- Helpers comunes (cache keys, etc.) ----------

const TaskSummaryCacheKey = "tasks:summary"
