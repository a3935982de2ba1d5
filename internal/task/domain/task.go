package domain

import (
	"fmt"
	"strings"
	"time"

	sharedBus "github.com/davicafu/neuroassist/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

// DisplayStatus es el estado derivado que se muestra en la UI.
type DisplayStatus string

const (
	StatusComplete    DisplayStatus = "complete"
	StatusOverdue     DisplayStatus = "overdue"
	StatusDueToday    DisplayStatus = "due_today"
	StatusDueThisWeek DisplayStatus = "due_this_week"
	StatusNone        DisplayStatus = ""
)

// Task es la única entidad persistida: un elemento de la lista de tareas.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// TaskOption configura campos opcionales en NewTask.
type TaskOption func(*Task)

func WithDueDate(due time.Time) TaskOption {
	return func(t *Task) {
		d := due.UTC()
		t.DueDate = &d
	}
}

func WithPriority(p Priority) TaskOption {
	return func(t *Task) { t.Priority = p.OrDefault() }
}

// WithTags añade los tags uno a uno, con la misma normalización que AddTag.
func WithTags(tags ...string) TaskOption {
	return func(t *Task) {
		for _, tag := range tags {
			t.AddTag(tag)
		}
	}
}

func WithNotes(notes string) TaskOption {
	return func(t *Task) { t.Notes = notes }
}

// WithCreatedAt fija la fecha de creación (importaciones y tests).
func WithCreatedAt(at time.Time) TaskOption {
	return func(t *Task) { t.CreatedAt = at.UTC() }
}

// NewTask crea una tarea pendiente. El título se recorta y no puede quedar vacío.
func NewTask(title string, opts ...TaskOption) (*Task, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: title is empty", ErrInvalidTask)
	}

	t := &Task{
		ID:        uuid.New(),
		Title:     trimmed,
		Priority:  PriorityMedium,
		Tags:      []string{},
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Task) PartitionKey() string {
	return t.ID.String()
}

// Validate comprueba los invariantes antes de llegar al store.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidTask)
	}
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidTask)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidTask)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing created_at", ErrInvalidTask)
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, t.Priority)
	}
	if t.IsCompleted != (t.CompletedAt != nil) {
		return fmt.Errorf("%w: completed_at must be set iff the task is completed", ErrInvalidTask)
	}
	seen := make(map[string]struct{}, len(t.Tags))
	for _, tag := range t.Tags {
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate tag %q", ErrInvalidTask, tag)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Clone devuelve una copia profunda; los snapshots nunca comparten punteros.
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	c.Tags = append([]string{}, t.Tags...)
	return &c
}

// --- Métodos de dominio ---

func (t *Task) Complete() {
	now := time.Now().UTC()
	t.IsCompleted = true
	t.CompletedAt = &now
}

func (t *Task) Uncomplete() {
	t.IsCompleted = false
	t.CompletedAt = nil
}

func (t *Task) ToggleCompletion() {
	if t.IsCompleted {
		t.Uncomplete()
	} else {
		t.Complete()
	}
}

// AddTag añade el tag recortado si no está vacío ni repetido (sin distinguir mayúsculas).
func (t *Task) AddTag(tag string) {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" || t.HasTag(trimmed) {
		return
	}
	t.Tags = append(t.Tags, trimmed)
}

// RemoveTag elimina todas las coincidencias del tag.
func (t *Task) RemoveTag(tag string) {
	trimmed := strings.TrimSpace(tag)
	kept := t.Tags[:0]
	for _, existing := range t.Tags {
		if !strings.EqualFold(existing, trimmed) {
			kept = append(kept, existing)
		}
	}
	t.Tags = kept
}

func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

// ApplySuggestedPriority ajusta la prioridad según palabras clave del título.
// Si no hay pistas, la prioridad actual se mantiene.
func (t *Task) ApplySuggestedPriority() {
	if p, ok := SuggestPriority(t.Title); ok {
		t.Priority = p
	}
}

// --- Campos derivados (nunca se persisten) ---

func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsCompleted {
		return false
	}
	return t.DueDate.Before(now)
}

// IsDueToday compara el día de calendario en la zona horaria de now.
func (t *Task) IsDueToday(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	due := t.DueDate.In(now.Location())
	y1, m1, d1 := due.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (t *Task) IsDueThisWeek(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	weekFromNow := now.AddDate(0, 0, 7)
	return !t.DueDate.Before(now) && !t.DueDate.After(weekFromNow)
}

func (t *Task) DisplayStatus(now time.Time) DisplayStatus {
	switch {
	case t.IsCompleted:
		return StatusComplete
	case t.IsOverdue(now):
		return StatusOverdue
	case t.IsDueToday(now):
		return StatusDueToday
	case t.IsDueThisWeek(now):
		return StatusDueThisWeek
	default:
		return StatusNone
	}
}

// IsProminent marca las tareas que la UI debe destacar.
func (t *Task) IsProminent(now time.Time) bool {
	return t.Priority == PriorityUrgent || t.Priority == PriorityHigh || t.IsDueToday(now) || t.IsOverdue(now)
}

func (t *Task) DetectedCategories() CategorySet {
	return DetectCategories(t.Title, t.Tags)
}

// Verificación estática para asegurar que Task implementa la interfaz
var _ sharedBus.Keyer = (*Task)(nil)
