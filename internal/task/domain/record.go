package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskRecord es la forma serializada de Task que guardan los stores.
// Las fechas van en RFC3339 (UTC) y las opcionales vacías significan "sin valor".
type TaskRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
	Tags        string `json:"tags"`
	IsCompleted bool   `json:"is_completed"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at"`
	Notes       string `json:"notes"`
}

func (r *TaskRecord) PartitionKey() string {
	return r.ID
}

// ToRecord codifica la tarea para el store.
func ToRecord(t *Task) TaskRecord {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	return TaskRecord{
		ID:          t.ID.String(),
		Title:       t.Title,
		DueDate:     formatTime(t.DueDate),
		Priority:    string(t.Priority.OrDefault()),
		Tags:        string(tagsJSON),
		IsCompleted: t.IsCompleted,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
		CompletedAt: formatTime(t.CompletedAt),
		Notes:       t.Notes,
	}
}

// FromRecord decodifica un registro. Cualquier fallo se devuelve envuelto en
// ErrMalformedRecord para que el repositorio pueda saltarse sólo ese registro.
func FromRecord(r TaskRecord) (*Task, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q: %v", ErrMalformedRecord, r.ID, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: task %s: invalid created_at: %v", ErrMalformedRecord, id, err)
	}

	dueDate, err := parseOptionalTime(r.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: task %s: invalid due_date: %v", ErrMalformedRecord, id, err)
	}

	completedAt, err := parseOptionalTime(r.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: task %s: invalid completed_at: %v", ErrMalformedRecord, id, err)
	}

	// Etiqueta desconocida o vacía: medium, igual que el valor por defecto.
	priority, err := ParsePriority(r.Priority)
	if err != nil {
		priority = PriorityMedium
	}

	tags, err := decodeTags(r.Tags)
	if err != nil {
		return nil, fmt.Errorf("%w: task %s: invalid tags: %v", ErrMalformedRecord, id, err)
	}

	t := &Task{
		ID:          id,
		Title:       strings.TrimSpace(r.Title),
		DueDate:     dueDate,
		Priority:    priority,
		Tags:        []string{},
		IsCompleted: r.IsCompleted,
		CreatedAt:   createdAt.UTC(),
		CompletedAt: completedAt,
		Notes:       r.Notes,
	}
	for _, tag := range tags {
		t.AddTag(tag)
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return t, nil
}

// decodeTags acepta el formato actual (array JSON) y el heredado (separado por comas).
func decodeTags(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(s), &tags); err != nil {
			return nil, err
		}
		return tags, nil
	}
	return strings.Split(s, ","), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
