package domain

import (
	"fmt"
	"strings"
)

// Priority es la prioridad de una tarea. Se persiste siempre por su etiqueta,
// nunca por un código derivado.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities devuelve todas las prioridades de menor a mayor.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// Rank devuelve el orden de la prioridad (urgent es el más alto).
// El valor cero se trata como medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// Valid indica si la prioridad es una de las cuatro conocidas.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// OrDefault devuelve medium cuando la prioridad está vacía.
func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

// Label devuelve la etiqueta legible ("Urgent", "High", ...).
func (p Priority) Label() string {
	s := string(p.OrDefault())
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParsePriority acepta la etiqueta sin distinguir mayúsculas ("High", "high").
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// --- Sugerencia de prioridad por palabras clave ---

var priorityHints = []struct {
	priority Priority
	keywords []string
}{
	{PriorityUrgent, []string{"urgent", "asap", "emergency"}},
	{PriorityHigh, []string{"important", "deadline", "must"}},
	{PriorityLow, []string{"maybe", "sometime", "eventually"}},
}

// SuggestPriority busca pistas en el título. Devuelve false si no hay ninguna.
func SuggestPriority(title string) (Priority, bool) {
	lower := strings.ToLower(title)
	for _, hint := range priorityHints {
		for _, kw := range hint.keywords {
			if strings.Contains(lower, kw) {
				return hint.priority, true
			}
		}
	}
	return "", false
}
