package application

import (
	"fmt"
	"sort"
	"strings"
	"time"

	sharedDomain "github.com/davicafu/neuroassist/internal/shared/domain"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
)

// TaskCount resume la vista en una sola pasada.
type TaskCount struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
}

// TaskSummary es lo que se guarda en caché para consumidores ligeros (widget, reloj).
type TaskSummary struct {
	Count        TaskCount `json:"count"`
	ProminentIDs []string  `json:"prominent_ids"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// SortTasks ordena in situ: pendientes primero, prioridad descendente, fecha límite
// ascendente (sin fecha al final), creación descendente y el id como desempate final.
func SortTasks(tasks []*taskDomain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return lessTask(tasks[i], tasks[j])
	})
}

func lessTask(a, b *taskDomain.Task) bool {
	if a.IsCompleted != b.IsCompleted {
		return !a.IsCompleted
	}
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra > rb
	}
	switch {
	case a.DueDate != nil && b.DueDate != nil:
		if !a.DueDate.Equal(*b.DueDate) {
			return a.DueDate.Before(*b.DueDate)
		}
	case a.DueDate != nil:
		return true
	case b.DueDate != nil:
		return false
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// filterTasks devuelve copias de las tareas que cumplen el predicado, conservando el orden.
func filterTasks(tasks []*taskDomain.Task, keep func(*taskDomain.Task) bool) []*taskDomain.Task {
	out := make([]*taskDomain.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func cloneTasks(tasks []*taskDomain.Task) []*taskDomain.Task {
	return filterTasks(tasks, func(*taskDomain.Task) bool { return true })
}

// countTasks calcula los contadores de la vista en una sola pasada.
func countTasks(tasks []*taskDomain.Task, now time.Time) TaskCount {
	var c TaskCount
	for _, t := range tasks {
		c.Total++
		if t.IsCompleted {
			c.Completed++
		} else {
			c.Pending++
		}
		if t.IsOverdue(now) {
			c.Overdue++
		}
	}
	return c
}

func buildSummary(tasks []*taskDomain.Task, now time.Time) TaskSummary {
	s := TaskSummary{Count: countTasks(tasks, now), ProminentIDs: []string{}, GeneratedAt: now.UTC()}
	for _, t := range tasks {
		if !t.IsCompleted && t.IsProminent(now) {
			s.ProminentIDs = append(s.ProminentIDs, t.ID.String())
		}
	}
	return s
}

// matchesQuery: búsqueda por subcadena del título sin distinguir mayúsculas.
func matchesQuery(t *taskDomain.Task, query string) bool {
	return strings.Contains(strings.ToLower(t.Title), strings.ToLower(query))
}

// matchTaskCriteria evalúa las condiciones neutrales sobre una tarea de la vista.
// Todas deben cumplirse (AND); un campo desconocido no coincide nunca.
func matchTaskCriteria(t *taskDomain.Task, conds []sharedDomain.Criterion) bool {
	for _, cond := range conds {
		field := strings.ToLower(cond.Field)
		op := sharedDomain.Operator(strings.ToUpper(string(cond.Op)))
		val := cond.Value

		var match bool
		switch field {
		case taskDomain.FieldCompleted:
			completed, ok := val.(bool)
			match = ok && op == sharedDomain.OpEq && t.IsCompleted == completed
		case taskDomain.FieldPriority:
			match = op == sharedDomain.OpEq && string(t.Priority.OrDefault()) == strings.ToLower(fmt.Sprintf("%v", val))
		case taskDomain.FieldTitle:
			title, ok := val.(string)
			if ok && (op == sharedDomain.OpILike || op == sharedDomain.OpLike) {
				pattern := strings.Trim(title, "%")
				match = strings.Contains(strings.ToLower(t.Title), strings.ToLower(pattern))
			} else if ok && op == sharedDomain.OpEq {
				match = t.Title == title
			}
		case taskDomain.FieldTag:
			match = op == sharedDomain.OpEq && t.HasTag(fmt.Sprintf("%v", val))
		case taskDomain.FieldCategory:
			match = op == sharedDomain.OpEq && t.DetectedCategories().Has(taskDomain.Category(fmt.Sprintf("%v", val)))
		case taskDomain.FieldDueDate:
			valTime, ok := val.(time.Time)
			match = ok && t.DueDate != nil && compareTime(*t.DueDate, op, valTime)
		case taskDomain.FieldCreatedAt:
			valTime, ok := val.(time.Time)
			match = ok && compareTime(t.CreatedAt, op, valTime)
		}

		if !match {
			return false // Si una condición no coincide, la tarea no pasa el filtro
		}
	}
	return true
}

func compareTime(v time.Time, op sharedDomain.Operator, ref time.Time) bool {
	switch op {
	case sharedDomain.OpEq:
		return v.Equal(ref)
	case sharedDomain.OpGt:
		return v.After(ref)
	case sharedDomain.OpGte:
		return !v.Before(ref)
	case sharedDomain.OpLt:
		return v.Before(ref)
	case sharedDomain.OpLte:
		return !v.After(ref)
	}
	return false
}
