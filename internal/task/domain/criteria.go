package domain

import (
	"time"

	// Importamos el "sistema" de Criterios genérico y le damos un alias
	shared "github.com/davicafu/neuroassist/internal/shared/domain"
)

// Nombres de campo que entienden los filtros de la vista.
const (
	FieldCompleted = "is_completed"
	FieldPriority  = "priority"
	FieldTitle     = "title"
	FieldTag       = "tags"
	FieldCategory  = "category"
	FieldDueDate   = "due_date"
	FieldCreatedAt = "created_at"
)

// --- Criterios Específicos para el Dominio Task ---

// CompletedCriteria filtra por estado de completado.
type CompletedCriteria struct {
	Completed bool
}

// ToConditions implementa la interfaz shared.Criteria.
func (c CompletedCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{
		{Field: FieldCompleted, Op: shared.OpEq, Value: c.Completed},
	}
}

// -----------------------------------------------------------

// PriorityCriteria filtra por una prioridad exacta.
type PriorityCriteria struct {
	Priority Priority
}

// ToConditions implementa la interfaz shared.Criteria.
func (c PriorityCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{
		{Field: FieldPriority, Op: shared.OpEq, Value: c.Priority},
	}
}

// -----------------------------------------------------------

// TitleLikeCriteria busca tareas cuyo título contenga un texto.
type TitleLikeCriteria struct {
	Title string
}

// ToConditions implementa la interfaz shared.Criteria.
func (c TitleLikeCriteria) ToConditions() []shared.Criterion {
	if c.Title == "" {
		return nil
	}
	return []shared.Criterion{
		// ILIKE: insensible a mayúsculas/minúsculas
		{Field: FieldTitle, Op: shared.OpILike, Value: "%" + c.Title + "%"},
	}
}

// -----------------------------------------------------------

// TagCriteria busca tareas con un tag concreto.
type TagCriteria struct {
	Tag string
}

func (c TagCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{
		{Field: FieldTag, Op: shared.OpEq, Value: c.Tag},
	}
}

// -----------------------------------------------------------

// CategoryCriteria busca tareas cuya categoría detectada coincida.
type CategoryCriteria struct {
	Category Category
}

func (c CategoryCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{
		{Field: FieldCategory, Op: shared.OpEq, Value: c.Category},
	}
}

// -----------------------------------------------------------

// DueDateRangeCriteria busca tareas con fecha límite en un rango.
// Los extremos son opcionales; las tareas sin fecha nunca coinciden.
type DueDateRangeCriteria struct {
	Start *time.Time
	End   *time.Time
}

func (c DueDateRangeCriteria) ToConditions() []shared.Criterion {
	var conds []shared.Criterion
	if c.Start != nil {
		conds = append(conds, shared.Criterion{Field: FieldDueDate, Op: shared.OpGte, Value: *c.Start})
	}
	if c.End != nil {
		conds = append(conds, shared.Criterion{Field: FieldDueDate, Op: shared.OpLte, Value: *c.End})
	}
	return conds
}

// -----------------------------------------------------------

// CreatedAtRangeCriteria busca tareas creadas en un rango de fechas.
// Usamos punteros para que los filtros de fecha de inicio y fin sean opcionales.
type CreatedAtRangeCriteria struct {
	Start *time.Time
	End   *time.Time
}

// ToConditions implementa la interfaz shared.Criteria.
func (c CreatedAtRangeCriteria) ToConditions() []shared.Criterion {
	var conds []shared.Criterion
	if c.Start != nil {
		conds = append(conds, shared.Criterion{Field: FieldCreatedAt, Op: shared.OpGte, Value: *c.Start})
	}
	if c.End != nil {
		conds = append(conds, shared.Criterion{Field: FieldCreatedAt, Op: shared.OpLte, Value: *c.End})
	}
	return conds
}
