package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// --- Importaciones del dominio y compartidas ---
	sharedDomain "github.com/davicafu/neuroassist/internal/shared/domain"
	sharedPostgres "github.com/davicafu/neuroassist/internal/shared/infra/platform/db/postgres"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL
)

// TaskStorePostgres implementa la interfaz TaskStore para PostgreSQL.
type TaskStorePostgres struct {
	db *sql.DB
}

// NewTaskStorePostgres es el constructor del store.
func NewTaskStorePostgres(db *sql.DB) *TaskStorePostgres {
	return &TaskStorePostgres{db: db}
}

// ------------------ Inicialización del Esquema ------------------

// InitSchema crea las tablas 'tasks' y 'outbox' si no existen.
// Las fechas se guardan ya codificadas (RFC3339, vacío = sin valor), igual que en SQLite.
func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
    CREATE TABLE IF NOT EXISTS tasks (
        id UUID PRIMARY KEY,
        title TEXT NOT NULL,
        due_date TEXT NOT NULL DEFAULT '',
        priority TEXT NOT NULL DEFAULT 'medium',
        tags TEXT NOT NULL DEFAULT '[]',
        is_completed BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TEXT NOT NULL,
        completed_at TEXT NOT NULL DEFAULT '',
        notes TEXT NOT NULL DEFAULT ''
    )`)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return sharedPostgres.InitOutboxSchema(ctx, db)
}

// ------------------ CRUD + Outbox ------------------

// execWithOutbox ejecuta el cambio y, si afectó a alguna fila, inserta su evento en la misma transacción.
func (s *TaskStorePostgres) execWithOutbox(ctx context.Context, eventType string, r taskDomain.TaskRecord,
	query string, args ...interface{}) (bool, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback() // Se ignora si el Commit() es exitoso

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	evt := sharedDomain.NewOutboxEvent(taskDomain.TaskAggregate, r.ID, eventType, r)
	if err := sharedPostgres.InsertOutboxTx(ctx, tx, evt); err != nil {
		return false, fmt.Errorf("failed to insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// Insert inserta una tarea y su evento task.created.
func (s *TaskStorePostgres) Insert(ctx context.Context, r taskDomain.TaskRecord) error {
	_, err := s.execWithOutbox(ctx, taskDomain.TaskCreated, r,
		`INSERT INTO tasks (id, title, due_date, priority, tags, is_completed, created_at, completed_at, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.Title, r.DueDate, r.Priority, r.Tags, r.IsCompleted, r.CreatedAt, r.CompletedAt, r.Notes,
	)
	return err
}

// UpdateByID reemplaza la fila con ese id. found=false si no existe.
func (s *TaskStorePostgres) UpdateByID(ctx context.Context, id uuid.UUID, r taskDomain.TaskRecord) (bool, error) {
	return s.execWithOutbox(ctx, taskDomain.TaskUpdated, r,
		`UPDATE tasks SET title=$1, due_date=$2, priority=$3, tags=$4, is_completed=$5, created_at=$6, completed_at=$7, notes=$8
		 WHERE id=$9`,
		r.Title, r.DueDate, r.Priority, r.Tags, r.IsCompleted, r.CreatedAt, r.CompletedAt, r.Notes, id,
	)
}

// DeleteByID elimina una tarea y crea un evento task.deleted.
func (s *TaskStorePostgres) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r := taskDomain.TaskRecord{ID: id.String()}
	return s.execWithOutbox(ctx, taskDomain.TaskDeleted, r, `DELETE FROM tasks WHERE id=$1`, id)
}

// ------------------ Lectura ------------------

// FetchAll recupera todos los registros sin decodificar.
func (s *TaskStorePostgres) FetchAll(ctx context.Context) ([]taskDomain.TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id::text, title, due_date, priority, tags, is_completed, created_at, completed_at, notes FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	records := []taskDomain.TaskRecord{}
	for rows.Next() {
		var r taskDomain.TaskRecord
		err := rows.Scan(&r.ID, &r.Title, &r.DueDate, &r.Priority, &r.Tags, &r.IsCompleted,
			&r.CreatedAt, &r.CompletedAt, &r.Notes)
		if err != nil {
			return nil, fmt.Errorf("db scan error: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Verificación en tiempo de compilación.
var _ taskDomain.TaskStore = (*TaskStorePostgres)(nil)
