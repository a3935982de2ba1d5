package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	sharedDomain "github.com/davicafu/neuroassist/internal/shared/domain"
	sharedSQLite "github.com/davicafu/neuroassist/internal/shared/infra/platform/db/sqlite"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
)

// TaskStoreSQLite guarda las tareas en SQLite junto con su evento de outbox.
type TaskStoreSQLite struct {
	db *sql.DB
}

func NewTaskStoreSQLite(db *sql.DB) *TaskStoreSQLite {
	return &TaskStoreSQLite{db: db}
}

// InitSchema crea las tablas tasks y outbox si no existen.
func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            due_date TEXT NOT NULL DEFAULT '',
            priority TEXT NOT NULL DEFAULT 'medium',
            tags TEXT NOT NULL DEFAULT '[]',
            is_completed INTEGER NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL,
            completed_at TEXT NOT NULL DEFAULT '',
            notes TEXT NOT NULL DEFAULT ''
        )`)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return sharedSQLite.InitOutboxSchema(ctx, db)
}

// ------------------ Helper DRY: cambio + outbox en una transacción ------------------

func (s *TaskStoreSQLite) withOutbox(ctx context.Context, eventType string, r taskDomain.TaskRecord,
	change func(tx *sql.Tx) (sql.Result, error)) (bool, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback() // Se ignora si el Commit() es exitoso

	res, err := change(tx)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	evt := sharedDomain.NewOutboxEvent(taskDomain.TaskAggregate, r.ID, eventType, r)
	if err := sharedSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// ------------------ TaskStore ------------------

func (s *TaskStoreSQLite) Insert(ctx context.Context, r taskDomain.TaskRecord) error {
	_, err := s.withOutbox(ctx, taskDomain.TaskCreated, r, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx,
			`INSERT INTO tasks (id, title, due_date, priority, tags, is_completed, created_at, completed_at, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Title, r.DueDate, r.Priority, r.Tags, r.IsCompleted, r.CreatedAt, r.CompletedAt, r.Notes,
		)
	})
	return err
}

func (s *TaskStoreSQLite) UpdateByID(ctx context.Context, id uuid.UUID, r taskDomain.TaskRecord) (bool, error) {
	return s.withOutbox(ctx, taskDomain.TaskUpdated, r, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx,
			`UPDATE tasks SET title=?, due_date=?, priority=?, tags=?, is_completed=?, created_at=?, completed_at=?, notes=?
			 WHERE id=?`,
			r.Title, r.DueDate, r.Priority, r.Tags, r.IsCompleted, r.CreatedAt, r.CompletedAt, r.Notes, id.String(),
		)
	})
}

func (s *TaskStoreSQLite) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r := taskDomain.TaskRecord{ID: id.String()}
	return s.withOutbox(ctx, taskDomain.TaskDeleted, r, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id.String())
	})
}

// FetchAll devuelve los registros en bruto; la decodificación la hace el repositorio.
func (s *TaskStoreSQLite) FetchAll(ctx context.Context) ([]taskDomain.TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, due_date, priority, tags, is_completed, created_at, completed_at, notes FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	records := []taskDomain.TaskRecord{}
	for rows.Next() {
		var r taskDomain.TaskRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.DueDate, &r.Priority, &r.Tags, &r.IsCompleted,
			&r.CreatedAt, &r.CompletedAt, &r.Notes); err != nil {
			return nil, fmt.Errorf("db scan error: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Verificación en tiempo de compilación.
var _ taskDomain.TaskStore = (*TaskStoreSQLite)(nil)
