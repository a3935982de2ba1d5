package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// TaskAnalyticsRepo implementa la interfaz TaskAnalyticsRepository para ClickHouse.
type TaskAnalyticsRepo struct {
	db *sql.DB
}

// NewTaskAnalyticsRepo es el constructor.
func NewTaskAnalyticsRepo(ctx context.Context, addr string, dbName string) (*TaskAnalyticsRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &TaskAnalyticsRepo{db: conn}, nil
}

func (r *TaskAnalyticsRepo) Close() error {
	return r.db.Close()
}

// LogChanges inserta un lote de cambios en ClickHouse. Esta es la forma más eficiente.
func (r *TaskAnalyticsRepo) LogChanges(ctx context.Context, changes []taskDomain.ChangeLog) error {
	if len(changes) == 0 {
		return nil
	}

	// ClickHouse funciona mejor con inserciones en lotes.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO tasks_log (id, title, priority, tags, is_completed, created_at, completed_at, event_type, event_time)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range changes {
		createdAt, completedAt := parseRecordTimes(c.Record)
		if _, err := stmt.ExecContext(
			ctx,
			c.Record.ID,
			c.Record.Title,
			c.Record.Priority,
			c.Record.Tags,
			c.Record.IsCompleted,
			createdAt,
			completedAt,
			c.EventType,
			c.EventTime,
		); err != nil {
			// Si un registro falla, se descarta todo el lote.
			return fmt.Errorf("failed to exec statement for task %s: %w", c.Record.ID, err)
		}
	}

	return tx.Commit()
}

// GetAverageCompletionTime calcula el tiempo medio entre creación y completado
// de las tareas completadas en el rango.
func (r *TaskAnalyticsRepo) GetAverageCompletionTime(ctx context.Context, start, end time.Time) (time.Duration, error) {
	query := `
		SELECT avg(completion_seconds)
		FROM (
			SELECT
				id,
				dateDiff('second', any(created_at), max(completed_at)) AS completion_seconds
			FROM tasks_log
			WHERE is_completed = 1 AND completed_at IS NOT NULL AND event_time BETWEEN ? AND ?
			GROUP BY id
		)
	`
	var avgSeconds sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, start, end).Scan(&avgSeconds)
	if err != nil {
		return 0, err
	}
	if !avgSeconds.Valid {
		return 0, nil // No hay datos para calcular
	}

	return time.Duration(avgSeconds.Float64 * float64(time.Second)), nil
}

// InitSchema crea la tabla en ClickHouse si no existe.
func (r *TaskAnalyticsRepo) InitSchema(ctx context.Context) error {
	// Se particiona por mes y se ordena por campos comunes de consulta.
	query := `
		CREATE TABLE IF NOT EXISTS tasks_log (
			id           String,
			title        String,
			priority     String,
			tags         String,
			is_completed Bool,
			created_at   DateTime64(3),
			completed_at Nullable(DateTime64(3)),
			event_type   String,
			event_time   DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (event_type, event_time);
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// parseRecordTimes convierte las fechas codificadas del registro. Las vacías o
// inválidas se mandan como cero / NULL; la analítica no rechaza filas.
func parseRecordTimes(rec taskDomain.TaskRecord) (time.Time, *time.Time) {
	createdAt, _ := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if rec.CompletedAt == "" {
		return createdAt, nil
	}
	completedAt, err := time.Parse(time.RFC3339Nano, rec.CompletedAt)
	if err != nil {
		return createdAt, nil
	}
	return createdAt, &completedAt
}

// Verificación estática de la interfaz.
var _ taskDomain.TaskAnalyticsRepository = (*TaskAnalyticsRepo)(nil)
