package application

import (
	"context"
	"time"

	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
	"go.uber.org/zap"
)

const analyticsTimeout = 5 * time.Second

// AnalyticsSink escucha las actualizaciones del repositorio y registra un
// ChangeLog por cada cambio aplicado. Los fallos sólo se registran en el log.
type AnalyticsSink struct {
	repo      *TaskRepository
	analytics taskDomain.TaskAnalyticsRepository
	log       *zap.Logger
}

func NewAnalyticsSink(repo *TaskRepository, analytics taskDomain.TaskAnalyticsRepository, log *zap.Logger) *AnalyticsSink {
	return &AnalyticsSink{repo: repo, analytics: analytics, log: log}
}

// Run es bloqueante; termina al cancelar ctx o al cerrarse el repositorio.
func (s *AnalyticsSink) Run(ctx context.Context) {
	updates, cancel := s.repo.Subscribe(32)
	defer cancel()

	s.log.Info("📊 Analytics sink iniciado")
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			s.handle(ctx, u)
		}
	}
}

func (s *AnalyticsSink) handle(ctx context.Context, u Update) {
	entry, ok := toChangeLog(u)
	if !ok {
		return
	}

	logCtx, cancel := context.WithTimeout(ctx, analyticsTimeout)
	defer cancel()

	if err := s.analytics.LogChanges(logCtx, []taskDomain.ChangeLog{entry}); err != nil {
		s.log.Warn("⚠️ Failed to log task change",
			zap.String("event_type", entry.EventType),
			zap.String("task_id", entry.Record.ID),
			zap.Error(err))
	}
}

// toChangeLog traduce una actualización aplicada. Refrescos y fallos no generan fila.
func toChangeLog(u Update) (taskDomain.ChangeLog, bool) {
	if u.Change.Failed {
		return taskDomain.ChangeLog{}, false
	}

	entry := taskDomain.ChangeLog{EventTime: time.Now().UTC()}
	switch u.Change.Op {
	case ChangeAdd:
		entry.EventType = taskDomain.TaskCreated
	case ChangeUpdate:
		entry.EventType = taskDomain.TaskUpdated
	case ChangeDelete:
		entry.EventType = taskDomain.TaskDeleted
	default:
		return taskDomain.ChangeLog{}, false
	}

	if u.Change.Task != nil {
		entry.Record = taskDomain.ToRecord(u.Change.Task)
	} else {
		entry.Record = taskDomain.TaskRecord{ID: u.Change.TaskID.String()}
	}
	return entry, true
}
