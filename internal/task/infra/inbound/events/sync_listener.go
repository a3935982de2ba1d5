package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/neuroassist/internal/shared/events"
	sharedUtils "github.com/davicafu/neuroassist/internal/shared/infra/utils"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
)

// SyncListener es el extremo receptor del hook de sincronización.
// De momento sólo registra lo que llega; no hay protocolo de fusión ni de conflictos.
type SyncListener struct {
	log *zap.Logger
}

// NewSyncListener es el constructor.
func NewSyncListener(logger *zap.Logger) *SyncListener {
	return &SyncListener{log: logger}
}

// HandleMessage es el punto de entrada para un nuevo mensaje/evento.
func (l *SyncListener) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		l.log.Warn("Failed to unmarshal integration event for task", zap.String("key", key), zap.Error(err))
		return
	}

	switch base.Type {
	case taskDomain.TaskCreated, taskDomain.TaskUpdated, taskDomain.TaskDeleted:
		sharedUtils.UnmarshalAndHandle[taskDomain.TaskRecord](l.log, base.Data, func(rec taskDomain.TaskRecord) {
			l.log.Info("🔄 Task change ready for sync",
				zap.String("type", base.Type),
				zap.String("task_id", rec.ID),
				zap.String("title", rec.Title),
				zap.Bool("is_completed", rec.IsCompleted),
				zap.Time("timestamp", base.Timestamp),
			)
		})

	default:
		l.log.Warn("Unknown task event type", zap.String("type", base.Type), zap.String("key", key))
	}
}

// BackgroundConsumerChan inicia una goroutine para consumir eventos de un canal.
func BackgroundConsumerChan(ctx context.Context, ch <-chan interface{}, listener *SyncListener) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				listener.log.Info("SyncListener stopped")
				return
			case msg := <-ch:
				// Hacemos una aserción de tipo para asegurarnos de que es un []byte
				if payload, ok := msg.([]byte); ok {
					// La 'key' no es relevante en el bus en memoria, pasamos una vacía.
					listener.HandleMessage(ctx, "", payload)
				}
			}
		}
	}()
}
