package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	sharedEvents "github.com/davicafu/neuroassist/internal/shared/events"
	infraEvents "github.com/davicafu/neuroassist/internal/shared/infra/events"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
)

func newObservedListener() (*SyncListener, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewSyncListener(zap.New(core)), logs
}

func integrationPayload(t *testing.T, eventType string, rec taskDomain.TaskRecord) []byte {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	payload, err := json.Marshal(sharedEvents.IntegrationEvent{Type: eventType, Key: rec.ID, Timestamp: time.Now(), Data: data})
	require.NoError(t, err)
	return payload
}

func TestSyncListener_LogsTaskChanges(t *testing.T) {
	// Arrange
	listener, logs := newObservedListener()
	task, err := taskDomain.NewTask("Sincronizar con el reloj")
	require.NoError(t, err)

	// Act
	listener.HandleMessage(context.Background(), task.ID.String(),
		integrationPayload(t, taskDomain.TaskCreated, taskDomain.ToRecord(task)))

	// Assert
	entries := logs.FilterMessage("🔄 Task change ready for sync").All()
	require.Len(t, entries, 1)
	assert.Equal(t, task.ID.String(), entries[0].ContextMap()["task_id"])
	assert.Equal(t, taskDomain.TaskCreated, entries[0].ContextMap()["type"])
}

func TestSyncListener_IgnoresGarbageAndUnknownTypes(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	listener := NewSyncListener(zap.New(core))

	listener.HandleMessage(context.Background(), "k", []byte("{no json"))
	listener.HandleMessage(context.Background(), "k",
		integrationPayload(t, "task.archived", taskDomain.TaskRecord{ID: "x"}))

	assert.Equal(t, 2, logs.Len())
}

func TestBackgroundConsumerChan_ReadsFromInMemoryBus(t *testing.T) {
	// Arrange
	listener, logs := newObservedListener()
	bus := infraEvents.NewInMemoryEventBus(taskDomain.TaskTopic)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	BackgroundConsumerChan(ctx, bus.Subscribe(10), listener)

	task, err := taskDomain.NewTask("Desde el bus")
	require.NoError(t, err)
	data, err := json.Marshal(taskDomain.ToRecord(task))
	require.NoError(t, err)

	// Act
	require.NoError(t, bus.Publish(ctx, sharedEvents.IntegrationEvent{Type: taskDomain.TaskUpdated, Key: task.ID.String(), Data: data}))

	// Assert
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("🔄 Task change ready for sync").Len() == 1
	}, time.Second, 10*time.Millisecond)
}
