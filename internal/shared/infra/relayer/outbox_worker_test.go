package relayer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	sharedDomain "github.com/davicafu/neuroassist/internal/shared/domain"
	sharedEvents "github.com/davicafu/neuroassist/internal/shared/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// --- Mocks ---

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]sharedDomain.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event interface{}) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type recordPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func testRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		"task.created": {Type: reflect.TypeOf(recordPayload{}), Topic: "task"},
	}
}

func TestOutboxWorker_ProcessBatch_Success(t *testing.T) {
	// ARRANGE
	repo := new(MockOutboxRepository)
	publisher := new(MockPublisher)

	eventID := uuid.New()
	aggregateID := uuid.New().String()
	testEvent := sharedDomain.OutboxEvent{
		ID:          eventID,
		AggregateID: aggregateID,
		EventType:   "task.created",
		Payload:     map[string]interface{}{"id": aggregateID, "title": "Comprar pan"},
	}

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(evt sharedEvents.IntegrationEvent) bool {
		return evt.Type == "task.created" && evt.PartitionKey() == aggregateID && len(evt.Data) > 0
	})).Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, eventID).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 10, zap.NewNop())

	// ACT
	n := worker.ProcessBatch(context.Background())

	// ASSERT
	assert.Equal(t, 1, n)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestOutboxWorker_ProcessBatch_PublisherFails(t *testing.T) {
	// ARRANGE
	repo := new(MockOutboxRepository)
	publisher := new(MockPublisher)

	testEvent := sharedDomain.OutboxEvent{ID: uuid.New(), EventType: "task.created", Payload: map[string]interface{}{}}

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("kafka is down")).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 10, zap.NewNop())

	// ACT
	n := worker.ProcessBatch(context.Background())

	// ASSERT: no se marca como procesado para reintentarlo
	assert.Equal(t, 0, n)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
	publisher.AssertExpectations(t)
}

func TestOutboxWorker_ProcessBatch_UnknownEventType(t *testing.T) {
	repo := new(MockOutboxRepository)
	publisher := new(MockPublisher)

	testEvent := sharedDomain.OutboxEvent{ID: uuid.New(), EventType: "task.archived", Payload: map[string]interface{}{}}
	repo.On("FetchPendingOutbox", mock.Anything, 5).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 5, zap.NewNop())

	assert.Equal(t, 0, worker.ProcessBatch(context.Background()))
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOutboxWorker_ProcessBatch_FetchFails(t *testing.T) {
	repo := new(MockOutboxRepository)
	publisher := new(MockPublisher)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent(nil), errors.New("db locked")).Once()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), 0, 10, zap.NewNop())

	assert.Equal(t, 0, worker.ProcessBatch(context.Background()))
	repo.AssertExpectations(t)
}
