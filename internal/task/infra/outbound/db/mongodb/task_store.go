package mongodb

import (
	"context"
	"errors"
	"fmt"

	// --- Importaciones del dominio y compartidas ---
	sharedDomain "github.com/davicafu/neuroassist/internal/shared/domain"
	sharedMongo "github.com/davicafu/neuroassist/internal/shared/infra/platform/db/mongodb"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// errNoMatch aborta la transacción cuando el id no existe, sin que sea un error del store.
var errNoMatch = errors.New("no matching task")

// TaskStoreMongoDB implementa la interfaz TaskStore para MongoDB.
type TaskStoreMongoDB struct {
	client     *mongo.Client
	tasksColl  *mongo.Collection
	outboxColl *mongo.Collection
}

// NewTaskStoreMongoDB es el constructor del store.
func NewTaskStoreMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*TaskStoreMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &TaskStoreMongoDB{
		client:     client,
		tasksColl:  db.Collection("tasks"),
		outboxColl: db.Collection(sharedMongo.OutboxCollection),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoTask struct {
	ID          string `bson:"_id"`
	Title       string `bson:"title"`
	DueDate     string `bson:"dueDate"`
	Priority    string `bson:"priority"`
	Tags        string `bson:"tags"`
	IsCompleted bool   `bson:"isCompleted"`
	CreatedAt   string `bson:"createdAt"`
	CompletedAt string `bson:"completedAt"`
	Notes       string `bson:"notes"`
}

// --- CRUD Transaccional ---

// withOutbox ejecuta el cambio y la inserción del evento en una sola transacción.
func (s *TaskStoreMongoDB) withOutbox(ctx context.Context, eventType string, r taskDomain.TaskRecord,
	change func(sessCtx mongo.SessionContext) (bool, error)) (bool, error) {

	session, err := s.client.StartSession()
	if err != nil {
		return false, err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		// 1. Aplicar el cambio sobre la colección de tareas
		matched, err := change(sessCtx)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, errNoMatch
		}
		// 2. Insertar el evento de outbox
		doc, err := sharedMongo.ToOutboxDocument(
			sharedDomain.NewOutboxEvent(taskDomain.TaskAggregate, r.ID, eventType, r))
		if err != nil {
			return nil, err
		}
		if _, err := s.outboxColl.InsertOne(sessCtx, doc); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if errors.Is(err, errNoMatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *TaskStoreMongoDB) Insert(ctx context.Context, r taskDomain.TaskRecord) error {
	_, err := s.withOutbox(ctx, taskDomain.TaskCreated, r, func(sessCtx mongo.SessionContext) (bool, error) {
		if _, err := s.tasksColl.InsertOne(sessCtx, toMongoTask(r)); err != nil {
			return false, err
		}
		return true, nil
	})
	return err
}

func (s *TaskStoreMongoDB) UpdateByID(ctx context.Context, id uuid.UUID, r taskDomain.TaskRecord) (bool, error) {
	return s.withOutbox(ctx, taskDomain.TaskUpdated, r, func(sessCtx mongo.SessionContext) (bool, error) {
		mt := toMongoTask(r)
		mt.ID = id.String()
		res, err := s.tasksColl.ReplaceOne(sessCtx, bson.M{"_id": mt.ID}, mt)
		if err != nil {
			return false, err
		}
		return res.MatchedCount > 0, nil
	})
}

func (s *TaskStoreMongoDB) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r := taskDomain.TaskRecord{ID: id.String()}
	return s.withOutbox(ctx, taskDomain.TaskDeleted, r, func(sessCtx mongo.SessionContext) (bool, error) {
		res, err := s.tasksColl.DeleteOne(sessCtx, bson.M{"_id": id.String()})
		if err != nil {
			return false, err
		}
		return res.DeletedCount > 0, nil
	})
}

// --- Lectura ---

func (s *TaskStoreMongoDB) FetchAll(ctx context.Context) ([]taskDomain.TaskRecord, error) {
	cursor, err := s.tasksColl.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []taskDomain.TaskRecord{}
	for cursor.Next(ctx) {
		records = append(records, decodeTaskDocument(cursor.Current))
	}

	return records, cursor.Err()
}

// decodeTaskDocument decodifica un documento. Si algún campo no encaja se
// devuelve sólo el id y el repositorio lo descarta como registro malformado.
func decodeTaskDocument(raw bson.Raw) taskDomain.TaskRecord {
	var mt mongoTask
	if err := bson.Unmarshal(raw, &mt); err == nil {
		return fromMongoTask(mt)
	}
	id, _ := raw.Lookup("_id").StringValueOK()
	return taskDomain.TaskRecord{ID: id}
}

// --- Helpers de Mapeo y Conversión ---

func toMongoTask(r taskDomain.TaskRecord) mongoTask {
	return mongoTask{
		ID: r.ID, Title: r.Title, DueDate: r.DueDate, Priority: r.Priority, Tags: r.Tags,
		IsCompleted: r.IsCompleted, CreatedAt: r.CreatedAt, CompletedAt: r.CompletedAt, Notes: r.Notes,
	}
}

func fromMongoTask(mt mongoTask) taskDomain.TaskRecord {
	return taskDomain.TaskRecord{
		ID: mt.ID, Title: mt.Title, DueDate: mt.DueDate, Priority: mt.Priority, Tags: mt.Tags,
		IsCompleted: mt.IsCompleted, CreatedAt: mt.CreatedAt, CompletedAt: mt.CompletedAt, Notes: mt.Notes,
	}
}

// Verificación en tiempo de compilación.
var _ taskDomain.TaskStore = (*TaskStoreMongoDB)(nil)
