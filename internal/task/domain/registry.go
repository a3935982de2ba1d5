package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/neuroassist/internal/shared/events"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
)

const TaskTopic = "task"

const TaskAggregate = "task"

// NewEventRegistry asocia cada tipo de evento del outbox con su payload.
func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		TaskCreated: {
			Type:  reflect.TypeOf(TaskRecord{}),
			Topic: TaskTopic,
		},
		TaskUpdated: {
			Type:  reflect.TypeOf(TaskRecord{}),
			Topic: TaskTopic,
		},
		TaskDeleted: {
			Type:  reflect.TypeOf(TaskRecord{}),
			Topic: TaskTopic,
		},
	}
}
