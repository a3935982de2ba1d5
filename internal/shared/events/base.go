package events

import (
	"encoding/json"
	"reflect"
	"time"
)

// Base de todos los eventos de integración
type IntegrationEvent struct {
	Type      string          `json:"type"`
	Key       string          `json:"key,omitempty"` // id del agregado, se usa como partition key
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
}

func (e IntegrationEvent) PartitionKey() string {
	return e.Key
}

// EventMetadata indica a qué tipo se decodifica cada evento y en qué topic va.
type EventMetadata struct {
	Type  reflect.Type
	Topic string
}
