package cache

import (
	"context"
	"time"
)

// Cache define la interfaz para una caché de clave-valor genérica.
type Cache interface {
	// Get intenta poblar 'dest' (que debe ser un puntero) con el valor asociado a la 'key'.
	// Devuelve (true, nil) si hay un 'hit' y (false, nil) si es un 'miss'.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set serializa y guarda el valor. Un ttl <= 0 usa el TTL por defecto de la implementación.
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error

	// Delete elimina la 'key' de la caché.
	Delete(ctx context.Context, key string) error
}
