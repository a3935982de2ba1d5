package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
	"github.com/google/uuid"
)

// JSONTaskStorage es un adaptador outbound que guarda las tareas en un fichero JSON.
type JSONTaskStorage struct {
	filePath string
	mu       sync.Mutex // Mutex para evitar race conditions al leer/escribir el archivo.
}

// NewJSONTaskStorage es el constructor.
func NewJSONTaskStorage(filePath string) *JSONTaskStorage {
	return &JSONTaskStorage{
		filePath: filePath,
	}
}

// Insert añade un registro nuevo al fichero JSON.
// Si el fichero no existe, lo crea.
func (s *JSONTaskStorage) Insert(ctx context.Context, r taskDomain.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Leer todas las entradas existentes.
	entries, err := s.readFile()
	if err != nil {
		return err
	}

	if indexOf(entries, r.ID) >= 0 {
		return fmt.Errorf("task %s already exists", r.ID)
	}

	// 2. Añadir el registro y reescribir el fichero completo.
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.writeFile(append(entries, raw))
}

// UpdateByID reemplaza el registro con ese id. found=false si no existe.
func (s *JSONTaskStorage) UpdateByID(ctx context.Context, id uuid.UUID, r taskDomain.TaskRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readFile()
	if err != nil {
		return false, err
	}

	i := indexOf(entries, id.String())
	if i < 0 {
		return false, nil
	}
	r.ID = id.String()
	raw, err := json.Marshal(r)
	if err != nil {
		return false, err
	}
	entries[i] = raw
	return true, s.writeFile(entries)
}

// DeleteByID elimina el registro con ese id. found=false si no existe.
func (s *JSONTaskStorage) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readFile()
	if err != nil {
		return false, err
	}

	i := indexOf(entries, id.String())
	if i < 0 {
		return false, nil
	}
	entries = append(entries[:i], entries[i+1:]...)
	return true, s.writeFile(entries)
}

// FetchAll recupera todos los registros del fichero JSON. Una entrada que no
// encaja en TaskRecord se devuelve sólo con su id, para que el repositorio la
// descarte como registro malformado sin perder el resto.
func (s *JSONTaskStorage) FetchAll(ctx context.Context) ([]taskDomain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readFile()
	if err != nil {
		return nil, err
	}

	records := make([]taskDomain.TaskRecord, 0, len(entries))
	for _, raw := range entries {
		var r taskDomain.TaskRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			r = taskDomain.TaskRecord{ID: entryID(raw)}
		}
		records = append(records, r)
	}
	return records, nil
}

// readFile es un helper interno no concurrente. Sólo falla si el fichero
// no es un array JSON; cada entrada se decodifica aparte.
func (s *JSONTaskStorage) readFile() ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		// Si el fichero no existe, devolvemos una lista vacía sin error.
		if os.IsNotExist(err) {
			return []json.RawMessage{}, nil
		}
		return nil, err
	}

	// Si el fichero está vacío, también devolvemos una lista vacía.
	if len(data) == 0 {
		return []json.RawMessage{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt task file %s: %w", s.filePath, err)
	}

	return entries, nil
}

// entryID extrae el id de una entrada aunque el resto de campos no encaje.
func entryID(raw json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	var id string
	if err := json.Unmarshal(fields["id"], &id); err != nil {
		return ""
	}
	return id
}

func indexOf(entries []json.RawMessage, id string) int {
	for i, raw := range entries {
		if entryID(raw) == id {
			return i
		}
	}
	return -1
}

// writeFile escribe en un temporal y lo renombra: un fallo a mitad no deja el fichero truncado.
func (s *JSONTaskStorage) writeFile(entries []json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op tras el rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.filePath)
}

var _ taskDomain.TaskStore = (*JSONTaskStorage)(nil)
