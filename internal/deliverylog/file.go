package deliverylog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dropDatabas3/formgate/internal/util/atomicwrite"
)

// fileLog guarda cada store como un archivo JSON (array de entries).
// El mutex serializa los read-modify-write dentro del proceso; el rename
// atómico cubre lectores externos.
type fileLog struct {
	prefix string
	mu     sync.Mutex
}

// NewFile crea un log basado en archivos. prefix se antepone al nombre de
// cada store para formar la ruta (ej: "/var/lib/formgate/store/").
func NewFile(prefix string) *fileLog {
	return &fileLog{prefix: prefix}
}

func (l *fileLog) path(store string) string {
	return l.prefix + store
}

func (l *fileLog) Append(ctx context.Context, store string, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read(store)
	if err != nil {
		return err
	}
	entries = append(entries, e)

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return atomicwrite.File(l.path(store), data, 0o644)
}

func (l *fileLog) All(ctx context.Context, store string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read(store)
}

func (l *fileLog) Find(ctx context.Context, store, field, value string) (bool, error) {
	entries, err := l.All(ctx, store)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IncludeVars[field] == value {
			return true, nil
		}
	}
	return false, nil
}

func (l *fileLog) Close() error { return nil }

// read carga el archivo del store; un store inexistente es un log vacío.
func (l *fileLog) read(store string) ([]Entry, error) {
	data, err := os.ReadFile(l.path(store))
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("deliverylog: corrupt log %s: %w", store, err)
	}
	return entries, nil
}
