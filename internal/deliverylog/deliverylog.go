// Package deliverylog implementa el log append-only de emails enviados.
//
// Cada aplicación puede apuntar a un "store" (un log nombrado). El log se
// consulta para los chequeos de "esta identidad ya completó este flow".
//
// Backends:
//   - file: un archivo JSON por store, formato compatible con los logs
//     históricos (array de entries).
//   - postgres: una tabla append-only, para deployments con varias réplicas.
package deliverylog

import (
	"context"
	"fmt"
	"time"
)

// Entry es una entrada del log. Los nombres JSON replican el formato
// histórico de los archivos de log.
type Entry struct {
	Timestamp   float64           `json:"timestamp"`
	From        string            `json:"from"`
	To          []string          `json:"to"`
	Subject     string            `json:"subject"`
	Content     string            `json:"content"`
	ReplyTo     string            `json:"reply-to"`
	IncludeVars map[string]string `json:"include_vars"`
}

// NewEntry arma una entrada con timestamp actual.
func NewEntry(from string, to []string, subject, content, replyTo string, vars map[string]string) Entry {
	if vars == nil {
		vars = map[string]string{}
	}
	return Entry{
		Timestamp:   float64(time.Now().UnixNano()) / float64(time.Second),
		From:        from,
		To:          to,
		Subject:     subject,
		Content:     content,
		ReplyTo:     replyTo,
		IncludeVars: vars,
	}
}

// Log es el contrato del delivery log.
type Log interface {
	// Append agrega una entrada al store indicado.
	Append(ctx context.Context, store string, e Entry) error

	// All retorna todas las entradas del store, en orden de inserción.
	All(ctx context.Context, store string) ([]Entry, error)

	// Find reporta si alguna entrada tiene include_vars[field] == value.
	Find(ctx context.Context, store, field, value string) (bool, error)

	// Close libera recursos del backend.
	Close() error
}

// Config selecciona e inicializa el backend.
type Config struct {
	Driver     string // "file" | "postgres"
	FilePrefix string // backend file: prefijo de ruta para cada store
	DSN        string // backend postgres
}

// New crea el Log según la configuración.
func New(ctx context.Context, cfg Config) (Log, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DSN)
	case "file", "":
		return NewFile(cfg.FilePrefix), nil
	default:
		return nil, fmt.Errorf("deliverylog: unknown driver %q", cfg.Driver)
	}
}
