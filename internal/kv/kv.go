// Package kv provee el store clave-valor con expiración que respalda las
// registraciones pendientes de double opt-in.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// La única operación sensible a concurrencia de todo el sistema es GetDel:
// debe ser un get-and-delete atómico del backend, no un read seguido de un
// delete separado.
package kv

import (
	"context"
	"time"
)

// Client define las operaciones del store.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set guarda un valor con TTL opcional.
	// Si ttl es 0, no expira.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// GetDel obtiene y elimina un valor atómicamente.
	// Retorna ErrNotFound si no existe; una segunda llamada con la misma
	// key siempre retorna ErrNotFound.
	GetDel(ctx context.Context, key string) ([]byte, error)

	// Delete elimina una key. Eliminar una key inexistente no es error.
	Delete(ctx context.Context, key string) error

	// TTL retorna el tiempo de vida restante de una key.
	// 0 significa sin expiración; ErrNotFound si la key no existe.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Keys lista las keys existentes con el prefijo dado.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un cliente.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // Prefijo para todas las keys
}

// Errores del store.
var (
	ErrNotFound = errNotFound{}
)

type errNotFound struct{}

func (e errNotFound) Error() string { return "kv: key not found" }

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New crea un cliente según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
