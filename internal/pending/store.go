// Package pending implementa el store de registraciones a la espera de
// confirmación double opt-in.
//
// Todo el estado vive en el kv externo con expiración; el proceso no guarda
// nada en memoria. La deduplicación es por (appid, dirección a confirmar):
// una resubmission pisa el registro pendiente existente conservando su TTL
// restante, nunca lo extiende.
package pending

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/formgate/internal/forms"
	"github.com/dropDatabas3/formgate/internal/kv"
	"github.com/dropDatabas3/formgate/internal/observability/logger"
)

const keyPrefix = "pending:"

// DefaultTTL es la expiración por defecto de una registración pendiente.
const DefaultTTL = 24 * time.Hour

// ErrNotFound: el id no existe, ya fue canjeado, o expiró.
// Las tres causas son indistinguibles a propósito.
var ErrNotFound = errors.New("pending: registration not found")

// Store es el acceso a registraciones pendientes.
type Store struct {
	kv  kv.Client
	ttl time.Duration
}

// New crea un Store. ttl 0 usa DefaultTTL; ttl negativo significa sin
// expiración.
func New(client kv.Client, ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Store{kv: client, ttl: ttl}
}

// Create guarda un snapshot nuevo bajo un id aleatorio de 128 bits y retorna
// el id. La probabilidad de colisión se considera despreciable.
func (s *Store) Create(ctx context.Context, snap forms.Submission) (string, error) {
	id := uuid.NewString()
	if err := s.set(ctx, id, snap, s.ttl); err != nil {
		return "", err
	}
	logger.From(ctx).Info("pending registration created",
		logger.PendingID(id),
		logger.AppID(snap.AppID),
	)
	return id, nil
}

// FindDuplicate busca una registración pendiente con el mismo (appid,
// identidad). Retorna el primer match; por construcción no debería haber
// más de uno.
func (s *Store) FindDuplicate(ctx context.Context, appID, identity string) (string, bool, error) {
	keys, err := s.kv.Keys(ctx, keyPrefix)
	if err != nil {
		return "", false, err
	}
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err != nil {
			if kv.IsNotFound(err) {
				continue // expiró entre el scan y el get
			}
			return "", false, err
		}
		snap, err := forms.Decode(data)
		if err != nil {
			continue
		}
		if snap.AppID == appID && snap.Confirm == identity {
			return key[len(keyPrefix):], true, nil
		}
	}
	return "", false, nil
}

// Update pisa el snapshot de un id existente conservando el TTL restante del
// registro anterior: reenviar el formulario no gana tiempo de vida extra.
func (s *Store) Update(ctx context.Context, id string, snap forms.Submission) error {
	remaining, err := s.kv.TTL(ctx, keyPrefix+id)
	if err != nil {
		if kv.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if err := s.set(ctx, id, snap, remaining); err != nil {
		return err
	}
	logger.From(ctx).Info("pending registration superseded",
		logger.PendingID(id),
		logger.AppID(snap.AppID),
	)
	return nil
}

// Resolve lee un snapshot sin eliminarlo.
func (s *Store) Resolve(ctx context.Context, id string) (forms.Submission, error) {
	data, err := s.kv.Get(ctx, keyPrefix+id)
	if err != nil {
		if kv.IsNotFound(err) {
			return forms.Submission{}, ErrNotFound
		}
		return forms.Submission{}, err
	}
	return forms.Decode(data)
}

// Redeem obtiene y elimina el snapshot atómicamente. Un segundo canje del
// mismo id retorna ErrNotFound, sin importar el timing.
func (s *Store) Redeem(ctx context.Context, id string) (forms.Submission, error) {
	data, err := s.kv.GetDel(ctx, keyPrefix+id)
	if err != nil {
		if kv.IsNotFound(err) {
			return forms.Submission{}, ErrNotFound
		}
		return forms.Submission{}, err
	}
	logger.From(ctx).Info("pending registration redeemed", logger.PendingID(id))
	return forms.Decode(data)
}

// Remove elimina un registro. Idempotente.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, keyPrefix+id)
}

// Enqueue es el paso de alta del flow de double opt-in: si ya hay una
// registración pendiente para (appid, identidad) la actualiza in-place y
// reutiliza su id (descartando el que se habría generado); si no, crea una
// nueva con la expiración configurada.
func (s *Store) Enqueue(ctx context.Context, snap forms.Submission) (id string, reused bool, err error) {
	id, found, err := s.FindDuplicate(ctx, snap.AppID, snap.Confirm)
	if err != nil {
		return "", false, err
	}
	if found {
		if err := s.Update(ctx, id, snap); err != nil {
			// El registro expiró justo entre el find y el update.
			if errors.Is(err, ErrNotFound) {
				id, err = s.Create(ctx, snap)
				return id, false, err
			}
			return "", false, err
		}
		return id, true, nil
	}
	id, err = s.Create(ctx, snap)
	return id, false, err
}

func (s *Store) set(ctx context.Context, id string, snap forms.Submission, ttl time.Duration) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, keyPrefix+id, data, ttl)
}
