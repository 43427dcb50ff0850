package pending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/formgate/internal/forms"
	"github.com/dropDatabas3/formgate/internal/kv"
)

func newStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	return New(kv.NewMemory(""), ttl)
}

func snap(appid, confirm string, extra map[string]string) forms.Submission {
	fields := map[string]string{"appid": appid, "confirm": confirm}
	for k, v := range extra {
		fields[k] = v
	}
	return forms.Submission{AppID: appid, Confirm: confirm, Fields: fields}
}

func TestCreateResolve(t *testing.T) {
	s := newStore(t, time.Hour)
	ctx := context.Background()

	id, err := s.Create(ctx, snap("news", "a@x.com", nil))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Resolve(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", got.Confirm)
}

func TestRedeem_Idempotent(t *testing.T) {
	s := newStore(t, time.Hour)
	ctx := context.Background()

	id, err := s.Create(ctx, snap("news", "a@x.com", nil))
	require.NoError(t, err)

	got, err := s.Redeem(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", got.Confirm)

	// El segundo canje siempre falla, sin importar el timing.
	_, err = s.Redeem(ctx, id)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestRedeem_UnknownID(t *testing.T) {
	s := newStore(t, time.Hour)
	_, err := s.Redeem(context.Background(), "never-existed")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestEnqueue_DedupByIdentity(t *testing.T) {
	s := newStore(t, time.Hour)
	ctx := context.Background()

	first, reused, err := s.Enqueue(ctx, snap("news", "a@x.com", map[string]string{"name": "v1"}))
	require.NoError(t, err)
	require.False(t, reused)

	// Misma identidad: pisa el registro existente y reutiliza el id.
	second, reused, err := s.Enqueue(ctx, snap("news", "a@x.com", map[string]string{"name": "v2"}))
	require.NoError(t, err)
	require.True(t, reused)
	require.Equal(t, first, second)

	// Los datos que quedan son los de la segunda submission.
	got, err := s.Resolve(ctx, first)
	require.NoError(t, err)
	require.Equal(t, "v2", got.Fields["name"])

	// Un solo registro pendiente.
	id, found, err := s.FindDuplicate(ctx, "news", "a@x.com")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, first, id)
}

func TestEnqueue_DifferentAppIsNotDuplicate(t *testing.T) {
	s := newStore(t, time.Hour)
	ctx := context.Background()

	first, _, err := s.Enqueue(ctx, snap("news", "a@x.com", nil))
	require.NoError(t, err)
	second, reused, err := s.Enqueue(ctx, snap("petition", "a@x.com", nil))
	require.NoError(t, err)
	require.False(t, reused)
	require.NotEqual(t, first, second)
}

func TestUpdate_PreservesRemainingTTL(t *testing.T) {
	client := kv.NewMemory("")
	s := New(client, time.Hour)
	ctx := context.Background()

	id, err := s.Create(ctx, snap("news", "a@x.com", nil))
	require.NoError(t, err)

	before, err := client.TTL(ctx, "pending:"+id)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, id, snap("news", "a@x.com", map[string]string{"name": "v2"})))

	// La resubmission nunca extiende la vida del registro.
	after, err := client.TTL(ctx, "pending:"+id)
	require.NoError(t, err)
	require.LessOrEqual(t, after, before)
	require.Greater(t, after, time.Duration(0))
}

func TestUpdate_ExpiredRecord(t *testing.T) {
	s := newStore(t, time.Hour)
	err := s.Update(context.Background(), "gone", snap("news", "a@x.com", nil))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestRemove_Idempotent(t *testing.T) {
	s := newStore(t, time.Hour)
	ctx := context.Background()

	id, err := s.Create(ctx, snap("news", "a@x.com", nil))
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, id))
	require.NoError(t, s.Remove(ctx, id))

	_, err = s.Resolve(ctx, id)
	require.True(t, errors.Is(err, ErrNotFound))
}
