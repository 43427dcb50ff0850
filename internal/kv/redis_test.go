package kv

import (
	"testing"
	"time"
)

func TestNormalizeTTL_MissingKeySentinel(t *testing.T) {
	// El servidor responde :-2 y el driver lo entrega como -2ns crudos.
	_, err := normalizeTTL(time.Duration(-2))
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNormalizeTTL_NoExpirySentinel(t *testing.T) {
	// :-1 (clave sin expiración) debe mapear a cero, nunca a una duración
	// negativa que después rompa un SET.
	d, err := normalizeTTL(time.Duration(-1))
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if d != 0 {
		t.Fatalf("ttl = %v, want 0", d)
	}
}

func TestNormalizeTTL_PassesRealDurations(t *testing.T) {
	d, err := normalizeTTL(30 * time.Second)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if d != 30*time.Second {
		t.Fatalf("ttl = %v, want 30s", d)
	}
}
