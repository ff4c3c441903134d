package credentials_test

import (
	"bytes"
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
)

func TestSealer_RoundTrip(t *testing.T) {
	t.Parallel()

	sealer, err := credentials.NewSealer([]byte("secret"))
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}

	sealed, err := sealer.Seal(credentials.AccessTokenKey, "A1")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(sealed, []byte("A1")) {
		t.Error("sealed value contains plaintext")
	}

	value, err := sealer.Open(credentials.AccessTokenKey, sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if value != "A1" {
		t.Errorf("expected A1, got %q", value)
	}
}

func TestSealer_BoundToKey(t *testing.T) {
	t.Parallel()

	sealer, _ := credentials.NewSealer([]byte("secret"))
	sealed, _ := sealer.Seal(credentials.AccessTokenKey, "A1")

	// a value moved to another key must not open
	_, err := sealer.Open(credentials.RefreshTokenKey, sealed)
	if !errors.Is(err, credentials.ErrUnsealable) {
		t.Errorf("expected ErrUnsealable, got %v", err)
	}
}

func TestSealer_WrongSecret(t *testing.T) {
	t.Parallel()

	sealer, _ := credentials.NewSealer([]byte("secret"))
	other, _ := credentials.NewSealer([]byte("other-secret"))
	sealed, _ := sealer.Seal(credentials.AccessTokenKey, "A1")

	if _, err := other.Open(credentials.AccessTokenKey, sealed); !errors.Is(err, credentials.ErrUnsealable) {
		t.Errorf("expected ErrUnsealable, got %v", err)
	}
	if _, err := other.Open(credentials.AccessTokenKey, []byte("short")); !errors.Is(err, credentials.ErrUnsealable) {
		t.Errorf("expected ErrUnsealable for truncated value, got %v", err)
	}
}

func TestNewSealer_EmptySecret(t *testing.T) {
	t.Parallel()

	if _, err := credentials.NewSealer(nil); err == nil {
		t.Error("expected error for empty secret")
	}
}
