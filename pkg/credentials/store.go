// Package credentials persists the access/refresh credential pair behind a small
// scoped key/value interface shared by the request client and the session guard.
package credentials

import (
	"context"
	"errors"
	"fmt"
)

// Key names under which the credential pair is persisted. They double as the
// cookie names for the cookie-backed stores.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

var (
	ErrAbsent     = errors.New("credential absent")
	ErrInvalidKey = errors.New("invalid credential key")
)

// Store is scoped key/value persistence for credentials.
//
// Get returns ErrAbsent when nothing is stored under the key. Remove of an absent
// key is not an error. Implementations must be safe for concurrent use; writes are
// last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// Pair is the access/refresh credential pair issued at login and at each
// successful refresh. Both tokens are opaque.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// LoadPair reads both tokens. A missing token leaves its field empty; partial
// pairs are returned as-is.
func LoadPair(ctx context.Context, s Store) (Pair, error) {
	var pair Pair
	var err error

	if pair.AccessToken, err = getOptional(ctx, s, AccessTokenKey); err != nil {
		return Pair{}, err
	}
	if pair.RefreshToken, err = getOptional(ctx, s, RefreshTokenKey); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

// SavePair writes the access token, and the refresh token only when the pair
// carries one, so a refresh response without rotation keeps the prior refresh
// token.
func SavePair(ctx context.Context, s Store, pair Pair) error {
	if pair.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrInvalidKey)
	}
	if err := s.Set(ctx, AccessTokenKey, pair.AccessToken); err != nil {
		return fmt.Errorf("couldn't store access token: %w", err)
	}
	if pair.RefreshToken != "" {
		if err := s.Set(ctx, RefreshTokenKey, pair.RefreshToken); err != nil {
			return fmt.Errorf("couldn't store refresh token: %w", err)
		}
	}
	return nil
}

// Clear removes both tokens. Both removals are attempted even if the first fails.
func Clear(ctx context.Context, s Store) error {
	return errors.Join(
		s.Remove(ctx, AccessTokenKey),
		s.Remove(ctx, RefreshTokenKey),
	)
}

func getOptional(ctx context.Context, s Store, key string) (string, error) {
	value, err := s.Get(ctx, key)
	if errors.Is(err, ErrAbsent) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("couldn't read %s: %w", key, err)
	}
	return value, nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return nil
}
