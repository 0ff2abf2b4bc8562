// Package devicestore persists small advisory values on the device: session
// state, cached profile, emailed-term markers and saved filters. Values survive
// restarts but are never the source of truth for adoption or legal state.
package devicestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("device store closed")

// Store is the key/value contract shared by every backend.
type Store interface {
	// Get returns the raw value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Union adds members to the set stored at key. Adding an existing member is a no-op.
	Union(ctx context.Context, key string, members ...string) error
	// Members lists the set stored at key in ascending order.
	Members(ctx context.Context, key string) ([]string, error)
	Close() error
}

// Well-known keys.
const (
	KeyLastUserID = "session.user_id"
	KeyAuthToken  = "session.token"
	KeyProfile    = "session.profile"
)

// EmailedTermsKey names the set of pets whose adoption term the user already emailed.
func EmailedTermsKey(userID int64) string {
	return "terms.emailed." + strconv.FormatInt(userID, 10)
}

// FiltersKey names the saved filter selection of a screen.
func FiltersKey(screen string) string {
	return "filters." + screen
}

// GetJSON decodes the value at key into T. ok is false when the key is absent.
func GetJSON[T any](ctx context.Context, s Store, key string) (value T, ok bool, err error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return value, ok, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return value, true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON[T any](ctx context.Context, s Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
