// Package credentials reads the session token and user id the catalog attaches
// to mutating requests. Values are opaque; this package never interprets them.
package credentials

import (
	"context"
	"errors"
)

// Keys under which the login flow stores the session.
const (
	TokenKey  = "isToken"
	UserIDKey = "userIDToken"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("credentials: store closed")

// Store is a local key-value store holding the session credentials.
//
// Get reports ok=false when the key is absent. Implementations treat an empty
// stored value as absent as well.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Save stores a token and user id together.
func Save(ctx context.Context, s Store, token, userID string) error {
	if err := s.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	return s.Set(ctx, UserIDKey, userID)
}

// Clear removes both session keys.
func Clear(ctx context.Context, s Store) error {
	return errors.Join(
		s.Delete(ctx, TokenKey),
		s.Delete(ctx, UserIDKey),
	)
}
