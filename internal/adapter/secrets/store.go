// Package secrets resolves payment gateway keys by account ID at call time.
package secrets

import (
	"context"
	"errors"
	"strings"
)

var ErrSecretNotFound = errors.New("payment secret not found")

// Store returns the gateway secret key for an account (a user ID or the platform account).
type Store interface {
	PaymentKey(ctx context.Context, accountID string) (string, error)
}

// StaticStore serves keys from configuration. Intended for local runs and tests.
type StaticStore struct {
	keys map[string]string
}

func NewStaticStore(keys map[string]string) *StaticStore {
	copied := make(map[string]string, len(keys))
	for k, v := range keys {
		copied[k] = v
	}
	return &StaticStore{keys: copied}
}

func (s *StaticStore) PaymentKey(ctx context.Context, accountID string) (string, error) {
	key, ok := s.keys[strings.TrimSpace(accountID)]
	if !ok || key == "" {
		return "", ErrSecretNotFound
	}
	return key, nil
}
