// Copyright (c) 2025 BVK Chaitanya

// Package keystore persists the follower account's api credentials in the
// local key-value database and notifies listeners when an operator replaces
// them.
package keystore

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/bvkgo/kv"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/kvutil"
)

const credentialsKey = "/keys/follower"

type Store struct {
	db kv.Database

	mu        sync.Mutex
	callbacks []func(*gobs.Credentials)
}

func New(db kv.Database) *Store {
	return &Store{db: db}
}

// Get returns the stored credentials. A missing record comes back as an
// all-empty Credentials value, not an error.
func (s *Store) Get(ctx context.Context) (*gobs.Credentials, error) {
	creds, err := kvutil.GetDB[gobs.Credentials](ctx, s.db, credentialsKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return new(gobs.Credentials), nil
		}
		return nil, err
	}
	return creds, nil
}

// Set replaces the stored credentials and invokes the update callbacks in
// registration order.
func (s *Store) Set(ctx context.Context, creds *gobs.Credentials) error {
	if creds == nil {
		return os.ErrInvalid
	}
	if err := kvutil.SetDB(ctx, s.db, credentialsKey, creds); err != nil {
		return err
	}

	s.mu.Lock()
	callbacks := make([]func(*gobs.Credentials), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.Unlock()

	for _, f := range callbacks {
		f(creds)
	}
	return nil
}

// OnUpdate registers a callback invoked after every credentials replacement.
func (s *Store) OnUpdate(f func(*gobs.Credentials)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, f)
}
