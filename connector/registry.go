// Copyright (c) 2025 BVK Chaitanya

package connector

import (
	"context"
	"fmt"
	"os"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/syncmap"
)

// NewFunc constructs a connector over the account identified by the given
// api credentials.
type NewFunc func(ctx context.Context, key, secret string) (Connector, error)

var registry syncmap.Map[string, NewFunc]

// Register adds a venue constructor under the given name. Returns
// os.ErrExist if the name is already taken.
func Register(name string, f NewFunc) error {
	if _, loaded := registry.LoadOrStore(name, f); loaded {
		return fmt.Errorf("venue %q is already registered: %w", name, os.ErrExist)
	}
	return nil
}

// New instantiates a connector for the named venue.
func New(ctx context.Context, name, key, secret string) (Connector, error) {
	f, ok := registry.Load(name)
	if !ok {
		return nil, fmt.Errorf("venue %q is not registered: %w", name, os.ErrNotExist)
	}
	return f(ctx, key, secret)
}
