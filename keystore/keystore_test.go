// Copyright (c) 2025 BVK Chaitanya

package keystore

import (
	"context"
	"testing"

	"github.com/bvkgo/kv/kvmemdb"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New(kvmemdb.New())

	creds, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if creds.IsComplete() {
		t.Fatalf("empty store must return incomplete credentials")
	}

	var notified *gobs.Credentials
	s.OnUpdate(func(c *gobs.Credentials) {
		notified = c
	})

	want := &gobs.Credentials{
		Exchange:  "binance",
		APIKey:    "key",
		APISecret: "secret",
	}
	if err := s.Set(ctx, want); err != nil {
		t.Fatal(err)
	}
	if notified == nil || notified.APIKey != "key" {
		t.Fatalf("update callback was not invoked with the new credentials")
	}

	creds, err = s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if *creds != *want {
		t.Fatalf("wanted %+v, got %+v", want, creds)
	}
}
