// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestCloseGroup(t *testing.T) {
	var done atomic.Int32

	var cg CloseGroup
	for i := 0; i < 5; i++ {
		cg.Go(func(ctx context.Context) {
			<-ctx.Done()
			done.Add(1)
		})
	}

	if n := done.Load(); n != 0 {
		t.Fatalf("wanted 0 finished goroutines, got %d", n)
	}

	cg.Close()

	if n := done.Load(); n != 5 {
		t.Fatalf("wanted 5 finished goroutines, got %d", n)
	}
}

func TestSleepCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Sleep(ctx, time.Hour)
	if d := time.Since(start); d > time.Second {
		t.Fatalf("sleep did not return early on canceled context (took %s)", d)
	}
}
