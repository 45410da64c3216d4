// Copyright (c) 2025 BVK Chaitanya

package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/ctxutil"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
)

// BalanceFunc consumes one balance reading.
type BalanceFunc func(ctx context.Context, balance decimal.Decimal) error

type balanceCallback struct {
	name string
	f    BalanceFunc
}

// Updater polls the follower balance on a fixed cadence and fans each
// reading out to the registered callbacks in registration order.
type Updater struct {
	cg ctxutil.CloseGroup

	follower ConnectorFunc

	interval  time.Duration
	freshness time.Duration

	callbacks []balanceCallback

	mu         sync.Mutex
	lastUpdate time.Time

	// noConnectorNoted suppresses repeat no-connector warnings between
	// connector losses.
	noConnectorNoted bool
}

func NewUpdater(follower ConnectorFunc, interval, freshness time.Duration) *Updater {
	return &Updater{
		follower:  follower,
		interval:  interval,
		freshness: freshness,
	}
}

// AddCallback registers a balance consumer. Callbacks run synchronously on
// the tick loop in registration order; all callbacks must be added before
// Start.
func (u *Updater) AddCallback(name string, f BalanceFunc) {
	u.callbacks = append(u.callbacks, balanceCallback{name: name, f: f})
}

func (u *Updater) Start() {
	u.cg.Go(u.run)
}

func (u *Updater) Close() error {
	u.cg.Close()
	return nil
}

func (u *Updater) run(ctx context.Context) {
	for u.tick(ctx); ctx.Err() == nil; u.tick(ctx) {
		ctxutil.Sleep(ctx, u.interval)
	}
}

func (u *Updater) tick(ctx context.Context) {
	c := u.follower()
	if c == nil {
		if !u.noConnectorNoted {
			slog.WarnContext(ctx, "no follower connector; balance updates are paused")
			u.noConnectorNoted = true
		}
		return
	}
	u.noConnectorNoted = false

	balance, err := c.GetBalance(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.WarnContext(ctx, "could not fetch follower balance (will retry)", "error", err)
		}
		return
	}

	u.mu.Lock()
	u.lastUpdate = time.Now()
	u.mu.Unlock()

	// A callback failure is logged and must not abort the remaining
	// callbacks or the loop.
	for _, cb := range u.callbacks {
		if err := cb.f(ctx, balance); err != nil {
			slog.WarnContext(ctx, "balance callback failed (ignored)", "callback", cb.name, "error", err)
		}
	}
}

func (u *Updater) ServiceStatus() gobs.ServiceStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	return gobs.ServiceStatus{
		Healthy:        !u.lastUpdate.IsZero() && time.Since(u.lastUpdate) < u.freshness,
		LastUpdateTime: u.lastUpdate,
	}
}
