// Copyright (c) 2025 BVK Chaitanya

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/ctxutil"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
)

// TraderPolling is the self-healing reconciliation pass. The event stream is
// best-effort and may miss messages; this service re-derives the correct
// follower state from full leader and follower snapshots on a fixed interval
// and repairs any divergence.
type TraderPolling struct {
	cg ctxutil.CloseGroup

	leader   ConnectorFunc
	follower ConnectorFunc

	gate func() bool

	multiplier func() decimal.Decimal

	interval time.Duration

	mu         sync.Mutex
	lastUpdate time.Time
}

func NewTraderPolling(leader, follower ConnectorFunc, gate func() bool, multiplier func() decimal.Decimal, interval time.Duration) *TraderPolling {
	return &TraderPolling{
		leader:     leader,
		follower:   follower,
		gate:       gate,
		multiplier: multiplier,
		interval:   interval,
	}
}

func (t *TraderPolling) Start() {
	t.cg.Go(t.run)
}

func (t *TraderPolling) Close() error {
	t.cg.Close()
	return nil
}

func (t *TraderPolling) run(ctx context.Context) {
	for ctxutil.Sleep(ctx, t.interval); ctx.Err() == nil; ctxutil.Sleep(ctx, t.interval) {
		if err := t.reconcile(ctx); err != nil {
			if ctx.Err() == nil {
				slog.WarnContext(ctx, "could not reconcile accounts (will retry)", "error", err)
			}
		}
	}
}

// reconcile runs one pass. Mutating calls race benignly against the event
// path; duplicate cancels and closes on already-empty state are no-ops on
// the venue side.
func (t *TraderPolling) reconcile(ctx context.Context) error {
	if !t.gate() {
		t.touch()
		return nil
	}

	leader, follower := t.leader(), t.follower()
	if leader == nil || follower == nil {
		t.touch()
		return nil
	}

	leaderPositions, err := leader.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch leader positions: %w", err)
	}
	leaderOrders, err := leader.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch leader orders: %w", err)
	}
	followerPositions, err := follower.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch follower positions: %w", err)
	}
	followerOrders, err := follower.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch follower orders: %w", err)
	}

	// Positions and orders only the follower has are drift and must go.
	for _, p := range connector.UniquePositions(followerPositions, leaderPositions) {
		if _, err := follower.ClosePosition(ctx, p); err != nil {
			slog.ErrorContext(ctx, "could not close drifted follower position (continuing)", "symbol", p.Symbol, "side", p.Side, "error", err)
			continue
		}
		slog.InfoContext(ctx, "closed drifted follower position", "symbol", p.Symbol, "side", p.Side)
	}
	for _, o := range connector.FollowerUniqueOrders(followerOrders, leaderOrders) {
		if err := follower.CancelOrder(ctx, o.Symbol, o.OrderID); err != nil {
			slog.ErrorContext(ctx, "could not cancel drifted follower order (continuing)", "symbol", o.Symbol, "order", o.OrderID, "error", err)
			continue
		}
		slog.InfoContext(ctx, "canceled drifted follower order", "symbol", o.Symbol, "order", o.OrderID)
	}

	// Leader orders with no follower replica are copied, unless the leader
	// holds a matching position that the follower deliberately lacks; such
	// position-dependent orders are skipped.
	leaderKeys := positionKeySet(leaderPositions)
	followerKeys := positionKeySet(followerPositions)
	for _, o := range connector.LeaderUniqueOrders(leaderOrders, followerOrders) {
		key := connector.PositionKey{Symbol: o.Symbol, Side: o.PositionSide}
		_, inLeader := leaderKeys[key]
		_, inFollower := followerKeys[key]
		if inLeader && !inFollower {
			slog.InfoContext(ctx, "skipping position-dependent leader order", "symbol", o.Symbol, "side", o.PositionSide, "order", o.OrderID)
			continue
		}
		spec := connector.ReplicaSpec(o, t.multiplier())
		if _, err := follower.CreateOrder(ctx, spec); err != nil {
			slog.ErrorContext(ctx, "could not replicate missing leader order (continuing)", "symbol", o.Symbol, "order", o.OrderID, "error", err)
			continue
		}
		slog.InfoContext(ctx, "replicated missing leader order", "symbol", o.Symbol, "order", o.OrderID)
	}

	t.touch()
	return nil
}

func (t *TraderPolling) touch() {
	t.mu.Lock()
	t.lastUpdate = time.Now()
	t.mu.Unlock()
}

func positionKeySet(positions []*connector.Position) map[connector.PositionKey]struct{} {
	keys := make(map[connector.PositionKey]struct{}, len(positions))
	for _, p := range positions {
		keys[p.Key()] = struct{}{}
	}
	return keys
}

func (t *TraderPolling) ServiceStatus() gobs.ServiceStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gobs.ServiceStatus{
		Healthy:        !t.lastUpdate.IsZero() && time.Since(t.lastUpdate) < 3*t.interval,
		LastUpdateTime: t.lastUpdate,
	}
}
