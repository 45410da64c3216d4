// Copyright (c) 2025 BVK Chaitanya

package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/ctxutil"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/syncmap"
)

var errSessionRestart = errors.New("user stream session restart requested")

// TraderWebsocket mirrors the leader account's user-stream events onto the
// follower account. It owns the session lifecycle (renewal, keep-alive,
// periodic restart) and a per-session cache of the leader's last known
// position amounts.
type TraderWebsocket struct {
	cg ctxutil.CloseGroup

	leader   ConnectorFunc
	follower ConnectorFunc

	// gate is the composite mirroring precondition. Events arriving while
	// the gate is closed are dropped, not queued.
	gate func() bool

	multiplier func() decimal.Decimal

	opts Options

	// positions caches the leader's last known amount per (symbol, side).
	// Replaced wholesale on every session start.
	positions atomic.Pointer[syncmap.Map[connector.PositionKey, decimal.Decimal]]

	restartCh chan struct{}

	sessionOpen atomic.Bool

	mu        sync.Mutex
	lastEvent time.Time
}

func NewTraderWebsocket(leader, follower ConnectorFunc, gate func() bool, multiplier func() decimal.Decimal, opts *Options) *TraderWebsocket {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	t := &TraderWebsocket{
		leader:     leader,
		follower:   follower,
		gate:       gate,
		multiplier: multiplier,
		opts:       *opts,
		restartCh:  make(chan struct{}, 1),
	}
	t.positions.Store(new(syncmap.Map[connector.PositionKey, decimal.Decimal]))
	return t
}

func (t *TraderWebsocket) Start() {
	t.cg.Go(t.run)
}

func (t *TraderWebsocket) Close() error {
	t.cg.Close()
	return nil
}

// Restart forces the current session to close and reopen. Used when trader
// settings or the leader connector change.
func (t *TraderWebsocket) Restart() {
	select {
	case t.restartCh <- struct{}{}:
	default:
	}
}

func (t *TraderWebsocket) run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := t.session(ctx); err != nil && ctx.Err() == nil {
			if !errors.Is(err, errSessionRestart) {
				slog.WarnContext(ctx, "user stream session closed (will retry)", "error", err)
				ctxutil.Sleep(ctx, time.Second)
			}
		}
	}
}

// session opens one user-stream session and pumps its events until the
// session fails, a restart is requested or the service stops. The previous
// session is always closed (best-effort) before a new one opens.
func (t *TraderWebsocket) session(ctx context.Context) error {
	leader := t.leader()
	if leader == nil {
		// Wait for a leader connector to be configured.
		ctxutil.Sleep(ctx, time.Second)
		return nil
	}

	stream, err := leader.OpenUserStream(ctx)
	if err != nil {
		ctxutil.Sleep(ctx, time.Second)
		return err
	}
	defer func() {
		if err := stream.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			slog.WarnContext(ctx, "could not close user stream session (ignored)", "error", err)
		}
	}()

	// The cached position amounts belong to the previous session.
	t.positions.Store(new(syncmap.Map[connector.PositionKey, decimal.Decimal]))

	t.sessionOpen.Store(true)
	defer t.sessionOpen.Store(false)

	sctx, scancel := context.WithCancelCause(ctx)

	// Deferred in this order so that on return the event channel closes
	// first, then the session context is canceled, then all goroutines are
	// awaited.
	var wg sync.WaitGroup
	defer wg.Wait()
	defer scancel(os.ErrClosed)

	// Bounded worker pool so one slow handler cannot stall receipt of
	// subsequent events. Per-symbol ordering across workers is not
	// guaranteed; the reconciliation pass corrects any resulting drift.
	eventCh := make(chan *connector.UserEvent, t.opts.EventWorkerCount)
	defer close(eventCh)
	for i := 0; i < t.opts.EventWorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventCh {
				t.handleEvent(sctx, event)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctxutil.Sleep(sctx, t.opts.SessionRenewInterval); sctx.Err() == nil; ctxutil.Sleep(sctx, t.opts.SessionRenewInterval) {
			if err := stream.Renew(sctx); err != nil && sctx.Err() == nil {
				slog.WarnContext(sctx, "could not renew session token (will retry)", "error", err)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctxutil.Sleep(sctx, t.opts.SessionPingInterval); sctx.Err() == nil; ctxutil.Sleep(sctx, t.opts.SessionPingInterval) {
			if err := stream.Ping(sctx); err != nil && sctx.Err() == nil {
				slog.WarnContext(sctx, "could not ping user stream (will retry)", "error", err)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		restartTimer := time.NewTimer(t.opts.SessionRestartInterval)
		defer restartTimer.Stop()
		select {
		case <-sctx.Done():
		case <-restartTimer.C:
			slog.InfoContext(sctx, "restarting user stream session on schedule")
			scancel(errSessionRestart)
		case <-t.restartCh:
			slog.InfoContext(sctx, "restarting user stream session on request")
			scancel(errSessionRestart)
		}
	}()

	for sctx.Err() == nil {
		event, err := stream.NextEvent(sctx)
		if err != nil {
			if cause := context.Cause(sctx); cause != nil && ctx.Err() == nil {
				return cause
			}
			return err
		}

		t.mu.Lock()
		t.lastEvent = time.Now()
		t.mu.Unlock()

		if !t.gate() {
			slog.DebugContext(sctx, "mirroring gate is closed; dropping event", "type", event.Type)
			continue
		}
		select {
		case eventCh <- event:
		case <-sctx.Done():
		}
	}
	return context.Cause(sctx)
}

// handleEvent translates one leader event into zero or one follower action.
func (t *TraderWebsocket) handleEvent(ctx context.Context, event *connector.UserEvent) {
	switch event.Type {
	case "ACCOUNT_UPDATE":
		positions := t.positions.Load()
		for _, p := range event.Positions {
			positions.Store(p.Key(), p.Amount)
		}

	case "ORDER_TRADE_UPDATE":
		if event.Order != nil {
			t.handleOrderUpdate(ctx, event.Order)
		}

	case "ACCOUNT_CONFIG_UPDATE":
		// Received and intentionally ignored.

	default:
		slog.DebugContext(ctx, "dropping unrecognized user stream event", "type", event.Type)
	}
}

func (t *TraderWebsocket) handleOrderUpdate(ctx context.Context, order *connector.Order) {
	switch {
	case order.Type == "MARKET" && order.Status == "FILLED":
		key := connector.PositionKey{Symbol: order.Symbol, Side: order.PositionSide}
		amount, ok := t.positions.Load().Load(key)
		if !ok {
			// Without a cached amount we cannot tell an opening fill from a
			// closing one. Drop the event; the reconciliation pass repairs
			// any resulting drift.
			slog.WarnContext(ctx, "no cached position amount for market fill; dropping event", "symbol", order.Symbol, "side", order.PositionSide)
			return
		}
		if amount.IsZero() {
			// The fill flattened the leader's position.
			t.closeFollowerPosition(ctx, key)
			return
		}
		t.replicateOrder(ctx, order)

	case order.Status == "NEW" && order.Type != "MARKET":
		t.replicateOrder(ctx, order)

	case order.Status == "CANCELED" || order.Status == "EXPIRED":
		t.cancelFollowerOrder(ctx, order)

	default:
		slog.DebugContext(ctx, "dropping order update", "symbol", order.Symbol, "type", order.Type, "status", order.Status)
	}
}

func (t *TraderWebsocket) replicateOrder(ctx context.Context, order *connector.Order) {
	follower := t.follower()
	if follower == nil {
		return
	}
	spec := connector.ReplicaSpec(order, t.multiplier())
	if _, err := follower.CreateOrder(ctx, spec); err != nil {
		if ctx.Err() == nil {
			slog.ErrorContext(ctx, "could not replicate leader order", "symbol", order.Symbol, "type", order.Type, "leader-order", order.OrderID, "error", err)
		}
		return
	}
	slog.InfoContext(ctx, "replicated leader order", "symbol", order.Symbol, "type", order.Type, "leader-order", order.OrderID)
}

func (t *TraderWebsocket) cancelFollowerOrder(ctx context.Context, order *connector.Order) {
	follower := t.follower()
	if follower == nil {
		return
	}
	clientOrderID := strconv.FormatInt(order.OrderID, 10)
	if err := follower.CancelOrderByClientID(ctx, order.Symbol, clientOrderID); err != nil {
		if ctx.Err() == nil {
			// The follower may have no matching order; racing the polling
			// pass makes that a benign no-op.
			slog.WarnContext(ctx, "could not cancel follower order (ignored)", "symbol", order.Symbol, "client-order", clientOrderID, "error", err)
		}
		return
	}
	slog.InfoContext(ctx, "canceled follower order", "symbol", order.Symbol, "client-order", clientOrderID)
}

func (t *TraderWebsocket) closeFollowerPosition(ctx context.Context, key connector.PositionKey) {
	follower := t.follower()
	if follower == nil {
		return
	}
	positions, err := follower.OpenPositions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.ErrorContext(ctx, "could not fetch follower positions", "error", err)
		}
		return
	}
	for _, p := range positions {
		if p.Key() == key {
			if _, err := follower.ClosePosition(ctx, p); err != nil {
				slog.ErrorContext(ctx, "could not close follower position", "symbol", p.Symbol, "side", p.Side, "error", err)
				return
			}
			slog.InfoContext(ctx, "closed follower position", "symbol", p.Symbol, "side", p.Side)
			return
		}
	}
	slog.InfoContext(ctx, "follower has no position to close", "symbol", key.Symbol, "side", key.Side)
}

// ServiceStatus reports health as session liveness.
func (t *TraderWebsocket) ServiceStatus() gobs.ServiceStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gobs.ServiceStatus{
		Healthy:        t.sessionOpen.Load(),
		LastUpdateTime: t.lastEvent,
	}
}
