// Copyright (c) 2025 BVK Chaitanya

package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
)

// ConnectorFunc resolves the current live connector for one role. Returns
// nil when the connector is not configured. Services hold this indirection
// instead of a connector so credential changes need no re-plumbing.
type ConnectorFunc func() connector.Connector

// Warden is the balance-threshold safety state machine. When the follower
// balance crosses below the threshold it halts trading and forces the
// follower account flat.
type Warden struct {
	follower ConnectorFunc

	statusTopic *topic.Topic[BalanceStatus]

	// mu serializes transitions and the stop-trade procedure. Concurrent
	// balance readings must not interleave transition application.
	mu         sync.Mutex
	status     BalanceStatus
	threshold  decimal.Decimal
	lastUpdate time.Time
}

func NewWarden(follower ConnectorFunc, threshold decimal.Decimal) *Warden {
	return &Warden{
		follower:    follower,
		statusTopic: topic.New[BalanceStatus](),
		status:      Undetermined,
		threshold:   threshold,
	}
}

func (w *Warden) Close() error {
	w.statusTopic.Close()
	return nil
}

func (w *Warden) Status() BalanceStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Subscribe returns a receiver for status change notifications. Only actual
// transitions are published; repeated readings in the same zone are silent.
func (w *Warden) Subscribe() (*topic.Receiver[BalanceStatus], error) {
	return topic.Subscribe(w.statusTopic, 1, true)
}

// SubscribeFunc invokes fn on every status transition. The callback runs on
// the topic's delivery path and must not block; dispatch slow work on a
// separate goroutine.
func (w *Warden) SubscribeFunc(fn func(BalanceStatus)) (*topic.Receiver[BalanceStatus], error) {
	convert := func(v BalanceStatus) BalanceStatus {
		fn(v)
		return v
	}
	return topic.SubscribeFunc(w.statusTopic, convert, 1, false)
}

// SetThreshold replaces the threshold. The previous comparison result is no
// longer meaningful, so the status falls back to Undetermined. The
// stop-trade procedure never runs on this path.
func (w *Warden) SetThreshold(threshold decimal.Decimal) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.threshold.Equal(threshold) {
		return
	}
	w.threshold = threshold
	if w.status != Undetermined {
		w.status = Undetermined
		w.statusTopic.Send(Undetermined)
	}
}

// OnBalanceUpdate applies one balance reading. A reading strictly below the
// threshold halts trading and flattens the follower account; a reading
// strictly above re-enables trading. A reading exactly at the threshold
// causes no transition.
func (w *Warden) OnBalanceUpdate(ctx context.Context, balance decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastUpdate = time.Now()

	switch {
	case balance.LessThan(w.threshold) && w.status != CannotTrade:
		slog.WarnContext(ctx, "follower balance dropped below threshold; halting trading", "balance", balance, "threshold", w.threshold)
		w.status = CannotTrade
		w.statusTopic.Send(CannotTrade)
		w.stopTrade(ctx)

	case balance.GreaterThan(w.threshold) && w.status != CanTrade:
		slog.InfoContext(ctx, "follower balance is above threshold; trading enabled", "balance", balance, "threshold", w.threshold)
		w.status = CanTrade
		w.statusTopic.Send(CanTrade)
	}
	return nil
}

// stopTrade closes every open position, then cancels open orders with one
// cancel-all call per distinct symbol. Each call is isolated; one symbol's
// failure does not stop the rest.
func (w *Warden) stopTrade(ctx context.Context) {
	c := w.follower()
	if c == nil {
		slog.WarnContext(ctx, "no follower connector; cannot run the stop-trade procedure")
		return
	}

	positions, err := c.OpenPositions(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "could not fetch follower positions for stop-trade", "error", err)
	}
	for _, p := range positions {
		if _, err := c.ClosePosition(ctx, p); err != nil {
			slog.ErrorContext(ctx, "could not close follower position (continuing)", "symbol", p.Symbol, "side", p.Side, "error", err)
		}
	}

	orders, err := c.OpenOrders(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "could not fetch follower orders for stop-trade", "error", err)
	}
	for _, symbol := range orderSymbols(orders) {
		if err := c.CancelAllOrders(ctx, symbol); err != nil {
			slog.ErrorContext(ctx, "could not cancel follower orders (continuing)", "symbol", symbol, "error", err)
		}
	}
}

// orderSymbols returns the distinct symbols in order of first appearance.
func orderSymbols(orders []*connector.Order) []string {
	var symbols []string
	seen := make(map[string]struct{})
	for _, o := range orders {
		if _, ok := seen[o.Symbol]; !ok {
			seen[o.Symbol] = struct{}{}
			symbols = append(symbols, o.Symbol)
		}
	}
	return symbols
}

// ServiceStatus reports the warden's health from its last balance reading.
func (w *Warden) ServiceStatus(freshness time.Duration) gobs.ServiceStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return gobs.ServiceStatus{
		Healthy:        !w.lastUpdate.IsZero() && time.Since(w.lastUpdate) < freshness,
		LastUpdateTime: w.lastUpdate,
	}
}
