// Copyright (c) 2025 BVK Chaitanya

package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
)

func TestWardenZoneTransitions(t *testing.T) {
	ctx := context.Background()
	follower := new(fakeConnector)
	w := NewWarden(connectorFunc(follower), decimal.NewFromInt(5))
	defer w.Close()

	if w.Status() != Undetermined {
		t.Fatalf("initial status must be %s, got %s", Undetermined, w.Status())
	}

	// Status changes exactly when the balance zone changes.
	sequence := []struct {
		balance int64
		want    BalanceStatus
	}{
		{100, CanTrade},
		{80, CanTrade},
		{6, CanTrade},
		{4, CannotTrade},
		{3, CannotTrade},
		{10, CanTrade},
		{10, CanTrade},
	}
	for i, step := range sequence {
		if err := w.OnBalanceUpdate(ctx, decimal.NewFromInt(step.balance)); err != nil {
			t.Fatal(err)
		}
		if got := w.Status(); got != step.want {
			t.Fatalf("step %d (balance %d): wanted %s, got %s", i, step.balance, step.want, got)
		}
	}
}

func TestWardenSubscribeFunc(t *testing.T) {
	ctx := context.Background()
	w := NewWarden(connectorFunc(new(fakeConnector)), decimal.NewFromInt(5))
	defer w.Close()

	statusCh := make(chan BalanceStatus, 2)
	receiver, err := w.SubscribeFunc(func(v BalanceStatus) {
		statusCh <- v
	})
	if err != nil {
		t.Fatal(err)
	}
	defer receiver.Close()

	if err := w.OnBalanceUpdate(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := w.OnBalanceUpdate(ctx, decimal.NewFromInt(2)); err != nil {
		t.Fatal(err)
	}

	for _, want := range []BalanceStatus{CanTrade, CannotTrade} {
		select {
		case got := <-statusCh:
			if got != want {
				t.Fatalf("wanted %s, got %s", want, got)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s notification", want)
		}
	}
}

func TestWardenThresholdEquality(t *testing.T) {
	ctx := context.Background()
	w := NewWarden(connectorFunc(new(fakeConnector)), decimal.NewFromInt(5))
	defer w.Close()

	// A reading exactly at the threshold causes no transition.
	if err := w.OnBalanceUpdate(ctx, decimal.NewFromInt(5)); err != nil {
		t.Fatal(err)
	}
	if w.Status() != Undetermined {
		t.Fatalf("balance at threshold must not transition, got %s", w.Status())
	}
}

func TestWardenStopTradeOnce(t *testing.T) {
	ctx := context.Background()
	follower := &fakeConnector{
		positions: []*connector.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(2)},
			{Symbol: "ETHUSDT", Side: "SHORT", Amount: decimal.NewFromInt(-3)},
		},
		orders: []*connector.Order{
			{OrderID: 1, Symbol: "BTCUSDT"},
			{OrderID: 2, Symbol: "BTCUSDT"},
			{OrderID: 3, Symbol: "XRPUSDT"},
		},
	}
	w := NewWarden(connectorFunc(follower), decimal.NewFromInt(5))
	defer w.Close()

	if err := w.OnBalanceUpdate(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}
	// The drop fires the stop-trade procedure exactly once even with
	// repeated below-threshold readings.
	for _, balance := range []int64{4, 3, 2} {
		if err := w.OnBalanceUpdate(ctx, decimal.NewFromInt(balance)); err != nil {
			t.Fatal(err)
		}
	}

	if len(follower.closedPositions) != 2 {
		t.Fatalf("wanted 2 closed positions, got %v", follower.closedPositions)
	}
	if len(follower.canceledAll) != 2 {
		t.Fatalf("wanted one cancel-all per distinct symbol, got %v", follower.canceledAll)
	}
}

func TestWardenThresholdUpdate(t *testing.T) {
	ctx := context.Background()
	follower := &fakeConnector{
		positions: []*connector.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(2)},
		},
	}
	w := NewWarden(connectorFunc(follower), decimal.NewFromInt(5))
	defer w.Close()

	if err := w.OnBalanceUpdate(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}
	if w.Status() != CanTrade {
		t.Fatalf("wanted %s, got %s", CanTrade, w.Status())
	}

	// A threshold change resets the status without running stop-trade.
	w.SetThreshold(decimal.NewFromInt(50))
	if w.Status() != Undetermined {
		t.Fatalf("threshold update must reset status to %s, got %s", Undetermined, w.Status())
	}
	if n := follower.mutationCount(); n != 0 {
		t.Fatalf("threshold update must not mutate the account, got %d calls", n)
	}

	// Setting the same threshold again is a no-op.
	if err := w.OnBalanceUpdate(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}
	w.SetThreshold(decimal.NewFromInt(50))
	if w.Status() != CanTrade {
		t.Fatalf("unchanged threshold must not reset status, got %s", w.Status())
	}
}
