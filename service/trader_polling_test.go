// Copyright (c) 2025 BVK Chaitanya

package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
)

func newTestPolling(leader, follower *fakeConnector) *TraderPolling {
	return NewTraderPolling(connectorFunc(leader), connectorFunc(follower), openGate, fixedMultiplier("0.5"), 10*time.Second)
}

func TestReconcileRemovesDrift(t *testing.T) {
	ctx := context.Background()
	leader := &fakeConnector{
		positions: []*connector.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(10)},
		},
		orders: []*connector.Order{
			{OrderID: 100, Symbol: "BTCUSDT", Side: "BUY", PositionSide: "LONG", Type: "LIMIT", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(50000), TimeInForce: "GTC"},
		},
	}
	follower := &fakeConnector{
		positions: []*connector.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(5)},
			{Symbol: "DOGEUSDT", Side: "SHORT", Amount: decimal.NewFromInt(-7)},
		},
		orders: []*connector.Order{
			{OrderID: 900, ClientOrderID: "999", Symbol: "ETHUSDT"},
		},
	}

	p := newTestPolling(leader, follower)
	if err := p.reconcile(ctx); err != nil {
		t.Fatal(err)
	}

	// The DOGEUSDT short exists only on the follower and must be closed.
	if len(follower.closedPositions) != 1 || follower.closedPositions[0].Symbol != "DOGEUSDT" {
		t.Fatalf("wanted the drifted DOGEUSDT position closed, got %v", follower.closedPositions)
	}
	// The follower order with no matching leader id must be canceled.
	if len(follower.canceledOrders) != 1 || follower.canceledOrders[0] != 900 {
		t.Fatalf("wanted follower order 900 canceled, got %v", follower.canceledOrders)
	}
	// Leader order 100 has its position key in both accounts and must be
	// replicated with a scaled quantity.
	if len(follower.createdOrders) != 1 {
		t.Fatalf("wanted 1 replicated order, got %v", follower.createdOrders)
	}
	replica := follower.createdOrders[0]
	if replica.ClientOrderID != "100" {
		t.Fatalf("replica must carry the leader order id, got %q", replica.ClientOrderID)
	}
	if !replica.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("wanted quantity 5, got %s", replica.Quantity)
	}
}

func TestReconcileCopresenceRules(t *testing.T) {
	ctx := context.Background()

	// The leader holds a position the follower deliberately lacks; its
	// pending order must be skipped.
	leader := &fakeConnector{
		positions: []*connector.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(10)},
		},
		orders: []*connector.Order{
			{OrderID: 200, Symbol: "BTCUSDT", Side: "SELL", PositionSide: "LONG", Type: "LIMIT", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(70000), TimeInForce: "GTC"},
			{OrderID: 201, Symbol: "ETHUSDT", Side: "BUY", PositionSide: "LONG", Type: "LIMIT", Quantity: decimal.NewFromInt(4), Price: decimal.NewFromInt(2000), TimeInForce: "GTC"},
		},
	}
	follower := new(fakeConnector)

	p := newTestPolling(leader, follower)
	if err := p.reconcile(ctx); err != nil {
		t.Fatal(err)
	}

	// Order 200 is position-dependent (leader-only position) and skipped;
	// order 201's key is present in neither account and is copied.
	if len(follower.createdOrders) != 1 {
		t.Fatalf("wanted exactly 1 replicated order, got %v", follower.createdOrders)
	}
	if follower.createdOrders[0].ClientOrderID != "201" {
		t.Fatalf("wanted order 201 replicated, got %q", follower.createdOrders[0].ClientOrderID)
	}
}

func TestReconcileIdempotence(t *testing.T) {
	ctx := context.Background()
	leader := &fakeConnector{
		positions: []*connector.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(10)},
		},
		orders: []*connector.Order{
			{OrderID: 300, Symbol: "BTCUSDT", Side: "SELL", PositionSide: "LONG", Type: "LIMIT", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(70000), TimeInForce: "GTC"},
		},
	}
	// The follower mirrors the leader exactly: same position key and a
	// replica order carrying the leader's order id.
	follower := &fakeConnector{
		positions: []*connector.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(5)},
		},
		orders: []*connector.Order{
			{OrderID: 77, ClientOrderID: "300", Symbol: "BTCUSDT"},
		},
	}

	p := newTestPolling(leader, follower)
	if err := p.reconcile(ctx); err != nil {
		t.Fatal(err)
	}
	if n := follower.mutationCount(); n != 0 {
		t.Fatalf("converged state must produce zero mutating calls, got %d", n)
	}
	if err := p.reconcile(ctx); err != nil {
		t.Fatal(err)
	}
	if n := follower.mutationCount(); n != 0 {
		t.Fatalf("second pass must also produce zero mutating calls, got %d", n)
	}
}

func TestReconcileGateClosed(t *testing.T) {
	ctx := context.Background()
	leader := &fakeConnector{
		orders: []*connector.Order{
			{OrderID: 400, Symbol: "BTCUSDT", Side: "BUY", PositionSide: "LONG", Type: "LIMIT", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(50000), TimeInForce: "GTC"},
		},
	}
	follower := new(fakeConnector)

	closed := func() bool { return false }
	p := NewTraderPolling(connectorFunc(leader), connectorFunc(follower), closed, fixedMultiplier("1"), 10*time.Second)
	if err := p.reconcile(ctx); err != nil {
		t.Fatal(err)
	}
	if n := follower.mutationCount(); n != 0 {
		t.Fatalf("closed gate must produce zero mutating calls, got %d", n)
	}
}
