// Copyright (c) 2025 BVK Chaitanya

package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
)

func newTestWebsocket(leader, follower *fakeConnector) *TraderWebsocket {
	return NewTraderWebsocket(connectorFunc(leader), connectorFunc(follower), openGate, fixedMultiplier("0.5"), nil)
}

func accountUpdate(positions ...*connector.Position) *connector.UserEvent {
	return &connector.UserEvent{Type: "ACCOUNT_UPDATE", Positions: positions}
}

func orderUpdate(o *connector.Order) *connector.UserEvent {
	return &connector.UserEvent{Type: "ORDER_TRADE_UPDATE", Order: o}
}

func TestMarketFillToZeroClosesPosition(t *testing.T) {
	ctx := context.Background()
	follower := &fakeConnector{
		positions: []*connector.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(5)},
		},
	}
	w := newTestWebsocket(new(fakeConnector), follower)

	// The account update reports the leader's position at exactly zero, so
	// the market fill was a closing fill.
	w.handleEvent(ctx, accountUpdate(
		&connector.Position{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.Zero},
	))
	w.handleEvent(ctx, orderUpdate(&connector.Order{
		OrderID:      500,
		Symbol:       "BTCUSDT",
		Side:         "SELL",
		PositionSide: "LONG",
		Type:         "MARKET",
		Status:       "FILLED",
		Quantity:     decimal.NewFromInt(10),
	}))

	if len(follower.closedPositions) != 1 {
		t.Fatalf("wanted the follower position closed, got %v", follower.closedPositions)
	}
	if len(follower.createdOrders) != 0 {
		t.Fatalf("a closing fill must not replicate an order, got %v", follower.createdOrders)
	}
}

func TestMarketFillWithPositionReplicates(t *testing.T) {
	ctx := context.Background()
	follower := new(fakeConnector)
	w := newTestWebsocket(new(fakeConnector), follower)

	w.handleEvent(ctx, accountUpdate(
		&connector.Position{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(10)},
	))
	w.handleEvent(ctx, orderUpdate(&connector.Order{
		OrderID:      501,
		Symbol:       "BTCUSDT",
		Side:         "BUY",
		PositionSide: "LONG",
		Type:         "MARKET",
		Status:       "FILLED",
		Quantity:     decimal.NewFromInt(10),
	}))

	if len(follower.createdOrders) != 1 {
		t.Fatalf("wanted the opening fill replicated, got %v", follower.createdOrders)
	}
	replica := follower.createdOrders[0]
	if !replica.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("wanted quantity 5, got %s", replica.Quantity)
	}
	if replica.ClientOrderID != "501" {
		t.Fatalf("replica must carry the leader order id, got %q", replica.ClientOrderID)
	}
}

func TestMarketFillWithoutCachedPositionDropped(t *testing.T) {
	ctx := context.Background()
	follower := &fakeConnector{
		positions: []*connector.Position{
			{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(5)},
		},
	}
	w := newTestWebsocket(new(fakeConnector), follower)

	// No account update has been seen for this key, so the fill direction is
	// unknowable and the event must be dropped for reconciliation to handle.
	w.handleEvent(ctx, orderUpdate(&connector.Order{
		OrderID:      505,
		Symbol:       "BTCUSDT",
		Side:         "SELL",
		PositionSide: "LONG",
		Type:         "MARKET",
		Status:       "FILLED",
		Quantity:     decimal.NewFromInt(10),
	}))

	if n := follower.mutationCount(); n != 0 {
		t.Fatalf("a market fill with no cached position must not mutate the follower, got %d calls", n)
	}
}

func TestNewOrderReplicates(t *testing.T) {
	ctx := context.Background()
	follower := new(fakeConnector)
	w := newTestWebsocket(new(fakeConnector), follower)

	w.handleEvent(ctx, orderUpdate(&connector.Order{
		OrderID:      502,
		Symbol:       "ETHUSDT",
		Side:         "BUY",
		PositionSide: "LONG",
		Type:         "LIMIT",
		Status:       "NEW",
		Quantity:     decimal.NewFromInt(4),
		Price:        decimal.NewFromInt(2000),
		TimeInForce:  "GTC",
	}))

	if len(follower.createdOrders) != 1 {
		t.Fatalf("wanted the new limit order replicated, got %v", follower.createdOrders)
	}
	if follower.createdOrders[0].TimeInForce != "GTC" {
		t.Fatalf("replica lost time-in-force: %+v", follower.createdOrders[0])
	}
}

func TestCanceledOrderCancelsReplica(t *testing.T) {
	ctx := context.Background()
	follower := new(fakeConnector)
	w := newTestWebsocket(new(fakeConnector), follower)

	w.handleEvent(ctx, orderUpdate(&connector.Order{
		OrderID: 503,
		Symbol:  "ETHUSDT",
		Type:    "LIMIT",
		Status:  "CANCELED",
	}))

	if len(follower.canceledClientIDs) != 1 || follower.canceledClientIDs[0] != "503" {
		t.Fatalf("wanted cancel by client id 503, got %v", follower.canceledClientIDs)
	}
}

func TestIgnoredEvents(t *testing.T) {
	ctx := context.Background()
	follower := new(fakeConnector)
	w := newTestWebsocket(new(fakeConnector), follower)

	w.handleEvent(ctx, &connector.UserEvent{Type: "ACCOUNT_CONFIG_UPDATE"})
	w.handleEvent(ctx, &connector.UserEvent{Type: "MARGIN_CALL"})
	w.handleEvent(ctx, orderUpdate(&connector.Order{
		OrderID: 504,
		Symbol:  "ETHUSDT",
		Type:    "LIMIT",
		Status:  "PARTIALLY_FILLED",
	}))

	if n := follower.mutationCount(); n != 0 {
		t.Fatalf("ignored events must not mutate the follower, got %d calls", n)
	}
}
