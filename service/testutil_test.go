// Copyright (c) 2025 BVK Chaitanya

package service

import (
	"context"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
)

// fakeConnector is an in-memory venue with recorded mutations.
type fakeConnector struct {
	mu sync.Mutex

	balance   decimal.Decimal
	positions []*connector.Position
	orders    []*connector.Order

	closedPositions   []connector.PositionKey
	createdOrders     []*connector.OrderSpec
	canceledOrders    []int64
	canceledClientIDs []string
	canceledAll       []string
}

func (f *fakeConnector) Close() error { return nil }

func (f *fakeConnector) ExchangeName() string { return "fake" }

func (f *fakeConnector) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeConnector) OpenPositions(ctx context.Context) ([]*connector.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*connector.Position(nil), f.positions...), nil
}

func (f *fakeConnector) OpenOrders(ctx context.Context) ([]*connector.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*connector.Order(nil), f.orders...), nil
}

func (f *fakeConnector) CreateOrder(ctx context.Context, spec *connector.OrderSpec) (*connector.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdOrders = append(f.createdOrders, spec)
	return &connector.Order{Symbol: spec.Symbol, ClientOrderID: spec.ClientOrderID}, nil
}

func (f *fakeConnector) ClosePosition(ctx context.Context, p *connector.Position) (*connector.Order, error) {
	if p.Amount.IsZero() {
		return nil, connector.ErrInvalidPosition
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedPositions = append(f.closedPositions, p.Key())
	return &connector.Order{Symbol: p.Symbol}, nil
}

func (f *fakeConnector) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceledOrders = append(f.canceledOrders, orderID)
	return nil
}

func (f *fakeConnector) CancelOrderByClientID(ctx context.Context, symbol, clientOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceledClientIDs = append(f.canceledClientIDs, clientOrderID)
	return nil
}

func (f *fakeConnector) CancelAllOrders(ctx context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceledAll = append(f.canceledAll, symbol)
	return nil
}

func (f *fakeConnector) OpenUserStream(ctx context.Context) (connector.UserStream, error) {
	return nil, os.ErrInvalid
}

func (f *fakeConnector) mutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.closedPositions) + len(f.createdOrders) + len(f.canceledOrders) + len(f.canceledClientIDs) + len(f.canceledAll)
}

func connectorFunc(f *fakeConnector) ConnectorFunc {
	return func() connector.Connector {
		if f == nil {
			return nil
		}
		return f
	}
}

func openGate() bool { return true }

func fixedMultiplier(s string) func() decimal.Decimal {
	m := decimal.RequireFromString(s)
	return func() decimal.Decimal { return m }
}
