// Copyright (c) 2025 BVK Chaitanya

// Package connector defines the capability surface over a single trading
// venue. Services depend on this interface and never on a concrete venue
// adapter.
package connector

import (
	"context"
	"errors"
	"io"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPosition is returned by ClosePosition when the position
	// amount is already zero.
	ErrInvalidPosition = errors.New("position has no open amount")

	// ErrUnknownSymbol is returned by precision rounding when the venue has
	// no filter data for a symbol. Callers may proceed with the unrounded
	// value.
	ErrUnknownSymbol = errors.New("no precision data for symbol")
)

// Position is an open futures position. A zero Amount means the position
// does not exist.
type Position struct {
	Symbol string

	// Side is one of LONG, SHORT or BOTH (one-way mode).
	Side string

	// Amount is signed in one-way mode. Negative means short.
	Amount decimal.Decimal

	EntryPrice decimal.Decimal

	UnrealizedProfit decimal.Decimal
}

// PositionKey identifies a position for reconciliation purposes.
type PositionKey struct {
	Symbol string
	Side   string
}

func (p *Position) Key() PositionKey {
	return PositionKey{Symbol: p.Symbol, Side: p.Side}
}

// Order is a venue order. Leader orders are identified by the venue-assigned
// OrderID; replicated follower orders carry the leader's order id as their
// ClientOrderID, so cross-account correlation is a direct string match.
type Order struct {
	OrderID       int64
	ClientOrderID string

	Symbol string

	// Side is BUY or SELL.
	Side string

	// PositionSide is LONG, SHORT or BOTH.
	PositionSide string

	// Type is one of MARKET, LIMIT, STOP, STOP_MARKET, TAKE_PROFIT,
	// TAKE_PROFIT_MARKET or TRAILING_STOP_MARKET.
	Type string

	// Status is one of NEW, PARTIALLY_FILLED, FILLED, CANCELED or EXPIRED.
	Status string

	Quantity  decimal.Decimal
	Price     decimal.Decimal
	StopPrice decimal.Decimal

	ActivationPrice decimal.Decimal
	CallbackRate    decimal.Decimal

	TimeInForce   string
	ClosePosition bool
	ReduceOnly    bool
}

// OrderSpec describes an order to be placed. Only the fields relevant to the
// order Type need to be set; adapters pick request parameters from the spec
// based on the type.
type OrderSpec struct {
	Symbol       string
	Side         string
	PositionSide string
	Type         string

	ClientOrderID string

	Quantity  decimal.Decimal
	Price     decimal.Decimal
	StopPrice decimal.Decimal

	ActivationPrice decimal.Decimal
	CallbackRate    decimal.Decimal

	TimeInForce   string
	ClosePosition bool
}

// UserEvent is a normalized user-data-stream event. Exactly one of the
// payload fields is set based on the Type.
type UserEvent struct {
	// Type is ACCOUNT_UPDATE, ORDER_TRADE_UPDATE or ACCOUNT_CONFIG_UPDATE.
	Type string

	// Positions holds the position snapshots of an ACCOUNT_UPDATE.
	Positions []*Position

	// Order holds the order of an ORDER_TRADE_UPDATE.
	Order *Order
}

// UserStream is an open user-data-stream session.
type UserStream interface {
	io.Closer

	// NextEvent blocks for the next event. Returns os.ErrClosed after the
	// stream is closed.
	NextEvent(ctx context.Context) (*UserEvent, error)

	// Ping sends a transport keep-alive.
	Ping(ctx context.Context) error

	// Renew extends the session's access token before the venue expires it.
	Renew(ctx context.Context) error
}

// Connector is the uniform capability surface over one venue account.
type Connector interface {
	io.Closer

	ExchangeName() string

	// GetBalance returns the account's available futures balance.
	GetBalance(ctx context.Context) (decimal.Decimal, error)

	// OpenPositions returns positions with a nonzero amount.
	OpenPositions(ctx context.Context) ([]*Position, error)

	// OpenOrders returns all open orders across all symbols.
	OpenOrders(ctx context.Context) ([]*Order, error)

	// CreateOrder places a new order.
	CreateOrder(ctx context.Context, spec *OrderSpec) (*Order, error)

	// ClosePosition closes the given position with a market order. Returns
	// ErrInvalidPosition if the position amount is zero.
	ClosePosition(ctx context.Context, p *Position) (*Order, error)

	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	CancelOrderByClientID(ctx context.Context, symbol, clientOrderID string) error
	CancelAllOrders(ctx context.Context, symbol string) error

	// OpenUserStream opens a user-data-stream session. The session's access
	// token lifecycle (create, renew, close) is managed by the adapter.
	OpenUserStream(ctx context.Context) (UserStream, error)
}
