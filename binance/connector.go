// Copyright (c) 2025 BVK Chaitanya

package binance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
)

const ExchangeName = "binance"

func init() {
	f := func(ctx context.Context, key, secret string) (connector.Connector, error) {
		return New(ctx, key, secret, nil)
	}
	if err := connector.Register(ExchangeName, f); err != nil {
		panic(err)
	}
}

// Connector adapts the futures REST client to the venue capability
// interface.
type Connector struct {
	client *Client
}

// New creates a connector over the futures account identified by the api
// credentials.
func New(ctx context.Context, key, secret string, opts *Options) (*Connector, error) {
	client, err := NewClient(ctx, key, secret, opts)
	if err != nil {
		return nil, err
	}
	return &Connector{client: client}, nil
}

func (c *Connector) Close() error {
	return c.client.Close()
}

func (c *Connector) ExchangeName() string {
	return ExchangeName
}

// GetBalance returns the available USDT futures balance.
func (c *Connector) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	balances, err := c.client.getBalances(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	for _, b := range balances {
		if b.Asset == "USDT" {
			return b.AvailableBalance, nil
		}
	}
	return decimal.Decimal{}, nil
}

func (c *Connector) OpenPositions(ctx context.Context) ([]*connector.Position, error) {
	risks, err := c.client.getPositionRisk(ctx)
	if err != nil {
		return nil, err
	}
	var positions []*connector.Position
	for _, r := range risks {
		if r.PositionAmt.IsZero() {
			continue
		}
		positions = append(positions, &connector.Position{
			Symbol:           r.Symbol,
			Side:             r.PositionSide,
			Amount:           r.PositionAmt,
			EntryPrice:       r.EntryPrice,
			UnrealizedProfit: r.UnrealizedProfit,
		})
	}
	return positions, nil
}

func (c *Connector) OpenOrders(ctx context.Context) ([]*connector.Order, error) {
	resp, err := c.client.getOpenOrders(ctx)
	if err != nil {
		return nil, err
	}
	orders := make([]*connector.Order, 0, len(resp))
	for _, o := range resp {
		orders = append(orders, toOrder(o))
	}
	return orders, nil
}

func (c *Connector) CreateOrder(ctx context.Context, spec *connector.OrderSpec) (*connector.Order, error) {
	values, err := c.orderValues(spec)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.createOrder(ctx, values)
	if err != nil {
		return nil, err
	}
	return toOrder(resp), nil
}

// ClosePosition flattens the position with an opposite-side market order.
func (c *Connector) ClosePosition(ctx context.Context, p *connector.Position) (*connector.Order, error) {
	if p.Amount.IsZero() {
		return nil, fmt.Errorf("%s %s: %w", p.Symbol, p.Side, connector.ErrInvalidPosition)
	}

	spec := &connector.OrderSpec{
		Symbol:        p.Symbol,
		Side:          closeSide(p),
		PositionSide:  p.Side,
		Type:          "MARKET",
		Quantity:      p.Amount.Abs(),
		ClientOrderID: uuid.NewString(),
	}
	order, err := c.CreateOrder(ctx, spec)
	if err != nil {
		if isBenignRejection(err) {
			slog.DebugContext(ctx, "position is already flat; close is a no-op", "symbol", p.Symbol, "side", p.Side)
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// isBenignRejection reports venue rejections that mean the order or position
// is already gone. The event path and the reconciliation pass race against
// each other; whichever loses gets one of these codes back.
func isBenignRejection(err error) bool {
	apiErr := new(APIError)
	if errors.As(err, &apiErr) {
		return apiErr.Code == errCodeUnknownOrder || apiErr.Code == errCodeReduceRejected
	}
	return false
}

// closeSide returns the order side that flattens the position. The side is
// the opposite of the position amount's sign.
func closeSide(p *connector.Position) string {
	if p.Amount.IsNegative() {
		return "BUY"
	}
	return "SELL"
}

func (c *Connector) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	values := make(url.Values)
	values.Set("symbol", symbol)
	values.Set("orderId", strconv.FormatInt(orderID, 10))
	if err := c.client.cancelOrder(ctx, values); err != nil {
		if isBenignRejection(err) {
			slog.DebugContext(ctx, "order is already gone; cancel is a no-op", "symbol", symbol, "order", orderID)
			return nil
		}
		return err
	}
	return nil
}

func (c *Connector) CancelOrderByClientID(ctx context.Context, symbol, clientOrderID string) error {
	values := make(url.Values)
	values.Set("symbol", symbol)
	values.Set("origClientOrderId", clientOrderID)
	if err := c.client.cancelOrder(ctx, values); err != nil {
		if isBenignRejection(err) {
			slog.DebugContext(ctx, "order is already gone; cancel is a no-op", "symbol", symbol, "client-order", clientOrderID)
			return nil
		}
		return err
	}
	return nil
}

func (c *Connector) CancelAllOrders(ctx context.Context, symbol string) error {
	return c.client.cancelAllOpenOrders(ctx, symbol)
}

// orderValues builds the create-order request parameters. Prices and
// quantities are rounded through the exchange-info precision table; an
// unknown symbol is logged and the unrounded values are sent as-is.
func (c *Connector) orderValues(spec *connector.OrderSpec) (url.Values, error) {
	values := make(url.Values)
	values.Set("symbol", spec.Symbol)
	values.Set("side", spec.Side)
	values.Set("type", spec.Type)
	if len(spec.PositionSide) > 0 {
		values.Set("positionSide", spec.PositionSide)
	}
	if len(spec.ClientOrderID) > 0 {
		values.Set("newClientOrderId", spec.ClientOrderID)
	}

	setQuantity := func() {
		quantity, err := c.client.RoundQuantity(spec.Symbol, spec.Quantity)
		if err != nil && errors.Is(err, connector.ErrUnknownSymbol) {
			slog.Warn("could not round quantity (sending as-is)", "symbol", spec.Symbol, "error", err)
		}
		values.Set("quantity", quantity.String())
	}
	setPrice := func(name string, price decimal.Decimal) {
		rounded, err := c.client.RoundPrice(spec.Symbol, price)
		if err != nil && errors.Is(err, connector.ErrUnknownSymbol) {
			slog.Warn("could not round price (sending as-is)", "symbol", spec.Symbol, "error", err)
		}
		values.Set(name, rounded.String())
	}

	switch spec.Type {
	case "MARKET":
		setQuantity()
	case "LIMIT":
		setQuantity()
		setPrice("price", spec.Price)
		values.Set("timeInForce", spec.TimeInForce)
	case "STOP", "TAKE_PROFIT":
		setQuantity()
		setPrice("price", spec.Price)
		setPrice("stopPrice", spec.StopPrice)
	case "STOP_MARKET":
		setPrice("stopPrice", spec.StopPrice)
		if spec.ClosePosition {
			values.Set("closePosition", "true")
		} else {
			setQuantity()
		}
	case "TAKE_PROFIT_MARKET":
		setPrice("stopPrice", spec.StopPrice)
		if spec.ClosePosition {
			values.Set("closePosition", "true")
		} else {
			setQuantity()
		}
	case "TRAILING_STOP_MARKET":
		setQuantity()
		if !spec.ActivationPrice.IsZero() {
			setPrice("activationPrice", spec.ActivationPrice)
		}
		values.Set("callbackRate", spec.CallbackRate.String())
	default:
		return nil, fmt.Errorf("unsupported order type %q", spec.Type)
	}
	return values, nil
}

func toOrder(o *OrderType) *connector.Order {
	return &connector.Order{
		OrderID:         o.OrderID,
		ClientOrderID:   o.ClientOrderID,
		Symbol:          o.Symbol,
		Side:            o.Side,
		PositionSide:    o.PositionSide,
		Type:            o.Type,
		Status:          o.Status,
		Quantity:        o.OrigQty,
		Price:           o.Price,
		StopPrice:       o.StopPrice,
		ActivationPrice: o.ActivatePrice,
		CallbackRate:    o.PriceRate,
		TimeInForce:     o.TimeInForce,
		ClosePosition:   o.ClosePosition,
		ReduceOnly:      o.ReduceOnly,
	}
}
