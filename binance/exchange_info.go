// Copyright (c) 2025 BVK Chaitanya

package binance

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
)

// SymbolFilterData holds the rounding steps for one symbol from the
// exchange-info filters.
type SymbolFilterData struct {
	PriceTick    decimal.Decimal
	QuantityStep decimal.Decimal
}

func (c *Client) refreshExchangeInfo(ctx context.Context) error {
	resp := new(ExchangeInfoResponse)
	if err := c.do(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false, resp); err != nil {
		return err
	}

	symbols := make(map[string]*SymbolFilterData, len(resp.Symbols))
	for _, s := range resp.Symbols {
		data := new(SymbolFilterData)
		for _, f := range s.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				data.PriceTick = f.TickSize
			case "LOT_SIZE":
				data.QuantityStep = f.StepSize
			}
		}
		symbols[s.Symbol] = data
	}

	c.mu.Lock()
	c.symbols = symbols
	c.mu.Unlock()
	return nil
}

func (c *Client) symbolFilters(symbol string) (*SymbolFilterData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.symbols[symbol]
	return data, ok
}

// floorToStep rounds v down to a multiple of step. Returns v unchanged when
// step is zero.
func floorToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

// RoundPrice rounds a price down to the symbol's tick size. Returns the
// input value with connector.ErrUnknownSymbol when the symbol has no filter
// data; callers may proceed with the unrounded value.
func (c *Client) RoundPrice(symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	data, ok := c.symbolFilters(symbol)
	if !ok {
		return price, fmt.Errorf("%q: %w", symbol, connector.ErrUnknownSymbol)
	}
	return floorToStep(price, data.PriceTick), nil
}

// RoundQuantity rounds a quantity down to the symbol's lot step size.
func (c *Client) RoundQuantity(symbol string, quantity decimal.Decimal) (decimal.Decimal, error) {
	data, ok := c.symbolFilters(symbol)
	if !ok {
		return quantity, fmt.Errorf("%q: %w", symbol, connector.ErrUnknownSymbol)
	}
	return floorToStep(quantity, data.QuantityStep), nil
}
