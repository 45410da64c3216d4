// Copyright (c) 2025 BVK Chaitanya

package binance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
)

func testConnector() *Connector {
	opts := new(Options)
	opts.setDefaults()
	client := &Client{
		opts: *opts,
		symbols: map[string]*SymbolFilterData{
			"BTCUSDT": {
				PriceTick:    decimal.RequireFromString("0.1"),
				QuantityStep: decimal.RequireFromString("0.001"),
			},
		},
	}
	return &Connector{client: client}
}

func TestRoundingFloorsToStep(t *testing.T) {
	c := testConnector()

	price, err := c.client.RoundPrice("BTCUSDT", decimal.RequireFromString("65123.456"))
	if err != nil {
		t.Fatal(err)
	}
	if want := decimal.RequireFromString("65123.4"); !price.Equal(want) {
		t.Fatalf("wanted price %s, got %s", want, price)
	}

	quantity, err := c.client.RoundQuantity("BTCUSDT", decimal.RequireFromString("0.12345"))
	if err != nil {
		t.Fatal(err)
	}
	if want := decimal.RequireFromString("0.123"); !quantity.Equal(want) {
		t.Fatalf("wanted quantity %s, got %s", want, quantity)
	}
}

func TestRoundingUnknownSymbol(t *testing.T) {
	c := testConnector()

	in := decimal.RequireFromString("1.23456")
	out, err := c.client.RoundQuantity("NOPEUSDT", in)
	if err == nil {
		t.Fatalf("wanted an unknown-symbol error")
	}
	if !out.Equal(in) {
		t.Fatalf("unknown symbol must return input unchanged, got %s", out)
	}
}

func TestOrderValues(t *testing.T) {
	c := testConnector()

	limit := &connector.OrderSpec{
		Symbol:        "BTCUSDT",
		Side:          "BUY",
		PositionSide:  "LONG",
		Type:          "LIMIT",
		ClientOrderID: "12345",
		Quantity:      decimal.RequireFromString("0.5"),
		Price:         decimal.RequireFromString("60000"),
		TimeInForce:   "GTC",
	}
	values, err := c.orderValues(limit)
	if err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]string{
		"symbol":           "BTCUSDT",
		"side":             "BUY",
		"positionSide":     "LONG",
		"type":             "LIMIT",
		"newClientOrderId": "12345",
		"quantity":         "0.5",
		"price":            "60000",
		"timeInForce":      "GTC",
	} {
		if v := values.Get(key); v != want {
			t.Fatalf("wanted %s=%s, got %q", key, want, v)
		}
	}

	tpm := &connector.OrderSpec{
		Symbol:        "BTCUSDT",
		Side:          "SELL",
		PositionSide:  "LONG",
		Type:          "TAKE_PROFIT_MARKET",
		StopPrice:     decimal.RequireFromString("70000"),
		ClosePosition: true,
	}
	values, err = c.orderValues(tpm)
	if err != nil {
		t.Fatal(err)
	}
	if v := values.Get("closePosition"); v != "true" {
		t.Fatalf("wanted closePosition=true, got %q", v)
	}
	if values.Has("quantity") {
		t.Fatalf("close-position order must not carry a quantity")
	}

	if _, err := c.orderValues(&connector.OrderSpec{Type: "LIQUIDATION"}); err == nil {
		t.Fatalf("wanted an error for an unsupported order type")
	}
}

func TestBenignRejection(t *testing.T) {
	unknown := &APIError{Code: errCodeUnknownOrder, Message: "Unknown order sent.", Status: 400}
	if !isBenignRejection(unknown) {
		t.Fatalf("unknown-order rejection must be benign")
	}
	reduce := &APIError{Code: errCodeReduceRejected, Message: "ReduceOnly Order is rejected.", Status: 400}
	if !isBenignRejection(fmt.Errorf("could not close position: %w", reduce)) {
		t.Fatalf("wrapped reduce-rejected rejection must be benign")
	}
	if isBenignRejection(&APIError{Code: -1000, Status: 500}) {
		t.Fatalf("unrelated api errors must not be benign")
	}
	if isBenignRejection(errors.New("connection refused")) {
		t.Fatalf("transport errors must not be benign")
	}
}

func TestClosePositionSides(t *testing.T) {
	long := &connector.Position{Symbol: "BTCUSDT", Side: "LONG", Amount: decimal.NewFromInt(2)}
	if side := closeSide(long); side != "SELL" {
		t.Fatalf("wanted SELL for a long position, got %s", side)
	}
	short := &connector.Position{Symbol: "BTCUSDT", Side: "SHORT", Amount: decimal.NewFromInt(-2)}
	if side := closeSide(short); side != "BUY" {
		t.Fatalf("wanted BUY for a short position, got %s", side)
	}
}
