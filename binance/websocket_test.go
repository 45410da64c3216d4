// Copyright (c) 2025 BVK Chaitanya

package binance

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderTradeUpdateFrame(t *testing.T) {
	data := `{
	  "e": "ORDER_TRADE_UPDATE",
	  "E": 1568879465651,
	  "o": {
	    "s": "BTCUSDT",
	    "c": "TEST",
	    "S": "SELL",
	    "o": "TRAILING_STOP_MARKET",
	    "f": "GTC",
	    "q": "0.001",
	    "p": "0",
	    "ap": "0",
	    "sp": "7103.04",
	    "x": "NEW",
	    "X": "NEW",
	    "i": 8886774,
	    "ps": "LONG",
	    "cp": false,
	    "AP": "7476.89",
	    "cr": "5.0"
	  }
	}`

	frame := new(StreamEventType)
	if err := json.Unmarshal([]byte(data), frame); err != nil {
		t.Fatal(err)
	}

	event := toUserEvent(frame)
	if event.Type != "ORDER_TRADE_UPDATE" {
		t.Fatalf("wanted ORDER_TRADE_UPDATE, got %q", event.Type)
	}
	o := event.Order
	if o == nil {
		t.Fatalf("wanted an order payload")
	}
	if o.OrderID != 8886774 || o.Symbol != "BTCUSDT" || o.Type != "TRAILING_STOP_MARKET" {
		t.Fatalf("order payload mismatch: %+v", o)
	}
	if !o.CallbackRate.Equal(decimal.RequireFromString("5.0")) {
		t.Fatalf("wanted callback rate 5.0, got %s", o.CallbackRate)
	}
}

func TestAccountUpdateFrame(t *testing.T) {
	data := `{
	  "e": "ACCOUNT_UPDATE",
	  "E": 1564745798939,
	  "a": {
	    "m": "ORDER",
	    "B": [{"a": "USDT", "wb": "122624.12345678"}],
	    "P": [
	      {"s": "BTCUSDT", "pa": "0", "ep": "0.00000", "up": "0", "ps": "BOTH"},
	      {"s": "BTCUSDT", "pa": "20", "ep": "6563.66500", "up": "2850.21200", "ps": "LONG"}
	    ]
	  }
	}`

	frame := new(StreamEventType)
	if err := json.Unmarshal([]byte(data), frame); err != nil {
		t.Fatal(err)
	}

	event := toUserEvent(frame)
	if len(event.Positions) != 2 {
		t.Fatalf("wanted 2 position snapshots, got %d", len(event.Positions))
	}
	long := event.Positions[1]
	if long.Side != "LONG" || !long.Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("position payload mismatch: %+v", long)
	}
}
