// Copyright (c) 2025 BVK Chaitanya

package binance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// APIError is a non-200 response from the futures REST api.
type APIError struct {
	Code    int64  `json:"code"`
	Message string `json:"msg"`

	Status int `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance: http %d code %d: %s", e.Status, e.Code, e.Message)
}

// Unknown-order cancels and flat-position closes come back with these codes
// and are benign when racing reconciliation against the event stream.
const (
	errCodeUnknownOrder   = -2011
	errCodeReduceRejected = -2022
)

type BalanceType struct {
	Asset            string          `json:"asset"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

type PositionType struct {
	Symbol           string          `json:"symbol"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	PositionSide     string          `json:"positionSide"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	UnrealizedProfit decimal.Decimal `json:"unRealizedProfit"`
}

type OrderType struct {
	OrderID       int64           `json:"orderId"`
	ClientOrderID string          `json:"clientOrderId"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	PositionSide  string          `json:"positionSide"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	OrigQty       decimal.Decimal `json:"origQty"`
	Price         decimal.Decimal `json:"price"`
	StopPrice     decimal.Decimal `json:"stopPrice"`
	ActivatePrice decimal.Decimal `json:"activatePrice"`
	PriceRate     decimal.Decimal `json:"priceRate"`
	TimeInForce   string          `json:"timeInForce"`
	ClosePosition bool            `json:"closePosition"`
	ReduceOnly    bool            `json:"reduceOnly"`
}

type ListenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}

type ExchangeInfoResponse struct {
	Symbols []SymbolInfoType `json:"symbols"`
}

type SymbolInfoType struct {
	Symbol  string             `json:"symbol"`
	Status  string             `json:"status"`
	Filters []SymbolFilterType `json:"filters"`
}

type SymbolFilterType struct {
	FilterType string          `json:"filterType"`
	TickSize   decimal.Decimal `json:"tickSize"`
	StepSize   decimal.Decimal `json:"stepSize"`
}

// Stream frame shapes for the user data stream.

type StreamEventType struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`

	Account *AccountUpdateType `json:"a,omitempty"`
	Order   *OrderUpdateType   `json:"o,omitempty"`
}

type AccountUpdateType struct {
	Reason    string               `json:"m"`
	Balances  []StreamBalanceType  `json:"B"`
	Positions []StreamPositionType `json:"P"`
}

type StreamBalanceType struct {
	Asset         string          `json:"a"`
	WalletBalance decimal.Decimal `json:"wb"`
}

type StreamPositionType struct {
	Symbol           string          `json:"s"`
	PositionAmt      decimal.Decimal `json:"pa"`
	EntryPrice       decimal.Decimal `json:"ep"`
	UnrealizedProfit decimal.Decimal `json:"up"`
	PositionSide     string          `json:"ps"`
}

type OrderUpdateType struct {
	Symbol        string          `json:"s"`
	ClientOrderID string          `json:"c"`
	Side          string          `json:"S"`
	OrderType     string          `json:"o"`
	TimeInForce   string          `json:"f"`
	OrigQty       decimal.Decimal `json:"q"`
	Price         decimal.Decimal `json:"p"`
	AvgPrice      decimal.Decimal `json:"ap"`
	StopPrice     decimal.Decimal `json:"sp"`
	ExecType      string          `json:"x"`
	Status        string          `json:"X"`
	OrderID       int64           `json:"i"`
	PositionSide  string          `json:"ps"`
	ClosePosition bool            `json:"cp"`
	ActivatePrice decimal.Decimal `json:"AP"`
	CallbackRate  decimal.Decimal `json:"cr"`
	ReduceOnly    bool            `json:"R"`
}
