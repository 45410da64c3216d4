// Copyright (c) 2025 BVK Chaitanya

package connector

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// UniquePositions returns the positions from as whose (symbol, side) key has
// no counterpart in bs.
func UniquePositions(as, bs []*Position) []*Position {
	keys := make(map[PositionKey]struct{}, len(bs))
	for _, b := range bs {
		keys[b.Key()] = struct{}{}
	}
	var unique []*Position
	for _, a := range as {
		if _, ok := keys[a.Key()]; !ok {
			unique = append(unique, a)
		}
	}
	return unique
}

// LeaderUniqueOrders returns the leader orders whose venue order id has no
// matching client order id among the follower orders.
func LeaderUniqueOrders(leader, follower []*Order) []*Order {
	ids := make(map[string]struct{}, len(follower))
	for _, f := range follower {
		ids[f.ClientOrderID] = struct{}{}
	}
	var unique []*Order
	for _, l := range leader {
		if _, ok := ids[strconv.FormatInt(l.OrderID, 10)]; !ok {
			unique = append(unique, l)
		}
	}
	return unique
}

// FollowerUniqueOrders returns the follower orders whose client order id does
// not match any leader order id.
func FollowerUniqueOrders(follower, leader []*Order) []*Order {
	ids := make(map[string]struct{}, len(leader))
	for _, l := range leader {
		ids[strconv.FormatInt(l.OrderID, 10)] = struct{}{}
	}
	var unique []*Order
	for _, f := range follower {
		if _, ok := ids[f.ClientOrderID]; !ok {
			unique = append(unique, f)
		}
	}
	return unique
}

// ReplicaSpec builds the spec for replicating a leader order onto the
// follower account. Quantity is scaled by the multiplier and the leader's
// order id becomes the replica's client order id. Only the fields relevant
// to the order type are carried over.
func ReplicaSpec(o *Order, multiplier decimal.Decimal) *OrderSpec {
	spec := &OrderSpec{
		Symbol:        o.Symbol,
		Side:          o.Side,
		PositionSide:  o.PositionSide,
		Type:          o.Type,
		ClientOrderID: strconv.FormatInt(o.OrderID, 10),
	}
	quantity := o.Quantity.Mul(multiplier)
	switch o.Type {
	case "MARKET":
		spec.Quantity = quantity
	case "LIMIT":
		spec.Quantity = quantity
		spec.Price = o.Price
		spec.TimeInForce = o.TimeInForce
	case "STOP", "TAKE_PROFIT":
		spec.Quantity = quantity
		spec.Price = o.Price
		spec.StopPrice = o.StopPrice
	case "STOP_MARKET":
		spec.Quantity = quantity
		spec.StopPrice = o.StopPrice
		spec.ClosePosition = o.ClosePosition
	case "TAKE_PROFIT_MARKET":
		spec.StopPrice = o.StopPrice
		spec.ClosePosition = o.ClosePosition
		if !o.ClosePosition {
			spec.Quantity = quantity
		}
	case "TRAILING_STOP_MARKET":
		spec.Quantity = quantity
		spec.ActivationPrice = o.ActivationPrice
		spec.CallbackRate = o.CallbackRate
	default:
		spec.Quantity = quantity
		spec.Price = o.Price
		spec.StopPrice = o.StopPrice
		spec.TimeInForce = o.TimeInForce
	}
	return spec
}
