// Copyright (c) 2025 BVK Chaitanya

package service

// BalanceStatus is the warden's trading-enable verdict over the follower
// balance.
type BalanceStatus string

const (
	// Undetermined is the only legal initial value. It is re-entered
	// whenever the threshold configuration changes.
	Undetermined BalanceStatus = "UNDETERMINED"

	CanTrade    BalanceStatus = "CAN_TRADE"
	CannotTrade BalanceStatus = "CANNOT_TRADE"
)
