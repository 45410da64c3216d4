// Copyright (c) 2025 BVK Chaitanya

package service

import "time"

type Options struct {
	// Timeout interval between follower balance fetches.
	BalanceUpdateInterval time.Duration

	// Minimum interval between balance notifications to the master server.
	BalanceNotifyInterval time.Duration

	// Timeout interval between reconciliation passes.
	PollingInterval time.Duration

	// Timeout interval between user-stream session token renewals.
	SessionRenewInterval time.Duration

	// Timeout interval between transport keep-alive pings.
	SessionPingInterval time.Duration

	// Interval after which the user-stream session is restarted regardless
	// of errors.
	SessionRestartInterval time.Duration

	// Number of workers handling inbound user-stream events.
	EventWorkerCount int

	// Freshness window after which a balance service is reported unhealthy.
	BalanceFreshnessWindow time.Duration
}

func (v *Options) setDefaults() {
	if v.BalanceUpdateInterval == 0 {
		v.BalanceUpdateInterval = time.Second
	}
	if v.BalanceNotifyInterval == 0 {
		v.BalanceNotifyInterval = time.Minute
	}
	if v.PollingInterval == 0 {
		v.PollingInterval = 10 * time.Second
	}
	if v.SessionRenewInterval == 0 {
		v.SessionRenewInterval = 30 * time.Minute
	}
	if v.SessionPingInterval == 0 {
		v.SessionPingInterval = 3 * time.Minute
	}
	if v.SessionRestartInterval == 0 {
		v.SessionRestartInterval = 12 * time.Hour
	}
	if v.EventWorkerCount == 0 {
		v.EventWorkerCount = 4
	}
	if v.BalanceFreshnessWindow == 0 {
		v.BalanceFreshnessWindow = time.Minute
	}
}
