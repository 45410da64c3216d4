// Copyright (c) 2025 BVK Chaitanya

// Package gobs holds data types that cross process boundaries: values
// persisted in the local datastore and request/response bodies exchanged with
// the master server. Types here must stay gob and json encodable.
package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credentials holds the follower account's API keys for one exchange. All
// fields may be empty until an operator configures them.
type Credentials struct {
	Exchange  string `json:"exchange"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// IsComplete reports whether the credentials can be used to construct an
// exchange connector.
func (c *Credentials) IsComplete() bool {
	return c != nil && c.Exchange != "" && c.APIKey != "" && c.APISecret != ""
}

// UserSettings is the follower-side configuration fetched from the master
// server and replaced wholesale on every update event.
type UserSettings struct {
	Enabled bool `json:"enabled"`

	// BalanceThreshold is the follower balance floor below which trading is
	// force-halted.
	BalanceThreshold decimal.Decimal `json:"balance_threshold"`

	// Multiplier scales the quantity of every replicated order. Must be
	// positive.
	Multiplier decimal.Decimal `json:"multiplier"`
}

// TraderSettings describes the leader account being mirrored. Venue or key
// changes invalidate the leader connector and restart the event stream.
type TraderSettings struct {
	Enabled   bool   `json:"enabled"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Exchange  string `json:"exchange"`
}

// IsComplete reports whether a leader connector can be built from the
// settings.
func (t *TraderSettings) IsComplete() bool {
	return t != nil && t.Exchange != "" && t.APIKey != "" && t.APISecret != ""
}

// BalanceUpdate is the body of the POST /balance notification to the master
// server.
type BalanceUpdate struct {
	Balance decimal.Decimal `json:"balance"`
}

// ServiceStatus is the derived health snapshot for one running service. It is
// recomputed on demand and never persisted.
type ServiceStatus struct {
	Healthy        bool      `json:"healthy"`
	LastUpdateTime time.Time `json:"last_update_time"`
}
