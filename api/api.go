// Copyright (c) 2025 BVK Chaitanya

// Package api defines the request and response shapes of the control
// surface exposed to the master server and operator tooling.
package api

import (
	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
)

type UserSettingsRequest struct {
	Enabled          bool            `json:"enabled"`
	BalanceThreshold decimal.Decimal `json:"balance_threshold"`
	Multiplier       decimal.Decimal `json:"multiplier"`
}

type TraderSettingsRequest struct {
	Enabled   bool   `json:"enabled"`
	Exchange  string `json:"exchange"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

type KeysRequest struct {
	Exchange  string `json:"exchange"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

type StatusResponse struct {
	Services map[string]gobs.ServiceStatus `json:"services"`

	Process *ProcessStatus `json:"process,omitempty"`
}

type ProcessStatus struct {
	PID        int     `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	StartTime  int64   `json:"start_time_ms"`
}

type PIDResponse struct {
	PID int `json:"pid"`
}
