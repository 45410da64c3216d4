// Copyright (c) 2025 BVK Chaitanya

package binance

import "time"

var (
	RestHostname      = "fapi.binance.com"
	WebsocketHostname = "fstream.binance.com"
)

type Options struct {
	// Hostnames for the REST and websocket service endpoints.
	RestHostname      string
	WebsocketHostname string

	// Timeout to use for the HTTP requests.
	HttpClientTimeout time.Duration

	// RecvWindow value attached to signed requests.
	RecvWindow time.Duration

	// Max REST requests per second.
	RequestsPerSecond float64

	// Timeout interval between successive exchange-info refreshes.
	ExchangeInfoInterval time.Duration

	// Timeout interval to retry a failed exchange-info fetch.
	ExchangeInfoRetryInterval time.Duration
}

func (v *Options) setDefaults() {
	if v.RestHostname == "" {
		v.RestHostname = RestHostname
	}
	if v.WebsocketHostname == "" {
		v.WebsocketHostname = WebsocketHostname
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
	if v.RecvWindow == 0 {
		v.RecvWindow = 5 * time.Second
	}
	if v.RequestsPerSecond == 0 {
		v.RequestsPerSecond = 10
	}
	if v.ExchangeInfoInterval == 0 {
		v.ExchangeInfoInterval = time.Hour
	}
	if v.ExchangeInfoRetryInterval == 0 {
		v.ExchangeInfoRetryInterval = time.Minute
	}
}
