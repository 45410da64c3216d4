// Copyright (c) 2025 BVK Chaitanya

// Package master implements the client for the coordination server that
// holds shared user/trader settings and receives balance reports.
package master

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
)

// ConnectionError is a non-200 response from the coordination server.
type ConnectionError struct {
	StatusCode int
	Body       string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("master server returned %d: %s", e.StatusCode, e.Body)
}

type Options struct {
	// Timeout to use for the HTTP requests.
	HttpClientTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
}

type Client struct {
	host string

	client *http.Client
}

// New creates a client for the coordination server at the given host:port.
func New(host string, opts *Options) *Client {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	return &Client{
		host: host,
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	u := &url.URL{
		Scheme: "http",
		Host:   c.host,
		Path:   path,
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return &ConnectionError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("could not decode response to json: %w", err)
	}
	return nil
}

// GetUserSettings fetches the follower-side settings.
func (c *Client) GetUserSettings(ctx context.Context) (*gobs.UserSettings, error) {
	settings := new(gobs.UserSettings)
	if err := c.do(ctx, http.MethodGet, "/settings/user", nil, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// GetTraderSettings fetches the leader-side settings.
func (c *Client) GetTraderSettings(ctx context.Context) (*gobs.TraderSettings, error) {
	settings := new(gobs.TraderSettings)
	if err := c.do(ctx, http.MethodGet, "/settings/trader", nil, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// NotifyBalance reports the follower's current balance.
func (c *Client) NotifyBalance(ctx context.Context, balance decimal.Decimal) error {
	update := &gobs.BalanceUpdate{Balance: balance}
	return c.do(ctx, http.MethodPost, "/balance", update, nil)
}
