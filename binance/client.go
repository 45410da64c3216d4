// Copyright (c) 2025 BVK Chaitanya

// Package binance implements the reference venue adapter over the Binance
// USD-M futures api.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/ctxutil"
)

type Client struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup

	opts Options

	key    string
	secret []byte

	client  *http.Client
	limiter *rate.Limiter

	mu      sync.Mutex
	symbols map[string]*SymbolFilterData
}

// NewClient creates an authenticated futures REST client. The exchange-info
// precision table is fetched before returning and refreshed in background.
func NewClient(ctx context.Context, key, secret string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	cctx, cancel := context.WithCancelCause(context.Background())
	c := &Client{
		ctx:     cctx,
		cancel:  cancel,
		opts:    *opts,
		key:     key,
		secret:  []byte(secret),
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		symbols: make(map[string]*SymbolFilterData),
	}

	if err := c.refreshExchangeInfo(ctx); err != nil {
		cancel(os.ErrClosed)
		return nil, fmt.Errorf("could not fetch exchange info: %w", err)
	}

	c.wg.Add(1)
	go c.goRefreshExchangeInfo()
	return c, nil
}

// Close shuts down the client and its background refresh loop.
func (c *Client) Close() error {
	c.cancel(os.ErrClosed)
	c.wg.Wait()
	return nil
}

func (c *Client) goRefreshExchangeInfo() {
	defer c.wg.Done()

	for ctxutil.Sleep(c.ctx, c.opts.ExchangeInfoInterval); c.ctx.Err() == nil; ctxutil.Sleep(c.ctx, c.opts.ExchangeInfoInterval) {
		if err := c.refreshExchangeInfo(c.ctx); err != nil {
			if c.ctx.Err() == nil {
				slog.WarnContext(c.ctx, "could not refresh exchange info (will retry)", "error", err)
				ctxutil.Sleep(c.ctx, c.opts.ExchangeInfoRetryInterval)
			}
		}
	}
}

func (c *Client) sign(message string) string {
	mac := hmac.New(sha256.New, c.secret)
	if _, err := mac.Write([]byte(message)); err != nil {
		slog.Error("could not write to hmac stream (ignored)", "error", err)
		return ""
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// do issues one REST request. Signed requests get timestamp, recvWindow and
// signature query parameters; all authenticated requests carry the api key
// header.
func (c *Client) do(ctx context.Context, method, path string, values url.Values, signed bool, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if values == nil {
		values = make(url.Values)
	}
	if signed {
		values.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		values.Set("recvWindow", strconv.FormatInt(c.opts.RecvWindow.Milliseconds(), 10))
		values.Set("signature", c.sign(values.Encode()))
	}

	u := &url.URL{
		Scheme:   "https",
		Host:     c.opts.RestHostname,
		Path:     path,
		RawQuery: values.Encode(),
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	if len(c.key) > 0 {
		req.Header.Add("X-MBX-APIKEY", c.key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if data, err := io.ReadAll(resp.Body); err == nil {
			if err := json.Unmarshal(data, apiErr); err != nil {
				apiErr.Message = string(data)
			}
		}
		return apiErr
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("could not decode response to json: %w", err)
	}
	return nil
}

func (c *Client) getBalances(ctx context.Context) ([]*BalanceType, error) {
	var resp []*BalanceType
	if err := c.do(ctx, http.MethodGet, "/fapi/v2/balance", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) getPositionRisk(ctx context.Context) ([]*PositionType, error) {
	var resp []*PositionType
	if err := c.do(ctx, http.MethodGet, "/fapi/v2/positionRisk", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) getOpenOrders(ctx context.Context) ([]*OrderType, error) {
	var resp []*OrderType
	if err := c.do(ctx, http.MethodGet, "/fapi/v1/openOrders", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) createOrder(ctx context.Context, values url.Values) (*OrderType, error) {
	resp := new(OrderType)
	if err := c.do(ctx, http.MethodPost, "/fapi/v1/order", values, true, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) cancelOrder(ctx context.Context, values url.Values) error {
	return c.do(ctx, http.MethodDelete, "/fapi/v1/order", values, true, nil)
}

func (c *Client) cancelAllOpenOrders(ctx context.Context, symbol string) error {
	values := make(url.Values)
	values.Set("symbol", symbol)
	return c.do(ctx, http.MethodDelete, "/fapi/v1/allOpenOrders", values, true, nil)
}

// Listen-key lifecycle. These requests are authenticated by the api key
// header alone.

func (c *Client) createListenKey(ctx context.Context) (string, error) {
	resp := new(ListenKeyResponse)
	if err := c.do(ctx, http.MethodPost, "/fapi/v1/listenKey", nil, false, resp); err != nil {
		return "", err
	}
	return resp.ListenKey, nil
}

func (c *Client) renewListenKey(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/fapi/v1/listenKey", nil, false, nil)
}

func (c *Client) closeListenKey(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/fapi/v1/listenKey", nil, false, nil)
}
