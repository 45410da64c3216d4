// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/visvasity/cli"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/api"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/binance"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/subcmds/cmdutil"
)

type Setup struct {
	cmdutil.ServerFlags

	exchange  string
	apiKey    string
	apiSecret string

	timeout time.Duration
}

func (c *Setup) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("setup", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.StringVar(&c.exchange, "exchange", binance.ExchangeName, "exchange name for the follower account")
	fset.StringVar(&c.apiKey, "api-key", "", "follower account api key")
	fset.StringVar(&c.apiSecret, "api-secret", "", "follower account api secret")
	fset.DurationVar(&c.timeout, "timeout", 5*time.Second, "http request timeout")
	return "setup", fset, cli.CmdFunc(c.run)
}

func (c *Setup) Purpose() string {
	return "Updates the follower api keys on a running copytrader client"
}

func (c *Setup) run(ctx context.Context, args []string) error {
	if len(c.exchange) == 0 || len(c.apiKey) == 0 || len(c.apiSecret) == 0 {
		return fmt.Errorf("exchange, api-key and api-secret are required: %w", os.ErrInvalid)
	}
	addr, err := c.ServerFlags.Addr()
	if err != nil {
		return err
	}

	body, err := json.Marshal(&api.KeysRequest{
		Exchange:  c.exchange,
		APIKey:    c.apiKey,
		APISecret: c.apiSecret,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/keys", addr.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not update keys at %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected http status %d: %s", resp.StatusCode, msg)
	}

	fmt.Fprintf(cli.Stdout(ctx), "follower api keys updated\n")
	return nil
}
