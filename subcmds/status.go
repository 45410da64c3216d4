// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/visvasity/cli"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/api"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/subcmds/cmdutil"
)

type Status struct {
	cmdutil.ServerFlags

	timeout time.Duration
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.DurationVar(&c.timeout, "timeout", 5*time.Second, "http request timeout")
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) Purpose() string {
	return "Prints the health summary of a running copytrader client"
}

func (c *Status) run(ctx context.Context, args []string) error {
	addr, err := c.ServerFlags.Addr()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/status", addr.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not fetch status from %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected http status: %d", resp.StatusCode)
	}

	status := new(api.StatusResponse)
	if err := json.NewDecoder(resp.Body).Decode(status); err != nil {
		return fmt.Errorf("could not decode status response: %w", err)
	}

	var names []string
	for name := range status.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	stdout := cli.Stdout(ctx)
	tw := tabwriter.NewWriter(stdout, 0, 8, 4, ' ', 0)
	fmt.Fprintf(tw, "SERVICE\tHEALTHY\tLAST-UPDATE\n")
	for _, name := range names {
		s := status.Services[name]
		last := "never"
		if !s.LastUpdateTime.IsZero() {
			last = s.LastUpdateTime.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\n", name, s.Healthy, last)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if p := status.Process; p != nil {
		started := time.UnixMilli(p.StartTime)
		fmt.Fprintf(stdout, "\npid %d, rss %d MB, cpu %.1f%%, up since %s\n",
			p.PID, p.RSSBytes>>20, p.CPUPercent, started.Format(time.RFC3339))
	}
	return nil
}
