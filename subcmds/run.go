// Copyright (c) 2025 BVK Chaitanya

// Package subcmds implements the copytrader command-line subcommands.
package subcmds

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/api"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/ctxutil"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/daemonize"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/httputil"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/keystore"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/logdir"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/master"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/service"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/subcmds/cmdutil"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/telegram"
)

type Run struct {
	cmdutil.ServerFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof bool

	masterAddr  string
	secretsPath string
	dataDir     string
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.StringVar(&c.masterAddr, "master-address", "", "host:port of the master server")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the copytrader client in foreground or background"
}

func (c *Run) CommandHelp() string {
	return `

Command "run" starts the copytrader client. The client fetches the user and
trader settings from the master server, mirrors the leader account's trading
activity into the follower account and reports the follower balance back to
the master server.

SECRETS FILE

The optional secrets file seeds the follower exchange api keys on the first
start and configures telegram alerting. An example secrets file is given
below:

    {
        "follower":{
            "exchange":"binance",
            "api_key":"111111111",
            "api_secret":"2222222222"
        },
        "telegram":{
            "BotToken":"33333:444444",
            "ChatID":55555
        }
    }

Follower keys can also be configured later through the "setup" subcommand
against a running instance.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(c.masterAddr) == 0 {
		return fmt.Errorf("master server address cannot be empty: %w", os.ErrInvalid)
	}

	if len(c.dataDir) == 0 {
		c.dataDir = filepath.Join(os.Getenv("HOME"), ".copytrader")
	}
	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	secrets := new(Secrets)
	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	if s, err := SecretsFromFile(c.secretsPath); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		log.Printf("secrets file %s does not exist (continuing without secrets)", c.secretsPath)
	} else {
		secrets = s
	}
	if err := secrets.Check(); err != nil {
		return fmt.Errorf("invalid secrets file %q: %w", c.secretsPath, err)
	}

	addr, err := c.ServerFlags.Addr()
	if err != nil {
		return err
	}

	// Health checker for the background process initialization. We need to
	// verify that the responding http server is really our child and not an
	// older instance.
	check := func(ctx context.Context, child *os.Process) (bool, error) {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return true, fmt.Errorf("http status: %d", resp.StatusCode)
		}
		pid := new(api.PIDResponse)
		if err := json.NewDecoder(resp.Body).Decode(pid); err != nil {
			return true, err
		}
		if pid.PID != child.Pid {
			err := fmt.Errorf("is another instance already running? pid mismatch: want %d got %d", child.Pid, pid.PID)
			return c.restart, err
		}
		return false, nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, "COPYTRADER_DAEMONIZE", check); err != nil {
			return err
		}
	}

	logsDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0700); err != nil {
		return fmt.Errorf("could not create logs directory %q: %w", logsDir, err)
	}
	logs, err := logdir.New(logsDir, "copytrader")
	if err != nil {
		return fmt.Errorf("could not create log directory: %w", err)
	}
	defer logs.Close()
	if c.background {
		log.SetOutput(logs)
		slog.SetDefault(slog.New(slog.NewTextHandler(logs, nil)))
	} else {
		w := io.MultiWriter(os.Stderr, logs)
		log.SetOutput(w)
		slog.SetDefault(slog.New(slog.NewTextHandler(w, nil)))
	}
	log.SetFlags(log.Flags() | log.Lmicroseconds)
	log.Printf("using data directory %s and secrets file %s", dataDir, c.secretsPath)

	lockPath := filepath.Join(dataDir, "copytrader.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			log.Printf("waiting for the previous instance to shutdown")
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Start the HTTP server.
	s := httputil.New(nil /* opts */)
	defer s.Close()

	if err := s.StartTCP(ctx, addr); err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	bopts := badger.DefaultOptions(filepath.Join(dataDir, "db"))
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, isGoodKey)

	keys := keystore.New(db)
	if secrets.Follower.IsComplete() {
		stored, err := keys.Get(ctx)
		if err != nil {
			return fmt.Errorf("could not read follower credentials: %w", err)
		}
		if !stored.IsComplete() {
			if err := keys.Set(ctx, secrets.Follower); err != nil {
				return fmt.Errorf("could not seed follower credentials: %w", err)
			}
			log.Printf("seeded follower credentials from the secrets file")
		}
	}

	var alert *telegram.Notifier
	if secrets.Telegram != nil {
		if alert, err = telegram.New(ctx, secrets.Telegram); err != nil {
			slog.Warn("could not create telegram notifier (continuing without alerts)", "error", err)
			alert = nil
		}
	}

	masterClient := master.New(c.masterAddr, nil /* opts */)

	svc := service.New(masterClient, keys, alert, nil /* opts */)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()

	api.NewHandler(svc, keys, c.masterAddr).Register(s)

	log.Printf("started copytrader client at %s", addr)

	<-ctx.Done()
	log.Printf("copytrader client is shutting down")
	return nil
}

func isGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
