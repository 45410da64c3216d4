// Copyright (c) 2025 BVK Chaitanya

// Package daemonize respawns the current program as a background daemon
// process.
package daemonize

import (
	"context"
	"fmt"
	"log"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CheckFunc verifies that the background process has initialized
// successfully. It receives the child process handle so that it can tell the
// new instance apart from a stale one. A true first return value indicates
// the check should be retried.
type CheckFunc func(ctx context.Context, child *os.Process) (retry bool, err error)

// Daemonize respawns the current program in the background with the same
// command-line arguments and exits the foreground process. The given
// environment variable name marks the respawned copy; it must not be used by
// anything else.
//
// Standard input and outputs of the background process are replaced with
// /dev/null and the standard library log package is redirected to syslog.
//
// The foreground process uses the check function to wait for the background
// process to initialize successfully or die. When successful, Daemonize
// returns nil in the background process and the foreground process exits
// with a zero status (i.e., never returns).
func Daemonize(ctx context.Context, envKey string, check CheckFunc) error {
	if v := os.Getenv(envKey); len(v) == 0 {
		if err := respawn(ctx, envKey, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := initBackground(); err != nil {
		os.Exit(1)
	}
	return nil
}

func respawn(ctx context.Context, envKey string, check CheckFunc) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("could not lookup binary path: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine binary absolute path: %w", err)
	}

	null, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("could not open /dev/null: %w", err)
	}
	defer null.Close()

	// Receive a signal when the child process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	env := slices.DeleteFunc(os.Environ(), func(kv string) bool {
		return len(kv) > len(envKey) && kv[:len(envKey)+1] == envKey+"="
	})
	attr := &os.ProcAttr{
		Dir:   "/",
		Env:   append(env, fmt.Sprintf("%s=%d", envKey, os.Getpid())),
		Files: []*os.File{null, null, null},
	}
	child, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("could not start background process: %w", err)
	}

	if check != nil {
		time.Sleep(time.Second)
		for ctx.Err() == nil {
			retry, err := check(ctx, child)
			if err == nil {
				break
			}
			if !retry {
				return fmt.Errorf("background process failed to initialize: %w", err)
			}
			log.Printf("background process not yet initialized (will retry): %v", err)
			time.Sleep(time.Second)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("could not initialize the background process: %w", err)
	}
	return nil
}

func initBackground() error {
	syslogger, err := syslog.New(syslog.LOG_INFO, filepath.Base(os.Args[0]))
	if err != nil {
		return fmt.Errorf("could not create syslog writer: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
