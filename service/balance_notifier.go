// Copyright (c) 2025 BVK Chaitanya

package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/master"
)

// Notifier forwards balance readings to the master server, throttled to at
// most one notification per interval. Intermediate readings are dropped.
type Notifier struct {
	client *master.Client

	interval time.Duration
	limiter  *rate.Limiter

	mu         sync.Mutex
	lastNotify time.Time
}

func NewNotifier(client *master.Client, interval time.Duration) *Notifier {
	return &Notifier{
		client:   client,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// OnBalanceUpdate is registered as an Updater callback. Transport failures
// are returned for the caller to log; the next reading supersedes them.
func (n *Notifier) OnBalanceUpdate(ctx context.Context, balance decimal.Decimal) error {
	if !n.limiter.Allow() {
		return nil
	}
	if err := n.client.NotifyBalance(ctx, balance); err != nil {
		return err
	}

	n.mu.Lock()
	n.lastNotify = time.Now()
	n.mu.Unlock()
	return nil
}

func (n *Notifier) ServiceStatus() gobs.ServiceStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return gobs.ServiceStatus{
		Healthy:        !n.lastNotify.IsZero() && time.Since(n.lastNotify) < 2*n.interval,
		LastUpdateTime: n.lastNotify,
	}
}
