// Copyright (c) 2025 BVK Chaitanya

// Package service implements the mirroring and reconciliation engine: the
// balance safety state machine, the balance reporting pipeline, the
// event-driven order mirroring service and the periodic reconciliation
// service, wired together by the Service orchestrator.
package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/keystore"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/master"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/telegram"
)

// connectorHolder wraps a connector reference so the live value can be
// replaced atomically. Holders are swapped whole, never mutated, so
// in-flight operations observe either the old or the new connector.
type connectorHolder struct {
	c connector.Connector
}

// Service owns the five running services and the two live connectors. It is
// the single mutation point when credentials or settings change.
type Service struct {
	opts Options

	masterClient *master.Client
	keys         *keystore.Store
	alert        *telegram.Notifier

	started atomic.Bool

	leaderHolder   atomic.Pointer[connectorHolder]
	followerHolder atomic.Pointer[connectorHolder]

	userSettings   atomic.Pointer[gobs.UserSettings]
	traderSettings atomic.Pointer[gobs.TraderSettings]

	warden    *Warden
	updater   *Updater
	notifier  *Notifier
	websocket *TraderWebsocket
	polling   *TraderPolling

	alertReceiver *topic.Receiver[BalanceStatus]
}

// New creates the orchestrator. The alert notifier may be nil.
func New(masterClient *master.Client, keys *keystore.Store, alert *telegram.Notifier, opts *Options) *Service {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	return &Service{
		opts:         *opts,
		masterClient: masterClient,
		keys:         keys,
		alert:        alert,
	}
}

// Start fetches settings and credentials, builds the connectors and starts
// the services. Starting twice is the only fatal misuse.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("service is already started: %w", os.ErrExist)
	}

	userSettings, err := s.masterClient.GetUserSettings(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "could not fetch user settings; starting idle", "error", err)
		userSettings = new(gobs.UserSettings)
	}
	s.userSettings.Store(userSettings)

	traderSettings, err := s.masterClient.GetTraderSettings(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "could not fetch trader settings; starting idle", "error", err)
		traderSettings = new(gobs.TraderSettings)
	}
	s.traderSettings.Store(traderSettings)

	creds, err := s.keys.Get(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "could not read follower credentials; starting idle", "error", err)
		creds = new(gobs.Credentials)
	}
	s.rebuildFollower(ctx, creds)
	s.rebuildLeader(ctx, traderSettings)

	s.keys.OnUpdate(func(creds *gobs.Credentials) {
		s.rebuildFollower(context.Background(), creds)
	})

	s.warden = NewWarden(s.followerConnector, userSettings.BalanceThreshold)
	s.updater = NewUpdater(s.followerConnector, s.opts.BalanceUpdateInterval, s.opts.BalanceFreshnessWindow)
	s.notifier = NewNotifier(s.masterClient, s.opts.BalanceNotifyInterval)
	s.websocket = NewTraderWebsocket(s.leaderConnector, s.followerConnector, s.gate, s.multiplier, &s.opts)
	s.polling = NewTraderPolling(s.leaderConnector, s.followerConnector, s.gate, s.multiplier, s.opts.PollingInterval)

	s.updater.AddCallback("balance-warden", s.warden.OnBalanceUpdate)
	s.updater.AddCallback("balance-notifier", s.notifier.OnBalanceUpdate)

	if s.alert != nil {
		receiver, err := s.warden.SubscribeFunc(s.onStatusChange)
		if err != nil {
			return err
		}
		s.alertReceiver = receiver
	}

	s.updater.Start()
	s.websocket.Start()
	s.polling.Start()

	log.Printf("started mirroring services (update=%s notify=%s poll=%s)",
		s.opts.BalanceUpdateInterval, s.opts.BalanceNotifyInterval, s.opts.PollingInterval)
	return nil
}

func (s *Service) Close() error {
	if !s.started.Load() {
		return os.ErrInvalid
	}

	s.polling.Close()
	s.websocket.Close()
	s.updater.Close()
	if s.alertReceiver != nil {
		s.alertReceiver.Close()
	}
	s.warden.Close()

	if h := s.leaderHolder.Swap(nil); h != nil && h.c != nil {
		h.c.Close()
	}
	if h := s.followerHolder.Swap(nil); h != nil && h.c != nil {
		h.c.Close()
	}
	return nil
}

func (s *Service) leaderConnector() connector.Connector {
	if h := s.leaderHolder.Load(); h != nil {
		return h.c
	}
	return nil
}

func (s *Service) followerConnector() connector.Connector {
	if h := s.followerHolder.Load(); h != nil {
		return h.c
	}
	return nil
}

// gate is the composite mirroring precondition: both connectors resolvable,
// both sides enabled and the warden allowing trades.
func (s *Service) gate() bool {
	userSettings := s.userSettings.Load()
	traderSettings := s.traderSettings.Load()
	if userSettings == nil || !userSettings.Enabled {
		return false
	}
	if traderSettings == nil || !traderSettings.Enabled {
		return false
	}
	if s.leaderConnector() == nil || s.followerConnector() == nil {
		return false
	}
	return s.warden.Status() == CanTrade
}

func (s *Service) multiplier() decimal.Decimal {
	if userSettings := s.userSettings.Load(); userSettings != nil && !userSettings.Multiplier.IsZero() {
		return userSettings.Multiplier
	}
	return decimal.NewFromInt(1)
}

// OnUserSettingsUpdate replaces the user settings. A threshold change resets
// the warden to Undetermined.
func (s *Service) OnUserSettingsUpdate(ctx context.Context, settings *gobs.UserSettings) error {
	if settings == nil {
		return os.ErrInvalid
	}
	if !s.started.Load() {
		return os.ErrInvalid
	}
	s.userSettings.Store(settings)
	s.warden.SetThreshold(settings.BalanceThreshold)
	slog.InfoContext(ctx, "updated user settings", "enabled", settings.Enabled, "threshold", settings.BalanceThreshold, "multiplier", settings.Multiplier)
	return nil
}

// OnTraderSettingsUpdate replaces the trader settings. A venue or credential
// change rebuilds the leader connector and forces a session restart; an
// enabled-flag change alone does not.
func (s *Service) OnTraderSettingsUpdate(ctx context.Context, settings *gobs.TraderSettings) error {
	if settings == nil {
		return os.ErrInvalid
	}
	if !s.started.Load() {
		return os.ErrInvalid
	}

	old := s.traderSettings.Swap(settings)
	slog.InfoContext(ctx, "updated trader settings", "enabled", settings.Enabled, "exchange", settings.Exchange)

	if old != nil && old.Exchange == settings.Exchange && old.APIKey == settings.APIKey && old.APISecret == settings.APISecret {
		return nil
	}
	s.rebuildLeader(ctx, settings)
	s.websocket.Restart()
	return nil
}

func (s *Service) rebuildLeader(ctx context.Context, settings *gobs.TraderSettings) {
	var c connector.Connector
	if settings.IsComplete() {
		built, err := connector.New(ctx, settings.Exchange, settings.APIKey, settings.APISecret)
		if err != nil {
			slog.ErrorContext(ctx, "could not build leader connector; leaving unset", "exchange", settings.Exchange, "error", err)
		} else {
			c = built
		}
	} else {
		slog.WarnContext(ctx, "trader credentials are incomplete; leader connector unset")
	}

	if old := s.leaderHolder.Swap(&connectorHolder{c: c}); old != nil && old.c != nil {
		old.c.Close()
	}
}

func (s *Service) rebuildFollower(ctx context.Context, creds *gobs.Credentials) {
	var c connector.Connector
	if creds.IsComplete() {
		built, err := connector.New(ctx, creds.Exchange, creds.APIKey, creds.APISecret)
		if err != nil {
			slog.ErrorContext(ctx, "could not build follower connector; leaving unset", "exchange", creds.Exchange, "error", err)
		} else {
			c = built
		}
	} else {
		slog.WarnContext(ctx, "follower credentials are incomplete; follower connector unset")
	}

	if old := s.followerHolder.Swap(&connectorHolder{c: c}); old != nil && old.c != nil {
		old.c.Close()
	}
}

// onStatusChange runs on the warden topic's delivery path, which must not
// block, so the alert request goes out on its own goroutine.
func (s *Service) onStatusChange(status BalanceStatus) {
	if status != CannotTrade || s.alert == nil {
		return
	}
	at := time.Now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		msg := "Follower balance dropped below the configured threshold. Trading is halted and the account was flattened."
		if err := s.alert.SendMessage(ctx, at, msg); err != nil {
			slog.Error("could not send low balance alert (ignored)", "error", err)
		}
	}()
}

// ServiceStatuses reports per-service health for external monitoring.
func (s *Service) ServiceStatuses() map[string]gobs.ServiceStatus {
	if !s.started.Load() {
		return nil
	}
	return map[string]gobs.ServiceStatus{
		"balance-warden":   s.warden.ServiceStatus(s.opts.BalanceFreshnessWindow),
		"balance-updater":  s.updater.ServiceStatus(),
		"balance-notifier": s.notifier.ServiceStatus(),
		"trader-websocket": s.websocket.ServiceStatus(),
		"trader-polling":   s.polling.ServiceStatus(),
	}
}
