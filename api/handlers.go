// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/httputil"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/keystore"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/service"
)

// Handler serves the control surface over the orchestrator. Settings pushes
// are accepted only from the configured master host.
type Handler struct {
	service *service.Service
	keys    *keystore.Store

	// masterHost is the hostname or address allowed to push settings. An
	// empty value disables the check.
	masterHost string
}

func NewHandler(svc *service.Service, keys *keystore.Store, masterHost string) *Handler {
	host := masterHost
	if h, _, err := net.SplitHostPort(masterHost); err == nil {
		host = h
	}
	return &Handler{
		service:    svc,
		keys:       keys,
		masterHost: host,
	}
}

// Register installs the handlers on the http server.
func (h *Handler) Register(s *httputil.Server) {
	s.AddHandler("POST /user_settings", http.HandlerFunc(h.handleUserSettings))
	s.AddHandler("POST /trader_settings", http.HandlerFunc(h.handleTraderSettings))
	s.AddHandler("POST /keys", http.HandlerFunc(h.handleKeys))
	s.AddHandler("GET /status", http.HandlerFunc(h.handleStatus))
	s.AddHandler("GET /pid", http.HandlerFunc(h.handlePID))
}

func (h *Handler) fromMaster(r *http.Request) bool {
	if len(h.masterHost) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host == h.masterHost
}

func (h *Handler) handleUserSettings(w http.ResponseWriter, r *http.Request) {
	if !h.fromMaster(r) {
		slog.Warn("rejecting settings push from unexpected host", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	req := new(UserSettingsRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	settings := &gobs.UserSettings{
		Enabled:          req.Enabled,
		BalanceThreshold: req.BalanceThreshold,
		Multiplier:       req.Multiplier,
	}
	if err := h.service.OnUserSettingsUpdate(r.Context(), settings); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleTraderSettings(w http.ResponseWriter, r *http.Request) {
	if !h.fromMaster(r) {
		slog.Warn("rejecting settings push from unexpected host", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	req := new(TraderSettingsRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	settings := &gobs.TraderSettings{
		Enabled:   req.Enabled,
		Exchange:  req.Exchange,
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
	}
	if err := h.service.OnTraderSettingsUpdate(r.Context(), settings); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	req := new(KeysRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	creds := &gobs.Credentials{
		Exchange:  req.Exchange,
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
	}
	// Set persists the credentials and notifies the orchestrator, which
	// rebuilds the follower connector.
	if err := h.keys.Set(r.Context(), creds); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := &StatusResponse{
		Services: h.service.ServiceStatuses(),
		Process:  processStatus(r.Context()),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("could not encode status response (ignored)", "error", err)
	}
}

func (h *Handler) handlePID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&PIDResponse{PID: os.Getpid()})
}

func processStatus(ctx context.Context) *ProcessStatus {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.Warn("could not read process self-stats (ignored)", "error", err)
		return nil
	}
	status := &ProcessStatus{PID: os.Getpid()}
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
		status.RSSBytes = mi.RSS
	}
	if pct, err := p.CPUPercentWithContext(ctx); err == nil {
		status.CPUPercent = pct
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		status.StartTime = created
	}
	return status
}
