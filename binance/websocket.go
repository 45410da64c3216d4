// Copyright (c) 2025 BVK Chaitanya

package binance

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/connector"
)

// UserStream is an open user-data-stream session bound to one listen key.
type UserStream struct {
	client *Client

	listenKey string

	conn *ws.Conn

	// wmu serializes control-frame writes; gorilla allows one writer.
	wmu sync.Mutex

	closed bool
}

// OpenUserStream creates a listen key and dials the user data stream.
func (c *Connector) OpenUserStream(ctx context.Context) (_ connector.UserStream, status error) {
	listenKey, err := c.client.createListenKey(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if status != nil {
			_ = c.client.closeListenKey(context.WithoutCancel(ctx))
		}
	}()

	var dialer ws.Dialer
	conn, _, err := dialer.DialContext(ctx, "wss://"+c.client.opts.WebsocketHostname+"/ws/"+listenKey, nil)
	if err != nil {
		slog.ErrorContext(ctx, "could not dial to user data stream", "error", err)
		return nil, err
	}

	s := &UserStream{
		client:    c.client,
		listenKey: listenKey,
		conn:      conn,
	}
	return s, nil
}

// Close deletes the listen key (best-effort) and closes the transport.
func (s *UserStream) Close() error {
	if s.closed {
		return os.ErrClosed
	}
	s.closed = true

	if err := s.client.closeListenKey(context.Background()); err != nil {
		slog.Warn("could not close listen key (ignored)", "error", err)
	}
	_ = s.conn.Close()
	return nil
}

// Renew extends the listen key's validity window.
func (s *UserStream) Renew(ctx context.Context) error {
	if s.closed {
		return os.ErrClosed
	}
	return s.client.renewListenKey(ctx)
}

// Ping sends a transport-level ping frame.
func (s *UserStream) Ping(ctx context.Context) error {
	if s.closed {
		return os.ErrClosed
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(10*time.Second))
}

// NextEvent blocks for the next stream frame and returns it in normalized
// form. Frames of unknown shape come back with only the Type set; the caller
// decides whether to drop them.
func (s *UserStream) NextEvent(ctx context.Context) (*connector.UserEvent, error) {
	if s.closed {
		return nil, os.ErrClosed
	}

	data, err := s.readMessage(ctx)
	if err != nil {
		return nil, err
	}

	frame := new(StreamEventType)
	if err := json.Unmarshal(data, frame); err != nil {
		return nil, err
	}
	return toUserEvent(frame), nil
}

func toUserEvent(frame *StreamEventType) *connector.UserEvent {
	event := &connector.UserEvent{Type: frame.EventType}
	switch frame.EventType {
	case "ACCOUNT_UPDATE":
		if frame.Account != nil {
			for _, p := range frame.Account.Positions {
				event.Positions = append(event.Positions, &connector.Position{
					Symbol:           p.Symbol,
					Side:             p.PositionSide,
					Amount:           p.PositionAmt,
					EntryPrice:       p.EntryPrice,
					UnrealizedProfit: p.UnrealizedProfit,
				})
			}
		}
	case "ORDER_TRADE_UPDATE":
		if o := frame.Order; o != nil {
			event.Order = &connector.Order{
				OrderID:         o.OrderID,
				ClientOrderID:   o.ClientOrderID,
				Symbol:          o.Symbol,
				Side:            o.Side,
				PositionSide:    o.PositionSide,
				Type:            o.OrderType,
				Status:          o.Status,
				Quantity:        o.OrigQty,
				Price:           o.Price,
				StopPrice:       o.StopPrice,
				ActivationPrice: o.ActivatePrice,
				CallbackRate:    o.CallbackRate,
				TimeInForce:     o.TimeInForce,
				ClosePosition:   o.ClosePosition,
				ReduceOnly:      o.ReduceOnly,
			}
		}
	}
	return event
}

func (s *UserStream) readMessage(ctx context.Context) ([]byte, error) {
	nconn := s.conn.UnderlyingConn()
	stop := context.AfterFunc(ctx, func() {
		nconn.SetReadDeadline(time.Now())
	})

	_, msg, err := s.conn.ReadMessage()
	if !stop() {
		nconn.SetReadDeadline(time.Time{})
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		return nil, err
	}
	return msg, nil
}
