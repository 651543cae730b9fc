package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/wagate/internal/broadcast"
	"github.com/pscheid92/wagate/internal/domain"
	apperrors "github.com/pscheid92/wagate/internal/platform/errors"
)

const (
	observerReadLimit    = 64 << 10
	createSessionTimeout = 10 * time.Second
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// handleObserver upgrades to the realtime channel. The observer first receives
// the persisted session list, then every broadcast.
func (s *Server) handleObserver(c echo.Context) error {
	snapshot, err := s.sessions.Snapshot(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to load sessions", err)
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return nil
	}

	id, err := s.hub.Register(conn, broadcast.Frame{Event: domain.EventInit, Data: snapshot})
	if err != nil {
		slog.Warn("Failed to register observer", "error", err)
		_ = conn.Close()
		return nil
	}
	defer s.hub.Unregister(id)

	s.readObserver(conn)
	return nil
}

// readObserver blocks until the connection closes, handling observer requests.
func (s *Server) readObserver(conn *websocket.Conn) {
	conn.SetReadLimit(observerReadLimit)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Debug("Ignoring malformed observer frame", "error", err)
			continue
		}

		switch frame.Event {
		case domain.EventCreateSession:
			s.createFromObserver(frame.Data)
		default:
			slog.Debug("Ignoring observer frame", "event", frame.Event)
		}
	}
}

func (s *Server) createFromObserver(data json.RawMessage) {
	var req domain.CreateSessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Warn("Malformed create-session request", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), createSessionTimeout)
	defer cancel()

	if err := s.sessions.CreateSession(ctx, req.ID, req.Description); err != nil {
		slog.Warn("Failed to create session from observer", "session_id", req.ID, "error", err)
	}
}
