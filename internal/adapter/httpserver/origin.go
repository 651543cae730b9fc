package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

const observerBufferSize = 1024

func newUpgrader(isDevelopment bool) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  observerBufferSize,
		WriteBufferSize: observerBufferSize,
		CheckOrigin:     newCheckOrigin(isDevelopment),
	}
}

// newCheckOrigin allows non-browser clients, same-host origins and, in
// development, localhost origins.
func newCheckOrigin(isDevelopment bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err == nil && u.Host == r.Host {
			return true
		}

		if isDevelopment && err == nil && isLocalhost(u.Hostname()) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
