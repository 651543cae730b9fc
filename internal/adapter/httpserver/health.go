package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/wagate/internal/domain"
	"github.com/pscheid92/wagate/internal/platform/version"
)

const readinessTimeout = 5 * time.Second

// HealthCheck is a named dependency check run by /health/ready, such as the session store ping.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type livenessReport struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// readinessReport lists every dependency check and how many sessions sit in each lifecycle state.
type readinessReport struct {
	Status   string                      `json:"status"`
	Checks   map[string]string           `json:"checks"`
	Sessions map[domain.SessionState]int `json:"sessions,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLive)
	s.echo.GET("/health/ready", s.handleReady)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLive(c echo.Context) error {
	return c.JSON(http.StatusOK, livenessReport{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	})
}

// handleReady runs all checks; any failure makes the gateway unready.
// Session states are informational and never fail readiness.
func (s *Server) handleReady(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	report := readinessReport{Status: "ready", Checks: make(map[string]string, len(s.healthChecks))}
	code := http.StatusOK

	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			report.Checks[hc.Name] = err.Error()
			report.Status = "unready"
			code = http.StatusServiceUnavailable
			continue
		}
		report.Checks[hc.Name] = "ok"
	}

	if statuses, err := s.sessions.Sessions(ctx); err == nil {
		report.Sessions = make(map[domain.SessionState]int)
		for _, st := range statuses {
			report.Sessions[st.State]++
		}
	}

	return c.JSON(code, report)
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
