package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/wagate/internal/adapter/metrics"
	"github.com/pscheid92/wagate/internal/broadcast"
	"github.com/pscheid92/wagate/internal/domain"
	"github.com/pscheid92/wagate/internal/platform/config"
)

type dispatcher interface {
	SendMessage(ctx context.Context, sender, number, message string) (*domain.SentMessage, error)
	SendGroupMessage(ctx context.Context, sender, groupName, message string) (*domain.SentMessage, error)
	SendMedia(ctx context.Context, sender, number, caption, fileURL string) (*domain.SentMessage, error)
	SendGroupMedia(ctx context.Context, sender, groupName, caption, fileURL string) (*domain.SentMessage, error)
	JoinGroup(ctx context.Context, sender, invite string) (string, error)
	LeaveGroup(ctx context.Context, sender, groupName string) (string, error)
	UpdateParticipant(ctx context.Context, sender, groupName, number string, action domain.ParticipantAction) (string, error)
	RenameGroup(ctx context.Context, sender, groupName, subject string) (string, error)
	SetGroupDescription(ctx context.Context, sender, groupName, description string) (string, error)
	SetMessagesAdminsOnly(ctx context.Context, sender, groupName string, adminsOnly bool) (string, error)
	SetInfoAdminsOnly(ctx context.Context, sender, groupName string, adminsOnly bool) (string, error)
}

type sessionManager interface {
	Sessions(ctx context.Context) ([]domain.SessionStatus, error)
	Snapshot(ctx context.Context) ([]domain.SessionRecord, error)
	CreateSession(ctx context.Context, id, description string) error
	RemoveSession(ctx context.Context, id string) error
}

type observerHub interface {
	Register(conn *websocket.Conn, initial ...broadcast.Frame) (uuid.UUID, error)
	Unregister(id uuid.UUID)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	dispatcher dispatcher
	sessions   sessionManager
	hub        observerHub

	upgrader       websocket.Upgrader
	metricsHandler http.Handler
	httpMetrics    *metrics.HTTPMetrics
	healthChecks   []HealthCheck
	startTime      time.Time
}

// Deps bundles the collaborators of the server.
type Deps struct {
	Dispatcher     dispatcher
	Sessions       sessionManager
	Hub            observerHub
	MetricsHandler http.Handler
	HTTPMetrics    *metrics.HTTPMetrics
	HealthChecks   []HealthCheck
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		dispatcher:     deps.Dispatcher,
		sessions:       deps.Sessions,
		hub:            deps.Hub,
		upgrader:       newUpgrader(cfg.AppEnv == "development"),
		metricsHandler: deps.MetricsHandler,
		httpMetrics:    deps.HTTPMetrics,
		healthChecks:   deps.HealthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets the server be mounted in tests and other muxes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

type successResponse struct {
	Status   bool `json:"status"`
	Response any  `json:"response"`
}

func respond(c echo.Context, response any) error {
	if err := c.JSON(http.StatusOK, successResponse{Status: true, Response: response}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
