package httpserver

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/wagate/internal/domain"
	apperrors "github.com/pscheid92/wagate/internal/platform/errors"
)

type createSessionRequest struct {
	ID          string `json:"id" form:"id"`
	Description string `json:"description" form:"description"`
}

func (s *Server) registerSessionRoutes() {
	s.echo.GET("/sessions", s.handleListSessions)
	s.echo.POST("/sessions", s.handleCreateSession)
	s.echo.DELETE("/sessions/:id", s.handleRemoveSession)
}

func (s *Server) handleListSessions(c echo.Context) error {
	sessions, err := s.sessions.Sessions(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to list sessions", err)
	}
	return respond(c, sessions)
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	if err := s.sessions.CreateSession(c.Request().Context(), req.ID, req.Description); err != nil {
		return sessionError(req.ID, err)
	}
	return respond(c, domain.SessionRef{ID: req.ID})
}

func (s *Server) handleRemoveSession(c echo.Context) error {
	id := c.Param("id")
	if err := s.sessions.RemoveSession(c.Request().Context(), id); err != nil {
		return sessionError(id, err)
	}
	return respond(c, domain.SessionRef{ID: id})
}

func sessionError(id string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidSessionID):
		return apperrors.ValidationError(fmt.Sprintf("The session id: %q is not valid!", id))
	case errors.Is(err, domain.ErrSessionExists):
		return apperrors.ValidationError(fmt.Sprintf("The session: %s already exists!", id))
	case errors.Is(err, domain.ErrSessionNotFound):
		return apperrors.NotFoundError(fmt.Sprintf("The session: %s is not found!", id))
	default:
		return apperrors.InternalError("failed to update session", err).WithField("session_id", id)
	}
}
