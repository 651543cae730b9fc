package httpserver

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed web/index.html
var landingPage []byte

func (s *Server) handleLanding(c echo.Context) error {
	if err := c.HTMLBlob(http.StatusOK, landingPage); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}
