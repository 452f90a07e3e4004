package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthResponse is the liveness payload polled by the keepalive pinger.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// Health godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
}
