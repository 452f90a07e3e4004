package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"safetysos/internal/model"
	"safetysos/internal/service"
)

// SOSHandler handles the caller's SOS lifecycle.
type SOSHandler struct {
	sos service.SOSService
}

// NewSOSHandler creates a new SOS handler.
func NewSOSHandler(sos service.SOSService) *SOSHandler {
	return &SOSHandler{sos: sos}
}

// StartSOSRequest carries the optional position. Coordinates may be sent
// top-level or nested under location.
type StartSOSRequest struct {
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Location  *model.Location `json:"location"`
	Address   *string         `json:"address" validate:"omitempty,max=500"`
}

// Start godoc
// @Summary Start an SOS alert
// @Tags sos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body StartSOSRequest false "Current position"
// @Success 201 {object} model.SOSAlert
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /sos/start [post]
func (h *SOSHandler) Start(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req StartSOSRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := service.StartInput{Latitude: req.Latitude, Longitude: req.Longitude, Address: req.Address}
	if req.Location != nil && (in.Latitude == nil || in.Longitude == nil) {
		lat, lng := req.Location.Latitude, req.Location.Longitude
		in.Latitude, in.Longitude = &lat, &lng
	}

	alert, err := h.sos.Start(c.Request().Context(), userID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, alert)
}

// Cancel godoc
// @Summary Cancel the caller's active SOS alert
// @Tags sos
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SOSAlert
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /sos/cancel [post]
func (h *SOSHandler) Cancel(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	alert, err := h.sos.Cancel(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, alert)
}

// Active godoc
// @Summary Get the caller's active SOS alert
// @Description Responds with null when no alert is active.
// @Tags sos
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SOSAlert
// @Failure 401 {object} errors.ErrorResponse
// @Router /sos/active [get]
func (h *SOSHandler) Active(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	alert, err := h.sos.GetActive(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if alert == nil {
		return c.JSON(http.StatusOK, nil)
	}
	return c.JSON(http.StatusOK, alert)
}

// History godoc
// @Summary List the caller's SOS alerts
// @Tags sos
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Offset"
// @Success 200 {array} model.SOSAlert
// @Failure 401 {object} errors.ErrorResponse
// @Router /sos/history [get]
func (h *SOSHandler) History(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	alerts, err := h.sos.History(c.Request().Context(), userID, queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, alerts)
}
