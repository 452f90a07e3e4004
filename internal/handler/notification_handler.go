package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"safetysos/internal/service"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	notifications service.NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notifications service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// UnreadCountResponse reports how many notifications are unread.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse reports how many notifications were flipped to read.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// List godoc
// @Summary List the caller's notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Notification
// @Failure 401 {object} errors.ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	items, err := h.notifications.List(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// UnreadCount godoc
// @Summary Count the caller's unread notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UnreadCountResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	n, err := h.notifications.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, UnreadCountResponse{Count: n})
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} model.Notification
// @Failure 404 {object} errors.ErrorResponse
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	n, err := h.notifications.MarkRead(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// MarkAllRead godoc
// @Summary Mark all of the caller's notifications as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MarkAllReadResponse
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	updated, err := h.notifications.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, MarkAllReadResponse{Updated: updated})
}
