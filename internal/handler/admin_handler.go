package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"safetysos/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler serves the /api/admin surface. Every route is admin-gated by the router.
type AdminHandler struct {
	users    service.UserService
	admin    service.AdminService
	contacts service.ContactService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(users service.UserService, admin service.AdminService, contacts service.ContactService) *AdminHandler {
	return &AdminHandler{users: users, admin: admin, contacts: contacts}
}

// SetRoleRequest changes a user's role.
type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=employee admin"`
}

// ListUsers godoc
// @Summary List all users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.Request().Context(), actorID, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body SetRoleRequest true "New role"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (h *AdminHandler) SetRole(c echo.Context) error {
	var req SetRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.SetRole(c.Request().Context(), c.Param("id"), req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListAlerts godoc
// @Summary List SOS alerts across all users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "active, cancelled, resolved or all"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Offset"
// @Success 200 {array} model.SOSAlert
// @Failure 400 {object} errors.ErrorResponse
// @Router /admin/sos-alerts [get]
func (h *AdminHandler) ListAlerts(c echo.Context) error {
	alerts, err := h.admin.ListAlerts(c.Request().Context(), service.AlertQuery{
		Status: c.QueryParam("status"),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, alerts)
}

// ResolveAlert godoc
// @Summary Resolve an active SOS alert
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.SOSAlert
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/sos-alerts/{id}/resolve [post]
func (h *AdminHandler) ResolveAlert(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}
	alert, err := h.admin.ResolveAlert(c.Request().Context(), c.Param("id"), adminID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, alert)
}

// ExportAlerts godoc
// @Summary Export SOS alerts as a spreadsheet
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "active, cancelled, resolved or all"
// @Success 200 {file} file
// @Failure 400 {object} errors.ErrorResponse
// @Router /admin/sos-alerts/export [get]
func (h *AdminHandler) ExportAlerts(c echo.Context) error {
	body, err := h.admin.ExportAlerts(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	filename := fmt.Sprintf("sos-alerts-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, body)
}

// Stats godoc
// @Summary Dashboard counters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Stats
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.admin.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ListContacts godoc
// @Summary List global emergency contacts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.EmergencyContact
// @Router /admin/emergency-contacts [get]
func (h *AdminHandler) ListContacts(c echo.Context) error {
	contacts, err := h.contacts.List(c.Request().Context(), "")
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, contacts)
}

// CreateContact godoc
// @Summary Create a global emergency contact
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ContactRequest true "Contact"
// @Success 201 {object} model.EmergencyContact
// @Failure 400 {object} errors.ErrorResponse
// @Router /admin/emergency-contacts [post]
func (h *AdminHandler) CreateContact(c echo.Context) error {
	var req ContactRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	contact, err := h.contacts.Create(c.Request().Context(), "", req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, contact)
}

// UpdateContact godoc
// @Summary Update a global emergency contact
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Param request body ContactRequest true "Contact fields"
// @Success 200 {object} model.EmergencyContact
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/emergency-contacts/{id} [put]
func (h *AdminHandler) UpdateContact(c echo.Context) error {
	var req ContactRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	contact, err := h.contacts.Update(c.Request().Context(), "", c.Param("id"), req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, contact)
}

// DeleteContact godoc
// @Summary Delete a global emergency contact
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/emergency-contacts/{id} [delete]
func (h *AdminHandler) DeleteContact(c echo.Context) error {
	if err := h.contacts.Delete(c.Request().Context(), "", c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
