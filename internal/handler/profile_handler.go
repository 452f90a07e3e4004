package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"safetysos/internal/service"
)

// ProfileHandler serves the caller's own profile and personal emergency contacts.
type ProfileHandler struct {
	users    service.UserService
	contacts service.ContactService
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(users service.UserService, contacts service.ContactService) *ProfileHandler {
	return &ProfileHandler{users: users, contacts: contacts}
}

// UpdateProfileRequest lists the editable profile fields.
type UpdateProfileRequest struct {
	Name *string `json:"name" validate:"omitempty,max=255"`
}

// ContactRequest represents an emergency contact payload. Omitted fields are left unchanged on update.
type ContactRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=255"`
	Email        *string `json:"email" validate:"omitempty,email,max=255"`
	Phone        *string `json:"phone" validate:"omitempty,max=32"`
	Relationship *string `json:"relationship" validate:"omitempty,max=100"`
	Role         *string `json:"role" validate:"omitempty,max=100"`
	IsPrimary    *bool   `json:"isPrimary"`
	IsActive     *bool   `json:"isActive"`
}

func (r ContactRequest) input() service.ContactInput {
	return service.ContactInput{
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Relationship: r.Relationship,
		Role:         r.Role,
		IsPrimary:    r.IsPrimary,
		IsActive:     r.IsActive,
	}
}

// GetProfile godoc
// @Summary Get the caller's profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Update the caller's profile
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.Request().Context(), userID, service.ProfileUpdate{Name: req.Name})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListContacts godoc
// @Summary List the caller's emergency contacts
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.EmergencyContact
// @Router /profile/emergency-contacts [get]
func (h *ProfileHandler) ListContacts(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	contacts, err := h.contacts.List(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, contacts)
}

// CreateContact godoc
// @Summary Add a personal emergency contact
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ContactRequest true "Contact"
// @Success 201 {object} model.EmergencyContact
// @Failure 400 {object} errors.ErrorResponse
// @Router /profile/emergency-contacts [post]
func (h *ProfileHandler) CreateContact(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req ContactRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	contact, err := h.contacts.Create(c.Request().Context(), userID, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, contact)
}

// UpdateContact godoc
// @Summary Update a personal emergency contact
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Param request body ContactRequest true "Contact fields"
// @Success 200 {object} model.EmergencyContact
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /profile/emergency-contacts/{id} [put]
func (h *ProfileHandler) UpdateContact(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req ContactRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	contact, err := h.contacts.Update(c.Request().Context(), userID, c.Param("id"), req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, contact)
}

// DeleteContact godoc
// @Summary Delete a personal emergency contact
// @Tags profile
// @Security BearerAuth
// @Param id path string true "Contact ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /profile/emergency-contacts/{id} [delete]
func (h *ProfileHandler) DeleteContact(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.contacts.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
