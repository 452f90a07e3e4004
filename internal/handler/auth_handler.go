package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"safetysos/internal/model"
	"safetysos/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a user registration request.
// Either email or employeeId must be present.
type RegisterRequest struct {
	Email      string `json:"email" validate:"omitempty,email,max=255"`
	EmployeeID string `json:"employeeId" validate:"omitempty,max=64"`
	Password   string `json:"password"`
	Name       string `json:"name" validate:"omitempty,max=255"`
}

// LoginRequest represents a login by email or employee ID.
type LoginRequest struct {
	Email      string `json:"email"`
	EmployeeID string `json:"employeeId"`
	Password   string `json:"password"`
}

// ResendVerificationRequest represents a request to resend the verification email.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

// RegisterResponse represents the registration outcome.
type RegisterResponse struct {
	Message              string      `json:"message"`
	RequiresVerification bool        `json:"requiresVerification"`
	User                 *model.User `json:"user"`
	Token                string      `json:"token,omitempty"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register godoc
// @Summary Register a new user
// @Description Registers by email and/or employee ID. Email accounts must verify before logging in.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Email:      req.Email,
		EmployeeID: req.EmployeeID,
		Password:   req.Password,
		Name:       req.Name,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, RegisterResponse{
		Message:              res.Message,
		RequiresVerification: res.RequiresVerification,
		User:                 res.User,
		Token:                res.Token,
	})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), service.LoginInput{
		Email:      req.Email,
		EmployeeID: req.EmployeeID,
		Password:   req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{Token: res.Token, User: res.User})
}

// VerifyEmail godoc
// @Summary Verify email address
// @Tags auth
// @Produce json
// @Param token path string true "Verification token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/verify-email/{token} [get]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	if _, err := h.authService.VerifyEmail(c.Request().Context(), c.Param("token")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Email verified successfully! You can now log in.",
		Success: true,
	})
}

// ResendVerification godoc
// @Summary Resend the verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResendVerificationRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req ResendVerificationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Verification email sent. Please check your email.",
		Success: true,
	})
}

// Logout godoc
// @Summary Logout user
// @Description Revokes the bearer token used for this request.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), ClaimsFrom(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully", Success: true})
}
