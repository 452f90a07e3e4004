package handler

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"safetysos/internal/auth"
	"safetysos/internal/errors"
	"safetysos/internal/logger"
)

// ClaimsKey is the echo.Context key holding the authenticated *auth.Claims.
const ClaimsKey = "user"

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// respondError converts err into an echo.HTTPError carrying an errors.ErrorResponse body.
func respondError(c echo.Context, err error) error {
	if !errors.IsDomain(err) {
		logger.FromEcho(c).Error("request failed", zap.Error(err))
	}
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST_BODY",
		})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.Validation(validationMessage(err)).ToErrorResponse())
	}
	return nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// ClaimsFrom returns the authenticated claims, or nil on public routes.
func ClaimsFrom(c echo.Context) *auth.Claims {
	claims, _ := c.Get(ClaimsKey).(*auth.Claims)
	return claims
}

// currentUserID returns the authenticated principal.
func currentUserID(c echo.Context) (string, error) {
	claims := ClaimsFrom(c)
	if claims == nil || claims.UserID() == "" {
		return "", respondError(c, errors.ErrMissingToken)
	}
	return claims.UserID(), nil
}

func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
