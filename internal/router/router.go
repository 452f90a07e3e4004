package router

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"safetysos/docs"
	"safetysos/internal/config"
	apperrors "safetysos/internal/errors"
	"safetysos/internal/handler"
	"safetysos/internal/logger"
	"safetysos/internal/metrics"
	"safetysos/internal/service"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth          *handler.AuthHandler
	Profile       *handler.ProfileHandler
	SOS           *handler.SOSHandler
	Notifications *handler.NotificationHandler
	Admin         *handler.AdminHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
	authService service.AuthService,
	userService service.UserService,
	h Handlers,
) {
	e.HideBanner = true
	e.Validator = NewValidator()

	// Metrics sit outermost so they observe the status written by the logger's error handling.
	e.Use(m.Middleware())
	e.Use(middleware.RequestID())
	e.Use(logger.Middleware(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.GET("/health", handler.Health)
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/auth/verify-email/:token", h.Auth.VerifyEmail)
	api.POST("/auth/resend-verification", h.Auth.ResendVerification)

	// Secured routes (require a valid, unrevoked bearer token)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  handler.ClaimsKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return authService.Authenticate(c.Request().Context(), token)
		},
		ErrorHandler: unauthorized,
	}))

	secured.POST("/auth/logout", h.Auth.Logout)

	secured.GET("/profile", h.Profile.GetProfile)
	secured.PUT("/profile", h.Profile.UpdateProfile)
	secured.GET("/profile/emergency-contacts", h.Profile.ListContacts)
	secured.POST("/profile/emergency-contacts", h.Profile.CreateContact)
	secured.PUT("/profile/emergency-contacts/:id", h.Profile.UpdateContact)
	secured.DELETE("/profile/emergency-contacts/:id", h.Profile.DeleteContact)

	secured.POST("/sos/start", h.SOS.Start)
	secured.POST("/sos/cancel", h.SOS.Cancel)
	secured.GET("/sos/active", h.SOS.Active)
	secured.GET("/sos/history", h.SOS.History)

	secured.GET("/notifications", h.Notifications.List)
	secured.GET("/notifications/unread-count", h.Notifications.UnreadCount)
	secured.POST("/notifications/read-all", h.Notifications.MarkAllRead)
	secured.POST("/notifications/:id/read", h.Notifications.MarkRead)

	// Admin routes
	admin := secured.Group("/admin", requireAdmin(userService))
	admin.GET("/users", h.Admin.ListUsers)
	admin.DELETE("/users/:id", h.Admin.DeleteUser)
	admin.PUT("/users/:id/role", h.Admin.SetRole)
	admin.GET("/sos-alerts", h.Admin.ListAlerts)
	admin.GET("/sos-alerts/export", h.Admin.ExportAlerts)
	admin.POST("/sos-alerts/:id/resolve", h.Admin.ResolveAlert)
	admin.GET("/emergency-contacts", h.Admin.ListContacts)
	admin.POST("/emergency-contacts", h.Admin.CreateContact)
	admin.PUT("/emergency-contacts/:id", h.Admin.UpdateContact)
	admin.DELETE("/emergency-contacts/:id", h.Admin.DeleteContact)
	admin.GET("/stats", h.Admin.Stats)
}

// unauthorized renders bearer failures as 401 JSON in the shared error shape.
func unauthorized(c echo.Context, err error) error {
	var extraction *echojwt.TokenExtractionError
	if errors.As(err, &extraction) {
		err = apperrors.ErrMissingToken
	} else if !errors.Is(err, apperrors.ErrInvalidToken) && !errors.Is(err, apperrors.ErrMissingToken) {
		logger.FromEcho(c).Debug("bearer token rejected", zap.Error(err))
		err = apperrors.ErrInvalidToken
	}
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// requireAdmin reloads the principal so a role change takes effect without a new token.
func requireAdmin(users service.UserService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := handler.ClaimsFrom(c)
			if claims == nil {
				return unauthorized(c, apperrors.ErrMissingToken)
			}
			if _, err := users.RequireAdmin(c.Request().Context(), claims.UserID()); err != nil {
				httpErr := apperrors.MapErrorToHTTP(err)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			return next(c)
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
