package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const contextKey = "logger"

// Options configures the global logger.
type Options struct {
	Level       string
	Environment string
	ServiceName string
}

var log *zap.Logger

// Init builds the global logger. Production uses JSON with ISO8601 timestamps,
// anything else the colored console encoder.
func Init(opts Options) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if opts.Environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	l, err := cfg.Build(zap.Fields(
		zap.String("service", opts.ServiceName),
		zap.String("environment", opts.Environment),
	))
	if err != nil {
		return nil, err
	}
	log = l
	return l, nil
}

// L returns the global logger, falling back to a no-op logger before Init.
func L() *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Middleware returns an Echo middleware that attaches a request-scoped logger
// and logs one line per request.
func Middleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}
			reqLogger := base.With(zap.String("request_id", requestID))
			c.Set(contextKey, reqLogger)

			err := next(c)
			if err != nil {
				// Resolve the status before logging; the error handler runs after middleware.
				c.Error(err)
			}

			fields := []zapcore.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			switch status := c.Response().Status; {
			case status >= 500:
				reqLogger.Error("HTTP request failed", append(fields, zap.Error(err))...)
			case status >= 400:
				reqLogger.Warn("HTTP request rejected", fields...)
			default:
				reqLogger.Info("HTTP request completed", fields...)
			}
			return nil
		}
	}
}

// FromEcho returns the request-scoped logger, or the global one outside a request.
func FromEcho(c echo.Context) *zap.Logger {
	if l, ok := c.Get(contextKey).(*zap.Logger); ok {
		return l
	}
	return L()
}
