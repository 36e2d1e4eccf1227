package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability/metrics"
)

const (
	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = echo.HeaderXRequestID

	requestIDKey = "request_id"
	maxIDLength  = 128
)

// RequestID assigns every request an id, taken from the X-Request-ID header when
// present and a new UUID otherwise. The id is echoed in the response and stored in
// the request context as the logger trace id.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id := ctx.Request().Header.Get(HeaderRequestID)
			if id == "" || len(id) > maxIDLength {
				id = uuid.NewString()
			}
			ctx.Set(requestIDKey, id)
			ctx.Response().Header().Set(HeaderRequestID, id)
			ctx.SetRequest(ctx.Request().WithContext(logger.WithTraceID(ctx.Request().Context(), id)))
			return next(ctx)
		}
	}
}

func requestID(ctx echo.Context) string {
	id, _ := ctx.Get(requestIDKey).(string)
	return id
}

// RequestLogger logs one line per request.
func RequestLogger(log logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:     func(ctx echo.Context) bool { return ctx.Path() == "/metrics" },
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}
			log.WithContext(ctx.Request().Context()).Info("request", fields...)
			return nil
		},
	})
}

// RequestMetrics records request counts and latency by route pattern.
func RequestMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil && !ctx.Response().Committed {
				status = StatusFor(err)
			}
			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			m.RecordRequest(ctx.Request().Method, path, status, time.Since(start).Seconds())
			return err
		}
	}
}
