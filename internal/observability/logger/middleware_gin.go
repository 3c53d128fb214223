package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/leadbilling/internal/observability/context"
	"go.uber.org/zap"
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
	// SlowRequest raises successful requests over the threshold to warn.
	// Zero disables it.
	SlowRequest     time.Duration
}

// GinMiddleware logs each request with correlation identifiers and safe fields.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		if partnerID := routePartnerID(c); partnerID != "" {
			ctx = obscontext.WithPartnerID(ctx, partnerID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Int64("bytes_in", nonNegative(c.Request.ContentLength)),
			zap.Int64("bytes_out", nonNegative(int64(c.Writer.Size()))),
		}
		fields = append(fields, routeFields(c)...)

		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorType, errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		slow := cfg.SlowRequest > 0 && elapsed > cfg.SlowRequest
		logRequest(FromContext(c.Request.Context()), route, status, slow, fields)
	}
}

// routePartnerID reads the partner from the partner and lead routes.
func routePartnerID(c *gin.Context) string {
	route := c.FullPath()
	switch {
	case strings.HasPrefix(route, "/api/partners/:id"):
		return strings.TrimSpace(c.Param("id"))
	case strings.HasPrefix(route, "/api/leads/:id/partners/:partnerId"):
		return strings.TrimSpace(c.Param("partnerId"))
	}
	return ""
}

func routeFields(c *gin.Context) []zap.Field {
	route := c.FullPath()
	switch {
	case strings.HasPrefix(route, "/api/partners/:id/periods/:year/:month"):
		return []zap.Field{zap.String("period", c.Param("year")+"-"+c.Param("month"))}
	case strings.HasPrefix(route, "/api/invoices/:id"):
		return []zap.Field{zap.String("invoice_id", c.Param("id"))}
	case strings.HasPrefix(route, "/api/leads/:id/"):
		return []zap.Field{zap.String("lead_id", c.Param("id"))}
	}
	return nil
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
	if requestID == "" {
		requestID = strings.TrimSpace(c.GetString("request_id"))
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	c.Set("request_id", requestID)
	c.Header("X-Request-Id", requestID)
	return requestID
}

func logRequest(log *zap.Logger, route string, status int, slow bool, fields []zap.Field) {
	if log == nil {
		return
	}

	switch {
	case isQuietRoute(route):
		log.Debug("http_request", fields...)
	case status >= http.StatusInternalServerError:
		log.Error("http_request", fields...)
	case slow:
		log.Warn("http_request", append(fields, zap.Bool("slow", true))...)
	default:
		log.Info("http_request", fields...)
	}
}

func isQuietRoute(route string) bool {
	route = strings.TrimSpace(route)
	return strings.EqualFold(route, "/metrics") || strings.EqualFold(route, "/health")
}

func nonNegative(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}
