package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

type ctxKeyRequestID struct{}

// RequestID reuses the client's X-Request-ID or generates one, and exposes
// it on the response and the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKeyRequestID{}, rid))
		c.Next()
	}
}

func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return rid
}

// AccessLog logs one line per request after it completes.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", RequestIDFromContext(c.Request.Context())),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// ErrorHandler renders the last error added with c.Error. APIErrors keep
// their status and message; anything else becomes a 500 without details.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		rid := zap.String("request_id", RequestIDFromContext(c.Request.Context()))

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			logger.Warn("request error", zap.Int("status", apiErr.Status), zap.String("message", apiErr.Message), rid)
			c.JSON(apiErr.Status, newErrorResponse(apiErr.Status, apiErr.Message))
			return
		}

		logger.Error("unhandled request error", zap.Error(err), rid)
		c.JSON(http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError, "An internal error occurred"))
	}
}

// Recovery turns panics into the standard 500 body.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("request_id", RequestIDFromContext(c.Request.Context())))
		c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError, "An internal error occurred"))
	})
}
