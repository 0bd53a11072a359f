package interceptors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Audit logs every mutating request after it completes, with the caller identity when known.
// Reads are logged at debug level.
func Audit(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http.audit")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id := IdentityFrom(c.Request.Context()); id != nil {
			attrs = append(attrs, "user_id", id.ID, "login", id.Login)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Error())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request failed", attrs...)
		case c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead:
			logger.Debug("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}
