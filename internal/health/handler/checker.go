// Package handler reports readiness over the gRPC health protocol and GET /health.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/platform/httpx"
)

// ServiceName is the gRPC health service name reported next to the overall ("") status.
const ServiceName = "o-monitor"

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker pings the database and mirrors the result into a gRPC health server.
type Checker struct {
	db     Pinger
	server *health.Server
	logger *slog.Logger

	mu      sync.RWMutex
	serving bool
	lastErr error
}

// NewChecker returns a Checker. server may be nil when the gRPC listener is disabled.
func NewChecker(db Pinger, server *health.Server, logger *slog.Logger) *Checker {
	return &Checker{db: db, server: server, logger: logger.With("component", "health")}
}

// Check pings the database once and updates the reported status.
func (c *Checker) Check(ctx context.Context) error {
	var err error
	if c.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = c.db.PingContext(pingCtx)
		cancel()
	}

	c.mu.Lock()
	changed := c.serving != (err == nil)
	c.serving = err == nil
	c.lastErr = err
	c.mu.Unlock()

	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if c.server != nil {
		c.server.SetServingStatus("", status)
		c.server.SetServingStatus(ServiceName, status)
	}
	if changed {
		if err != nil {
			c.logger.Warn("database unreachable", "error", err)
		} else {
			c.logger.Info("database reachable")
		}
	}
	return err
}

// Run checks immediately and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	_ = c.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Check(ctx)
		}
	}
}

// Serving reports the result of the last check.
func (c *Checker) Serving() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serving
}

type healthResult struct {
	Status string `json:"status"`
}

// HandleHTTP answers GET /health with the last known status; 503 when not serving.
func (c *Checker) HandleHTTP(ctx *gin.Context) {
	c.mu.RLock()
	serving, lastErr := c.serving, c.lastErr
	c.mu.RUnlock()
	if !serving {
		msg := "database unreachable"
		if lastErr == nil {
			msg = "not checked yet"
		}
		body := httpx.ErrorBodyOf(apperr.New(apperr.CodeUnknown, msg))
		body.HTTPCode = http.StatusServiceUnavailable
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, httpx.Envelope{Success: false, Error: body})
		return
	}
	httpx.OK(ctx, healthResult{Status: healthpb.HealthCheckResponse_SERVING.String()})
}
