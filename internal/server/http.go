// Package server assembles the HTTP router and the ops gRPC server.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	healthhandler "github.com/kodacci/o-monitor-rest/internal/health/handler"
	identityhandler "github.com/kodacci/o-monitor-rest/internal/identity/handler"
	"github.com/kodacci/o-monitor-rest/internal/platform/httpx"
	"github.com/kodacci/o-monitor-rest/internal/server/interceptors"
	statshandler "github.com/kodacci/o-monitor-rest/internal/stats/handler"
	userdomain "github.com/kodacci/o-monitor-rest/internal/user/domain"
	userhandler "github.com/kodacci/o-monitor-rest/internal/user/handler"
)

// APIPrefix is the common prefix of every API route.
const APIPrefix = "/api/v1"

// Auth is the auth service as used by the router.
type Auth interface {
	identityhandler.Authenticator
	ResolveUser(ctx context.Context, accessToken string) (*userdomain.Identity, error)
}

// HTTPDeps holds the dependencies of the HTTP router. Auth, Users and Stats are required.
type HTTPDeps struct {
	Auth   Auth
	Users  userhandler.Users
	Stats  statshandler.StatsGetter
	Health *healthhandler.Checker
	Logger *slog.Logger

	// TracerProvider and MeterProvider default to the global providers.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Pprof mounts /debug/pprof.
	Pprof bool
}

// NewRouter builds the gin engine:
//
//	GET  /health                 public
//	POST /api/v1/auth            public
//	POST /api/v1/auth/token      public
//	*    /api/v1/users...        authenticated; non-GET needs ADMIN
//	GET  /api/v1/monitoring      authenticated
func NewRouter(d HTTPDeps) (*gin.Engine, error) {
	if d.Auth == nil || d.Users == nil || d.Stats == nil {
		return nil, fmt.Errorf("server: auth, users and stats are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := d.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := d.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	telemetry, err := interceptors.Telemetry(tp, mp)
	if err != nil {
		return nil, fmt.Errorf("server: telemetry middleware: %w", err)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			logger.Error("panic in handler", "path", c.Request.URL.Path, "panic", recovered)
			httpx.Fail(c, apperr.Newf(apperr.CodeUnknown, "internal error"))
		}),
		telemetry,
		interceptors.ResolveIdentity(d.Auth, logger),
		interceptors.Audit(logger),
	)
	r.NoRoute(func(c *gin.Context) {
		httpx.Fail(c, apperr.Newf(apperr.CodeNotFound, "route %s %s not found", c.Request.Method, c.Request.URL.Path))
	})
	r.NoMethod(func(c *gin.Context) {
		httpx.Fail(c, apperr.Newf(apperr.CodeBadRequest, "method %s not allowed on %s", c.Request.Method, c.Request.URL.Path))
	})

	if d.Health != nil {
		r.GET("/health", d.Health.HandleHTTP)
	}
	if d.Pprof {
		pprof.Register(r)
	}

	api := r.Group(APIPrefix)
	identityhandler.NewHandler(d.Auth, logger).Register(api)

	protected := api.Group("", interceptors.RequireAccess())
	userhandler.NewHandler(d.Users).Register(protected)
	statshandler.NewHandler(d.Stats).Register(protected)
	return r, nil
}
