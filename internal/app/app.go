// Package app wires configuration, storage, services and servers into a runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/kodacci/o-monitor-rest/internal/config"
	healthhandler "github.com/kodacci/o-monitor-rest/internal/health/handler"
	identityservice "github.com/kodacci/o-monitor-rest/internal/identity/service"
	"github.com/kodacci/o-monitor-rest/internal/security"
	"github.com/kodacci/o-monitor-rest/internal/server"
	"github.com/kodacci/o-monitor-rest/internal/stats/sampler"
	"github.com/kodacci/o-monitor-rest/internal/stats/scheduler"
	statsservice "github.com/kodacci/o-monitor-rest/internal/stats/service"
	"github.com/kodacci/o-monitor-rest/internal/telemetry"
	telemetryotel "github.com/kodacci/o-monitor-rest/internal/telemetry/otel"
	userservice "github.com/kodacci/o-monitor-rest/internal/user/service"
)

// ServiceName is reported to OpenTelemetry.
const ServiceName = "o-monitor-rest"

// Version is set at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

const (
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 15 * time.Second
)

// App is a fully wired process. Create it with New, then call Run and finally Close.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	providers *telemetryotel.Providers
	storage   *Storage
	sampler   *sampler.Sampler
	scheduler *scheduler.Scheduler
	checker   *healthhandler.Checker
	health    *health.Server
	router    *gin.Engine
	metrics   metric.Registration
}

// New builds every component. The default admin user is created when the users table is empty.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.providers, err = telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Insecure:       cfg.OTLPInsecure,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.providers.SetGlobal()

	if a.storage, err = OpenStorage(ctx, cfg, logger); err != nil {
		return nil, err
	}

	codec, err := security.NewTokenCodec(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	hasher := security.NewHasher(cfg.BcryptCost)
	users := userservice.NewUserService(a.storage.Users, hasher, logger)
	created, err := users.EnsureDefaultUser(ctx, cfg.DefaultUserLogin, cfg.DefaultUserPassword)
	if err != nil {
		return nil, fmt.Errorf("default user: %w", err)
	}
	if created {
		logger.Warn("created default admin user; change its password", "login", cfg.DefaultUserLogin)
	}

	var events telemetry.EventEmitter = telemetryotel.NewEventEmitter(a.providers.LoggerProvider)
	auth := identityservice.NewAuthService(a.storage.Users, hasher, codec, events, logger)

	if a.sampler, err = sampler.New(ctx, sampler.HostSource{}, cfg.ThermalSensorPath, logger); err != nil {
		return nil, err
	}
	if a.metrics, err = a.sampler.RegisterMetrics(a.providers.MeterProvider.Meter("o-monitor.sampler")); err != nil {
		return nil, fmt.Errorf("sampler metrics: %w", err)
	}

	captureSpec, err := cfg.CaptureSpec()
	if err != nil {
		return nil, err
	}
	retention, err := cfg.Retention()
	if err != nil {
		return nil, err
	}
	a.scheduler, err = scheduler.New(a.sampler, a.storage.Stats, scheduler.Options{
		CaptureSpec:  captureSpec,
		CleanupSpec:  cfg.CleanupSpec(),
		Retention:    retention,
		LoadInterval: cfg.CPULoadUpdateInterval(),
	}, logger)
	if err != nil {
		return nil, err
	}

	a.health = health.NewServer()
	a.checker = healthhandler.NewChecker(a.storage.DB, a.health, logger)

	a.router, err = server.NewRouter(server.HTTPDeps{
		Auth:           auth,
		Users:          users,
		Stats:          statsservice.NewMonitoringService(a.storage.Stats, a.sampler),
		Health:         a.checker,
		Logger:         logger,
		TracerProvider: a.providers.TracerProvider,
		MeterProvider:  a.providers.MeterProvider,
		Pprof:          cfg.PprofEnabled,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Handler returns the HTTP handler of the REST API.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP and gRPC and runs the background jobs until ctx is cancelled or a server fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	httpLis, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	httpSrv := &http.Server{Handler: a.router, ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", httpLis.Addr().String())
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if a.cfg.GRPCAddr != "" {
		grpcLis, err := net.Listen("tcp", a.cfg.GRPCAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv := server.NewGRPCServer(server.GRPCDeps{
			Health:         a.health,
			TracerProvider: a.providers.TracerProvider,
			MeterProvider:  a.providers.MeterProvider,
		})
		g.Go(func() error {
			a.logger.Info("grpc server listening", "addr", grpcLis.Addr().String())
			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			a.health.Shutdown()
			grpcSrv.GracefulStop()
			return nil
		})
	}

	a.scheduler.Start(gctx)
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.scheduler.Stop(stopCtx)
	})
	g.Go(func() error {
		a.checker.Run(gctx, healthCheckInterval)
		return nil
	})

	return g.Wait()
}

// Close releases the database and flushes telemetry. It is safe to call on a partially built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.metrics != nil {
		errs = append(errs, a.metrics.Unregister())
	}
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	if a.providers != nil {
		errs = append(errs, a.providers.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
