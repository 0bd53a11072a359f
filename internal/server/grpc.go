package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCDeps holds the dependencies of the ops gRPC server.
type GRPCDeps struct {
	// Health is the health server updated by the readiness checker.
	Health *health.Server
	// TracerProvider and MeterProvider instrument every RPC. Nil uses the global providers.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// NewGRPCServer returns a gRPC server exposing grpc.health.v1 and server reflection.
func NewGRPCServer(deps GRPCDeps, opts ...grpc.ServerOption) *grpc.Server {
	var otelOpts []otelgrpc.Option
	if deps.TracerProvider != nil {
		otelOpts = append(otelOpts, otelgrpc.WithTracerProvider(deps.TracerProvider))
	}
	if deps.MeterProvider != nil {
		otelOpts = append(otelOpts, otelgrpc.WithMeterProvider(deps.MeterProvider))
	}
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler(otelOpts...))}, opts...)

	s := grpc.NewServer(opts...)
	hs := deps.Health
	if hs == nil {
		hs = health.NewServer()
	}
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s
}
