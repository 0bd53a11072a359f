package interceptors

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kodacci/o-monitor-rest/internal/server"

// Telemetry starts a server span per request and records request count and duration.
// Routes are reported by their pattern (e.g. /api/v1/users/:id).
func Telemetry(tp trace.TracerProvider, mp metric.MeterProvider) (gin.HandlerFunc, error) {
	tracer := tp.Tracer(instrumentationName)
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Handled HTTP requests"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		attrs := attribute.NewSet(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("http.status_code", strconv.Itoa(status)),
		)
		span.SetAttributes(attrs.ToSlice()...)
		if status >= 500 {
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}
		requests.Add(ctx, 1, metric.WithAttributeSet(attrs))
		duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributeSet(attrs))
	}, nil
}
