package sampler

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterMetrics exports the rolling load vector and the sensor temperature as observable gauges.
func (s *Sampler) RegisterMetrics(meter metric.Meter) (metric.Registration, error) {
	load, err := meter.Float64ObservableGauge("system.cpu.load",
		metric.WithDescription("Per-core CPU load"),
		metric.WithUnit("%"))
	if err != nil {
		return nil, err
	}
	temp, err := meter.Int64ObservableGauge("system.temperature",
		metric.WithDescription("Thermal sensor reading"),
		metric.WithUnit("Cel"))
	if err != nil {
		return nil, err
	}
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for i, v := range s.Load() {
			o.ObserveFloat64(load, v, metric.WithAttributes(attribute.String("core", strconv.Itoa(i))))
		}
		if t, err := s.Temperature(); err == nil {
			o.ObserveInt64(temp, int64(t))
		}
		return nil
	}, load, temp)
}
