// Package sampler captures host metric samples and keeps a rolling per-core CPU load.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/stats/domain"
)

// DefaultSensorPath is the thermal zone file read for the temperature, in millidegrees Celsius.
const DefaultSensorPath = "/sys/devices/virtual/thermal/thermal_zone0/temp"

// ErrTemperatureUnavailable is returned by CaptureSample when the sensor cannot be read or parsed.
var ErrTemperatureUnavailable = errors.New("temperature unavailable")

type idleSnapshot struct {
	idleMS []float64
	at     time.Time
}

// Sampler reads host counters. The load vector is recomputed by RecomputeLoad on its own cadence
// and CaptureSample only reads the latest vector.
type Sampler struct {
	source     CounterSource
	sensorPath string
	logger     *slog.Logger
	now        func() time.Time
	cpuName    string

	mu       sync.Mutex // serialises RecomputeLoad
	baseline idleSnapshot
	load     atomic.Pointer[[]float64]
}

// New reads the CPU model and the initial idle baseline. The load vector starts as zeros.
// An empty sensorPath uses DefaultSensorPath.
func New(ctx context.Context, source CounterSource, sensorPath string, logger *slog.Logger) (*Sampler, error) {
	if sensorPath == "" {
		sensorPath = DefaultSensorPath
	}
	s := &Sampler{
		source:     source,
		sensorPath: sensorPath,
		logger:     logger.With("component", "sampler"),
		now:        time.Now,
	}

	name, err := source.CPUModel(ctx)
	if err != nil {
		s.logger.Warn("cpu model unavailable", "error", err)
	}
	s.cpuName = name

	idle, err := source.IdleTimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("sampler: read idle counters: %w", err)
	}
	s.baseline = idleSnapshot{idleMS: toMillis(idle), at: s.now()}
	zeros := make([]float64, len(idle))
	s.load.Store(&zeros)
	return s, nil
}

// CPUName returns the model name captured at construction.
func (s *Sampler) CPUName() string {
	return s.cpuName
}

// Load returns a copy of the current per-core load in percent.
func (s *Sampler) Load() []float64 {
	cur := *s.load.Load()
	out := make([]float64, len(cur))
	copy(out, cur)
	return out
}

// CaptureSample returns a sample with the current memory, load and temperature.
// A sensor failure is returned as ErrTemperatureUnavailable tagged with the watcher temperature code.
func (s *Sampler) CaptureSample(ctx context.Context) (*domain.Sample, error) {
	free, total, err := s.source.Memory(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memory: %w", err)
	}
	temp, err := s.Temperature()
	if err != nil {
		return nil, err
	}
	load := s.Load()
	return &domain.Sample{
		Timestamp:   s.now().UTC(),
		Temperature: temp,
		Memory:      domain.NewMemory(free, total),
		CPU:         domain.CPU{Name: s.cpuName, CoresCount: len(load), Load: load},
	}, nil
}

// Temperature reads the sensor file and converts millidegrees to whole degrees.
func (s *Sampler) Temperature() (int, error) {
	raw, err := os.ReadFile(s.sensorPath)
	if err != nil {
		return 0, apperr.Wrap(fmt.Errorf("%w: %v", ErrTemperatureUnavailable, err), apperr.CodeWatcherTemperature, "read sensor")
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, apperr.Wrap(fmt.Errorf("%w: %v", ErrTemperatureUnavailable, err), apperr.CodeWatcherTemperature, "parse sensor")
	}
	return int(math.Round(milli / 1000)), nil
}

// RecomputeLoad derives per-core load from the idle time accumulated since the previous call:
// load = 100 - 100*Δidle/Δt, clamped to [0, 100]. When no time has elapsed the previous vector is kept.
func (s *Sampler) RecomputeLoad(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idle, err := s.source.IdleTimes(ctx)
	if err != nil {
		return fmt.Errorf("read idle counters: %w", err)
	}
	now := s.now()
	elapsed := float64(now.Sub(s.baseline.at)) / float64(time.Millisecond)
	if elapsed <= 0 {
		return nil
	}

	current := toMillis(idle)
	load := make([]float64, len(current))
	for i, ms := range current {
		if i >= len(s.baseline.idleMS) {
			continue
		}
		load[i] = clamp(100 - 100*(ms-s.baseline.idleMS[i])/elapsed)
	}
	s.load.Store(&load)
	s.baseline = idleSnapshot{idleMS: current, at: now}
	return nil
}

// RunLoadLoop calls RecomputeLoad every interval until ctx is done.
func (s *Sampler) RunLoadLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RecomputeLoad(ctx); err != nil {
				s.logger.Warn("cpu load recompute failed", "error", err)
			}
		}
	}
}

func toMillis(seconds []float64) []float64 {
	out := make([]float64, len(seconds))
	for i, v := range seconds {
		out[i] = v * 1000
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
