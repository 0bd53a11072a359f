package service

import (
	"context"
	"time"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/stats/domain"
)

// Reader reads stored samples in a time range.
type Reader interface {
	Read(ctx context.Context, from, to time.Time) ([]*domain.Sample, error)
}

// CPUNamer reports the live CPU model name.
type CPUNamer interface {
	CPUName() string
}

// MonitoringService serves stored samples to API callers.
type MonitoringService struct {
	store Reader
	cpu   CPUNamer
	now   func() time.Time
}

func NewMonitoringService(store Reader, cpu CPUNamer) *MonitoringService {
	return &MonitoringService{store: store, cpu: cpu, now: time.Now}
}

// GetSystemStats returns samples in [from, to], oldest first. A nil to means now.
// The CPU name is not stored, so every sample gets the live model name.
func (s *MonitoringService) GetSystemStats(ctx context.Context, from, to *time.Time) ([]*domain.Sample, error) {
	if from == nil {
		return nil, apperr.New(apperr.CodeBadRequest, "from is required")
	}
	end := s.now()
	if to != nil {
		end = *to
	}
	if end.Before(*from) {
		return nil, apperr.New(apperr.CodeBadRequest, "to must not be before from")
	}

	samples, err := s.store.Read(ctx, *from, end)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeMonitoringGetStats, "read system stats")
	}
	name := ""
	if s.cpu != nil {
		name = s.cpu.CPUName()
	}
	out := make([]*domain.Sample, 0, len(samples))
	for _, sample := range samples {
		sample.CPU.Name = name
		out = append(out, sample)
	}
	return out, nil
}
