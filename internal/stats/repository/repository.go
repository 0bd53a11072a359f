package repository

import (
	"context"
	"time"

	"github.com/kodacci/o-monitor-rest/internal/stats/domain"
)

// DefaultReadLimit caps the number of samples returned by one Read.
const DefaultReadLimit = 5000

// Repository persists host metric samples. Errors are tagged with apperr stats repository codes.
type Repository interface {
	Write(ctx context.Context, s *domain.Sample) error
	// Read returns samples with from <= timestamp <= to, oldest first, at most the configured limit.
	// CPU names are not stored; returned samples have an empty Name and CoresCount = len(Load).
	Read(ctx context.Context, from, to time.Time) ([]*domain.Sample, error)
	// DeleteOlderThan removes samples with timestamp strictly before the cutoff and returns how many were removed.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultReadLimit
	}
	return limit
}
