package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/stats/domain"
)

// loadVector stores per-core load as a JSON array in a text column.
type loadVector []float64

func (v loadVector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]float64(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (v *loadVector) Scan(src any) error {
	var b []byte
	switch t := src.(type) {
	case nil:
		*v = nil
		return nil
	case string:
		b = []byte(t)
	case []byte:
		b = t
	default:
		return fmt.Errorf("load vector: unsupported type %T", src)
	}
	var out []float64
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*v = out
	return nil
}

type sampleRow struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	Timestamp   time.Time  `gorm:"column:timestamp;not null;index"`
	Temperature int        `gorm:"not null"`
	MemoryFree  int64      `gorm:"not null"`
	MemoryUsed  int64      `gorm:"not null"`
	MemoryTotal int64      `gorm:"not null"`
	CPULoad     loadVector `gorm:"column:cpu_load;type:text;not null"`
}

func (sampleRow) TableName() string { return "system_stats" }

func (r *sampleRow) toDomain() *domain.Sample {
	load := []float64(r.CPULoad)
	return &domain.Sample{
		Timestamp:   r.Timestamp.UTC(),
		Temperature: r.Temperature,
		Memory: domain.Memory{
			FreeBytes:  uint64(r.MemoryFree),
			UsedBytes:  uint64(r.MemoryUsed),
			TotalBytes: uint64(r.MemoryTotal),
		},
		CPU: domain.CPU{CoresCount: len(load), Load: load},
	}
}

// GormRepository is the embedded (SQLite) stats store.
type GormRepository struct {
	db    *gorm.DB
	limit int
}

func NewGormRepository(db *gorm.DB, limit int) *GormRepository {
	return &GormRepository{db: db, limit: normalizeLimit(limit)}
}

// AutoMigrate creates or updates the system_stats table.
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&sampleRow{})
}

func (r *GormRepository) Write(ctx context.Context, s *domain.Sample) error {
	row := sampleRow{
		Timestamp:   s.Timestamp.UTC(),
		Temperature: s.Temperature,
		MemoryFree:  int64(s.Memory.FreeBytes),
		MemoryUsed:  int64(s.Memory.UsedBytes),
		MemoryTotal: int64(s.Memory.TotalBytes),
		CPULoad:     loadVector(s.CPU.Load),
	}
	return apperr.Wrap(r.db.WithContext(ctx).Create(&row).Error, apperr.CodeStatsRepoWrite, "insert sample")
}

func (r *GormRepository) Read(ctx context.Context, from, to time.Time) ([]*domain.Sample, error) {
	var rows []sampleRow
	err := r.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", from.UTC(), to.UTC()).
		Order("timestamp").
		Limit(r.limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStatsRepoRead, "select samples")
	}
	out := make([]*domain.Sample, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *GormRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("timestamp < ?", before.UTC()).Delete(&sampleRow{})
	if res.Error != nil {
		return 0, apperr.Wrap(res.Error, apperr.CodeStatsRepoCleanup, "delete samples")
	}
	return res.RowsAffected, nil
}
