package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/stats/domain"
)

type PostgresRepository struct {
	db    *sql.DB
	limit int
	types *pgtype.Map
}

// NewPostgresRepository returns a stats repository on db. limit <= 0 uses DefaultReadLimit.
func NewPostgresRepository(db *sql.DB, limit int) *PostgresRepository {
	return &PostgresRepository{db: db, limit: normalizeLimit(limit), types: pgtype.NewMap()}
}

func (r *PostgresRepository) Write(ctx context.Context, s *domain.Sample) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO system_stats ("timestamp", temperature, memory_free, memory_used, memory_total, cpu_load)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.Timestamp.UTC(), s.Temperature,
		int64(s.Memory.FreeBytes), int64(s.Memory.UsedBytes), int64(s.Memory.TotalBytes),
		s.CPU.Load,
	)
	return apperr.Wrap(err, apperr.CodeStatsRepoWrite, "insert sample")
}

func (r *PostgresRepository) Read(ctx context.Context, from, to time.Time) ([]*domain.Sample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT "timestamp", temperature, memory_free, memory_used, memory_total, cpu_load
		 FROM system_stats WHERE "timestamp" BETWEEN $1 AND $2 ORDER BY "timestamp" LIMIT $3`,
		from.UTC(), to.UTC(), r.limit)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStatsRepoRead, "select samples")
	}
	defer rows.Close()

	var out []*domain.Sample
	for rows.Next() {
		var (
			s                 domain.Sample
			free, used, total int64
			load              []float64
		)
		if err := rows.Scan(&s.Timestamp, &s.Temperature, &free, &used, &total, r.types.SQLScanner(&load)); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStatsRepoRead, "scan sample")
		}
		s.Memory = domain.Memory{FreeBytes: uint64(free), UsedBytes: uint64(used), TotalBytes: uint64(total)}
		s.CPU = domain.CPU{CoresCount: len(load), Load: load}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStatsRepoRead, "iterate samples")
	}
	return out, nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM system_stats WHERE "timestamp" < $1`, before.UTC())
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeStatsRepoCleanup, "delete samples")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeStatsRepoCleanup, "rows affected")
	}
	return n, nil
}
