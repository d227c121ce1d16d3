package persist

import (
	"context"
	"fmt"
	"time"
)

// StatsSample is one pool occupancy sample of a particle system.
type StatsSample struct {
	System    string
	Tick      uint64
	SampledAt time.Time
	State     string
	Alive     int
	Free      int
	Capacity  int
	Quota     int
}

// EventRow is one lifecycle event (state change, quota exhaustion, removal).
type EventRow struct {
	System    string
	Tick      uint64
	Kind      string
	Detail    string
	CreatedAt time.Time
}

type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// InsertBatch writes samples and events in a single transaction.
func (r *StatsRepo) InsertBatch(ctx context.Context, samples []StatsSample, events []EventRow) error {
	if len(samples) == 0 && len(events) == 0 {
		return nil
	}
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("stats begin: %w", err)
	}
	defer tx.Rollback()

	if len(samples) > 0 {
		stmt, err := tx.PrepareContext(ctx, r.db.Rebind(
			`INSERT INTO particle_stats (system, tick, sampled_at_ms, state, alive, free, capacity, quota)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("stats prepare: %w", err)
		}
		defer stmt.Close()
		for _, s := range samples {
			if _, err := stmt.ExecContext(ctx,
				s.System, int64(s.Tick), s.SampledAt.UnixMilli(), s.State, s.Alive, s.Free, s.Capacity, s.Quota,
			); err != nil {
				return fmt.Errorf("stats insert: %w", err)
			}
		}
	}

	if len(events) > 0 {
		stmt, err := tx.PrepareContext(ctx, r.db.Rebind(
			`INSERT INTO particle_events (system, tick, kind, detail, created_ms) VALUES (?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("events prepare: %w", err)
		}
		defer stmt.Close()
		for _, e := range events {
			if _, err := stmt.ExecContext(ctx, e.System, int64(e.Tick), e.Kind, e.Detail, e.CreatedAt.UnixMilli()); err != nil {
				return fmt.Errorf("events insert: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Recent returns up to limit samples of one system, newest first.
func (r *StatsRepo) Recent(ctx context.Context, system string, limit int) ([]StatsSample, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(
		`SELECT system, tick, sampled_at_ms, state, alive, free, capacity, quota
		 FROM particle_stats WHERE system = ? ORDER BY id DESC LIMIT ?`), system, limit)
	if err != nil {
		return nil, fmt.Errorf("stats select: %w", err)
	}
	defer rows.Close()

	var out []StatsSample
	for rows.Next() {
		var (
			s    StatsSample
			tick int64
			ms   int64
		)
		if err := rows.Scan(&s.System, &tick, &ms, &s.State, &s.Alive, &s.Free, &s.Capacity, &s.Quota); err != nil {
			return nil, fmt.Errorf("stats scan: %w", err)
		}
		s.Tick = uint64(tick)
		s.SampledAt = time.UnixMilli(ms)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Events returns up to limit events of one system, newest first.
func (r *StatsRepo) Events(ctx context.Context, system string, limit int) ([]EventRow, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(
		`SELECT system, tick, kind, detail, created_ms
		 FROM particle_events WHERE system = ? ORDER BY id DESC LIMIT ?`), system, limit)
	if err != nil {
		return nil, fmt.Errorf("events select: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			e    EventRow
			tick int64
			ms   int64
		)
		if err := rows.Scan(&e.System, &tick, &e.Kind, &e.Detail, &ms); err != nil {
			return nil, fmt.Errorf("events scan: %w", err)
		}
		e.Tick = uint64(tick)
		e.CreatedAt = time.UnixMilli(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}
