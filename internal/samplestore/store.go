// Package samplestore keeps an append-only record of every committed cycle in sqlite or libsql.
// It is an export, tracker state is never rebuilt from it.
package samplestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"votetracker/internal/components/assert"
	"votetracker/internal/components/telemetry"
	"votetracker/internal/samplestore/db"
	"votetracker/internal/tracker"
)

type Store struct {
	db  *sql.DB
	qry *db.Queries
	tel telemetry.API
}

func NewStore(database *sql.DB, tel telemetry.API) Store {
	assert.NotNil(database)
	assert.NotNil(tel)
	return Store{
		db:  database,
		qry: db.New(database),
		tel: telemetry.NewScopedAPI("samplestore", tel),
	}
}

// Migrate creates the tables if they do not exist yet.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("samplestore: migrate: %w", err)
	}
	return nil
}

// OnCycle records the report, it lets a Store be registered as a scheduler listener.
func (s Store) OnCycle(ctx context.Context, report tracker.CycleReport) error {
	err := s.Record(ctx, report)
	if err != nil {
		return err
	}
	s.tel.ReportDebug("recorded cycle", telemetry.KV{Key: "manual", Value: report.Manual})
	return nil
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

// Record writes one cycle and all of its samples in a single transaction.
func (s Store) Record(ctx context.Context, report tracker.CycleReport) error {
	var params db.CreateCycleParams
	var samples []tracker.Sample

	switch {
	case report.Result != nil:
		res := report.Result
		params = db.CreateCycleParams{
			Time:       res.Timestamp.UnixMilli(),
			Succeeded:  int64(res.Succeeded),
			Total:      int64(res.Total),
			DurationMs: res.Duration.Milliseconds(),
			LeaderID:   res.LeaderID,
		}
		samples = res.Samples
	case report.Failure != nil:
		failure := report.Failure
		params = db.CreateCycleParams{
			Time:       failure.Started.Add(failure.Duration).UnixMilli(),
			Failed:     true,
			Total:      int64(failure.Total),
			DurationMs: failure.Duration.Milliseconds(),
		}
		samples = failure.Samples
	default:
		return fmt.Errorf("samplestore: report has neither a result nor a failure")
	}
	params.Manual = report.Manual

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	cycleId, err := txqry.CreateCycle(ctx, params)
	if err != nil {
		return fmt.Errorf("samplestore: create cycle: %w", err)
	}

	for _, sample := range samples {
		err = txqry.CreateSample(ctx, db.CreateSampleParams{
			CycleID:       cycleId,
			EntityID:      sample.EntityID,
			Votes:         toNullInt64(sample.Votes),
			Views:         toNullInt64(sample.Views),
			Success:       sample.Success,
			FailureReason: sample.FailureReason,
		})
		if err != nil {
			return fmt.Errorf("samplestore: create sample %s: %w", sample.EntityID, err)
		}
	}

	return tx.Commit()
}

// EntitySample is one recorded observation of an entity.
type EntitySample struct {
	Time          time.Time
	Manual        bool
	Votes         *int64
	Views         *int64
	Success       bool
	FailureReason string
}

// Pull returns the latest samples of an entity, newest first.
func (s Store) Pull(ctx context.Context, entityId string, limit int) ([]EntitySample, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.qry.GetEntitySamples(ctx, db.GetEntitySamplesParams{
		EntityID: entityId,
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, err
	}

	out := make([]EntitySample, len(rows))
	for i, row := range rows {
		out[i] = EntitySample{
			Time:          time.UnixMilli(row.Time),
			Manual:        row.Manual,
			Votes:         fromNullInt64(row.Votes),
			Views:         fromNullInt64(row.Views),
			Success:       row.Success,
			FailureReason: row.FailureReason,
		}
	}
	return out, nil
}

type Stats struct {
	Cycles       int64
	FailedCycles int64
}

func (s Store) Stats(ctx context.Context) (Stats, error) {
	row, err := s.qry.CountCycles(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Cycles: row.Total, FailedCycles: row.Failed}, nil
}
