package db

import (
	"context"
	"database/sql"
)

const createCycle = `
insert into cycle (time, manual, failed, succeeded, total, duration_ms, leader_id)
values (?, ?, ?, ?, ?, ?, ?)
returning id
`

type CreateCycleParams struct {
	Time       int64
	Manual     bool
	Failed     bool
	Succeeded  int64
	Total      int64
	DurationMs int64
	LeaderID   string
}

func (q *Queries) CreateCycle(ctx context.Context, arg CreateCycleParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createCycle,
		arg.Time,
		arg.Manual,
		arg.Failed,
		arg.Succeeded,
		arg.Total,
		arg.DurationMs,
		arg.LeaderID,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createSample = `
insert into sample (cycle_id, entity_id, votes, views, success, failure_reason)
values (?, ?, ?, ?, ?, ?)
`

type CreateSampleParams struct {
	CycleID       int64
	EntityID      string
	Votes         sql.NullInt64
	Views         sql.NullInt64
	Success       bool
	FailureReason string
}

func (q *Queries) CreateSample(ctx context.Context, arg CreateSampleParams) error {
	_, err := q.db.ExecContext(ctx, createSample,
		arg.CycleID,
		arg.EntityID,
		arg.Votes,
		arg.Views,
		arg.Success,
		arg.FailureReason,
	)
	return err
}

const getEntitySamples = `
select cycle.time, cycle.manual, sample.votes, sample.views, sample.success, sample.failure_reason
from sample
inner join cycle on cycle.id = sample.cycle_id
where sample.entity_id = ?
order by cycle.time desc, cycle.id desc
limit ?
`

type GetEntitySamplesParams struct {
	EntityID string
	Limit    int64
}

type GetEntitySamplesRow struct {
	Time          int64
	Manual        bool
	Votes         sql.NullInt64
	Views         sql.NullInt64
	Success       bool
	FailureReason string
}

func (q *Queries) GetEntitySamples(ctx context.Context, arg GetEntitySamplesParams) ([]GetEntitySamplesRow, error) {
	rows, err := q.db.QueryContext(ctx, getEntitySamples, arg.EntityID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetEntitySamplesRow
	for rows.Next() {
		var i GetEntitySamplesRow
		if err := rows.Scan(
			&i.Time,
			&i.Manual,
			&i.Votes,
			&i.Views,
			&i.Success,
			&i.FailureReason,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countCycles = `
select count(*) as total, coalesce(sum(failed), 0) as failed from cycle
`

type CountCyclesRow struct {
	Total  int64
	Failed int64
}

func (q *Queries) CountCycles(ctx context.Context) (CountCyclesRow, error) {
	row := q.db.QueryRowContext(ctx, countCycles)
	var i CountCyclesRow
	err := row.Scan(&i.Total, &i.Failed)
	return i, err
}
