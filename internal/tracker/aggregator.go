package tracker

import (
	"context"
	"fmt"
	"time"

	"votetracker/internal/components/assert"
	"votetracker/internal/components/chrono"
	"votetracker/internal/components/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Aggregator runs one fetch per entity concurrently and waits for all of them to settle.
type Aggregator struct {
	registry Registry
	fetcher  Fetcher
	clock    chrono.TimeAPI
	tel      telemetry.API
}

func NewAggregator(registry Registry, fetcher Fetcher, clock chrono.TimeAPI, tel telemetry.API) Aggregator {
	assert.NotNil(fetcher)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.True(registry.Len() > 0, "aggregator: empty registry")

	return Aggregator{
		registry: registry,
		fetcher:  fetcher,
		clock:    clock,
		tel:      tel,
	}
}

// RunCycle fetches every entity and returns the samples in registry order.
//
// A failing fetch never cancels its siblings. When no fetch succeeds the returned error is a
// *CycleFailure, which still carries the samples for logging.
func (a Aggregator) RunCycle(ctx context.Context) (CycleOutcome, error) {
	ctx, span := tracer.Start(ctx, "RunCycle")
	defer span.End()

	started := a.clock.Now()
	entities := a.registry.Entities()
	samples := make([]Sample, len(entities))

	var group errgroup.Group
	for i, entity := range entities {
		group.Go(func() error {
			samples[i] = a.fetchOne(ctx, entity, started)
			return nil
		})
	}
	group.Wait()

	succeeded := 0
	for _, s := range samples {
		if s.Success {
			succeeded++
			continue
		}
		a.tel.ReportWarning(
			report_aggregator_fetch,
			telemetry.KV{Key: "entity", Value: s.EntityID},
			telemetry.KV{Key: "reason", Value: s.FailureReason},
		)
		fetchFailureCounter.Add(ctx, 1, metricEntity(s.EntityID))
	}

	duration := a.clock.Since(started)
	span.SetAttributes(
		attribute.Int("succeeded", succeeded),
		attribute.Int("total", len(entities)),
	)

	if succeeded == 0 {
		failure := &CycleFailure{
			Started:  started,
			Samples:  samples,
			Total:    len(entities),
			Duration: duration,
		}
		span.SetStatus(codes.Error, failure.Error())
		return CycleOutcome{}, failure
	}

	return CycleOutcome{
		Started:   started,
		Samples:   samples,
		Succeeded: succeeded,
		Total:     len(entities),
		Duration:  duration,
	}, nil
}

func (a Aggregator) fetchOne(ctx context.Context, entity Entity, started time.Time) (sample Sample) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("entity", entity.ID))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("fetcher panicked: %v", r)
			a.tel.ReportBroken(report_aggregator_panic, err, telemetry.KV{Key: "entity", Value: entity.ID})
			sample = Sample{
				EntityID:      entity.ID,
				Timestamp:     started,
				FailureReason: err.Error(),
			}
		}
		if !sample.Success {
			span.SetStatus(codes.Error, sample.FailureReason)
		}
	}()

	sample = a.fetcher.Fetch(ctx, entity, started)
	sample.EntityID = entity.ID
	if sample.Timestamp.IsZero() {
		sample.Timestamp = started
	}
	return sample
}
