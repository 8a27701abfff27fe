package tracker

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("votetracker/internal/tracker")

var meter = otel.Meter("votetracker/internal/tracker")
var cycleCounter, _ = meter.Int64Counter("tracker.cycles")
var fetchFailureCounter, _ = meter.Int64Counter("tracker.fetch_failures")
var cycleDuration, _ = meter.Float64Histogram("tracker.cycle_duration_ms")
var votesGauge, _ = meter.Int64Gauge("tracker.votes")
var sessionDeltaGauge, _ = meter.Int64Gauge("tracker.session_delta")

const (
	report_aggregator_fetch  = "aggregator.fetch"
	report_aggregator_panic  = "aggregator.fetch-panic"
	report_scheduler_cycle   = "scheduler.cycle"
	report_scheduler_listen  = "scheduler.listener"
	report_tracker_succeeded = "cycle.succeeded"
	report_tracker_failed    = "cycle.failed"
)

func metricEntity(id string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("entity", id))
}
