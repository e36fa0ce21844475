package keyed

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/enverbisevac/entitylock/lock/keyed"

const (
	resultAcquired  = "acquired"
	resultTimeout   = "timeout"
	resultCancelled = "cancelled"
)

type metrics struct {
	locker attribute.KeyValue

	acquisitions metric.Int64Counter
	contentions  metric.Int64Counter
	waits        metric.Float64Histogram
	lockedKeys   metric.Int64UpDownCounter
	globals      metric.Int64Counter
}

// newMetrics creates the manager instruments. Creation errors are reported
// to the otel error handler; the returned instruments are always usable.
func newMetrics(config Config) *metrics {
	meter := config.MeterProvider.Meter(instrumentationName)
	m := &metrics{
		locker: attribute.String("locker", config.Name),
	}

	var err error
	m.acquisitions, err = meter.Int64Counter("entitylock.acquisitions",
		metric.WithDescription("Entity lock acquisition attempts by result."))
	handle(err)
	m.contentions, err = meter.Int64Counter("entitylock.contentions",
		metric.WithDescription("Entity lock acquisitions that waited for another owner."))
	handle(err)
	m.waits, err = meter.Float64Histogram("entitylock.wait.duration",
		metric.WithDescription("Time spent acquiring entity locks."),
		metric.WithUnit("s"))
	handle(err)
	m.lockedKeys, err = meter.Int64UpDownCounter("entitylock.locked_keys",
		metric.WithDescription("Entity keys currently locked."))
	handle(err)
	m.globals, err = meter.Int64Counter("entitylock.global.acquisitions",
		metric.WithDescription("Global lock acquisitions."))
	handle(err)

	return m
}

func handle(err error) {
	if err != nil {
		otel.Handle(err)
	}
}

func (m *metrics) attempt(ctx context.Context, result string, started time.Time, contended bool) {
	m.acquisitions.Add(ctx, 1, metric.WithAttributes(m.locker, attribute.String("result", result)))
	m.waits.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(m.locker))
	if contended {
		m.contentions.Add(ctx, 1, metric.WithAttributes(m.locker))
	}
}

func (m *metrics) keyLocked(ctx context.Context, delta int64) {
	m.lockedKeys.Add(ctx, delta, metric.WithAttributes(m.locker))
}

func (m *metrics) globalAcquired(ctx context.Context) {
	m.globals.Add(ctx, 1, metric.WithAttributes(m.locker))
}
