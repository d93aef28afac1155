package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/fixturekit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "local",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider with an OTLP HTTP
// exporter. The returned provider must be shut down when tests finish.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Transaction operations counted by RecordTxn.
const (
	TxnBegin    = "begin"
	TxnCommit   = "commit"
	TxnRollback = "rollback"
)

// Metrics holds the fixture metric instruments. A nil *Metrics records nothing.
type Metrics struct {
	runTotal      metric.Int64Counter
	phaseDuration metric.Float64Histogram
	phaseFailures metric.Int64Counter
	txnTotal      metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("fixture.run.total",
		metric.WithDescription("Total number of fixture runs by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fixture.run.total counter: %w", err)
	}

	phaseDuration, err := meter.Float64Histogram("fixture.phase.duration",
		metric.WithDescription("Duration of lifecycle phases in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fixture.phase.duration histogram: %w", err)
	}

	phaseFailures, err := meter.Int64Counter("fixture.phase.failures",
		metric.WithDescription("Lifecycle phases that ended with an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fixture.phase.failures counter: %w", err)
	}

	txnTotal, err := meter.Int64Counter("fixture.txn.total",
		metric.WithDescription("Transaction operations on managed resources"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fixture.txn.total counter: %w", err)
	}

	return &Metrics{
		runTotal:      runTotal,
		phaseDuration: phaseDuration,
		phaseFailures: phaseFailures,
		txnTotal:      txnTotal,
	}, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments created on the global meter provider.
// It returns nil if the instruments could not be created.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(Meter(defaultTracerName))
		if err != nil {
			logger.Warn("fixture metrics disabled", logger.ErrorFields("metrics", err))
			return
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordRun records a finished fixture run.
func (m *Metrics) RecordRun(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.runTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStatus, status)))
}

// RecordPhase records the duration of a phase and counts it as failed when status is "failed".
func (m *Metrics) RecordPhase(ctx context.Context, phase, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrPhase, phase),
		attribute.String(AttrStatus, status),
	))
	if status == StatusFailed {
		m.phaseFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrPhase, phase)))
	}
}

// RecordTxn counts one begin, commit or rollback on the named resource.
func (m *Metrics) RecordTxn(ctx context.Context, resource, op string) {
	if m == nil {
		return
	}
	m.txnTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrResource, resource),
		attribute.String("op", op),
	))
}
