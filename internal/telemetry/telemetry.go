// Package telemetry wires OpenTelemetry metrics with a Prometheus
// exporter so the watch daemon can be scraped.
package telemetry

import (
	"context"
	"fmt"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/otlptranslator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// Global telemetry handles
var (
	// Meter for metrics
	Meter = otel.Meter("github.com/yairfalse/varusta")

	// PrometheusRegistry for scraping. The OTEL exporter registers
	// itself with this registry during Init.
	PrometheusRegistry *promclient.Registry

	// Metrics
	PlansRun         metric.Int64Counter
	DriftDetected    metric.Int64Counter
	DecisionsApplied metric.Int64Counter
	ApplyFailures    metric.Int64Counter
	PlanDuration     metric.Float64Histogram
	ManagedResources metric.Int64Gauge
	SnapshotRevision metric.Int64Gauge
)

// Config for telemetry initialization
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// Init initializes the metric provider and instruments. Metrics are
// exported pull-based only; there is no OTLP push path.
func Init(cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "varusta"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	registry := promclient.NewRegistry()
	PrometheusRegistry = registry

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithTranslationStrategy(otlptranslator.UnderscoreEscapingWithSuffixes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)
	Meter = provider.Meter("github.com/yairfalse/varusta")

	if err := initInstruments(); err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return provider.Shutdown, nil
}

func initInstruments() error {
	var err error

	PlansRun, err = Meter.Int64Counter("varusta.plans.run.total",
		metric.WithDescription("Total number of plans computed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create plans_run counter: %w", err)
	}

	DriftDetected, err = Meter.Int64Counter("varusta.drift.detected.total",
		metric.WithDescription("Total number of plans that found drift"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create drift_detected counter: %w", err)
	}

	DecisionsApplied, err = Meter.Int64Counter("varusta.decisions.applied.total",
		metric.WithDescription("Total number of decisions executed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create decisions_applied counter: %w", err)
	}

	ApplyFailures, err = Meter.Int64Counter("varusta.apply.failures.total",
		metric.WithDescription("Total number of failed decision executions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create apply_failures counter: %w", err)
	}

	PlanDuration, err = Meter.Float64Histogram("varusta.plan.duration.seconds",
		metric.WithDescription("Duration of observe-and-plan cycles"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create plan_duration histogram: %w", err)
	}

	ManagedResources, err = Meter.Int64Gauge("varusta.resources.managed",
		metric.WithDescription("Current number of managed cloud resources"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create managed_resources gauge: %w", err)
	}

	SnapshotRevision, err = Meter.Int64Gauge("varusta.state.revision.current",
		metric.WithDescription("Current state store revision"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot_revision gauge: %w", err)
	}

	return nil
}

// RecordPlan records one plan cycle with its outcome attributes.
func RecordPlan(ctx context.Context, region string, changes int, duration float64) {
	if PlansRun == nil {
		return
	}
	set := metric.WithAttributeSet(attribute.NewSet(
		attribute.String("region", region),
	))
	PlansRun.Add(ctx, 1, set)
	PlanDuration.Record(ctx, duration, set)
	if changes > 0 {
		DriftDetected.Add(ctx, 1, set)
	}
}

// RecordDecisionApplied records one successfully executed decision.
func RecordDecisionApplied(ctx context.Context, action, resourceType string) {
	if DecisionsApplied == nil {
		return
	}
	DecisionsApplied.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
		attribute.String("action", action),
		attribute.String("resource_type", resourceType),
	)))
}

// RecordApplyFailure records one decision that failed to execute.
func RecordApplyFailure(ctx context.Context, action, resourceType string) {
	if ApplyFailures == nil {
		return
	}
	ApplyFailures.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
		attribute.String("action", action),
		attribute.String("resource_type", resourceType),
	)))
}

// RecordSnapshotRevision records the state store revision after an apply.
func RecordSnapshotRevision(ctx context.Context, revision int64) {
	if SnapshotRevision == nil {
		return
	}
	SnapshotRevision.Record(ctx, revision)
}
