package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	jobsCompleted       metric.Int64Counter
	completionRejected  metric.Int64Counter
	referralCommissions metric.Int64Counter
	commissionAmount    metric.Int64Counter
}

// NewProvider returns a no-op provider unless export is enabled. Exported
// instruments carry the service name and environment as resource attributes.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, fmt.Errorf("metrics exporter: %w", err)
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil && !errors.Is(err, resource.ErrSchemaURLConflict) {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(provider)
	lc.Append(fx.StopHook(provider.Shutdown))

	log.Info("otlp metrics enabled",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "detailflow"
	}
	meter := provider.Meter(name)

	jobsCompleted, err := meter.Int64Counter("detailflow_jobs_completed_total")
	if err != nil {
		return nil, err
	}
	completionRejected, err := meter.Int64Counter("detailflow_job_completion_rejected_total")
	if err != nil {
		return nil, err
	}
	referralCommissions, err := meter.Int64Counter("detailflow_referral_commissions_total")
	if err != nil {
		return nil, err
	}
	commissionAmount, err := meter.Int64Counter("detailflow_referral_commission_amount_total",
		metric.WithUnit("{currency_unit}"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		jobsCompleted:       jobsCompleted,
		completionRejected:  completionRejected,
		referralCommissions: referralCommissions,
		commissionAmount:    commissionAmount,
	}, nil
}

// RecordJobCompleted increments completed job counts.
func (m *Metrics) RecordJobCompleted(ctx context.Context, paymentMode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("payment_mode", strings.TrimSpace(paymentMode)))
	m.jobsCompleted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCompletionRejected counts completion attempts that were refused.
func (m *Metrics) RecordCompletionRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.completionRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReferralCommission counts one snapshot record and its amount.
func (m *Metrics) RecordReferralCommission(ctx context.Context, commissionType, level string, amount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("commission_type", strings.TrimSpace(commissionType)),
		attribute.String("level", strings.TrimSpace(level)),
	)
	m.referralCommissions.Add(ctx, 1, metric.WithAttributes(attrs...))
	if amount > 0 {
		m.commissionAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"payment_mode":    {},
	"commission_type": {},
	"level":           {},
	"reason":          {},
	"endpoint":        {},
	"status_code":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
