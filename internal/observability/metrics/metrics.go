package metrics

import (
	"context"
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

// Metrics exposes billing-level instruments pushed over OTLP.
type Metrics struct {
	subscriptionsActivated metric.Int64Counter
	subscriptionsCancelled metric.Int64Counter
	installmentTransitions metric.Int64Counter
	remindersDispatched    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New creates the billing instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "mensalidade"
	}
	meter := provider.Meter(name)

	activated, err := meter.Int64Counter("mensalidade_subscriptions_activated_total")
	if err != nil {
		return nil, err
	}
	cancelled, err := meter.Int64Counter("mensalidade_subscriptions_cancelled_total")
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("mensalidade_installment_transitions_total")
	if err != nil {
		return nil, err
	}
	reminders, err := meter.Int64Counter("mensalidade_reminders_dispatched_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		subscriptionsActivated: activated,
		subscriptionsCancelled: cancelled,
		installmentTransitions: transitions,
		remindersDispatched:    reminders,
	}, nil
}

func (m *Metrics) RecordSubscriptionActivated(ctx context.Context, planName string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("plan", strings.TrimSpace(planName)))
	m.subscriptionsActivated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordSubscriptionCancelled(ctx context.Context) {
	if m == nil {
		return
	}
	m.subscriptionsCancelled.Add(ctx, 1)
}

// RecordInstallmentTransition counts stored status changes by target status.
func (m *Metrics) RecordInstallmentTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.installmentTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordReminder(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.remindersDispatched.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"plan":    {},
	"status":  {},
	"outcome": {},
	"job":     {},
	"route":   {},
}

// FilterAttributes strips labels outside the allow list; client ids and phones never become labels.
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
