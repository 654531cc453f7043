package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("status", "paid"),
		attribute.String("client_id", "456"),
		attribute.String("phone", "5511999990000"),
		attribute.String("outcome", "sent"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("status"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestNewProviderDisabledIsNoop(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	m, err := New(Config{ServiceName: "test"}, provider)
	require.NoError(t, err)

	// noop instruments accept records without a collector.
	m.RecordReminder(context.Background(), "sent")
	m.RecordSubscriptionActivated(context.Background(), "mensal")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordInstallmentTransition(context.Background(), "paid")
	m.RecordSubscriptionCancelled(context.Background())
}

func TestNewExporterRejectsUnknownProtocol(t *testing.T) {
	_, err := newExporter("carrier-pigeon", "")
	assert.Error(t, err)

	_, err = New(Config{}, noop.NewMeterProvider())
	assert.NoError(t, err)
}
