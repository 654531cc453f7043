package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func TestDisabledProviderNeverSamples(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled())
}

func TestSafeAttributesDropsCustomerData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/v1/clients/:id"),
		attribute.String("client.phone", "5511999990000"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorHidesMessage(t *testing.T) {
	err := SafeError(errors.New("send to 5511999990000 failed"))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "5511")
	assert.Nil(t, SafeError(nil))
}
