package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/config"
)

func TestNewWithoutEndpointIsNoop(t *testing.T) {
	p, err := New(context.Background(), config.Config{ServiceName: "nubletrust-test"}, zap.NewNop())
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNilProviderIsSafe(t *testing.T) {
	var p *Provider
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestResourceCarriesServiceIdentity(t *testing.T) {
	res, err := newResource(context.Background(), config.Config{
		ServiceName: "nubletrust-core",
		Environment: "staging",
		NodeID:      7,
	})
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "nubletrust", attrs["service.namespace"])
	require.Equal(t, "nubletrust-core", attrs["service.name"])
	require.Equal(t, "node-7", attrs["service.instance.id"])
	require.Equal(t, "staging", attrs["deployment.environment"])
}

func TestRiskDecisionAttributes(t *testing.T) {
	attrs := RiskDecision{
		AppID:     "app-1",
		AppUserID: "au-1",
		Event:     "login_denied",
		Score:     75,
		Level:     "HIGH",
		Allowed:   false,
		Factors:   map[string]bool{"ipChange": true, "deviceChange": true, "unusualTime": false},
	}.Attributes()

	set := attribute.NewSet(attrs...)
	score, ok := set.Value(RiskScoreKey)
	require.True(t, ok)
	require.Equal(t, int64(75), score.AsInt64())
	level, _ := set.Value(RiskLevelKey)
	require.Equal(t, "HIGH", level.AsString())
	allowed, _ := set.Value(RiskAllowedKey)
	require.False(t, allowed.AsBool())
	factors, _ := set.Value(RiskFactorsKey)
	require.Equal(t, []string{"deviceChange", "ipChange"}, factors.AsStringSlice())
	app, _ := set.Value(AppIDKey)
	require.Equal(t, "app-1", app.AsString())
}
