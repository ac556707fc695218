package otel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, k := range []string{
			"OTEL_SDK_DISABLED", "OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_PROTOCOL",
			"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT",
			"OTEL_TRACES_SAMPLER", "OTEL_TRACES_SAMPLER_ARG",
		} {
			t.Setenv(k, "")
		}

		s := SettingsFromEnv()
		assert.False(t, s.Disabled)
		assert.Equal(t, "rtodocs", s.ServiceName)
		assert.Equal(t, "grpc", s.Protocol)
		assert.Equal(t, "parentbased_traceidratio", s.Sampler)
		assert.Equal(t, "1.0", s.SamplerArg)
	})

	t.Run("traces endpoint wins over generic endpoint", func(t *testing.T) {
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
		t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://traces:4318")

		assert.Equal(t, "http://traces:4318", SettingsFromEnv().Endpoint)
	})
}

func TestParseRatio(t *testing.T) {
	assert.Equal(t, 0.25, parseRatio("0.25"))
	assert.Equal(t, 1.0, parseRatio("abc"))
	assert.Equal(t, 1.0, parseRatio("7"))
	assert.Equal(t, 0.0, parseRatio("-1"))
}

func TestNewSampler(t *testing.T) {
	tests := map[string]string{
		"always_on":                "AlwaysOnSampler",
		"always_off":               "AlwaysOffSampler",
		"traceidratio":             "TraceIDRatioBased{0.5}",
		"parentbased_always_off":   "ParentBased{root:AlwaysOffSampler",
		"parentbased_traceidratio": "ParentBased{root:TraceIDRatioBased{0.5}",
		"bogus":                    "ParentBased{root:AlwaysOnSampler",
	}
	for kind, want := range tests {
		t.Run(kind, func(t *testing.T) {
			assert.Contains(t, newSampler(kind, "0.5").Description(), want)
		})
	}
}

func TestInit_Disabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")

	shutdown, err := Init(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_DegradesToPropagationOnly(t *testing.T) {
	tests := map[string]Settings{
		"no endpoint":          {ServiceName: "rtodocs", Protocol: "grpc"},
		"unsupported protocol": {ServiceName: "rtodocs", Protocol: "carrier-pigeon", Endpoint: "http://collector:4317"},
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), s, time.UTC)
			require.NoError(t, err)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}
