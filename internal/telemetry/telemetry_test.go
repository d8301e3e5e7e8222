package telemetry

import (
	"context"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cirrus/internal/config"
)

func disabledConfig() config.OTELConfig {
	return config.OTELConfig{
		ServiceName: "test-cirrus",
		Traces:      config.TracesConfig{Enabled: false},
		Metrics:     config.MetricsConfig{Enabled: false},
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), disabledConfig())
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Meter())

	err = p.Shutdown(context.Background())
	require.NoError(t, err)
}

func TestNewProvider_WithEndpoint(t *testing.T) {
	cfg := config.OTELConfig{
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "test-cirrus",
		Traces:      config.TracesConfig{Enabled: true, SampleRate: 1.0},
		Metrics:     config.MetricsConfig{Enabled: true},
	}

	// Exporters connect lazily, so no collector is needed
	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestNewProvider_BadCAFile(t *testing.T) {
	cfg := config.OTELConfig{
		Endpoint:    "localhost:4317",
		CAFile:      "/nonexistent/ca.pem",
		ServiceName: "test-cirrus",
		Traces:      config.TracesConfig{Enabled: true, SampleRate: 1.0},
	}

	_, err := NewProvider(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ca file")
}

func TestTransportCredentials(t *testing.T) {
	creds, err := transportCredentials(config.OTELConfig{Insecure: true})
	require.NoError(t, err)
	assert.Equal(t, "insecure", creds.Info().SecurityProtocol)

	creds, err = transportCredentials(config.OTELConfig{})
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)
}

func TestProvider_StartSpan(t *testing.T) {
	p, err := NewProvider(context.Background(), disabledConfig())
	require.NoError(t, err)

	ctx, span := p.StartSpan(context.Background(), "test-operation")
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	span.End()
	_ = p.Shutdown(context.Background())
}

func TestProvider_RecordRequestExportsToPrometheus(t *testing.T) {
	reg := promclient.NewRegistry()
	p, err := NewProvider(context.Background(), disabledConfig(), WithPrometheus(reg))
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	p.RecordRequest(context.Background(), "ec2", "DescribeInstances", 120*time.Millisecond)
	p.RecordFault(context.Background(), "ec2", "DescribeInstances", "AuthFailure")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "cirrus_request_duration_seconds")
	assert.Contains(t, names, "cirrus_request_faults_total")
}
