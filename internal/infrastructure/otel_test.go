package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/VaishakhVipin/stattwin/internal/config"
	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/similarity"
)

func quietOTelConfig() *OTelConfig {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "none"
	return cfg
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(quietOTelConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.Nil(t, providers.TracerProvider, "none exporter keeps the global tracer")
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OTelConfig)
		wantErr bool
	}{
		{name: "all disabled", mutate: func(c *OTelConfig) { c.EnableTracing, c.EnableMetrics = false, false }},
		{name: "stdout tracing", mutate: func(c *OTelConfig) { c.TraceExporter = "stdout"; c.EnableMetrics = false }},
		{name: "metrics none", mutate: func(c *OTelConfig) { c.MetricExporter = "none" }},
		{name: "unknown trace exporter", mutate: func(c *OTelConfig) { c.TraceExporter = "jaeger" }, wantErr: true},
		{name: "unknown metric exporter", mutate: func(c *OTelConfig) { c.MetricExporter = "statsd" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := quietOTelConfig()
			tt.mutate(cfg)
			providers, err := InitializeOTel(cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.Default().Telemetry)

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "prometheus", cfg.MetricExporter)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
}

func TestTraceCorrelation(t *testing.T) {
	cfg := quietOTelConfig()
	cfg.TraceExporter = "stdout"
	providers, err := InitializeOTel(cfg, nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Empty(t, TraceIDFromContext(context.Background()))

	RecordError(ctx, errors.New("boom"))
	AddSpanEvent(ctx, "checkpoint")
}

func TestPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeOTel(quietOTelConfig(), nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordQuery(context.Background(), similarity.Cosine, 12, time.Millisecond, nil)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "similarity_queries_total"))
}

func collect(t *testing.T, reader sdkmetric.Reader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(agg metricdata.Aggregation) int64 {
	var total int64
	if s, ok := agg.(metricdata.Sum[int64]); ok {
		for _, dp := range s.DataPoints {
			total += dp.Value
		}
	}
	return total
}

func TestBusinessMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	var recorder similarity.Recorder = metrics
	recorder.RecordQuery(ctx, similarity.Cosine, 10, time.Millisecond, nil)
	recorder.RecordQuery(ctx, similarity.Euclidean, 10, time.Millisecond, nil)
	recorder.RecordQuery(ctx, similarity.Cosine, 0, time.Millisecond,
		apierrors.NewLookupError("missing", similarity.ErrQueryNotFound))
	metrics.RecordPipelineRun(ctx, time.Second, 3, nil)
	metrics.RecordDatasetLoad(ctx, "csv", 120)
	metrics.RecordHTTPRequest(ctx, http.MethodPost, "/api/v1/similar", http.StatusOK, time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(3), sumOf(data["similarity_queries_total"]))
	assert.Equal(t, int64(1), sumOf(data["similarity_errors_total"]))
	assert.Equal(t, int64(1), sumOf(data["pipeline_runs_total"]))
	assert.Equal(t, int64(3), sumOf(data["pipeline_rows_dropped_total"]))
	assert.Equal(t, int64(1), sumOf(data["dataset_loads_total"]))
	assert.Equal(t, int64(1), sumOf(data["http_requests_total"]))
	assert.Contains(t, data, "similarity_query_duration_seconds")
}

func TestBusinessMetricsNil(t *testing.T) {
	var metrics *BusinessMetrics
	assert.NotPanics(t, func() {
		metrics.RecordQuery(context.Background(), similarity.Cosine, 1, time.Millisecond, nil)
		metrics.RecordPipelineRun(context.Background(), time.Second, 0, nil)
		metrics.RecordDatasetLoad(context.Background(), "csv", 1)
		metrics.RecordHTTPRequest(context.Background(), http.MethodGet, "/", 200, time.Millisecond)
	})
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "CONFIG", errorType(apierrors.NewConfigError("bad", nil)))
	assert.Equal(t, "CANCELLED", errorType(context.Canceled))
	assert.Equal(t, "*errors.errorString", errorType(errors.New("x")))
}

func TestRuntimeCollector(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	collector, err := NewRuntimeCollector(mp.Meter("test"), time.Hour)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		collector.Start(context.Background())
		close(done)
	}()
	collector.Stop()
	collector.Stop()
	<-done

	stats := ReadRuntimeStats(collector.StartTime())
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.CPUCount)

	data := collect(t, reader)
	assert.Contains(t, data, "runtime_goroutines")
}
