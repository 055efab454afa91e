package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew(t *testing.T) {
	client := New(WithServiceName("swarms"))

	require.NotNil(t, client)
	assert.Zero(t, client.HTTP().Timeout)
	_, isOtel := client.HTTP().Transport.(*otelTransport)
	assert.True(t, isOtel)
	assert.Equal(t, DefaultRetryableStatus, client.Classifier().RetryableStatus())
}

func TestClient_Send(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantStatus int
	}{
		{
			name:       "given server returns 200, then returns response",
			status:     http.StatusOK,
			body:       `{"status":"ok"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:     "given server returns 400, then permanent failure with body",
			status:   http.StatusBadRequest,
			body:     `{"detail":"invalid model"}`,
			wantKind: KindPermanent,
		},
		{
			name:     "given server returns 503, then transient failure",
			status:   http.StatusServiceUnavailable,
			body:     `{"detail":"busy"}`,
			wantKind: KindTransient,
		},
		{
			name:     "given server returns 429, then transient failure",
			status:   http.StatusTooManyRequests,
			wantKind: KindTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			exporter := tracetest.NewInMemoryExporter()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
			defer tp.Shutdown(context.Background())

			client := New(WithBaseURL(server.URL), WithTracerProvider(tp))

			resp, err := client.Request("get-health").Path("/health").Get(context.Background())

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, "HTTP GET", spans[0].Name)

			if tt.wantKind == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, resp.StatusCode())
				assert.JSONEq(t, tt.body, resp.String())
				return
			}

			require.Error(t, err)
			f, ok := AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, f.Kind)
			assert.Equal(t, tt.status, f.StatusCode)
			assert.Equal(t, tt.body, string(f.Body))
		})
	}
}

func TestClient_Send_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := New(WithBaseURL(addr))

	_, err := client.Request("get-health").Path("/health").Get(context.Background())

	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, f.Kind)
	assert.True(t, f.Retryable())
}

func TestClient_Send_AttemptDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := New(WithBaseURL(server.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Request("run-agent").Path("/v1/agent/completions").Post(ctx)

	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, f.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestBuilder_Shape(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	client := New(
		WithBaseURL(server.URL+"/"),
		WithTracerProvider(tp),
		WithAPIKey("secret-key"),
		WithDefaultHeader("User-Agent", "swarms-go-test"),
	)

	_, err := client.Request("get-swarm-logs").
		Path("/v1/swarm/{swarm_id}/logs").
		PathParam("swarm_id", "a b").
		Query("limit", "10").
		Header(RequestIDHeader, "req-1").
		Body(map[string]any{"task": "summarise"}).
		Post(context.Background())
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/v1/swarm/a%20b/logs", got.URL.EscapedPath())
	assert.Equal(t, "10", got.URL.Query().Get("limit"))
	assert.Equal(t, "secret-key", got.Header.Get(APIKeyHeader))
	assert.Equal(t, "req-1", got.Header.Get(RequestIDHeader))
	assert.Equal(t, "swarms-go-test", got.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.NotEmpty(t, got.Header.Get("Traceparent"))
	assert.JSONEq(t, `{"task":"summarise"}`, string(gotBody))
}

func TestRequestBuilder_BodyEncodingError(t *testing.T) {
	client := New(WithMockTransport(NewMockTransport().StubResponse(200, "")))

	_, err := client.Request("run-agent").Body(make(chan int)).Post(context.Background())

	require.Error(t, err)
	_, isFailure := AsFailure(err)
	assert.False(t, isFailure)
	assert.Contains(t, err.Error(), "encode request body")
}

func TestResponse_Decode(t *testing.T) {
	mock := NewMockTransport().StubPath("/v1/models/available", 200, `{"models":["gpt-4o","claude"]}`)
	client := New(WithMockTransport(mock))

	resp, err := client.Request("get-available-models").Path("/v1/models/available").Get(context.Background())
	require.NoError(t, err)

	var out struct {
		Models []string `json:"models"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, []string{"gpt-4o", "claude"}, out.Models)
	assert.True(t, resp.IsSuccess())
}

func TestClient_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	mock := NewMockTransport().StubResponse(200, `{}`)

	client := New(
		WithMockTransport(mock),
		WithAPIKey("top-secret"),
		WithDebug(true),
		WithLogger(logger),
	)

	_, err := client.Request("get-health").Path("/health").Get(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"operation":"get-health"`)
	assert.Contains(t, out, "HTTP request")
	assert.Contains(t, out, "HTTP response")
	assert.NotContains(t, out, "top-secret")
}

func TestClient_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	mock := NewMockTransport().StubResponse(503, "")
	client := New(WithMockTransport(mock), WithMeterProvider(mp))

	_, err := client.Request("get-health").Path("/health").Get(context.Background())
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["http.client.request.duration"])
	assert.True(t, names["http.client.active_requests"])
}
