package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTransport_StubResponse(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, `{"status":"ok"}`)
	client := New(WithBaseURL("https://api.swarms.world"), WithMockTransport(mock))

	resp, err := client.Request("get-health").Path("/health").Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"status":"ok"}`, resp.String())
	assert.Equal(t, "https://api.swarms.world/health", mock.LastRequest().URL.String())
}

func TestMockTransport_StubError(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubError(errors.New("network error"))
	client := New(WithMockTransport(mock))

	_, err := client.Request("get-health").Path("/health").Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network error")
}

func TestMockTransport_StubPath(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().
		StubPath("/v1/models/available", http.StatusOK, `["a"]`).
		StubPath("/v1/swarms/available", http.StatusOK, `["b"]`)
	client := New(WithMockTransport(mock))
	ctx := context.Background()

	resp, err := client.Request("get-available-models").Path("/v1/models/available").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, resp.String())

	resp, err = client.Request("get-swarm-types").Path("/v1/swarms/available").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, `["b"]`, resp.String())

	_, err = client.Request("unknown").Path("/nope").Get(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stub found")
}

func TestMockTransport_StubSequence(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubSequence(matchPath("/health"),
		MockStep{StatusCode: http.StatusServiceUnavailable},
		MockStep{Err: errors.New("connection reset by peer")},
		MockStep{StatusCode: http.StatusOK, Body: `{"status":"ok"}`},
	)
	client := New(WithMockTransport(mock))
	ctx := context.Background()

	_, err := client.Request("get-health").Path("/health").Get(ctx)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindTransient, f.Kind)

	_, err = client.Request("get-health").Path("/health").Get(ctx)
	f, ok = AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, f.Kind)

	for range 2 {
		resp, err := client.Request("get-health").Path("/health").Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
	}
	assert.Equal(t, 4, mock.RequestCount())
}

func TestMockTransport_RecordsBodies(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, "{}")
	client := New(WithMockTransport(mock))

	_, err := client.Request("run-agent").
		Path("/v1/agent/completions").
		Body(map[string]string{"task": "a"}).
		Post(context.Background())
	require.NoError(t, err)

	bodies := mock.RequestBodies()
	require.Len(t, bodies, 1)
	assert.JSONEq(t, `{"task":"a"}`, string(bodies[0]))
}

func TestMockTransport_Reset(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := New(WithMockTransport(mock))

	_, err := client.Request("get-health").Path("/health").Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, mock.RequestCount())

	mock.Reset()
	assert.Zero(t, mock.RequestCount())
	assert.Nil(t, mock.LastRequest())
}
