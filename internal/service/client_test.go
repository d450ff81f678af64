package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(ClientConfig{
		Host:       server.URL,
		Space:      "demo",
		Token:      "secret",
		RetryCount: 2,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("Should require space and token", func(t *testing.T) {
		_, err := NewClient(ClientConfig{Token: "t"})
		assert.Error(t, err)
		_, err = NewClient(ClientConfig{Space: "s"})
		assert.Error(t, err)
	})
	t.Run("Should scope URLs to the space", func(t *testing.T) {
		client, err := NewClient(ClientConfig{Host: "https://example.com", Space: "demo", Token: "t"})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/api/spaces/demo/sandbox/abc", client.URL("sandbox/abc", nil))
	})
}

func TestClient_Do(t *testing.T) {
	ctx := context.Background()
	t.Run("Should send the bearer token and decode JSON", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Equal(t, "/api/spaces/demo/blueprints", r.URL.Path)
			_, _ = w.Write([]byte(`[{"blueprint_name":"web"}]`))
		})
		var out []domain.Blueprint
		require.NoError(t, client.Do(ctx, http.MethodGet, "blueprints", nil, nil, &out))
		require.Len(t, out, 1)
		assert.Equal(t, "web", out[0].Name)
	})
	t.Run("Should join service errors like the API returns them", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": []APIMessage{
				{Name: "BlueprintNotFound", Message: "no such blueprint"},
				{Name: "Other", Message: "second"},
			}})
		})
		err := client.Do(ctx, http.MethodPost, "sandbox", nil, map[string]string{}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRemoteCallFailed)
		assert.Equal(t, "BlueprintNotFound: no such blueprint;Other: second", err.Error())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})
	t.Run("Should retry GET on server errors", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"id":"sb1","sandbox_status":"Active"}`))
		})
		var sb domain.Sandbox
		require.NoError(t, client.Do(ctx, http.MethodGet, "sandbox/sb1", nil, nil, &sb))
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, domain.SandboxActive, sb.Status)
	})
	t.Run("Should not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		})
		err := client.Do(ctx, http.MethodGet, "sandbox/x", nil, nil, nil)
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
		assert.Contains(t, err.Error(), "404")
	})
	t.Run("Should not retry POST", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		})
		err := client.Do(ctx, http.MethodPost, "sandbox", nil, map[string]string{}, nil)
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}
