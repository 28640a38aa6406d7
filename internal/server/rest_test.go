package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goevery/gateway/internal/auth"
	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/eventbus"
	"github.com/goevery/gateway/internal/eventbus/memorybus"
	"github.com/goevery/gateway/internal/handler"
	"github.com/goevery/gateway/internal/store/memory"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRESTServer(t *testing.T) {
	logger := zap.NewNop()
	authenticator := auth.NewAuthenticator("test-secret", []string{"test-api-key"})
	registry := broadcaster.NewInMemoryRegistry(logger)
	store := memory.NewStore()
	validator := handler.NewRequestValidator()

	bus := memorybus.NewBus(8)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	restServer := NewRESTServer(
		logger,
		authenticator,
		handler.NewPublishHandler(validator, bus),
		handler.NewPresenceHandler(validator, registry, store, store),
	)

	router := mux.NewRouter()
	restServer.Register(router)

	server := httptest.NewServer(router)
	defer server.Close()

	do := func(method string, path string, apiKey string, body string) *http.Response {
		req, err := http.NewRequest(method, server.URL+path, bytes.NewBufferString(body))
		require.NoError(t, err)

		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })

		return resp
	}

	t.Run("publish event", func(t *testing.T) {
		resp := do("POST", "/events", "test-api-key", `{"topic":"group.create","payload":{"id":7,"users":[{"id":1}]}}`)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		select {
		case event := <-events:
			assert.Equal(t, eventbus.TopicGroupCreate, event.Topic)
			assert.JSONEq(t, `{"id":7,"users":[{"id":1}]}`, string(event.Payload))
		case <-time.After(time.Second):
			t.Fatal("event was not published")
		}
	})

	t.Run("publish unknown topic", func(t *testing.T) {
		resp := do("POST", "/events", "test-api-key", `{"topic":"user.delete","payload":{}}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "InvalidArgument", body.Error.Code)
	})

	t.Run("publish invalid body", func(t *testing.T) {
		resp := do("POST", "/events", "test-api-key", `not-json`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid api key", func(t *testing.T) {
		resp := do("POST", "/events", "invalid-api-key", `{"topic":"group.create","payload":{}}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = do("GET", "/users/1/presence", "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("user presence", func(t *testing.T) {
		connection := broadcaster.NewConnection(auth.Authentication{UserId: 3}, 4)
		require.NoError(t, registry.SetUserConnection(connection))
		defer registry.Disconnect(connection.Id)

		resp := do("GET", "/users/3/presence", "test-api-key", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var presence handler.UserPresenceResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&presence))
		assert.Equal(t, handler.UserPresenceResponse{UserId: 3, Online: true, Connections: 1}, presence)

		resp = do("GET", "/users/abc/presence", "test-api-key", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
