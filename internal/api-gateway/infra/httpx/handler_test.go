package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/disqueria/internal/api-gateway/core/dispatcher"
	"github.com/jcmexdev/disqueria/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/disqueria/internal/api-gateway/core/ports"
	"github.com/jcmexdev/disqueria/internal/api-gateway/infra/auth"
	"github.com/jcmexdev/disqueria/internal/api-gateway/infra/httpx/middlewares"
	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

// scripted answers every command from a fixed table and records payloads.
type scripted struct {
	mu       sync.Mutex
	replies  map[string]string
	errs     map[string]error
	payloads map[string]any
}

func newScripted() *scripted {
	return &scripted{replies: map[string]string{}, errs: map[string]error{}, payloads: map[string]any{}}
}

func (s *scripted) Send(_ context.Context, command string, payload any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[command] = payload
	if err := s.errs[command]; err != nil {
		return nil, err
	}
	return json.RawMessage(s.replies[command]), nil
}

func (s *scripted) sent(command string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payloads[command]
	return p, ok
}

type gateway struct {
	server  *httptest.Server
	backend *scripted
	token   string
}

func newGateway(t *testing.T, limiter *middlewares.RateLimiter) *gateway {
	t.Helper()
	backend := newScripted()
	jwt := auth.NewJWT("test-secret", time.Hour)
	d := dispatcher.New(map[string]ports.Sender{
		dispatcher.ServiceCatalog: backend,
		dispatcher.ServiceUsers:   backend,
		dispatcher.ServiceOrders:  backend,
	}, jwt, jwt)

	srv := httptest.NewServer(NewRouter(NewHandler(d), limiter))
	t.Cleanup(srv.Close)

	token, err := jwt.Issue(entity.Subject{ID: "u1", Email: "ana@example.com"})
	require.NoError(t, err)
	return &gateway{server: srv, backend: backend, token: token}
}

func (g *gateway) do(t *testing.T, method, path, body string, authed bool) (int, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, g.server.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(out)
}

func TestPublicReadsPassReplyThrough(t *testing.T) {
	g := newGateway(t, nil)
	g.backend.replies["get_albums"] = `[{"id":"a1","title":"Bocanada","stock":3}]`

	status, body := g.do(t, http.MethodGet, "/catalog/albums", "", false)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":"a1","title":"Bocanada","stock":3}]`, body)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	g := newGateway(t, nil)

	routes := []struct{ method, path, body, command string }{
		{http.MethodPost, "/catalog/artists", `{"name":"x"}`, "create_artist"},
		{http.MethodPut, "/catalog/artists/a1", `{"name":"x"}`, "update_artist"},
		{http.MethodDelete, "/catalog/artists/a1", "", "delete_artist"},
		{http.MethodPost, "/catalog/albums", `{"title":"x"}`, "create_album"},
		{http.MethodPut, "/catalog/albums/a1", `{"title":"x"}`, "update_album"},
		{http.MethodDelete, "/catalog/albums/a1", "", "delete_album"},
		{http.MethodGet, "/users/ana@example.com", "", "find_user"},
		{http.MethodPost, "/orders", `{"userId":"u1","items":[]}`, "create_order"},
		{http.MethodGet, "/orders/user/u1", "", "get_user_orders"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			status, body := g.do(t, rt.method, rt.path, rt.body, false)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Contains(t, body, `"unauthorized"`)

			_, sent := g.backend.sent(rt.command)
			assert.False(t, sent, "no command leaves the gateway without a valid token")
		})
	}
}

func TestUpdateWrapsPathIDAndBody(t *testing.T) {
	g := newGateway(t, nil)
	g.backend.replies["update_album"] = `{"id":"a1","price":24.5}`

	status, body := g.do(t, http.MethodPut, "/catalog/albums/a1", `{"price":24.5}`, true)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":"a1","price":24.5}`, body)

	payload, ok := g.backend.sent("update_album")
	require.True(t, ok)
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","data":{"price":24.5}}`, string(encoded))
}

func TestCreateOrderForwardsBody(t *testing.T) {
	g := newGateway(t, nil)
	g.backend.replies["create_order"] = `{"id":"o1","total":39.98}`

	status, body := g.do(t, http.MethodPost, "/orders", `{"userId":"u1","items":[{"albumId":"a1","quantity":2,"price":19.99}]}`, true)
	assert.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"id":"o1","total":39.98}`, body)
}

func TestNullReplyIsWritten(t *testing.T) {
	g := newGateway(t, nil)
	g.backend.replies["find_user"] = `null`

	status, body := g.do(t, http.MethodGet, "/users/ghost@example.com", "", true)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", body)

	payload, _ := g.backend.sent("find_user")
	assert.Equal(t, "ghost@example.com", payload)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "remote rejection keeps status and message",
			err:     &transport.RemoteError{Status: 400, Message: "Insufficient stock for album a1. Available: 3", Kind: apperr.KindInsufficientStock},
			status:  http.StatusBadRequest,
			message: "Insufficient stock for album a1. Available: 3",
		},
		{
			name:    "remote not found",
			err:     &transport.RemoteError{Status: 404, Message: "Album with ID a1 not found"},
			status:  http.StatusNotFound,
			message: "Album with ID a1 not found",
		},
		{
			name:   "unreachable service",
			err:    &transport.TransportError{Target: "orders:3003", Command: "create_order", Err: errors.New("connection refused")},
			status: http.StatusBadGateway,
		},
		{
			name:   "timed out",
			err:    &transport.TransportError{Target: "orders:3003", Command: "create_order", Err: context.DeadlineExceeded},
			status: http.StatusGatewayTimeout,
		},
		{
			name:    "untyped",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGateway(t, nil)
			g.backend.errs["create_order"] = tt.err

			status, body := g.do(t, http.MethodPost, "/orders", `{}`, true)
			assert.Equal(t, tt.status, status)

			var res ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &res))
			assert.Equal(t, tt.status, res.StatusCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, res.Message)
			}
		})
	}
}

func TestInvalidJSONIsRejectedBeforeDispatch(t *testing.T) {
	g := newGateway(t, nil)

	status, _ := g.do(t, http.MethodPost, "/users", `{"email":`, false)
	assert.Equal(t, http.StatusBadRequest, status)
	_, sent := g.backend.sent("create_user")
	assert.False(t, sent)
}

func TestLogin(t *testing.T) {
	g := newGateway(t, nil)
	g.backend.replies["validate_user"] = `{"id":"u7","email":"ana@example.com","name":"Ana"}`

	status, body := g.do(t, http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"secret1"}`, false)
	require.Equal(t, http.StatusOK, status)

	var session entity.Session
	require.NoError(t, json.Unmarshal([]byte(body), &session))
	require.NotEmpty(t, session.AccessToken)

	g.token = session.AccessToken
	g.backend.replies["get_user_orders"] = `[]`
	status, _ = g.do(t, http.MethodGet, "/orders/user/u7", "", true)
	assert.Equal(t, http.StatusOK, status, "the issued token opens protected routes")

	g.backend.replies["validate_user"] = `null`
	status, _ = g.do(t, http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"nope"}`, false)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealthAndMetrics(t *testing.T) {
	g := newGateway(t, nil)

	status, body := g.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	status, _ = g.do(t, http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, status)
}

func TestRateLimitedRoutes(t *testing.T) {
	g := newGateway(t, middlewares.NewRateLimiter(0.001, 1))
	g.backend.replies["get_artists"] = `[]`

	status, _ := g.do(t, http.MethodGet, "/catalog/artists", "", false)
	assert.Equal(t, http.StatusOK, status)
	status, _ = g.do(t, http.MethodGet, "/catalog/artists", "", false)
	assert.Equal(t, http.StatusTooManyRequests, status)

	status, _ = g.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, status, "health is never limited")
}
