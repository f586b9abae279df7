package infrastructure_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedInfra "github.com/mateusmacedo/carpool-bff/internal/infrastructure"
	sessionDomain "github.com/mateusmacedo/carpool-bff/internal/session/domain"
	"github.com/mateusmacedo/carpool-bff/internal/session/infrastructure"
	zapAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/zaplogger/adapter"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *infrastructure.HTTPGateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return infrastructure.NewHTTPGateway(server.URL+"/api/v1/", 2*time.Second, zapAdapter.NewNopAppLogger())
}

func TestHTTPGateway_Login(t *testing.T) {
	gateway := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var credentials sessionDomain.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&credentials))
		assert.Equal(t, "camille@mail.fr", credentials.Email)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u-1","email":"camille@mail.fr","username":"camille","token":"t","refreshToken":"r","roleUser":"ROLE_PASSENGER"}`))
	})

	session, err := gateway.Login(context.Background(), sessionDomain.Credentials{Email: "camille@mail.fr", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, "u-1", session.ID)
	assert.Equal(t, "t", session.Token)
	assert.Equal(t, "r", session.RefreshToken)
	assert.Equal(t, "ROLE_PASSENGER", session.RoleUser)
}

func TestHTTPGateway_SendsBearerToken(t *testing.T) {
	gateway := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		switch r.Method + " " + r.URL.Path {
		case "GET /api/v1/auth/me", "PUT /api/v1/user", "POST /api/v1/user":
			_, _ = w.Write([]byte(`{"id":"u-1","email":"camille@mail.fr"}`))
		case "DELETE /api/v1/user", "POST /api/v1/auth/logout":
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	profile, err := gateway.Me(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "u-1", profile.ID)

	_, err = gateway.UpdateProfile(ctx, "abc", sessionDomain.ProfileUpdate{Address: "Lyon"})
	require.NoError(t, err)
	_, err = gateway.CompleteProfile(ctx, "abc", sessionDomain.CompletionFields{RoleUser: "ROLE_DRIVER"})
	require.NoError(t, err)
	require.NoError(t, gateway.DeleteAccount(ctx, "abc"))
	require.NoError(t, gateway.Logout(ctx, "abc"))
}

func TestHTTPGateway_RefreshUsesQueryParameter(t *testing.T) {
	gateway := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/refresh_token", r.URL.Path)
		assert.Equal(t, "r+1", r.URL.Query().Get("refreshToken"))
		_, _ = w.Write([]byte(`{"token":"t2","refreshToken":"r2"}`))
	})

	session, err := gateway.Refresh(context.Background(), "r+1")

	require.NoError(t, err)
	assert.Equal(t, "t2", session.Token)
}

func TestHTTPGateway_StatusBecomesGatewayError(t *testing.T) {
	gateway := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := gateway.Login(context.Background(), sessionDomain.Credentials{})

	var gwErr *sessionDomain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusNotFound, gwErr.Status)
	assert.False(t, gwErr.Unreachable())
}

func TestHTTPGateway_UnreachableHasZeroStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	gateway := infrastructure.NewHTTPGateway(url, time.Second, zapAdapter.NewNopAppLogger())

	_, err := gateway.Me(context.Background(), "abc")

	var gwErr *sessionDomain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.True(t, gwErr.Unreachable())
}

func TestHTTPGateway_OpenCircuitIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	gateway := infrastructure.NewHTTPGateway(url, time.Second, zapAdapter.NewNopAppLogger())

	var err error
	for i := 0; i < 8; i++ {
		_, err = gateway.Me(context.Background(), "abc")
	}

	var gwErr *sessionDomain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.True(t, gwErr.Unreachable())
	assert.False(t, errors.Is(err, context.Canceled))
}

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) record(msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %v", msg, fields))
}

func (l *captureLogger) Info(_ context.Context, msg string, fields map[string]interface{}) {
	l.record(msg, fields)
}

func (l *captureLogger) Debug(_ context.Context, msg string, fields map[string]interface{}) {
	l.record(msg, fields)
}

func (l *captureLogger) Error(_ context.Context, msg string, fields map[string]interface{}) {
	l.record(msg, fields)
}

func (l *captureLogger) Trace(_ context.Context, msg string, fields map[string]interface{}) {
	l.record(msg, fields)
}

func (l *captureLogger) output() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func TestHTTPGateway_RefreshTokenStaysOutOfLogsAndErrors(t *testing.T) {
	const refreshToken = "r-secret-42"

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()
		logger := &captureLogger{}
		gateway := infrastructure.NewHTTPGateway(url, time.Second, logger)

		_, err := gateway.Refresh(context.Background(), refreshToken)

		var gwErr *sessionDomain.GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.True(t, gwErr.Unreachable())
		assert.NotContains(t, err.Error(), refreshToken)
		assert.NotEmpty(t, logger.output())
		assert.NotContains(t, logger.output(), refreshToken)

		recorder := httptest.NewRecorder()
		sharedInfra.WriteError(recorder, err)
		assert.NotContains(t, recorder.Body.String(), refreshToken)
	})

	t.Run("rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		t.Cleanup(server.Close)
		logger := &captureLogger{}
		gateway := infrastructure.NewHTTPGateway(server.URL, time.Second, logger)

		_, err := gateway.Refresh(context.Background(), refreshToken)

		require.Error(t, err)
		assert.NotContains(t, err.Error(), refreshToken)
		assert.NotContains(t, logger.output(), refreshToken)
	})
}
