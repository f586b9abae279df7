package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"

	sessionDomain "github.com/mateusmacedo/carpool-bff/internal/session/domain"
	"github.com/mateusmacedo/carpool-bff/pkg/application"
)

// HTTPGateway fala com o serviço de contas. Apenas falhas de transporte contam para o
// circuit breaker; respostas HTTP de erro são resultados normais.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	breaker circuitbreaker.CircuitBreaker[*http.Response]
	logger  application.AppLogger
}

func NewHTTPGateway(baseURL string, timeout time.Duration, logger application.AppLogger) *HTTPGateway {
	gateway := &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}

	gateway.breaker = circuitbreaker.New[*http.Response](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			application.LogInfo(context.Background(), logger, "Circuit breaker do serviço de contas mudou de estado", map[string]interface{}{
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})
	return gateway
}

func (g *HTTPGateway) Login(ctx context.Context, credentials sessionDomain.Credentials) (sessionDomain.Session, error) {
	var session sessionDomain.Session
	err := g.do(ctx, http.MethodPost, "/auth/login", nil, "", credentials, &session)
	return session, err
}

func (g *HTTPGateway) Register(ctx context.Context, fields sessionDomain.RegisterFields) (sessionDomain.Session, error) {
	var session sessionDomain.Session
	err := g.do(ctx, http.MethodPost, "/auth/register", nil, "", fields, &session)
	return session, err
}

func (g *HTTPGateway) Me(ctx context.Context, token string) (sessionDomain.Profile, error) {
	var profile sessionDomain.Profile
	err := g.do(ctx, http.MethodGet, "/auth/me", nil, token, nil, &profile)
	return profile, err
}

func (g *HTTPGateway) Logout(ctx context.Context, token string) error {
	return g.do(ctx, http.MethodPost, "/auth/logout", nil, token, nil, nil)
}

func (g *HTTPGateway) Refresh(ctx context.Context, refreshToken string) (sessionDomain.Session, error) {
	var session sessionDomain.Session
	query := url.Values{"refreshToken": {refreshToken}}
	err := g.do(ctx, http.MethodPost, "/auth/refresh_token", query, "", nil, &session)
	return session, err
}

func (g *HTTPGateway) CompleteProfile(ctx context.Context, token string, fields sessionDomain.CompletionFields) (sessionDomain.Profile, error) {
	var profile sessionDomain.Profile
	err := g.do(ctx, http.MethodPost, "/user", nil, token, fields, &profile)
	return profile, err
}

func (g *HTTPGateway) UpdateProfile(ctx context.Context, token string, update sessionDomain.ProfileUpdate) (sessionDomain.Profile, error) {
	var profile sessionDomain.Profile
	err := g.do(ctx, http.MethodPut, "/user", nil, token, update, &profile)
	return profile, err
}

func (g *HTTPGateway) DeleteAccount(ctx context.Context, token string) error {
	return g.do(ctx, http.MethodDelete, "/user", nil, token, nil, nil)
}

// do executa a chamada. path nunca carrega a query string: ela pode conter segredos e path
// aparece nos logs.
func (g *HTTPGateway) do(ctx context.Context, method, path string, query url.Values, token string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	resp, err := g.breaker.Execute(ctx, func(ctx context.Context) (*http.Response, error) {
		target := g.baseURL + path
		if len(query) > 0 {
			target += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return g.client.Do(req)
	})
	if err != nil {
		err = withoutURL(method, path, err)
		application.LogError(ctx, g.logger, "Serviço de contas indisponível", err, map[string]interface{}{
			"method": method,
			"path":   path,
		})
		return &sessionDomain.GatewayError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		application.LogDebug(ctx, g.logger, "Serviço de contas recusou a requisição", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		})
		return &sessionDomain.GatewayError{Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &sessionDomain.GatewayError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// withoutURL descarta a URL completa de um *url.Error, que traria a query string para logs e
// respostas HTTP.
func withoutURL(method, path string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s %s: %w", method, path, urlErr.Err)
	}
	return err
}
