package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	sharedInfra "github.com/mateusmacedo/carpool-bff/internal/infrastructure"
	"github.com/mateusmacedo/carpool-bff/internal/session/application"
	sessionDomain "github.com/mateusmacedo/carpool-bff/internal/session/domain"
	pkgApp "github.com/mateusmacedo/carpool-bff/pkg/application"
)

const requestTimeout = 15 * time.Second

type SessionHTTPHandler struct {
	store  *application.Store
	logger pkgApp.AppLogger
}

func NewSessionHTTPHandler(store *application.Store, logger pkgApp.AppLogger) *SessionHTTPHandler {
	return &SessionHTTPHandler{
		store:  store,
		logger: logger,
	}
}

func (h *SessionHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/login", h.HandleLogin)
	router.Post("/auth/register", h.HandleRegister)
	router.Get("/auth/me", h.HandleMe)
	router.Post("/auth/logout", h.HandleLogout)
	router.Post("/auth/refresh", h.HandleRefresh)
	router.Get("/auth/events", h.HandleEvents)
	router.Post("/user", h.HandleCompleteProfile)
	router.Put("/user", h.HandleUpdateProfile)
	router.Delete("/user", h.HandleDeleteAccount)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sharedInfra.WriteJSON(w, http.StatusBadRequest, sharedInfra.ErrorBody{Error: "invalid_request", Message: err.Error()})
		return false
	}
	return true
}

func (h *SessionHTTPHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials sessionDomain.Credentials
	if !decodeBody(w, r, &credentials) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	session, err := h.store.Login(ctx, credentials)
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusOK, session)
}

func (h *SessionHTTPHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var fields sessionDomain.RegisterFields
	if !decodeBody(w, r, &fields) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	session, err := h.store.Register(ctx, fields)
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusCreated, session)
}

// HandleMe responde 204 quando não há sessão.
func (h *SessionHTTPHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	profile, err := h.store.CurrentUser(ctx)
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	if profile == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusOK, profile)
}

func (h *SessionHTTPHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.store.Logout(ctx); err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHTTPHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	session, err := h.store.Refresh(ctx)
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusOK, session)
}

func (h *SessionHTTPHandler) HandleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	var fields sessionDomain.CompletionFields
	if !decodeBody(w, r, &fields) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	profile, err := h.store.CompleteProfile(ctx, fields)
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusOK, profile)
}

func (h *SessionHTTPHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update sessionDomain.ProfileUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	profile, err := h.store.UpdateProfile(ctx, update)
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusOK, profile)
}

func (h *SessionHTTPHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.store.DeleteAccount(ctx); err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvents transmite as mudanças de sessão como Server-Sent Events até o cliente
// desconectar.
func (h *SessionHTTPHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		sharedInfra.WriteJSON(w, http.StatusInternalServerError, sharedInfra.ErrorBody{Error: "internal", Message: "streaming unsupported"})
		return
	}

	sub, err := h.store.Subscribe(r.Context())
	if err != nil {
		pkgApp.LogError(r.Context(), h.logger, "Erro ao assinar mudanças de sessão", err, nil)
		sharedInfra.WriteError(w, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for change := range sub.C {
		data, err := json.Marshal(change)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Kind, data); err != nil {
			return
		}
		flusher.Flush()
	}
}
