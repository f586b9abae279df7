package session

import (
	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	"github.com/mateusmacedo/carpool-bff/internal/session/application"
	sessionDomain "github.com/mateusmacedo/carpool-bff/internal/session/domain"
	"github.com/mateusmacedo/carpool-bff/internal/session/infrastructure"
	pkgApp "github.com/mateusmacedo/carpool-bff/pkg/application"
)

type SessionSlice struct {
	store       *application.Store
	httpHandler *infrastructure.SessionHTTPHandler
}

func NewSessionSlice(
	gateway sessionDomain.Gateway,
	medium domain.Medium,
	notifier sessionDomain.Notifier,
	logger pkgApp.AppLogger,
) *SessionSlice {
	store := application.NewStore(gateway, medium, notifier, logger)

	return &SessionSlice{
		store:       store,
		httpHandler: infrastructure.NewSessionHTTPHandler(store, logger),
	}
}

// Store também atende ao OwnerResolver do marketplace.
func (s *SessionSlice) Store() *application.Store {
	return s.store
}

func (s *SessionSlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}
