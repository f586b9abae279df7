package marketplace

import (
	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	"github.com/mateusmacedo/carpool-bff/internal/marketplace/application"
	marketDomain "github.com/mateusmacedo/carpool-bff/internal/marketplace/domain"
	"github.com/mateusmacedo/carpool-bff/internal/marketplace/infrastructure"
	pkgApp "github.com/mateusmacedo/carpool-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/carpool-bff/pkg/domain"
	pkgInfra "github.com/mateusmacedo/carpool-bff/pkg/infrastructure"
)

type MarketplaceSlice struct {
	facade      *application.Facade
	httpHandler *infrastructure.MarketplaceHTTPHandler
}

// NewMarketplaceSlice abre os três stores sobre medium e registra os manipuladores nos
// barramentos. owner pode ser nil.
func NewMarketplaceSlice(
	medium domain.Medium,
	idGenerator pkgDomain.IDGenerator[string],
	owner application.OwnerResolver,
	eventBus pkgApp.EventBus[pkgDomain.Event[application.MarketplaceEventData], application.MarketplaceEventData],
	logger pkgApp.AppLogger,
) *MarketplaceSlice {
	facade := application.NewFacade(
		infrastructure.NewTripCatalogStore(medium, logger),
		infrastructure.NewPersonalTripStore(medium, logger),
		infrastructure.NewBookingStore(medium, logger),
		idGenerator,
		nil,
		owner,
		eventBus,
		logger,
	)

	commandBus := pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.RemovalData], application.RemovalData](logger)
	tripQueries := pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.TripQueryData], application.TripQueryData, []marketDomain.Trip](logger)
	bookingQueries := pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.TripQueryData], application.TripQueryData, []marketDomain.Booking](logger)

	removalHandler := application.NewRemovalHandler(facade, logger)
	commandBus.RegisterHandler(application.CancelBookingCommand, removalHandler)
	commandBus.RegisterHandler(application.DeletePublishedTripCommand, removalHandler)

	tripHandler := application.NewTripQueryHandler(facade, logger)
	tripQueries.RegisterHandler(application.ListTripsQuery, tripHandler)
	tripQueries.RegisterHandler(application.SearchTripsQuery, tripHandler)
	tripQueries.RegisterHandler(application.ListMyTripsQuery, tripHandler)
	bookingQueries.RegisterHandler(application.ListMyBookingsQuery, application.NewBookingQueryHandler(facade))

	eventLogger := application.NewMarketplaceEventLogger(logger)
	for _, name := range []string{
		application.TripPublishedEvent,
		application.TripDeletedEvent,
		application.TripBookedEvent,
		application.BookingCancelledEvent,
	} {
		eventBus.RegisterHandler(name, eventLogger)
	}

	return &MarketplaceSlice{
		facade:      facade,
		httpHandler: infrastructure.NewMarketplaceHTTPHandler(facade, commandBus, tripQueries, bookingQueries),
	}
}

func (s *MarketplaceSlice) Facade() *application.Facade {
	return s.facade
}

func (s *MarketplaceSlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}
