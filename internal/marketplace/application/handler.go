package application

import (
	"context"
	"fmt"

	marketDomain "github.com/mateusmacedo/carpool-bff/internal/marketplace/domain"
	pkgApp "github.com/mateusmacedo/carpool-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/carpool-bff/pkg/domain"
)

type removalHandler struct {
	facade *Facade
	logger pkgApp.AppLogger
}

func (h *removalHandler) Handle(ctx context.Context, command pkgDomain.Command[RemovalData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	id := command.Payload().ID
	switch command.CommandName() {
	case CancelBookingCommand:
		return h.facade.CancelBooking(ctx, id)
	case DeletePublishedTripCommand:
		return h.facade.DeletePublishedTrip(ctx, id)
	default:
		return fmt.Errorf("unsupported command %s", command.CommandName())
	}
}

// NewRemovalHandler atende CancelBooking e DeletePublishedTrip.
func NewRemovalHandler(facade *Facade, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[RemovalData], RemovalData] {
	return &removalHandler{
		facade: facade,
		logger: logger,
	}
}

type tripQueryHandler struct {
	facade *Facade
	logger pkgApp.AppLogger
}

func (h *tripQueryHandler) Handle(ctx context.Context, query pkgDomain.Query[TripQueryData]) ([]marketDomain.Trip, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return nil, ctx.Err()
	}

	var (
		trips []marketDomain.Trip
		err   error
	)
	switch query.QueryName() {
	case ListTripsQuery:
		trips, err = h.facade.List(ctx)
	case SearchTripsQuery:
		trips, err = h.facade.Search(ctx, query.Payload().Criteria)
	case ListMyTripsQuery:
		trips, err = h.facade.MyTrips(ctx)
	default:
		return nil, fmt.Errorf("unsupported query %s", query.QueryName())
	}
	if err != nil {
		return nil, err
	}

	pkgApp.LogDebug(ctx, h.logger, "Viagens listadas", map[string]interface{}{
		"query": query.QueryName(),
		"count": len(trips),
	})
	return trips, nil
}

// NewTripQueryHandler atende ListTrips, SearchTrips e ListMyTrips.
func NewTripQueryHandler(facade *Facade, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[TripQueryData], TripQueryData, []marketDomain.Trip] {
	return &tripQueryHandler{
		facade: facade,
		logger: logger,
	}
}

// NewBookingQueryHandler atende ListMyBookings.
func NewBookingQueryHandler(facade *Facade) pkgApp.QueryHandler[pkgDomain.Query[TripQueryData], TripQueryData, []marketDomain.Booking] {
	return pkgApp.QueryHandlerFunc[pkgDomain.Query[TripQueryData], TripQueryData, []marketDomain.Booking](
		func(ctx context.Context, _ pkgDomain.Query[TripQueryData]) ([]marketDomain.Booking, error) {
			return facade.MyBookings(ctx)
		},
	)
}

// NewMarketplaceEventLogger registra cada evento recebido do barramento.
func NewMarketplaceEventLogger(logger pkgApp.AppLogger) pkgApp.EventHandler[pkgDomain.Event[MarketplaceEventData], MarketplaceEventData] {
	return pkgApp.EventHandlerFunc[pkgDomain.Event[MarketplaceEventData], MarketplaceEventData](
		func(ctx context.Context, event pkgDomain.Event[MarketplaceEventData]) error {
			pkgApp.LogInfo(ctx, logger, "Evento do marketplace recebido", map[string]interface{}{
				"event_name": event.EventName(),
				"payload":    event.Payload(),
			})
			return nil
		},
	)
}
