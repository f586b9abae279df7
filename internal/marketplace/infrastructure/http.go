package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	sharedInfra "github.com/mateusmacedo/carpool-bff/internal/infrastructure"
	"github.com/mateusmacedo/carpool-bff/internal/marketplace/application"
	marketDomain "github.com/mateusmacedo/carpool-bff/internal/marketplace/domain"
	pkgApp "github.com/mateusmacedo/carpool-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/carpool-bff/pkg/domain"
)

const requestTimeout = 10 * time.Second

type MarketplaceHTTPHandler struct {
	facade       *application.Facade
	commandBus   pkgApp.CommandBus[pkgDomain.Command[application.RemovalData], application.RemovalData]
	tripQueries  pkgApp.QueryBus[pkgDomain.Query[application.TripQueryData], application.TripQueryData, []marketDomain.Trip]
	bookingQuery pkgApp.QueryBus[pkgDomain.Query[application.TripQueryData], application.TripQueryData, []marketDomain.Booking]
}

func NewMarketplaceHTTPHandler(
	facade *application.Facade,
	commandBus pkgApp.CommandBus[pkgDomain.Command[application.RemovalData], application.RemovalData],
	tripQueries pkgApp.QueryBus[pkgDomain.Query[application.TripQueryData], application.TripQueryData, []marketDomain.Trip],
	bookingQuery pkgApp.QueryBus[pkgDomain.Query[application.TripQueryData], application.TripQueryData, []marketDomain.Booking],
) *MarketplaceHTTPHandler {
	return &MarketplaceHTTPHandler{
		facade:       facade,
		commandBus:   commandBus,
		tripQueries:  tripQueries,
		bookingQuery: bookingQuery,
	}
}

func (h *MarketplaceHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Get("/trips", h.HandleListTrips)
	router.Get("/trips/search", h.HandleSearchTrips)
	router.Post("/trips", h.HandlePublishTrip)
	router.Delete("/trips/{tripID}", h.HandleDeletePublishedTrip)
	router.Get("/me/trips", h.HandleListMyTrips)
	router.Get("/me/bookings", h.HandleListMyBookings)
	router.Post("/bookings", h.HandleBookTrip)
	router.Delete("/bookings/{bookingID}", h.HandleCancelBooking)
}

func (h *MarketplaceHTTPHandler) HandleListTrips(w http.ResponseWriter, r *http.Request) {
	h.dispatchTrips(w, r, application.NewListTripsQuery())
}

func (h *MarketplaceHTTPHandler) HandleSearchTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.dispatchTrips(w, r, application.NewSearchTripsQuery(marketDomain.SearchCriteria{
		From: q.Get("from"),
		To:   q.Get("to"),
		Date: q.Get("date"),
	}))
}

func (h *MarketplaceHTTPHandler) HandleListMyTrips(w http.ResponseWriter, r *http.Request) {
	h.dispatchTrips(w, r, application.NewListMyTripsQuery())
}

func (h *MarketplaceHTTPHandler) dispatchTrips(w http.ResponseWriter, r *http.Request, query pkgDomain.Query[application.TripQueryData]) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	trips, err := h.tripQueries.Dispatch(ctx, query)
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusOK, trips)
}

func (h *MarketplaceHTTPHandler) HandleListMyBookings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	bookings, err := h.bookingQuery.Dispatch(ctx, application.NewListMyBookingsQuery())
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusOK, bookings)
}

func (h *MarketplaceHTTPHandler) HandlePublishTrip(w http.ResponseWriter, r *http.Request) {
	var draft marketDomain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		sharedInfra.WriteJSON(w, http.StatusBadRequest, sharedInfra.ErrorBody{Error: "invalid_request", Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	trip, err := h.facade.Publish(ctx, draft)
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusCreated, trip)
}

func (h *MarketplaceHTTPHandler) HandleBookTrip(w http.ResponseWriter, r *http.Request) {
	var trip marketDomain.Trip
	if err := json.NewDecoder(r.Body).Decode(&trip); err != nil {
		sharedInfra.WriteJSON(w, http.StatusBadRequest, sharedInfra.ErrorBody{Error: "invalid_request", Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	booking, err := h.facade.Book(ctx, trip)
	if err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	sharedInfra.WriteJSON(w, http.StatusCreated, booking)
}

func (h *MarketplaceHTTPHandler) HandleDeletePublishedTrip(w http.ResponseWriter, r *http.Request) {
	h.dispatchRemoval(w, r, application.NewDeletePublishedTripCommand(chi.URLParam(r, "tripID")))
}

func (h *MarketplaceHTTPHandler) HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	h.dispatchRemoval(w, r, application.NewCancelBookingCommand(chi.URLParam(r, "bookingID")))
}

func (h *MarketplaceHTTPHandler) dispatchRemoval(w http.ResponseWriter, r *http.Request, command pkgDomain.Command[application.RemovalData]) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.commandBus.Dispatch(ctx, command); err != nil {
		sharedInfra.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
