package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	marketDomain "github.com/mateusmacedo/carpool-bff/internal/marketplace/domain"
	pkgApp "github.com/mateusmacedo/carpool-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/carpool-bff/pkg/domain"
)

const (
	defaultDriverName   = "Vous"
	defaultDriverRating = 4.9
	defaultDriverTrips  = 12
	defaultPreference   = "Non-fumeur"
)

// OwnerResolver informa a identidade da sessão ativa, quando houver uma.
type OwnerResolver interface {
	CurrentOwner(ctx context.Context) (id, displayName string, ok bool)
}

// Clock devolve o instante atual; injetado para que as reservas sejam determinísticas em teste.
type Clock func() time.Time

// Facade coordena o catálogo, a lista pessoal e as reservas. As mutações são serializadas
// por um mutex; as leituras vão direto aos stores.
type Facade struct {
	catalog     marketDomain.TripRepository
	personal    marketDomain.TripRepository
	bookings    marketDomain.BookingRepository
	idGenerator pkgDomain.IDGenerator[string]
	clock       Clock
	owner       OwnerResolver
	eventBus    pkgApp.EventBus[pkgDomain.Event[MarketplaceEventData], MarketplaceEventData]
	logger      pkgApp.AppLogger
	mu          sync.Mutex
}

// NewFacade monta a fachada. owner pode ser nil quando não existe sistema de contas.
func NewFacade(
	catalog marketDomain.TripRepository,
	personal marketDomain.TripRepository,
	bookings marketDomain.BookingRepository,
	idGenerator pkgDomain.IDGenerator[string],
	clock Clock,
	owner OwnerResolver,
	eventBus pkgApp.EventBus[pkgDomain.Event[MarketplaceEventData], MarketplaceEventData],
	logger pkgApp.AppLogger,
) *Facade {
	if clock == nil {
		clock = time.Now
	}
	return &Facade{
		catalog:     catalog,
		personal:    personal,
		bookings:    bookings,
		idGenerator: idGenerator,
		clock:       clock,
		owner:       owner,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Publish grava a viagem no catálogo e depois na lista pessoal. Se a segunda escrita falhar,
// o catálogo volta ao estado anterior; se nem isso for possível, a divergência é devolvida
// como PartialWriteInconsistency.
func (f *Facade) Publish(ctx context.Context, draft marketDomain.Draft) (marketDomain.Trip, error) {
	if err := ctx.Err(); err != nil {
		return marketDomain.Trip{}, err
	}

	trip, err := f.newTrip(ctx, draft)
	if err != nil {
		pkgApp.LogDebug(ctx, f.logger, "Rascunho de viagem rejeitado", map[string]interface{}{"error": err.Error()})
		return marketDomain.Trip{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot, err := f.catalog.ListAll(ctx)
	if err != nil {
		return marketDomain.Trip{}, err
	}

	if err := f.catalog.Add(ctx, trip); err != nil {
		pkgApp.LogError(ctx, f.logger, "Erro ao adicionar viagem ao catálogo", err, map[string]interface{}{"trip_id": trip.ID})
		return marketDomain.Trip{}, err
	}

	if err := f.personal.Add(ctx, trip); err != nil {
		pkgApp.LogError(ctx, f.logger, "Erro ao adicionar viagem à lista pessoal", err, map[string]interface{}{"trip_id": trip.ID})
		if undoErr := f.catalog.Replace(ctx, snapshot); undoErr != nil {
			pkgApp.LogError(ctx, f.logger, "Erro ao restaurar o catálogo", undoErr, map[string]interface{}{"trip_id": trip.ID})
			return marketDomain.Trip{}, &domain.PartialWriteInconsistency{Op: "publish", ID: trip.ID, Cause: err, UndoErr: undoErr}
		}
		return marketDomain.Trip{}, err
	}

	pkgApp.LogInfo(ctx, f.logger, "Viagem publicada", map[string]interface{}{"trip_id": trip.ID})
	f.publishEvent(ctx, TripPublishedEvent, MarketplaceEventData{TripID: trip.ID, OwnerID: trip.OwnerID})
	return trip, nil
}

func (f *Facade) newTrip(ctx context.Context, draft marketDomain.Draft) (marketDomain.Trip, error) {
	var invalid []string
	if strings.TrimSpace(draft.From) == "" {
		invalid = append(invalid, "from")
	}
	if strings.TrimSpace(draft.To) == "" {
		invalid = append(invalid, "to")
	}
	if strings.TrimSpace(draft.Date) == "" {
		invalid = append(invalid, "date")
	}
	if strings.TrimSpace(draft.Time) == "" {
		invalid = append(invalid, "time")
	}
	if draft.Price == nil || *draft.Price < 0 {
		invalid = append(invalid, "price")
	}

	seats := draft.Seats
	if seats == 0 {
		seats = 1
	}
	if seats < 1 {
		invalid = append(invalid, "seats")
	}

	if len(invalid) > 0 {
		return marketDomain.Trip{}, domain.NewValidationError(invalid...)
	}

	preferences := append([]string(nil), draft.Preferences...)
	if len(preferences) == 0 {
		preferences = []string{defaultPreference}
	}

	trip := marketDomain.Trip{
		ID:          f.idGenerator(),
		From:        strings.TrimSpace(draft.From),
		To:          strings.TrimSpace(draft.To),
		Date:        draft.Date,
		Time:        draft.Time,
		Price:       *draft.Price,
		Seats:       seats,
		Car:         draft.Car,
		Preferences: preferences,
		Driver: marketDomain.Driver{
			Name:   defaultDriverName,
			Rating: defaultDriverRating,
			Trips:  defaultDriverTrips,
		},
	}

	if id, name, ok := f.currentOwner(ctx); ok {
		trip.OwnerID = id
		if name != "" {
			trip.Driver.Name = name
		}
	}
	return trip, nil
}

func (f *Facade) currentOwner(ctx context.Context) (string, string, bool) {
	if f.owner == nil {
		return "", "", false
	}
	return f.owner.CurrentOwner(ctx)
}

// List devolve o catálogo inteiro na ordem de inserção.
func (f *Facade) List(ctx context.Context) ([]marketDomain.Trip, error) {
	return f.catalog.ListAll(ctx)
}

// Search filtra o catálogo sem alterá-lo. Origem e destino comparam sem diferenciar
// maiúsculas; a data precisa ser idêntica.
func (f *Facade) Search(ctx context.Context, criteria marketDomain.SearchCriteria) ([]marketDomain.Trip, error) {
	var missing []string
	if strings.TrimSpace(criteria.From) == "" {
		missing = append(missing, "from")
	}
	if strings.TrimSpace(criteria.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(criteria.Date) == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return nil, domain.NewValidationError(missing...)
	}

	trips, err := f.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	matches := []marketDomain.Trip{}
	for _, trip := range trips {
		if sameText(trip.From, criteria.From) && sameText(trip.To, criteria.To) && trip.Date == strings.TrimSpace(criteria.Date) {
			matches = append(matches, trip)
		}
	}
	return matches, nil
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (f *Facade) MyTrips(ctx context.Context) ([]marketDomain.Trip, error) {
	return f.personal.ListAll(ctx)
}

func (f *Facade) MyBookings(ctx context.Context) ([]marketDomain.Booking, error) {
	return f.bookings.ListAll(ctx)
}

// Book grava uma cópia da viagem como reserva confirmada. Não há checagem de vagas.
func (f *Facade) Book(ctx context.Context, trip marketDomain.Trip) (marketDomain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return marketDomain.Booking{}, err
	}
	if strings.TrimSpace(trip.ID) == "" {
		return marketDomain.Booking{}, domain.NewValidationError("id")
	}

	snapshot := trip
	snapshot.Preferences = append([]string(nil), trip.Preferences...)

	booking := marketDomain.Booking{
		Trip:      snapshot,
		BookingID: f.idGenerator(),
		BookedAt:  f.clock().UTC(),
		Status:    marketDomain.BookingConfirmed,
	}
	if id, _, ok := f.currentOwner(ctx); ok {
		booking.PassengerID = id
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.bookings.Add(ctx, booking); err != nil {
		pkgApp.LogError(ctx, f.logger, "Erro ao salvar reserva", err, map[string]interface{}{"trip_id": trip.ID})
		return marketDomain.Booking{}, err
	}

	pkgApp.LogInfo(ctx, f.logger, "Viagem reservada", map[string]interface{}{
		"trip_id":    trip.ID,
		"booking_id": booking.BookingID,
	})
	f.publishEvent(ctx, TripBookedEvent, MarketplaceEventData{TripID: trip.ID, BookingID: booking.BookingID, OwnerID: booking.PassengerID})
	return booking, nil
}

// CancelBooking remove a reserva; um id inexistente não altera nada.
func (f *Facade) CancelBooking(ctx context.Context, bookingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	removed, err := f.bookings.Remove(ctx, bookingID)
	if err != nil {
		pkgApp.LogError(ctx, f.logger, "Erro ao cancelar reserva", err, map[string]interface{}{"booking_id": bookingID})
		return err
	}
	if !removed {
		pkgApp.LogDebug(ctx, f.logger, "Reserva não encontrada, nada a cancelar", map[string]interface{}{"booking_id": bookingID})
		return nil
	}

	pkgApp.LogInfo(ctx, f.logger, "Reserva cancelada", map[string]interface{}{"booking_id": bookingID})
	f.publishEvent(ctx, BookingCancelledEvent, MarketplaceEventData{BookingID: bookingID})
	return nil
}

// DeletePublishedTrip remove uma viagem publicada pelo próprio usuário: primeiro da lista
// pessoal, depois do catálogo. Viagens que não estão na lista pessoal pertencem a outros
// motoristas e não são tocadas. Se a remoção do catálogo falhar, a lista pessoal é
// restaurada.
func (f *Facade) DeletePublishedTrip(ctx context.Context, tripID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot, err := f.personal.ListAll(ctx)
	if err != nil {
		return err
	}

	if !containsTrip(snapshot, tripID) {
		pkgApp.LogDebug(ctx, f.logger, "Viagem não publicada pelo usuário, nada a remover", map[string]interface{}{"trip_id": tripID})
		return nil
	}

	if _, err := f.personal.Remove(ctx, tripID); err != nil {
		pkgApp.LogError(ctx, f.logger, "Erro ao remover viagem da lista pessoal", err, map[string]interface{}{"trip_id": tripID})
		return err
	}

	if _, err := f.catalog.Remove(ctx, tripID); err != nil {
		pkgApp.LogError(ctx, f.logger, "Erro ao remover viagem do catálogo", err, map[string]interface{}{"trip_id": tripID})
		if undoErr := f.personal.Replace(ctx, snapshot); undoErr != nil {
			pkgApp.LogError(ctx, f.logger, "Erro ao restaurar a lista pessoal", undoErr, map[string]interface{}{"trip_id": tripID})
			return &domain.PartialWriteInconsistency{Op: "delete", ID: tripID, Cause: err, UndoErr: undoErr}
		}
		return err
	}

	pkgApp.LogInfo(ctx, f.logger, "Viagem removida", map[string]interface{}{"trip_id": tripID})
	f.publishEvent(ctx, TripDeletedEvent, MarketplaceEventData{TripID: tripID})
	return nil
}

func containsTrip(trips []marketDomain.Trip, tripID string) bool {
	for _, trip := range trips {
		if trip.ID == tripID {
			return true
		}
	}
	return false
}

// publishEvent só registra falhas: a operação já foi persistida e não deve ser desfeita
// por causa do barramento.
func (f *Facade) publishEvent(ctx context.Context, name string, data MarketplaceEventData) {
	if f.eventBus == nil {
		return
	}

	data.OccurredAt = f.clock().UTC()
	if err := f.eventBus.Publish(ctx, NewMarketplaceEvent(name, data)); err != nil {
		pkgApp.LogError(ctx, f.logger, "Erro ao publicar evento do marketplace", err, map[string]interface{}{"event_name": name})
	}
}
