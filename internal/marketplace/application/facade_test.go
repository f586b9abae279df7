package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	sharedInfra "github.com/mateusmacedo/carpool-bff/internal/infrastructure"
	"github.com/mateusmacedo/carpool-bff/internal/marketplace/application"
	marketDomain "github.com/mateusmacedo/carpool-bff/internal/marketplace/domain"
	"github.com/mateusmacedo/carpool-bff/internal/marketplace/infrastructure"
	pkgApp "github.com/mateusmacedo/carpool-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/carpool-bff/pkg/domain"
	pkgInfra "github.com/mateusmacedo/carpool-bff/pkg/infrastructure"
	zapAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/zaplogger/adapter"
)

var fixedNow = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

// tripRepoStub delegates to a real store unless a function field overrides the call.
type tripRepoStub struct {
	marketDomain.TripRepository
	addFn     func(ctx context.Context, trip marketDomain.Trip) error
	removeFn  func(ctx context.Context, id string) (bool, error)
	replaceFn func(ctx context.Context, trips []marketDomain.Trip) error
}

func (s *tripRepoStub) Add(ctx context.Context, trip marketDomain.Trip) error {
	if s.addFn != nil {
		return s.addFn(ctx, trip)
	}
	return s.TripRepository.Add(ctx, trip)
}

func (s *tripRepoStub) Remove(ctx context.Context, id string) (bool, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, id)
	}
	return s.TripRepository.Remove(ctx, id)
}

func (s *tripRepoStub) Replace(ctx context.Context, trips []marketDomain.Trip) error {
	if s.replaceFn != nil {
		return s.replaceFn(ctx, trips)
	}
	return s.TripRepository.Replace(ctx, trips)
}

type ownerStub struct {
	id, name string
}

func (o ownerStub) CurrentOwner(context.Context) (string, string, bool) {
	return o.id, o.name, o.id != ""
}

type eventRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *eventRecorder) Handle(_ context.Context, event pkgDomain.Event[application.MarketplaceEventData]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, event.EventName())
	return nil
}

func (r *eventRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

type fixture struct {
	medium   *sharedInfra.InMemoryMedium
	catalog  *tripRepoStub
	personal *tripRepoStub
	events   *eventRecorder
	facade   *application.Facade
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	owner    application.OwnerResolver
	eventBus pkgApp.EventBus[pkgDomain.Event[application.MarketplaceEventData], application.MarketplaceEventData]
}

func withOwner(owner application.OwnerResolver) fixtureOption {
	return func(c *fixtureConfig) { c.owner = owner }
}

func withEventBus(bus pkgApp.EventBus[pkgDomain.Event[application.MarketplaceEventData], application.MarketplaceEventData]) fixtureOption {
	return func(c *fixtureConfig) { c.eventBus = bus }
}

func sequentialIDs() pkgDomain.IDGenerator[string] {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	logger := zapAdapter.NewNopAppLogger()
	medium := sharedInfra.NewInMemoryMedium()
	recorder := &eventRecorder{}

	bus := pkgInfra.NewSimpleEventBus[pkgDomain.Event[application.MarketplaceEventData], application.MarketplaceEventData](logger)
	for _, name := range []string{
		application.TripPublishedEvent, application.TripDeletedEvent,
		application.TripBookedEvent, application.BookingCancelledEvent,
	} {
		bus.RegisterHandler(name, recorder)
	}

	cfg := fixtureConfig{eventBus: bus}
	for _, opt := range opts {
		opt(&cfg)
	}

	catalog := &tripRepoStub{TripRepository: infrastructure.NewTripCatalogStore(medium, logger)}
	personal := &tripRepoStub{TripRepository: infrastructure.NewPersonalTripStore(medium, logger)}
	bookings := infrastructure.NewBookingStore(medium, logger)

	facade := application.NewFacade(catalog, personal, bookings, sequentialIDs(),
		func() time.Time { return fixedNow }, cfg.owner, cfg.eventBus, logger)

	return &fixture{medium: medium, catalog: catalog, personal: personal, events: recorder, facade: facade}
}

func price(v float64) *float64 { return &v }

func parisLyon() marketDomain.Draft {
	return marketDomain.Draft{From: "Paris", To: "Lyon", Date: "2025-10-15", Time: "08:00", Price: price(25)}
}

func ids(trips []marketDomain.Trip) []string {
	out := make([]string, 0, len(trips))
	for _, trip := range trips {
		out = append(out, trip.ID)
	}
	return out
}

func TestPublish_AppearsInBothStoresWithDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	trip, err := f.facade.Publish(ctx, parisLyon())
	require.NoError(t, err)

	assert.NotEmpty(t, trip.ID)
	assert.Equal(t, []string{"Non-fumeur"}, trip.Preferences)
	assert.Equal(t, 1, trip.Seats)
	assert.Equal(t, marketDomain.Driver{Name: "Vous", Rating: 4.9, Trips: 12}, trip.Driver)
	assert.Empty(t, trip.OwnerID)

	catalog, err := f.facade.List(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 4)
	assert.Equal(t, []string{"1", "2", "3", trip.ID}, ids(catalog))
	assert.Equal(t, trip, catalog[3])

	mine, err := f.facade.MyTrips(ctx)
	require.NoError(t, err)
	assert.Equal(t, []marketDomain.Trip{trip}, mine)

	assert.Equal(t, []string{application.TripPublishedEvent}, f.events.recorded())
}

func TestPublish_MissingPriceTouchesNoStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	draft := parisLyon()
	draft.Price = nil

	_, err := f.facade.Publish(ctx, draft)

	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, []string{"price"}, validation.Fields)
	assert.Empty(t, f.medium.Keys(), "neither store may be written")
	assert.Empty(t, f.events.recorded())
}

func TestPublish_NamesEveryInvalidField(t *testing.T) {
	f := newFixture(t)

	_, err := f.facade.Publish(context.Background(), marketDomain.Draft{From: " ", Price: price(-1), Seats: -2})

	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, []string{"from", "to", "date", "time", "price", "seats"}, validation.Fields)
}

func TestPublish_KeepsGivenPreferencesAndFreeTrips(t *testing.T) {
	f := newFixture(t)
	draft := parisLyon()
	draft.Price = price(0)
	draft.Seats = 3
	draft.Preferences = []string{"Animaux OK"}

	trip, err := f.facade.Publish(context.Background(), draft)

	require.NoError(t, err)
	assert.Equal(t, 0.0, trip.Price)
	assert.Equal(t, 3, trip.Seats)
	assert.Equal(t, []string{"Animaux OK"}, trip.Preferences)
}

func TestPublish_TagsTheOwner(t *testing.T) {
	f := newFixture(t, withOwner(ownerStub{id: "user-7", name: "camille"}))

	trip, err := f.facade.Publish(context.Background(), parisLyon())

	require.NoError(t, err)
	assert.Equal(t, "user-7", trip.OwnerID)
	assert.Equal(t, "camille", trip.Driver.Name)
}

func TestPublish_PersonalFailureRestoresCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before, err := f.facade.List(ctx)
	require.NoError(t, err)

	f.personal.addFn = func(context.Context, marketDomain.Trip) error {
		return domain.NewStorageError("put", "myPublishedTrips", errors.New("quota exceeded"))
	}

	_, err = f.facade.Publish(ctx, parisLyon())

	require.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrPartialWrite)

	after, err := f.facade.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	mine, err := f.facade.MyTrips(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)
	assert.Empty(t, f.events.recorded())
}

func TestPublish_FailedUndoSurfacesDivergence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.personal.addFn = func(context.Context, marketDomain.Trip) error {
		return domain.NewStorageError("put", "myPublishedTrips", errors.New("quota exceeded"))
	}
	f.catalog.replaceFn = func(context.Context, []marketDomain.Trip) error {
		return domain.NewStorageError("put", "publishedTrips", errors.New("disk gone"))
	}

	_, err := f.facade.Publish(ctx, parisLyon())

	var partial *domain.PartialWriteInconsistency
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "publish", partial.Op)

	catalog, err := f.facade.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids(catalog), partial.ID, "the divergence is left in place")
}

func TestDeletePublishedTrip_RemovesFromBothStores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	trip, err := f.facade.Publish(ctx, parisLyon())
	require.NoError(t, err)

	require.NoError(t, f.facade.DeletePublishedTrip(ctx, trip.ID))

	catalog, err := f.facade.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids(catalog), trip.ID)

	mine, err := f.facade.MyTrips(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)

	assert.Equal(t, []string{application.TripPublishedEvent, application.TripDeletedEvent}, f.events.recorded())
}

func TestDeletePublishedTrip_UnknownIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.facade.DeletePublishedTrip(ctx, "nope"))

	catalog, err := f.facade.List(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 3)
	assert.Empty(t, f.events.recorded())
}

func TestDeletePublishedTrip_LeavesOtherDriversTripsInCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	removals := 0
	f.catalog.removeFn = func(ctx context.Context, id string) (bool, error) {
		removals++
		return f.catalog.TripRepository.Remove(ctx, id)
	}

	require.NoError(t, f.facade.DeletePublishedTrip(ctx, "1"))

	catalog, err := f.facade.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(catalog))
	assert.Zero(t, removals)
	assert.Empty(t, f.events.recorded())
}

func TestDeletePublishedTrip_CatalogFailureRestoresPersonal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	trip, err := f.facade.Publish(ctx, parisLyon())
	require.NoError(t, err)

	f.catalog.removeFn = func(context.Context, string) (bool, error) {
		return false, domain.NewStorageError("put", "publishedTrips", errors.New("read-only"))
	}

	err = f.facade.DeletePublishedTrip(ctx, trip.ID)
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrPartialWrite)

	mine, err := f.facade.MyTrips(ctx)
	require.NoError(t, err)
	assert.Equal(t, []marketDomain.Trip{trip}, mine)
}

func TestDeletePublishedTrip_FailedUndoSurfacesDivergence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	trip, err := f.facade.Publish(ctx, parisLyon())
	require.NoError(t, err)

	f.catalog.removeFn = func(context.Context, string) (bool, error) {
		return false, domain.NewStorageError("put", "publishedTrips", errors.New("read-only"))
	}
	f.personal.replaceFn = func(context.Context, []marketDomain.Trip) error {
		return domain.NewStorageError("put", "myPublishedTrips", errors.New("read-only"))
	}

	err = f.facade.DeletePublishedTrip(ctx, trip.ID)

	var partial *domain.PartialWriteInconsistency
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "delete", partial.Op)
	assert.Equal(t, trip.ID, partial.ID)
}

func TestBook_TwiceGivesIndependentBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withOwner(ownerStub{id: "user-9"}))
	catalog, err := f.facade.List(ctx)
	require.NoError(t, err)

	first, err := f.facade.Book(ctx, catalog[0])
	require.NoError(t, err)
	second, err := f.facade.Book(ctx, catalog[0])
	require.NoError(t, err)

	assert.NotEqual(t, first.BookingID, second.BookingID)
	assert.Equal(t, marketDomain.BookingConfirmed, first.Status)
	assert.Equal(t, fixedNow, first.BookedAt)
	assert.Equal(t, "user-9", first.PassengerID)
	assert.Equal(t, catalog[0], first.Trip)

	require.NoError(t, f.facade.CancelBooking(ctx, first.BookingID))

	bookings, err := f.facade.MyBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []marketDomain.Booking{second}, bookings)
}

func TestBook_SnapshotSurvivesTripDeletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	trip, err := f.facade.Publish(ctx, parisLyon())
	require.NoError(t, err)

	booking, err := f.facade.Book(ctx, trip)
	require.NoError(t, err)
	require.NoError(t, f.facade.DeletePublishedTrip(ctx, trip.ID))

	bookings, err := f.facade.MyBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []marketDomain.Booking{booking}, bookings)
}

func TestBook_RequiresATripID(t *testing.T) {
	f := newFixture(t)

	_, err := f.facade.Book(context.Background(), marketDomain.Trip{})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCancelBooking_UnknownIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	catalog, err := f.facade.List(ctx)
	require.NoError(t, err)
	_, err = f.facade.Book(ctx, catalog[1])
	require.NoError(t, err)

	require.NoError(t, f.facade.CancelBooking(ctx, "missing"))

	bookings, err := f.facade.MyBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
	assert.Equal(t, []string{application.TripBookedEvent}, f.events.recorded())
}

func TestSearch_ProjectsCatalogWithoutMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before, err := f.facade.List(ctx)
	require.NoError(t, err)

	found, err := f.facade.Search(ctx, marketDomain.SearchCriteria{From: " paris", To: "LYON ", Date: "2025-10-15"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(found))

	none, err := f.facade.Search(ctx, marketDomain.SearchCriteria{From: "Paris", To: "Lyon", Date: "2025-10-16"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	after, err := f.facade.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSearch_RequiresEveryCriterion(t *testing.T) {
	f := newFixture(t)

	_, err := f.facade.Search(context.Background(), marketDomain.SearchCriteria{From: "Paris"})

	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, []string{"to", "date"}, validation.Fields)
}

func TestList_CorruptCatalogIsStorageError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.medium.Put(ctx, infrastructure.CatalogKey, []byte("{broken")))

	_, err := f.facade.List(ctx)
	require.ErrorIs(t, err, domain.ErrStorage)

	_, err = f.facade.Publish(ctx, parisLyon())
	require.ErrorIs(t, err, domain.ErrStorage)

	raw, err := f.medium.Get(ctx, infrastructure.CatalogKey)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(raw))
}

type failingEventBus struct{}

func (failingEventBus) RegisterHandler(string, pkgApp.EventHandler[pkgDomain.Event[application.MarketplaceEventData], application.MarketplaceEventData]) {
}

func (failingEventBus) Publish(context.Context, pkgDomain.Event[application.MarketplaceEventData]) error {
	return errors.New("broker down")
}

func TestEventBusFailureDoesNotFailTheOperation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withEventBus(failingEventBus{}))

	trip, err := f.facade.Publish(ctx, parisLyon())
	require.NoError(t, err)

	mine, err := f.facade.MyTrips(ctx)
	require.NoError(t, err)
	assert.Equal(t, []marketDomain.Trip{trip}, mine)
}
