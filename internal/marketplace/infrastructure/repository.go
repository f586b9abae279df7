package infrastructure

import (
	"github.com/mateusmacedo/carpool-bff/internal/domain"
	sharedInfra "github.com/mateusmacedo/carpool-bff/internal/infrastructure"
	marketDomain "github.com/mateusmacedo/carpool-bff/internal/marketplace/domain"
	"github.com/mateusmacedo/carpool-bff/pkg/application"
)

const (
	CatalogKey  = "publishedTrips"
	PersonalKey = "myPublishedTrips"
	BookingsKey = "myBookings"
)

// SeedTrips são as ofertas de exemplo gravadas no catálogo no primeiro acesso.
func SeedTrips() []marketDomain.Trip {
	return []marketDomain.Trip{
		{
			ID: "1", From: "Paris", To: "Lyon", Date: "2025-10-15", Time: "08:00",
			Price: 25, Seats: 3, Car: "Renault Clio",
			Preferences: []string{"Non-fumeur", "Musique OK"},
			Driver:      marketDomain.Driver{Name: "Sophie Martin", Rating: 4.8, Trips: 45},
		},
		{
			ID: "2", From: "Marseille", To: "Nice", Date: "2025-10-16", Time: "14:30",
			Price: 15, Seats: 2, Car: "Peugeot 308",
			Preferences: []string{"Non-fumeur", "Animaux OK"},
			Driver:      marketDomain.Driver{Name: "Thomas Dubois", Rating: 4.9, Trips: 78},
		},
		{
			ID: "3", From: "Toulouse", To: "Bordeaux", Date: "2025-10-17", Time: "10:00",
			Price: 18, Seats: 4, Car: "Volkswagen Golf",
			Preferences: []string{"Non-fumeur", "Silence apprécié"},
			Driver:      marketDomain.Driver{Name: "Marie Leroy", Rating: 5.0, Trips: 120},
		},
	}
}

func tripID(t marketDomain.Trip) string { return t.ID }

func bookingID(b marketDomain.Booking) string { return b.BookingID }

// NewTripCatalogStore abre o catálogo compartilhado, semeado com SeedTrips.
func NewTripCatalogStore(medium domain.Medium, logger application.AppLogger) marketDomain.TripRepository {
	return sharedInfra.NewCollection(medium, CatalogKey, tripID, SeedTrips(), logger)
}

func NewPersonalTripStore(medium domain.Medium, logger application.AppLogger) marketDomain.TripRepository {
	return sharedInfra.NewCollection(medium, PersonalKey, tripID, nil, logger)
}

func NewBookingStore(medium domain.Medium, logger application.AppLogger) marketDomain.BookingRepository {
	return sharedInfra.NewCollection(medium, BookingsKey, bookingID, nil, logger)
}
