package domain

import (
	"context"
	"time"
)

type Driver struct {
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
	Trips  int     `json:"trips"`
}

// Trip é uma oferta publicada; o mesmo registro aparece no catálogo e, para quem publicou,
// na lista pessoal.
type Trip struct {
	ID          string   `json:"id"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Date        string   `json:"date"` // AAAA-MM-DD
	Time        string   `json:"time"` // HH:MM
	Price       float64  `json:"price"`
	Seats       int      `json:"seats"`
	Car         string   `json:"car,omitempty"`
	Preferences []string `json:"preferences"`
	Driver      Driver   `json:"driver"`
	OwnerID     string   `json:"ownerId,omitempty"`
}

// Booking é uma cópia da viagem no momento da reserva; alterações posteriores no catálogo
// não a afetam.
type Booking struct {
	Trip
	BookingID   string    `json:"bookingId"`
	BookedAt    time.Time `json:"bookedAt"`
	Status      string    `json:"status"`
	PassengerID string    `json:"passengerId,omitempty"`
}

const BookingConfirmed = "confirmed"

// Draft são os campos informados por quem publica. Price é ponteiro para distinguir
// "ausente" de zero.
type Draft struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Price       *float64 `json:"price"`
	Seats       int      `json:"seats"`
	Car         string   `json:"car"`
	Preferences []string `json:"preferences"`
}

type SearchCriteria struct {
	From string `json:"from"`
	To   string `json:"to"`
	Date string `json:"date"`
}

// TripRepository é implementado pelo catálogo e pela lista pessoal.
type TripRepository interface {
	ListAll(ctx context.Context) ([]Trip, error)
	Add(ctx context.Context, trip Trip) error
	Remove(ctx context.Context, id string) (bool, error)
	Replace(ctx context.Context, trips []Trip) error
}

type BookingRepository interface {
	ListAll(ctx context.Context) ([]Booking, error)
	Add(ctx context.Context, booking Booking) error
	Remove(ctx context.Context, bookingID string) (bool, error)
}
