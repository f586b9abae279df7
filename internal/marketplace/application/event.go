package application

import (
	"time"

	"github.com/mateusmacedo/carpool-bff/pkg/domain"
)

const (
	TripPublishedEvent    = "TripPublished"
	TripDeletedEvent      = "TripDeleted"
	TripBookedEvent       = "TripBooked"
	BookingCancelledEvent = "BookingCancelled"
)

// MarketplaceEventData é o corpo comum dos eventos do marketplace.
type MarketplaceEventData struct {
	TripID     string    `json:"tripId,omitempty"`
	BookingID  string    `json:"bookingId,omitempty"`
	OwnerID    string    `json:"ownerId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type marketplaceEvent struct {
	name string
	data MarketplaceEventData
}

func (e marketplaceEvent) EventName() string {
	return e.name
}

func (e marketplaceEvent) Payload() MarketplaceEventData {
	return e.data
}

func NewMarketplaceEvent(name string, data MarketplaceEventData) domain.Event[MarketplaceEventData] {
	return marketplaceEvent{name: name, data: data}
}
