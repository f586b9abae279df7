package application

import (
	"github.com/mateusmacedo/carpool-bff/pkg/domain"
)

const (
	CancelBookingCommand       = "CancelBooking"
	DeletePublishedTripCommand = "DeletePublishedTrip"
)

// RemovalData identifica a reserva ou viagem a remover.
type RemovalData struct {
	ID string
}

type removalCommand struct {
	name string
	data RemovalData
}

func (c removalCommand) CommandName() string {
	return c.name
}

func (c removalCommand) Payload() RemovalData {
	return c.data
}

func NewCancelBookingCommand(bookingID string) domain.Command[RemovalData] {
	return removalCommand{name: CancelBookingCommand, data: RemovalData{ID: bookingID}}
}

func NewDeletePublishedTripCommand(tripID string) domain.Command[RemovalData] {
	return removalCommand{name: DeletePublishedTripCommand, data: RemovalData{ID: tripID}}
}
