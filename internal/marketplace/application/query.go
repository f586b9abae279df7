package application

import (
	marketDomain "github.com/mateusmacedo/carpool-bff/internal/marketplace/domain"
	"github.com/mateusmacedo/carpool-bff/pkg/domain"
)

const (
	ListTripsQuery      = "ListTrips"
	SearchTripsQuery    = "SearchTrips"
	ListMyTripsQuery    = "ListMyTrips"
	ListMyBookingsQuery = "ListMyBookings"
)

// TripQueryData carrega os critérios de busca; é ignorado pelas listagens simples.
type TripQueryData struct {
	Criteria marketDomain.SearchCriteria
}

type tripQuery struct {
	name string
	data TripQueryData
}

func (q tripQuery) QueryName() string {
	return q.name
}

func (q tripQuery) Payload() TripQueryData {
	return q.data
}

func NewListTripsQuery() domain.Query[TripQueryData] {
	return tripQuery{name: ListTripsQuery}
}

func NewSearchTripsQuery(criteria marketDomain.SearchCriteria) domain.Query[TripQueryData] {
	return tripQuery{name: SearchTripsQuery, data: TripQueryData{Criteria: criteria}}
}

func NewListMyTripsQuery() domain.Query[TripQueryData] {
	return tripQuery{name: ListMyTripsQuery}
}

func NewListMyBookingsQuery() domain.Query[TripQueryData] {
	return tripQuery{name: ListMyBookingsQuery}
}
