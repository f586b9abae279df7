package infrastructure

import (
	"github.com/google/uuid"

	"github.com/mateusmacedo/carpool-bff/pkg/domain"
)

// GenerateID devolve um UUIDv7, ordenado pelo instante de criação.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// NewIDGenerator expõe GenerateID como domain.IDGenerator.
func NewIDGenerator() domain.IDGenerator[string] {
	return GenerateID
}
