// Package encounters provides storage for combat encounters.
package encounters

//go:generate mockgen -destination=mock/mock_repository.go -package=encountersmock github.com/forgekeep/encounter-api/internal/repositories/encounters Repository

import (
	"context"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
)

// Repository defines the storage interface for encounters
type Repository interface {
	// Create stores a new encounter, failing if the ID is taken
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get retrieves an encounter by ID
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// Update replaces an existing encounter
	Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error)

	// Delete removes an encounter
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)

	// ListBySessionID returns all encounters belonging to a session
	ListBySessionID(ctx context.Context, input ListBySessionIDInput) (*ListBySessionIDOutput, error)

	// GetActiveBySessionID returns the session's encounter still in play, if any
	GetActiveBySessionID(ctx context.Context, input GetActiveBySessionIDInput) (*GetActiveBySessionIDOutput, error)
}

// CreateInput defines the request for storing a new encounter
type CreateInput struct {
	Encounter *combat.CombatEncounter
}

// CreateOutput defines the response from storing a new encounter
type CreateOutput struct {
	Encounter *combat.CombatEncounter
}

// GetInput defines the request for retrieving an encounter
type GetInput struct {
	ID string
}

// GetOutput defines the response from retrieving an encounter
type GetOutput struct {
	Encounter *combat.CombatEncounter
}

// UpdateInput defines the request for updating an encounter
type UpdateInput struct {
	Encounter *combat.CombatEncounter
}

// UpdateOutput defines the response from updating an encounter
type UpdateOutput struct {
	Encounter *combat.CombatEncounter
}

// DeleteInput defines the request for deleting an encounter
type DeleteInput struct {
	ID string
}

// DeleteOutput defines the response from deleting an encounter
type DeleteOutput struct{}

// ListBySessionIDInput defines the request for listing a session's encounters
type ListBySessionIDInput struct {
	SessionID string
}

// ListBySessionIDOutput defines the response from listing a session's encounters
type ListBySessionIDOutput struct {
	Encounters []*combat.CombatEncounter
}

// GetActiveBySessionIDInput defines the request for finding a session's live encounter
type GetActiveBySessionIDInput struct {
	SessionID string
}

// GetActiveBySessionIDOutput defines the response from finding a session's live encounter
type GetActiveBySessionIDOutput struct {
	Encounter *combat.CombatEncounter
}
