package encounters

import (
	"context"
	"sync"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
)

// InMemoryRepository implements Repository using in-memory storage. Useful
// for tests and the simulate command; encounters are deep-copied on the way
// in and out so callers cannot mutate stored state.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*combat.CombatEncounter
}

// NewInMemory creates a new in-memory repository
func NewInMemory() *InMemoryRepository {
	return &InMemoryRepository{
		store: make(map[string]*combat.CombatEncounter),
	}
}

// Create stores a new encounter
func (r *InMemoryRepository) Create(_ context.Context, input CreateInput) (*CreateOutput, error) {
	if input.Encounter == nil {
		return nil, errors.InvalidArgument(errEncounterNil)
	}
	if input.Encounter.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[input.Encounter.ID]; ok {
		return nil, errors.AlreadyExistsf("encounter with ID %s already exists", input.Encounter.ID)
	}

	r.store[input.Encounter.ID] = input.Encounter.Clone()

	return &CreateOutput{Encounter: input.Encounter}, nil
}

// Get retrieves an encounter by ID
func (r *InMemoryRepository) Get(_ context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	enc, ok := r.store[input.ID]
	if !ok {
		return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
	}

	return &GetOutput{Encounter: enc.Clone()}, nil
}

// Update replaces an existing encounter
func (r *InMemoryRepository) Update(_ context.Context, input UpdateInput) (*UpdateOutput, error) {
	if input.Encounter == nil {
		return nil, errors.InvalidArgument(errEncounterNil)
	}
	if input.Encounter.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[input.Encounter.ID]; !ok {
		return nil, errors.NotFoundf("encounter with ID %s not found", input.Encounter.ID)
	}

	r.store[input.Encounter.ID] = input.Encounter.Clone()

	return &UpdateOutput{Encounter: input.Encounter}, nil
}

// Delete removes an encounter
func (r *InMemoryRepository) Delete(_ context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[input.ID]; !ok {
		return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
	}

	delete(r.store, input.ID)

	return &DeleteOutput{}, nil
}

// ListBySessionID returns all encounters belonging to a session
func (r *InMemoryRepository) ListBySessionID(
	_ context.Context,
	input ListBySessionIDInput,
) (*ListBySessionIDOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var encs []*combat.CombatEncounter
	for _, enc := range r.store {
		if enc.SessionID == input.SessionID {
			encs = append(encs, enc.Clone())
		}
	}

	return &ListBySessionIDOutput{Encounters: encs}, nil
}

// GetActiveBySessionID returns the session's encounter still in play, if any
func (r *InMemoryRepository) GetActiveBySessionID(
	ctx context.Context,
	input GetActiveBySessionIDInput,
) (*GetActiveBySessionIDOutput, error) {
	listOutput, err := r.ListBySessionID(ctx, ListBySessionIDInput(input))
	if err != nil {
		return nil, err
	}

	for _, enc := range listOutput.Encounters {
		if enc.Status != combat.EncounterStatusCompleted {
			return &GetActiveBySessionIDOutput{Encounter: enc}, nil
		}
	}

	return nil, errors.NotFoundf("no active encounter for session %s", input.SessionID)
}
