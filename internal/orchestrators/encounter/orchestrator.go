// Package encounter implements the encounter orchestrator: the session layer
// that owns encounter state and drives the combat rules packages.
package encounter

import (
	"context"
	"fmt"
	"sync"

	"log/slog"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/forgekeep/encounter-api/internal/clients/external"
	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
	"github.com/forgekeep/encounter-api/internal/pkg/clock"
	"github.com/forgekeep/encounter-api/internal/pkg/idgen"
	encounterrepo "github.com/forgekeep/encounter-api/internal/repositories/encounters"
	"github.com/forgekeep/encounter-api/internal/rules/initiative"
	"github.com/forgekeep/encounter-api/internal/rules/roster"
	"github.com/forgekeep/encounter-api/internal/rules/turns"
)

// Condition applied automatically when a participant drops to 0 HP
const conditionUnconscious = "unconscious"

// Config holds the dependencies for the encounter orchestrator
type Config struct {
	Repository     encounterrepo.Repository
	ExternalClient external.Client

	// EventBus receives combat lifecycle events. Optional; nil disables
	// publication.
	EventBus events.EventBus

	// DiceRoller defaults to the toolkit's crypto roller
	DiceRoller dice.Roller

	IDGenerator            idgen.Generator // encounter IDs
	ParticipantIDGenerator idgen.Generator

	// Clock defaults to the real clock
	Clock clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Repository == nil {
		vb.RequiredField("Repository")
	}
	if c.ExternalClient == nil {
		vb.RequiredField("ExternalClient")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.ParticipantIDGenerator == nil {
		vb.RequiredField("ParticipantIDGenerator")
	}

	return vb.Build()
}

// Orchestrator implements the Service interface
type Orchestrator struct {
	repo           encounterrepo.Repository
	externalClient external.Client
	eventBus       events.EventBus
	diceRoller     dice.Roller
	idGen          idgen.Generator
	participantGen idgen.Generator
	clock          clock.Clock

	// Mutations are load-modify-store against the repository; the lock keeps
	// the orchestrator a single writer.
	mu sync.Mutex
}

// New creates a new encounter orchestrator
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	roller := cfg.DiceRoller
	if roller == nil {
		roller = dice.DefaultRoller
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Orchestrator{
		repo:           cfg.Repository,
		externalClient: cfg.ExternalClient,
		eventBus:       cfg.EventBus,
		diceRoller:     roller,
		idGen:          cfg.IDGenerator,
		participantGen: cfg.ParticipantIDGenerator,
		clock:          clk,
	}, nil
}

// Ensure Orchestrator implements the Service interface
var _ Service = (*Orchestrator)(nil)

// CreateEncounter creates a new encounter in setup state
func (o *Orchestrator) CreateEncounter(ctx context.Context, input *CreateEncounterInput) (*CreateEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("sessionID", input.SessionID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		name = "Encounter"
	}

	enc := &combat.CombatEncounter{
		ID:        o.idGen.Generate(),
		SessionID: input.SessionID,
		Name:      name,
		Status:    combat.EncounterStatusSetup,
		CreatedAt: o.clock.Now(),
	}

	createOutput, err := o.repo.Create(ctx, encounterrepo.CreateInput{Encounter: enc})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create encounter")
	}

	slog.InfoContext(ctx, "encounter created",
		"encounter_id", enc.ID,
		"session_id", enc.SessionID)

	o.publishEncounterEvent(ctx, eventEncounterCreated, enc, nil)

	return &CreateEncounterOutput{Encounter: createOutput.Encounter}, nil
}

// GetEncounter retrieves an encounter by ID
func (o *Orchestrator) GetEncounter(ctx context.Context, input *GetEncounterInput) (*GetEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	return &GetEncounterOutput{Encounter: enc}, nil
}

// ListEncounters returns all encounters belonging to a session
func (o *Orchestrator) ListEncounters(ctx context.Context, input *ListEncountersInput) (*ListEncountersOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("sessionID", input.SessionID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	listOutput, err := o.repo.ListBySessionID(ctx, encounterrepo.ListBySessionIDInput{
		SessionID: input.SessionID,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list encounters")
	}

	return &ListEncountersOutput{Encounters: listOutput.Encounters}, nil
}

// GetActiveEncounter finds the session's encounter that is still being set
// up, rolled, or fought
func (o *Orchestrator) GetActiveEncounter(ctx context.Context, input *GetActiveEncounterInput) (*GetActiveEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("sessionID", input.SessionID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	getOutput, err := o.repo.GetActiveBySessionID(ctx, encounterrepo.GetActiveBySessionIDInput{
		SessionID: input.SessionID,
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "failed to get active encounter for session %s", input.SessionID)
	}

	return &GetActiveEncounterOutput{Encounter: getOutput.Encounter}, nil
}

// RollInitiative rolls initiative for every participant and reorders the
// roster by the results
func (o *Orchestrator) RollInitiative(ctx context.Context, input *RollInitiativeInput) (*RollInitiativeOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	if enc.Status != combat.EncounterStatusSetup && enc.Status != combat.EncounterStatusRolling {
		return nil, errors.FailedPreconditionf("cannot roll initiative while encounter is %s", enc.Status)
	}
	if len(enc.Participants) == 0 {
		return nil, errors.FailedPrecondition("encounter has no participants")
	}

	results, err := initiative.RollForAll(o.diceRoller, enc.Participants)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to roll initiative")
	}

	// Write every total before the single sort; ties keep roster order
	for i := range enc.Participants {
		if result, ok := results[enc.Participants[i].ID]; ok {
			enc.Participants[i].Initiative = result.Initiative
		}
	}
	enc.Participants = initiative.SortByInitiative(enc.Participants)
	enc.Status = combat.EncounterStatusRolling

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "initiative rolled",
		"encounter_id", enc.ID,
		"participant_count", len(results))

	return &RollInitiativeOutput{Encounter: enc, Rolls: results}, nil
}

// StartEncounter begins combat: round 1, first participant's turn
func (o *Orchestrator) StartEncounter(ctx context.Context, input *StartEncounterInput) (*StartEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	if enc.Status != combat.EncounterStatusRolling {
		return nil, errors.FailedPreconditionf("cannot start encounter while it is %s; roll initiative first", enc.Status)
	}

	firstIndex, _ := turns.FindNextValidParticipant(enc.Participants, -1)
	if firstIndex < 0 {
		return nil, errors.FailedPrecondition("no participant is able to act")
	}

	first := enc.Participants[firstIndex]
	enc.Participants = roster.Update(enc.Participants, turns.ResetTurnState(first))
	enc.CurrentTurnParticipantID = first.ID
	enc.Round = 1
	enc.Status = combat.EncounterStatusActive
	now := o.clock.Now()
	enc.StartedAt = &now
	enc.AddLogEntry("combat started, " + first.Name + " acts first")

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "encounter started",
		"encounter_id", enc.ID,
		"first_participant", first.ID)

	o.publishEncounterEvent(ctx, eventEncounterStarted, enc, map[string]any{
		"first_participant_id": first.ID,
	})

	return &StartEncounterOutput{Encounter: enc, FirstParticipantID: first.ID}, nil
}

// NextTurn ends the current participant's turn and advances to the next one
// able to act. Condition durations tick down for the participant whose turn
// ended; the round increments when the order wraps.
func (o *Orchestrator) NextTurn(ctx context.Context, input *NextTurnInput) (*NextTurnOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	if !enc.IsActive() {
		return nil, errors.FailedPreconditionf("cannot advance turn while encounter is %s", enc.Status)
	}

	conditionUpdates := turns.ProcessEndOfTurnEffects(enc.Participants, enc.CurrentTurnParticipantID)
	for id, updatedConditions := range conditionUpdates {
		if p := enc.FindParticipant(id); p != nil {
			p.Conditions = updatedConditions
		}
	}

	advance := turns.AdvanceTurn(enc.Participants, enc.CurrentTurnParticipantID, enc.Round)
	if advance.NextIndex < 0 {
		end := roster.ShouldCombatEnd(enc.Participants)
		o.completeEncounter(ctx, enc, string(end.Reason))
		if err := o.saveEncounter(ctx, enc); err != nil {
			return nil, err
		}
		return &NextTurnOutput{
			Encounter:   enc,
			Round:       enc.Round,
			CombatEnded: true,
			EndReason:   end.Reason,
		}, nil
	}

	for id := range advance.ParticipantsToUpdate {
		if p := enc.FindParticipant(id); p != nil {
			enc.Participants = roster.Update(enc.Participants, turns.ResetTurnState(*p))
		}
	}

	enc.CurrentTurnParticipantID = advance.NextParticipantID
	enc.Round = advance.Round

	next := enc.FindParticipant(advance.NextParticipantID)
	enc.AddLogEntry(next.Name + " begins their turn")

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "turn advanced",
		"encounter_id", enc.ID,
		"next_participant", advance.NextParticipantID,
		"round", advance.Round,
		"round_advanced", advance.RoundAdvanced)

	o.publishParticipantEvent(ctx, eventTurnAdvanced, enc, next, map[string]any{
		"round":          advance.Round,
		"round_advanced": advance.RoundAdvanced,
	})

	return &NextTurnOutput{
		Encounter:         enc,
		NextParticipantID: advance.NextParticipantID,
		Round:             advance.Round,
		RoundAdvanced:     advance.RoundAdvanced,
	}, nil
}

// EndEncounter completes an encounter regardless of combat state
func (o *Orchestrator) EndEncounter(ctx context.Context, input *EndEncounterInput) (*EndEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	if enc.Status == combat.EncounterStatusCompleted {
		return nil, errors.FailedPrecondition("encounter is already completed")
	}

	o.completeEncounter(ctx, enc, "ended by caller")

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	return &EndEncounterOutput{Encounter: enc}, nil
}

// AddPlayer adds a player character to the roster
func (o *Orchestrator) AddPlayer(ctx context.Context, input *AddPlayerInput) (*AddPlayerOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("name", input.Name, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	return addParticipant(ctx, o, input.EncounterID, &roster.NewParticipantInput{
		ID:          o.participantGen.Generate(),
		Name:        input.Name,
		Type:        combat.ParticipantTypePlayer,
		CharacterID: input.CharacterID,
		Class:       input.Class,
		Level:       input.Level,

		MaxHitPoints:     input.MaxHitPoints,
		CurrentHitPoints: input.CurrentHitPoints,
		ArmorClass:       input.ArmorClass,
		Speed:            input.Speed,
		Initiative:       input.InitiativeModifier,

		DamageResistances:     input.DamageResistances,
		DamageImmunities:      input.DamageImmunities,
		DamageVulnerabilities: input.DamageVulnerabilities,
	}, func(enc *combat.CombatEncounter, p *combat.CombatParticipant) *AddPlayerOutput {
		return &AddPlayerOutput{Encounter: enc, Participant: p}
	})
}

// AddMonster verifies the SRD monster reference and adds a monster to the
// roster with the supplied stat block
func (o *Orchestrator) AddMonster(ctx context.Context, input *AddMonsterInput) (*AddMonsterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("monsterRef", input.MonsterRef, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	if err := o.externalClient.VerifyMonster(ctx, input.MonsterRef); err != nil {
		return nil, errors.Wrapf(err, "unknown monster %q", input.MonsterRef)
	}

	name := input.Name
	if name == "" {
		name = input.MonsterRef
	}

	return addParticipant(ctx, o, input.EncounterID, &roster.NewParticipantInput{
		ID:              o.participantGen.Generate(),
		Name:            name,
		Type:            combat.ParticipantTypeMonster,
		MonsterRef:      input.MonsterRef,
		ChallengeRating: input.ChallengeRating,
		XP:              input.XP,

		MaxHitPoints: input.MaxHitPoints,
		ArmorClass:   input.ArmorClass,
		Speed:        input.Speed,
		Initiative:   input.InitiativeModifier,

		DamageResistances:     input.DamageResistances,
		DamageImmunities:      input.DamageImmunities,
		DamageVulnerabilities: input.DamageVulnerabilities,
	}, func(enc *combat.CombatEncounter, p *combat.CombatParticipant) *AddMonsterOutput {
		return &AddMonsterOutput{Encounter: enc, Participant: p}
	})
}

// addParticipant is the shared add path: build the participant with stat
// defaults, roll initiative for late arrivals to an active encounter, append
// and re-sort. The makeOutput closure keeps the two public entry points'
// output types distinct.
func addParticipant[T any](
	ctx context.Context,
	o *Orchestrator,
	encounterID string,
	participantInput *roster.NewParticipantInput,
	makeOutput func(*combat.CombatEncounter, *combat.CombatParticipant) T,
) (T, error) {
	var zero T

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, encounterID)
	if err != nil {
		return zero, err
	}

	if enc.Status == combat.EncounterStatusCompleted {
		return zero, errors.FailedPrecondition("cannot add participants to a completed encounter")
	}

	// A participant joining mid-combat rolls initiative on the spot
	opts := &roster.CreateOptions{RollInitiative: enc.IsActive()}

	result, err := roster.NewParticipant(o.diceRoller, participantInput, opts)
	if err != nil {
		return zero, errors.Wrapf(err, "failed to create participant")
	}

	enc.Participants = roster.Add(enc.Participants, result.Participant)

	if err := o.saveEncounter(ctx, enc); err != nil {
		return zero, err
	}

	added := enc.FindParticipant(result.Participant.ID)

	slog.InfoContext(ctx, "participant added",
		"encounter_id", enc.ID,
		"participant_id", added.ID,
		"participant_type", added.Type)

	o.publishParticipantEvent(ctx, eventParticipantAdded, enc, added, nil)

	return makeOutput(enc, added), nil
}

// RemoveParticipant drops a participant from the roster
func (o *Orchestrator) RemoveParticipant(ctx context.Context, input *RemoveParticipantInput) (*RemoveParticipantOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	if enc.FindParticipant(input.ParticipantID) == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.ParticipantID, enc.ID)
	}
	if enc.IsActive() && enc.CurrentTurnParticipantID == input.ParticipantID {
		return nil, errors.FailedPrecondition("cannot remove the participant whose turn it is; advance the turn first")
	}

	enc.Participants = roster.Remove(enc.Participants, input.ParticipantID)

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	return &RemoveParticipantOutput{Encounter: enc}, nil
}

// UpdateParticipant replaces a participant's record
func (o *Orchestrator) UpdateParticipant(ctx context.Context, input *UpdateParticipantInput) (*UpdateParticipantOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.Participant == nil {
		return nil, errors.InvalidArgument("participant is required")
	}
	if input.Participant.ID == "" {
		return nil, errors.InvalidArgument("participant ID is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	existing := enc.FindParticipant(input.Participant.ID)
	if existing == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.Participant.ID, enc.ID)
	}

	initiativeChanged := existing.Initiative != input.Participant.Initiative

	enc.Participants = roster.Update(enc.Participants, *input.Participant)
	if initiativeChanged {
		enc.Participants = initiative.SortByInitiative(enc.Participants)
	}

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	return &UpdateParticipantOutput{
		Encounter:   enc,
		Participant: enc.FindParticipant(input.Participant.ID),
	}, nil
}

// ListMonsters returns the SRD monster references
func (o *Orchestrator) ListMonsters(ctx context.Context, _ *ListMonstersInput) (*ListMonstersOutput, error) {
	monsters, err := o.externalClient.ListAvailableMonsters(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list monsters")
	}

	return &ListMonstersOutput{Monsters: monsters}, nil
}

// ListDamageTypes returns the SRD damage type references
func (o *Orchestrator) ListDamageTypes(ctx context.Context, _ *ListDamageTypesInput) (*ListDamageTypesOutput, error) {
	damageTypes, err := o.externalClient.ListDamageTypes(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list damage types")
	}

	return &ListDamageTypesOutput{DamageTypes: damageTypes}, nil
}

// getEncounter loads an encounter, requiring a non-empty ID
func (o *Orchestrator) getEncounter(ctx context.Context, encounterID string) (*combat.CombatEncounter, error) {
	if encounterID == "" {
		return nil, errors.InvalidArgument("encounterID is required")
	}

	getOutput, err := o.repo.Get(ctx, encounterrepo.GetInput{ID: encounterID})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "failed to get encounter %s", encounterID)
	}

	return getOutput.Encounter, nil
}

// saveEncounter persists a modified encounter
func (o *Orchestrator) saveEncounter(ctx context.Context, enc *combat.CombatEncounter) error {
	if _, err := o.repo.Update(ctx, encounterrepo.UpdateInput{Encounter: enc}); err != nil {
		return errors.Wrapf(err, "failed to save encounter %s", enc.ID)
	}
	return nil
}

// completeEncounter marks the encounter finished and records why
func (o *Orchestrator) completeEncounter(ctx context.Context, enc *combat.CombatEncounter, reason string) {
	enc.Status = combat.EncounterStatusCompleted
	now := o.clock.Now()
	enc.EndedAt = &now
	enc.AddLogEntry(fmt.Sprintf("combat ended: %s", reason))

	slog.InfoContext(ctx, "encounter completed",
		"encounter_id", enc.ID,
		"reason", reason,
		"rounds", enc.Round)

	o.publishEncounterEvent(ctx, eventEncounterEnded, enc, map[string]any{
		"reason": reason,
		"rounds": enc.Round,
	})
}
