package encounter

import (
	"context"

	"log/slog"

	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
)

// Combat lifecycle event types published on the event bus. Downstream
// consumers (broadcast layers, combat loggers) subscribe by type.
const (
	eventEncounterCreated    = "encounter.created"
	eventEncounterStarted    = "encounter.started"
	eventEncounterEnded      = "encounter.ended"
	eventTurnAdvanced        = "encounter.turn_advanced"
	eventParticipantAdded    = "encounter.participant_added"
	eventDamageApplied       = "encounter.damage_applied"
	eventHealingApplied      = "encounter.healing_applied"
	eventParticipantDowned   = "encounter.participant_downed"
	eventParticipantDied     = "encounter.participant_died"
	eventParticipantRevived  = "encounter.participant_revived"
	eventConcentrationBroken = "encounter.concentration_broken"
)

// encounterEntity adapts an encounter to core.Entity so it can be an event
// source.
type encounterEntity struct {
	id string
}

func (e *encounterEntity) GetID() string   { return e.id }
func (e *encounterEntity) GetType() string { return "encounter" }

// publishEncounterEvent publishes an event sourced from the encounter
// itself. Publication is best-effort: a bus failure is logged, never
// propagated into the combat outcome.
func (o *Orchestrator) publishEncounterEvent(
	ctx context.Context,
	eventType string,
	enc *combat.CombatEncounter,
	fields map[string]any,
) {
	o.publish(ctx, eventType, &encounterEntity{id: enc.ID}, nil, fields)
}

// publishParticipantEvent publishes an event about a single participant
func (o *Orchestrator) publishParticipantEvent(
	ctx context.Context,
	eventType string,
	enc *combat.CombatEncounter,
	target *combat.CombatParticipant,
	fields map[string]any,
) {
	o.publish(ctx, eventType, &encounterEntity{id: enc.ID}, target, fields)
}

func (o *Orchestrator) publish(
	ctx context.Context,
	eventType string,
	source, target core.Entity,
	fields map[string]any,
) {
	if o.eventBus == nil {
		return
	}

	event := events.NewGameEvent(eventType, source, target)
	for key, value := range fields {
		event.Context().Set(key, value)
	}

	if err := o.eventBus.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish combat event",
			"event_type", eventType,
			"error", err)
	}
}
