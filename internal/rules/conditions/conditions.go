// Package conditions manages named status conditions on a participant.
// Duration bookkeeping lives in the turns package; this is pure list
// maintenance.
package conditions

import (
	"github.com/forgekeep/encounter-api/internal/entities/combat"
)

// Add attaches a condition to the participant. A condition with the same
// name replaces the existing entry in place rather than stacking.
func Add(p combat.CombatParticipant, c combat.Condition) combat.CombatParticipant {
	updated := p.Clone()

	for i := range updated.Conditions {
		if updated.Conditions[i].Name == c.Name {
			updated.Conditions[i] = c
			return updated
		}
	}

	updated.Conditions = append(updated.Conditions, c)
	return updated
}

// Remove drops the condition with the given name, if present.
func Remove(p combat.CombatParticipant, name string) combat.CombatParticipant {
	updated := p.Clone()

	remaining := make([]combat.Condition, 0, len(updated.Conditions))
	for _, c := range updated.Conditions {
		if c.Name != name {
			remaining = append(remaining, c)
		}
	}
	updated.Conditions = remaining

	return updated
}

// Has reports whether the participant has a condition with the given name.
func Has(p combat.CombatParticipant, name string) bool {
	return p.HasCondition(name)
}
