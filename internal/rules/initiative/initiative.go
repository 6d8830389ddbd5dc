// Package initiative implements initiative rolling and turn-order sorting for
// combat encounters.
package initiative

import (
	"sort"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/rules/roll"
)

// Result holds one participant's initiative roll. The participant itself is
// not mutated; the caller decides whether to write the total back.
type Result struct {
	ParticipantID string
	Initiative    int
	Roll          *combat.DiceRoll
}

// RollForParticipant rolls 1d20 + modifier for a single participant. Pass the
// participant's stored Initiative field as the modifier for the standard flow.
func RollForParticipant(roller dice.Roller, p combat.CombatParticipant, modifier int) (*Result, error) {
	r, err := roll.D20(roller, modifier, roll.Options{})
	if err != nil {
		return nil, err
	}

	return &Result{
		ParticipantID: p.ID,
		Initiative:    r.Total,
		Roll:          r,
	}, nil
}

// RollForAll rolls initiative for every participant using each one's stored
// Initiative field as the modifier. Returns a map keyed by participant ID.
func RollForAll(roller dice.Roller, participants []combat.CombatParticipant) (map[string]*Result, error) {
	results := make(map[string]*Result, len(participants))

	for _, p := range participants {
		r, err := RollForParticipant(roller, p, p.Initiative)
		if err != nil {
			return nil, err
		}
		results[p.ID] = r
	}

	return results, nil
}

// SortByInitiative returns a new slice sorted descending by initiative. The
// sort is stable: participants tied on initiative keep their current relative
// order. No Dexterity tie-break is applied.
func SortByInitiative(participants []combat.CombatParticipant) []combat.CombatParticipant {
	sorted := append([]combat.CombatParticipant(nil), participants...)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Initiative > sorted[j].Initiative
	})

	return sorted
}

// UpdateInitiative sets one participant's initiative value and re-sorts the
// roster. Unknown IDs leave the values untouched but still return a sorted
// copy.
func UpdateInitiative(participants []combat.CombatParticipant, id string, newInitiative int) []combat.CombatParticipant {
	updated := append([]combat.CombatParticipant(nil), participants...)

	for i := range updated {
		if updated[i].ID == id {
			updated[i].Initiative = newInitiative
			break
		}
	}

	return SortByInitiative(updated)
}

// Reorder applies a manual ordering, e.g. from a drag-and-drop tracker. Any
// roster participant omitted from orderIDs is appended at the end in its
// original relative order; IDs that match no participant are ignored.
func Reorder(participants []combat.CombatParticipant, orderIDs []string) []combat.CombatParticipant {
	byID := make(map[string]combat.CombatParticipant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	placed := make(map[string]bool, len(orderIDs))
	reordered := make([]combat.CombatParticipant, 0, len(participants))

	for _, id := range orderIDs {
		p, ok := byID[id]
		if !ok || placed[id] {
			continue
		}
		reordered = append(reordered, p)
		placed[id] = true
	}

	for _, p := range participants {
		if !placed[p.ID] {
			reordered = append(reordered, p)
		}
	}

	return reordered
}

// GroupByInitiative returns participants keyed by their initiative value, for
// displaying ties.
func GroupByInitiative(participants []combat.CombatParticipant) map[int][]combat.CombatParticipant {
	groups := make(map[int][]combat.CombatParticipant)

	for _, p := range participants {
		groups[p.Initiative] = append(groups[p.Initiative], p)
	}

	return groups
}
