// Package turns implements turn progression for an initiative-ordered roster:
// advancing the active participant, skipping those who cannot act, detecting
// round rollover, and ticking condition durations.
package turns

import (
	"github.com/forgekeep/encounter-api/internal/entities/combat"
)

// TurnState is the per-turn action economy reset applied to a participant
// when their turn begins.
type TurnState struct {
	ActionTaken           bool
	BonusActionTaken      bool
	ReactionTaken         bool
	MovementUsed          int
	ReactionOpportunities []string
}

// AdvanceResult describes a turn advance. ParticipantsToUpdate carries the
// action economy resets keyed by participant ID so the caller can apply the
// diff however its state management works.
type AdvanceResult struct {
	NextParticipantID string
	NextIndex         int
	Round             int
	RoundAdvanced     bool

	ParticipantsToUpdate map[string]TurnState
}

// CanTakeTurn reports whether a participant can take a normal turn. Dead and
// unconscious participants cannot; the unconscious still roll death saves,
// but that is not a turn.
func CanTakeTurn(p combat.CombatParticipant) bool {
	if p.IsDead() {
		return false
	}
	return p.CurrentHitPoints > 0
}

// FindNextValidParticipant scans forward circularly from currentIndex+1 for
// the next participant able to act. wrappedAround is true when the scan
// passed the end of the roster; if nobody qualifies the index is -1 and
// wrappedAround is true. A currentIndex of -1 starts the scan at the top
// without counting as a wrap.
func FindNextValidParticipant(participants []combat.CombatParticipant, currentIndex int) (index int, wrappedAround bool) {
	n := len(participants)
	if n == 0 {
		return -1, true
	}

	for offset := 1; offset <= n; offset++ {
		idx := (currentIndex + offset) % n
		if idx < 0 {
			idx += n
		}

		if CanTakeTurn(participants[idx]) {
			return idx, currentIndex+offset >= n
		}
	}

	return -1, true
}

// AdvanceTurn moves to the next participant able to act. The round increments
// by one exactly when the scan wrapped past the end of the roster. Only the
// new current participant receives a turn-state reset.
func AdvanceTurn(participants []combat.CombatParticipant, currentParticipantID string, currentRound int) *AdvanceResult {
	currentIndex := -1
	if currentParticipantID != "" {
		for i := range participants {
			if participants[i].ID == currentParticipantID {
				currentIndex = i
				break
			}
		}
	}

	nextIndex, wrapped := FindNextValidParticipant(participants, currentIndex)

	round := currentRound
	if wrapped {
		round++
	}

	result := &AdvanceResult{
		NextIndex:            nextIndex,
		Round:                round,
		RoundAdvanced:        wrapped,
		ParticipantsToUpdate: make(map[string]TurnState),
	}

	if nextIndex >= 0 {
		next := participants[nextIndex]
		result.NextParticipantID = next.ID
		result.ParticipantsToUpdate[next.ID] = TurnState{}
	}

	return result
}

// ResetTurnState returns a copy of the participant with action economy
// cleared for a fresh turn.
func ResetTurnState(p combat.CombatParticipant) combat.CombatParticipant {
	reset := p.Clone()
	reset.ActionTaken = false
	reset.BonusActionTaken = false
	reset.ReactionTaken = false
	reset.MovementUsed = 0
	reset.ReactionOpportunities = nil
	return reset
}

// ResetAllTurnStates clears action economy for every participant, e.g. at a
// round boundary.
func ResetAllTurnStates(participants []combat.CombatParticipant) []combat.CombatParticipant {
	reset := make([]combat.CombatParticipant, len(participants))
	for i, p := range participants {
		reset[i] = ResetTurnState(p)
	}
	return reset
}

// ProcessEndOfTurnEffects ticks down condition durations on the participant
// whose turn is ending. Positive durations decrement by one and conditions
// reaching exactly zero are dropped. Durations already at or below zero are
// indefinite sentinels and are never touched. The returned map holds the new
// condition list for each participant whose conditions actually changed.
func ProcessEndOfTurnEffects(participants []combat.CombatParticipant, currentParticipantID string) map[string][]combat.Condition {
	updates := make(map[string][]combat.Condition)

	for i := range participants {
		if participants[i].ID != currentParticipantID {
			continue
		}

		changed := false
		remaining := make([]combat.Condition, 0, len(participants[i].Conditions))

		for _, c := range participants[i].Conditions {
			if c.Duration > 0 {
				c.Duration--
				changed = true
				if c.Duration == 0 {
					continue
				}
			}
			remaining = append(remaining, c)
		}

		if changed {
			updates[participants[i].ID] = remaining
		}
		break
	}

	return updates
}

// ProcessStartOfTurnEffects is a reserved extension point for start-of-turn
// condition handling such as ongoing damage or forced saves. It currently
// reports no changes; callers rely on the signature staying stable.
func ProcessStartOfTurnEffects(participants []combat.CombatParticipant, currentParticipantID string) map[string][]combat.Condition {
	_ = participants
	_ = currentParticipantID
	return map[string][]combat.Condition{}
}
