// Package deathsaves implements the 5e death saving throw state machine:
// unconscious participants roll until they accumulate three successes
// (stable) or three failures (dead), with natural 20 and natural 1 specials.
package deathsaves

import (
	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
	"github.com/forgekeep/encounter-api/internal/rules/roll"
)

// RollResult is the outcome of a single death saving throw.
type RollResult struct {
	Roll        *combat.DiceRoll
	Participant combat.CombatParticipant

	// Success is true when this roll counted as a death save success
	Success bool

	// Revived is the natural 20 special: back to 1 HP, counters cleared
	Revived    bool
	Stabilized bool
	Died       bool
}

// Roll resolves one death saving throw. Calling it for a conscious or
// already-dead participant is caller misuse and returns an error rather than
// a game outcome.
//
//	natural 20  revive at 1 HP, counters reset
//	natural 1   two failures
//	10 or more  one success, the third stabilizes
//	below 10    one failure, the third kills
func Roll(roller dice.Roller, p combat.CombatParticipant) (*RollResult, error) {
	if p.CurrentHitPoints > 0 {
		return nil, errors.FailedPreconditionf(
			"participant %s is conscious (%d HP) and cannot roll death saves", p.ID, p.CurrentHitPoints)
	}
	if p.IsDead() {
		return nil, errors.FailedPreconditionf("participant %s is dead", p.ID)
	}

	r, err := roll.D20(roller, 0, roll.Options{})
	if err != nil {
		return nil, err
	}

	updated := p.Clone()
	result := &RollResult{Roll: r}

	switch {
	case r.IsNatural20():
		updated.CurrentHitPoints = 1
		updated.DeathSaves = combat.DeathSaveState{}
		result.Success = true
		result.Revived = true

	case r.IsNatural1():
		updated.DeathSaves.Failures += 2
		if updated.DeathSaves.Failures > 3 {
			updated.DeathSaves.Failures = 3
		}
		result.Died = updated.DeathSaves.Failures >= 3

	case r.Total >= 10:
		updated.DeathSaves.Successes++
		result.Success = true
		if updated.DeathSaves.Successes >= 3 {
			updated.DeathSaves.Successes = 3
			updated.DeathSaves.IsStable = true
			result.Stabilized = true
		}

	default:
		updated.DeathSaves.Failures++
		result.Died = updated.DeathSaves.Failures >= 3
	}

	result.Participant = updated
	return result, nil
}

// IsDead reports three accumulated failures.
func IsDead(p combat.CombatParticipant) bool {
	return p.IsDead()
}

// IsUnconscious reports a participant at or below 0 HP who is not yet dead.
func IsUnconscious(p combat.CombatParticipant) bool {
	return p.IsUnconscious()
}

// IsStable reports a stabilized participant.
func IsStable(p combat.CombatParticipant) bool {
	return p.DeathSaves.IsStable
}

// Stabilize marks a dying participant stable without a roll, e.g. after a
// successful Medicine check. Counters clear, matching a natural recovery.
// Participants above 0 HP are returned unchanged.
func Stabilize(p combat.CombatParticipant) (combat.CombatParticipant, bool) {
	if p.CurrentHitPoints > 0 {
		return p, false
	}
	if p.IsDead() {
		return p, false
	}

	updated := p.Clone()
	updated.DeathSaves = combat.DeathSaveState{IsStable: true}
	return updated, true
}

// MassiveDamageResult signals whether further damage to a downed participant
// kills outright.
type MassiveDamageResult struct {
	ExcessDamage int
	InstantDeath bool
}

// CheckMassiveDamage evaluates the massive damage rule for a participant
// already at or below 0 HP: the excess is the damage amount minus current HP,
// and instant death triggers when it reaches max HP. This only signals; the
// caller applies the death.
func CheckMassiveDamage(p combat.CombatParticipant, damageAmount int) MassiveDamageResult {
	excess := damageAmount - p.CurrentHitPoints

	return MassiveDamageResult{
		ExcessDamage: excess,
		InstantDeath: excess >= p.MaxHitPoints,
	}
}
