// Package saves implements saving throws and concentration checks. Unlike
// attack rolls, saving throws have no natural 20 or natural 1 special case;
// only the total against the DC matters.
package saves

import (
	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/rules/roll"
)

// Concentration DC is damage/2, but never below 10
const minConcentrationDC = 10

// Options controls advantage and disadvantage on the save. Both flags
// together cancel and a single die is rolled.
type Options struct {
	Advantage    bool
	Disadvantage bool
}

// Result is a resolved saving throw.
type Result struct {
	Roll    *combat.DiceRoll
	DC      int
	Success bool
}

// Roll makes a d20 saving throw with the given bonus against a DC. Success
// is total >= DC.
func Roll(roller dice.Roller, bonus, dc int, opts Options) (*Result, error) {
	r, err := roll.D20(roller, bonus, roll.Options{
		Advantage:    opts.Advantage,
		Disadvantage: opts.Disadvantage,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Roll:    r,
		DC:      dc,
		Success: r.Total >= dc,
	}, nil
}

// ConcentrationDC computes the save DC for concentration after taking
// damage: half the damage, minimum 10.
func ConcentrationDC(damage int) int {
	dc := damage / 2
	if dc < minConcentrationDC {
		dc = minConcentrationDC
	}
	return dc
}

// CheckConcentration resolves the Constitution save a concentrating caster
// makes after taking damage. A participant who is not concentrating passes
// trivially with a zero-valued placeholder roll; no die is rolled.
func CheckConcentration(
	roller dice.Roller,
	p combat.CombatParticipant,
	damage int,
	constitutionSaveBonus int,
) (*Result, error) {
	if p.ActiveConcentration == nil {
		return &Result{
			Roll:    &combat.DiceRoll{DieType: 20, Count: 0},
			Success: true,
		}, nil
	}

	return Roll(roller, constitutionSaveBonus, ConcentrationDC(damage), Options{})
}

// BreakConcentration clears the participant's active concentration.
func BreakConcentration(p combat.CombatParticipant) combat.CombatParticipant {
	updated := p.Clone()
	updated.ActiveConcentration = nil
	return updated
}
