// Package roll provides the low-level die rolling primitive shared by the
// combat rules packages. Randomness is injected through the rpg-toolkit
// dice.Roller interface so tests can supply fixed sequences.
package roll

import (
	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
)

// Options controls advantage and disadvantage on a d20 roll. Setting both
// cancels them out and a single die is rolled, per the 5e rule.
type Options struct {
	Advantage    bool
	Disadvantage bool
}

// orDefault falls back to the toolkit's default roller when none is provided
func orDefault(roller dice.Roller) dice.Roller {
	if roller == nil {
		return dice.DefaultRoller
	}
	return roller
}

// Die rolls a single die with the given number of faces.
func Die(roller dice.Roller, faces int) (int, error) {
	if faces < 1 {
		return 0, errors.InvalidArgumentf("die must have at least one face, got %d", faces)
	}

	n, err := orDefault(roller).Roll(faces)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to roll d%d", faces)
	}

	return n, nil
}

// Dice rolls count dice with the given number of faces and returns the
// individual results.
func Dice(roller dice.Roller, count, faces int) ([]int, error) {
	if count < 1 {
		return nil, errors.InvalidArgumentf("dice count must be positive, got %d", count)
	}
	if faces < 1 {
		return nil, errors.InvalidArgumentf("die must have at least one face, got %d", faces)
	}

	results, err := orDefault(roller).RollN(count, faces)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to roll %dd%d", count, faces)
	}

	return results, nil
}

// D20 rolls a d20 with the given modifier, resolving advantage and
// disadvantage. With either flag active two dice are rolled and the higher
// (advantage) or lower (disadvantage) is kept; NaturalRoll is always the kept
// die before modifiers.
func D20(roller dice.Roller, modifier int, opts Options) (*combat.DiceRoll, error) {
	advantage := opts.Advantage && !opts.Disadvantage
	disadvantage := opts.Disadvantage && !opts.Advantage

	if !advantage && !disadvantage {
		n, err := Die(roller, 20)
		if err != nil {
			return nil, err
		}

		return &combat.DiceRoll{
			DieType:     20,
			Count:       1,
			Modifier:    modifier,
			Results:     []int{n},
			KeptResults: []int{n},
			NaturalRoll: n,
			Total:       n + modifier,
			Critical:    n == 20,
		}, nil
	}

	results, err := Dice(roller, 2, 20)
	if err != nil {
		return nil, err
	}

	kept := results[0]
	if advantage && results[1] > kept {
		kept = results[1]
	}
	if disadvantage && results[1] < kept {
		kept = results[1]
	}

	return &combat.DiceRoll{
		DieType:      20,
		Count:        1,
		Modifier:     modifier,
		Results:      results,
		KeptResults:  []int{kept},
		NaturalRoll:  kept,
		Total:        kept + modifier,
		Advantage:    advantage,
		Disadvantage: disadvantage,
		Critical:     kept == 20,
	}, nil
}
