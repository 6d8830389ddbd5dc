// Package attacks implements d20 attack resolution: the roll itself,
// hit/miss against armor class, and weapon damage dice with critical
// doubling.
package attacks

import (
	"regexp"
	"strconv"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
	"github.com/forgekeep/encounter-api/internal/rules/roll"
)

// damageExpressionRegex parses "NdM" with an optional "+K" modifier.
// Multi-term expressions and subtraction are not supported.
var damageExpressionRegex = regexp.MustCompile(`^(\d+)d(\d+)(?:\+(\d+))?$`)

// Options controls advantage and disadvantage on the attack roll. Both flags
// together cancel and a single die is rolled.
type Options struct {
	Advantage    bool
	Disadvantage bool
}

// Result is an attack roll before hit resolution. Hit stays false until the
// roll is compared against a target's AC with DoesHit.
type Result struct {
	Roll *combat.DiceRoll
	Hit  bool
}

// Roll makes a d20 attack roll with the given bonus. The roll's NaturalRoll
// carries the kept d20, and Critical is set on a natural 20.
func Roll(roller dice.Roller, attackBonus int, opts Options) (*Result, error) {
	r, err := roll.D20(roller, attackBonus, roll.Options{
		Advantage:    opts.Advantage,
		Disadvantage: opts.Disadvantage,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Roll: r}, nil
}

// DoesHit resolves an attack roll against a target AC. A natural 20 always
// hits and a natural 1 always misses, regardless of the total.
func DoesHit(attackRoll *combat.DiceRoll, targetAC int) bool {
	if attackRoll.IsNatural20() {
		return true
	}
	if attackRoll.IsNatural1() {
		return false
	}
	return attackRoll.Total >= targetAC
}

// RollDamage parses a damage expression like "2d6+3" and rolls it. On a
// critical hit the die count is doubled before rolling, per the "roll extra
// dice" rule; the flat modifier applies once either way.
func RollDamage(roller dice.Roller, diceExpression string, isCritical bool) (*combat.DiceRoll, error) {
	matches := damageExpressionRegex.FindStringSubmatch(diceExpression)
	if matches == nil {
		return nil, errors.InvalidArgumentf(
			"invalid damage expression: %q (expected format: NdM or NdM+K)", diceExpression)
	}

	count, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, errors.InvalidArgumentf("invalid dice count in expression: %q", diceExpression)
	}

	faces, err := strconv.Atoi(matches[2])
	if err != nil {
		return nil, errors.InvalidArgumentf("invalid die size in expression: %q", diceExpression)
	}

	modifier := 0
	if matches[3] != "" {
		modifier, err = strconv.Atoi(matches[3])
		if err != nil {
			return nil, errors.InvalidArgumentf("invalid modifier in expression: %q", diceExpression)
		}
	}

	if count < 1 || faces < 1 {
		return nil, errors.InvalidArgumentf(
			"dice count and size must be positive in expression: %q", diceExpression)
	}

	if isCritical {
		count *= CriticalMultiplier()
	}

	results, err := roll.Dice(roller, count, faces)
	if err != nil {
		return nil, err
	}

	total := modifier
	for _, r := range results {
		total += r
	}

	return &combat.DiceRoll{
		DieType:     faces,
		Count:       count,
		Modifier:    modifier,
		Results:     results,
		KeptResults: results,
		Total:       total,
		Critical:    isCritical,
	}, nil
}

// CriticalMultiplier is the factor applied to the die count on a critical
// hit. Named for call-site clarity, not configurability.
func CriticalMultiplier() int {
	return 2
}
