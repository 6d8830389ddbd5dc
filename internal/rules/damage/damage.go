// Package damage implements damage application with resistance, immunity and
// vulnerability adjustment, temporary hit point absorption, healing, and the
// non-stacking temporary HP rule.
package damage

import (
	"github.com/forgekeep/encounter-api/internal/entities/combat"
)

// Input describes incoming damage. An empty DamageType skips the type
// adjustment entirely.
type Input struct {
	Damage     int
	DamageType combat.DamageType

	IgnoreResistances bool
	IgnoreImmunities  bool
}

// Result is the full damage breakdown. The participant is not mutated;
// NewCurrentHP and NewTempHP are the values the caller should apply.
type Result struct {
	OriginalDamage int
	FinalDamage    int // after type adjustment

	WasResisted   bool
	WasImmune     bool
	WasVulnerable bool

	TempHPAbsorbed int
	HPDamage       int

	NewCurrentHP int
	NewTempHP    int
}

func containsType(types []combat.DamageType, t combat.DamageType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// AdjustForDamageType applies the 5e damage type rules: immunity zeroes the
// damage, resistance halves it rounding down, vulnerability doubles it. The
// three sets are expected to be disjoint.
func AdjustForDamageType(
	amount int,
	damageType combat.DamageType,
	resistances, immunities, vulnerabilities []combat.DamageType,
) int {
	if containsType(immunities, damageType) {
		return 0
	}
	if containsType(resistances, damageType) {
		return amount / 2
	}
	if containsType(vulnerabilities, damageType) {
		return amount * 2
	}
	return amount
}

// CalculateWithResistances computes the damage a participant would take.
// Temporary HP absorbs damage first; the remainder reduces current HP,
// floored at zero.
func CalculateWithResistances(p combat.CombatParticipant, input Input) *Result {
	finalDamage := input.Damage

	if input.DamageType != "" && !input.IgnoreResistances && !input.IgnoreImmunities {
		finalDamage = AdjustForDamageType(
			input.Damage,
			input.DamageType,
			p.DamageResistances,
			p.DamageImmunities,
			p.DamageVulnerabilities,
		)
	}

	result := &Result{
		OriginalDamage: input.Damage,
		FinalDamage:    finalDamage,
		WasResisted:    finalDamage < input.Damage && finalDamage > 0,
		WasImmune:      finalDamage == 0 && input.Damage > 0,
		WasVulnerable:  finalDamage > input.Damage,
	}

	result.TempHPAbsorbed = finalDamage
	if p.TemporaryHitPoints < result.TempHPAbsorbed {
		result.TempHPAbsorbed = p.TemporaryHitPoints
	}

	result.HPDamage = finalDamage - result.TempHPAbsorbed
	result.NewTempHP = p.TemporaryHitPoints - result.TempHPAbsorbed

	result.NewCurrentHP = p.CurrentHitPoints - result.HPDamage
	if result.NewCurrentHP < 0 {
		result.NewCurrentHP = 0
	}

	return result
}

// Apply returns a new participant with the damage applied, alongside the
// breakdown.
func Apply(p combat.CombatParticipant, input Input) (combat.CombatParticipant, *Result) {
	result := CalculateWithResistances(p, input)

	updated := p.Clone()
	updated.CurrentHitPoints = result.NewCurrentHP
	updated.TemporaryHitPoints = result.NewTempHP

	return updated, result
}

// HealingInput describes incoming healing.
type HealingInput struct {
	Healing int

	// CanOverheal skips the max HP clamp, for temporary overheal effects
	CanOverheal bool

	// MaxHPOverride replaces the participant's MaxHitPoints as the clamp
	MaxHPOverride *int
}

// HealingResult reports what the healing actually did.
type HealingResult struct {
	HealingApplied int
	NewCurrentHP   int
	WasAtMax       bool
}

// ApplyHealing adds healing to current HP, clamping to max unless overheal is
// allowed. Healing never reduces HP, even for a participant already above the
// clamp.
func ApplyHealing(p combat.CombatParticipant, input HealingInput) (combat.CombatParticipant, *HealingResult) {
	maxHP := p.MaxHitPoints
	if input.MaxHPOverride != nil {
		maxHP = *input.MaxHPOverride
	}

	newHP := p.CurrentHitPoints + input.Healing
	if !input.CanOverheal && newHP > maxHP {
		newHP = maxHP
	}
	if newHP < p.CurrentHitPoints {
		newHP = p.CurrentHitPoints
	}

	updated := p.Clone()
	updated.CurrentHitPoints = newHP

	return updated, &HealingResult{
		HealingApplied: newHP - p.CurrentHitPoints,
		NewCurrentHP:   newHP,
		WasAtMax:       p.CurrentHitPoints >= maxHP,
	}
}

// ApplyTemporaryHP grants temporary hit points. Temp HP does not stack: the
// participant keeps the higher of the current and new values.
func ApplyTemporaryHP(p combat.CombatParticipant, amount int) combat.CombatParticipant {
	updated := p.Clone()
	if amount > updated.TemporaryHitPoints {
		updated.TemporaryHitPoints = amount
	}
	return updated
}
