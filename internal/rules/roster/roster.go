// Package roster implements participant lifecycle for an encounter: creation
// with stat defaults, ordered insertion and removal, filtering, and the
// combat termination check.
package roster

import (
	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
	"github.com/forgekeep/encounter-api/internal/rules/initiative"
)

// Stat defaults applied when a field is not provided
const (
	defaultMaxHitPoints = 1
	defaultArmorClass   = 10
	defaultSpeed        = 30
)

// NewParticipantInput is a partial participant description. Numeric fields
// are pointers so that an absent value and an explicit zero can be told
// apart, mirroring how a participant sheet may legitimately start at 0 HP.
type NewParticipantInput struct {
	ID   string
	Name string
	Type combat.ParticipantType

	CharacterID string
	Class       string
	Level       int

	MonsterRef      string
	ChallengeRating float64
	XP              int

	MaxHitPoints       *int
	CurrentHitPoints   *int
	TemporaryHitPoints *int
	ArmorClass         *int
	Initiative         *int
	Speed              *int

	DamageResistances     []combat.DamageType
	DamageImmunities      []combat.DamageType
	DamageVulnerabilities []combat.DamageType
	Conditions            []combat.Condition
}

// CreateOptions tweaks participant creation.
type CreateOptions struct {
	// RollInitiative rolls 1d20 + modifier and stores the total in the
	// participant's Initiative field
	RollInitiative bool

	// InitiativeModifier overrides the input's Initiative value as the roll
	// modifier
	InitiativeModifier *int

	// InsertAtIndex is echoed back in the result; placement is the caller's
	// responsibility since Add always appends then re-sorts
	InsertAtIndex *int
}

// CreateResult is a fully-populated participant plus the initiative roll, if
// one was requested.
type CreateResult struct {
	Participant    combat.CombatParticipant
	InitiativeRoll *combat.DiceRoll
	InsertAtIndex  *int
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

// NewParticipant builds a complete CombatParticipant from a partial input,
// defaulting unset stats. Current HP defaults to the provided value, then max
// HP, then 1.
func NewParticipant(roller dice.Roller, input *NewParticipantInput, opts *CreateOptions) (*CreateResult, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.ID == "" {
		return nil, errors.InvalidArgument("participant ID is required")
	}

	maxHP := intOr(input.MaxHitPoints, defaultMaxHitPoints)

	p := combat.CombatParticipant{
		ID:              input.ID,
		Name:            input.Name,
		Type:            input.Type,
		CharacterID:     input.CharacterID,
		Class:           input.Class,
		Level:           input.Level,
		MonsterRef:      input.MonsterRef,
		ChallengeRating: input.ChallengeRating,
		XP:              input.XP,

		MaxHitPoints:       maxHP,
		CurrentHitPoints:   intOr(input.CurrentHitPoints, maxHP),
		TemporaryHitPoints: intOr(input.TemporaryHitPoints, 0),
		ArmorClass:         intOr(input.ArmorClass, defaultArmorClass),
		Initiative:         intOr(input.Initiative, 0),
		Speed:              intOr(input.Speed, defaultSpeed),

		DamageResistances:     append([]combat.DamageType(nil), input.DamageResistances...),
		DamageImmunities:      append([]combat.DamageType(nil), input.DamageImmunities...),
		DamageVulnerabilities: append([]combat.DamageType(nil), input.DamageVulnerabilities...),
		Conditions:            append([]combat.Condition(nil), input.Conditions...),
	}

	result := &CreateResult{Participant: p}
	if opts == nil {
		return result, nil
	}

	result.InsertAtIndex = opts.InsertAtIndex

	if opts.RollInitiative {
		modifier := p.Initiative
		if opts.InitiativeModifier != nil {
			modifier = *opts.InitiativeModifier
		}

		rolled, err := initiative.RollForParticipant(roller, p, modifier)
		if err != nil {
			return nil, err
		}

		result.Participant.Initiative = rolled.Initiative
		result.InitiativeRoll = rolled.Roll
	}

	return result, nil
}

// Add appends a participant and re-sorts by initiative, so position in the
// roster is initiative-determined rather than insertion-determined.
func Add(participants []combat.CombatParticipant, p combat.CombatParticipant) []combat.CombatParticipant {
	appended := append(append([]combat.CombatParticipant(nil), participants...), p)
	return initiative.SortByInitiative(appended)
}

// Remove drops the participant with the given ID, preserving order.
func Remove(participants []combat.CombatParticipant, id string) []combat.CombatParticipant {
	remaining := make([]combat.CombatParticipant, 0, len(participants))
	for _, p := range participants {
		if p.ID != id {
			remaining = append(remaining, p)
		}
	}
	return remaining
}

// Update replaces the roster entry whose ID matches the given participant.
// Unknown IDs leave the roster unchanged.
func Update(participants []combat.CombatParticipant, updated combat.CombatParticipant) []combat.CombatParticipant {
	replaced := append([]combat.CombatParticipant(nil), participants...)
	for i := range replaced {
		if replaced[i].ID == updated.ID {
			replaced[i] = updated
			break
		}
	}
	return replaced
}

// Find returns the participant with the given ID.
func Find(participants []combat.CombatParticipant, id string) (combat.CombatParticipant, bool) {
	for _, p := range participants {
		if p.ID == id {
			return p, true
		}
	}
	return combat.CombatParticipant{}, false
}

// ByType filters the roster by participant type.
func ByType(participants []combat.CombatParticipant, t combat.ParticipantType) []combat.CombatParticipant {
	var matched []combat.CombatParticipant
	for _, p := range participants {
		if p.Type == t {
			matched = append(matched, p)
		}
	}
	return matched
}

// Alive returns participants above 0 HP.
func Alive(participants []combat.CombatParticipant) []combat.CombatParticipant {
	var alive []combat.CombatParticipant
	for _, p := range participants {
		if p.IsAlive() {
			alive = append(alive, p)
		}
	}
	return alive
}

// Unconscious returns participants at or below 0 HP who are not yet dead.
func Unconscious(participants []combat.CombatParticipant) []combat.CombatParticipant {
	var unconscious []combat.CombatParticipant
	for _, p := range participants {
		if p.IsUnconscious() {
			unconscious = append(unconscious, p)
		}
	}
	return unconscious
}

// Dead returns participants with three death save failures.
func Dead(participants []combat.CombatParticipant) []combat.CombatParticipant {
	var dead []combat.CombatParticipant
	for _, p := range participants {
		if p.IsDead() {
			dead = append(dead, p)
		}
	}
	return dead
}

// EndReason explains why combat should end
type EndReason string

// Combat end reasons
const (
	EndReasonAllDead            EndReason = "all_dead"
	EndReasonAllPlayersDefeated EndReason = "all_players_defeated"
	EndReasonAllEnemiesDefeated EndReason = "all_enemies_defeated"
)

// EndCheck is the result of a combat termination check.
type EndCheck struct {
	ShouldEnd bool
	Reason    EndReason
}

// ShouldCombatEnd reports whether combat is over. Only player and enemy-side
// (enemy or monster) outcomes end combat; NPCs never factor into the check.
func ShouldCombatEnd(participants []combat.CombatParticipant) EndCheck {
	alivePlayers := 0
	aliveEnemies := 0

	for _, p := range participants {
		if !p.IsAlive() {
			continue
		}

		switch p.Type {
		case combat.ParticipantTypePlayer:
			alivePlayers++
		case combat.ParticipantTypeEnemy, combat.ParticipantTypeMonster:
			aliveEnemies++
		}
	}

	switch {
	case alivePlayers == 0 && aliveEnemies == 0:
		return EndCheck{ShouldEnd: true, Reason: EndReasonAllDead}
	case alivePlayers == 0:
		return EndCheck{ShouldEnd: true, Reason: EndReasonAllPlayersDefeated}
	case aliveEnemies == 0:
		return EndCheck{ShouldEnd: true, Reason: EndReasonAllEnemiesDefeated}
	default:
		return EndCheck{}
	}
}
