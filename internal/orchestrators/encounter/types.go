package encounter

import (
	"context"

	"github.com/forgekeep/encounter-api/internal/clients/external"
	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/rules/attacks"
	"github.com/forgekeep/encounter-api/internal/rules/damage"
	"github.com/forgekeep/encounter-api/internal/rules/initiative"
	"github.com/forgekeep/encounter-api/internal/rules/roster"
	"github.com/forgekeep/encounter-api/internal/rules/saves"
)

//go:generate mockgen -destination=mock/mock_service.go -package=encountermock github.com/forgekeep/encounter-api/internal/orchestrators/encounter Service

// Service defines the interface for encounter operations. The orchestrator
// is the single writer for encounter state: every mutation loads the
// encounter, applies the rules packages, and stores the result.
type Service interface {
	// Encounter lifecycle
	CreateEncounter(ctx context.Context, input *CreateEncounterInput) (*CreateEncounterOutput, error)
	GetEncounter(ctx context.Context, input *GetEncounterInput) (*GetEncounterOutput, error)
	ListEncounters(ctx context.Context, input *ListEncountersInput) (*ListEncountersOutput, error)
	GetActiveEncounter(ctx context.Context, input *GetActiveEncounterInput) (*GetActiveEncounterOutput, error)
	RollInitiative(ctx context.Context, input *RollInitiativeInput) (*RollInitiativeOutput, error)
	StartEncounter(ctx context.Context, input *StartEncounterInput) (*StartEncounterOutput, error)
	NextTurn(ctx context.Context, input *NextTurnInput) (*NextTurnOutput, error)
	EndEncounter(ctx context.Context, input *EndEncounterInput) (*EndEncounterOutput, error)

	// Roster management
	AddPlayer(ctx context.Context, input *AddPlayerInput) (*AddPlayerOutput, error)
	AddMonster(ctx context.Context, input *AddMonsterInput) (*AddMonsterOutput, error)
	RemoveParticipant(ctx context.Context, input *RemoveParticipantInput) (*RemoveParticipantOutput, error)
	UpdateParticipant(ctx context.Context, input *UpdateParticipantInput) (*UpdateParticipantOutput, error)

	// Combat resolution
	PerformAttack(ctx context.Context, input *PerformAttackInput) (*PerformAttackOutput, error)
	ApplyDamage(ctx context.Context, input *ApplyDamageInput) (*ApplyDamageOutput, error)
	HealParticipant(ctx context.Context, input *HealParticipantInput) (*HealParticipantOutput, error)
	ApplyTemporaryHP(ctx context.Context, input *ApplyTemporaryHPInput) (*ApplyTemporaryHPOutput, error)
	AddCondition(ctx context.Context, input *AddConditionInput) (*AddConditionOutput, error)
	RemoveCondition(ctx context.Context, input *RemoveConditionInput) (*RemoveConditionOutput, error)
	RollDeathSave(ctx context.Context, input *RollDeathSaveInput) (*RollDeathSaveOutput, error)
	StabilizeParticipant(ctx context.Context, input *StabilizeParticipantInput) (*StabilizeParticipantOutput, error)
	RollSavingThrow(ctx context.Context, input *RollSavingThrowInput) (*RollSavingThrowOutput, error)

	// SRD reference data
	ListMonsters(ctx context.Context, input *ListMonstersInput) (*ListMonstersOutput, error)
	ListDamageTypes(ctx context.Context, input *ListDamageTypesInput) (*ListDamageTypesOutput, error)
}

// CreateEncounterInput defines the request for creating an encounter
type CreateEncounterInput struct {
	SessionID string
	Name      string
}

// CreateEncounterOutput defines the response for creating an encounter
type CreateEncounterOutput struct {
	Encounter *combat.CombatEncounter
}

// GetEncounterInput defines the request for retrieving an encounter
type GetEncounterInput struct {
	EncounterID string
}

// GetEncounterOutput defines the response for retrieving an encounter
type GetEncounterOutput struct {
	Encounter *combat.CombatEncounter
}

// ListEncountersInput defines the request for listing a session's encounters
type ListEncountersInput struct {
	SessionID string
}

// ListEncountersOutput defines the response for listing a session's encounters
type ListEncountersOutput struct {
	Encounters []*combat.CombatEncounter
}

// GetActiveEncounterInput defines the request for finding a session's
// in-progress encounter
type GetActiveEncounterInput struct {
	SessionID string
}

// GetActiveEncounterOutput defines the response for finding a session's
// in-progress encounter
type GetActiveEncounterOutput struct {
	Encounter *combat.CombatEncounter
}

// RollInitiativeInput defines the request for rolling initiative
type RollInitiativeInput struct {
	EncounterID string
}

// RollInitiativeOutput carries the per-participant rolls and the reordered
// encounter
type RollInitiativeOutput struct {
	Encounter *combat.CombatEncounter
	Rolls     map[string]*initiative.Result
}

// StartEncounterInput defines the request for starting combat
type StartEncounterInput struct {
	EncounterID string
}

// StartEncounterOutput defines the response for starting combat
type StartEncounterOutput struct {
	Encounter          *combat.CombatEncounter
	FirstParticipantID string
}

// NextTurnInput defines the request for advancing the turn
type NextTurnInput struct {
	EncounterID string
}

// NextTurnOutput defines the response for advancing the turn
type NextTurnOutput struct {
	Encounter         *combat.CombatEncounter
	NextParticipantID string
	Round             int
	RoundAdvanced     bool

	// CombatEnded is set when nobody can act anymore and the encounter was
	// completed instead of advancing
	CombatEnded bool
	EndReason   roster.EndReason
}

// EndEncounterInput defines the request for ending an encounter
type EndEncounterInput struct {
	EncounterID string
}

// EndEncounterOutput defines the response for ending an encounter
type EndEncounterOutput struct {
	Encounter *combat.CombatEncounter
}

// AddPlayerInput defines the request for adding a player character to the
// roster. Pointer stat fields fall back to sheet defaults when absent.
type AddPlayerInput struct {
	EncounterID string

	CharacterID string
	Name        string
	Class       string
	Level       int

	MaxHitPoints     *int
	CurrentHitPoints *int
	ArmorClass       *int
	Speed            *int

	// InitiativeModifier seeds the participant's Initiative field until a
	// roll replaces it with the total
	InitiativeModifier *int

	DamageResistances     []combat.DamageType
	DamageImmunities      []combat.DamageType
	DamageVulnerabilities []combat.DamageType
}

// AddPlayerOutput defines the response for adding a player
type AddPlayerOutput struct {
	Encounter   *combat.CombatEncounter
	Participant *combat.CombatParticipant
}

// AddMonsterInput defines the request for adding a monster to the roster.
// MonsterRef is verified against the SRD API; the stat block itself comes
// from the caller since campaigns routinely run customized monsters.
type AddMonsterInput struct {
	EncounterID string

	MonsterRef      string
	Name            string
	ChallengeRating float64
	XP              int

	MaxHitPoints *int
	ArmorClass   *int
	Speed        *int

	InitiativeModifier *int

	DamageResistances     []combat.DamageType
	DamageImmunities      []combat.DamageType
	DamageVulnerabilities []combat.DamageType
}

// AddMonsterOutput defines the response for adding a monster
type AddMonsterOutput struct {
	Encounter   *combat.CombatEncounter
	Participant *combat.CombatParticipant
}

// RemoveParticipantInput defines the request for removing a participant
type RemoveParticipantInput struct {
	EncounterID   string
	ParticipantID string
}

// RemoveParticipantOutput defines the response for removing a participant
type RemoveParticipantOutput struct {
	Encounter *combat.CombatEncounter
}

// UpdateParticipantInput defines the request for replacing a participant's
// record wholesale
type UpdateParticipantInput struct {
	EncounterID string
	Participant *combat.CombatParticipant
}

// UpdateParticipantOutput defines the response for updating a participant
type UpdateParticipantOutput struct {
	Encounter   *combat.CombatEncounter
	Participant *combat.CombatParticipant
}

// PerformAttackInput defines the request for a full attack resolution:
// attack roll, hit check against the target's AC, and damage on a hit
type PerformAttackInput struct {
	EncounterID string
	AttackerID  string
	TargetID    string

	AttackBonus      int
	DamageExpression string // "NdM" or "NdM+K"
	DamageType       combat.DamageType

	Advantage    bool
	Disadvantage bool

	// TargetConstitutionSaveBonus feeds the concentration check if the
	// target is concentrating when the damage lands
	TargetConstitutionSaveBonus int
}

// PerformAttackOutput defines the response for an attack
type PerformAttackOutput struct {
	Encounter *combat.CombatEncounter

	AttackRoll *attacks.Result
	Hit        bool

	// Set only on a hit
	DamageRoll *combat.DiceRoll
	Damage     *damage.Result

	ConcentrationCheck *saves.Result
	TargetDowned       bool
	TargetDied         bool

	CombatEnded bool
	EndReason   roster.EndReason
}

// ApplyDamageInput defines the request for applying damage directly, outside
// an attack roll (spell effects, hazards, DM fiat)
type ApplyDamageInput struct {
	EncounterID string
	TargetID    string

	Damage     int
	DamageType combat.DamageType

	IgnoreResistances bool
	IgnoreImmunities  bool

	TargetConstitutionSaveBonus int
}

// ApplyDamageOutput defines the response for applying damage
type ApplyDamageOutput struct {
	Encounter *combat.CombatEncounter
	Damage    *damage.Result

	ConcentrationCheck *saves.Result
	TargetDowned       bool
	TargetDied         bool

	CombatEnded bool
	EndReason   roster.EndReason
}

// HealParticipantInput defines the request for healing
type HealParticipantInput struct {
	EncounterID string
	TargetID    string

	Healing     int
	CanOverheal bool
}

// HealParticipantOutput defines the response for healing
type HealParticipantOutput struct {
	Encounter *combat.CombatEncounter
	Healing   *damage.HealingResult

	// Regained is set when the healing brought an unconscious participant
	// back up, clearing their death save progress
	Regained bool
}

// ApplyTemporaryHPInput defines the request for granting temporary hit points
type ApplyTemporaryHPInput struct {
	EncounterID string
	TargetID    string
	Amount      int
}

// ApplyTemporaryHPOutput defines the response for granting temporary HP
type ApplyTemporaryHPOutput struct {
	Encounter *combat.CombatEncounter

	// NewTemporaryHP is the resulting pool; temporary HP never stacks, the
	// larger of old and new wins
	NewTemporaryHP int
}

// AddConditionInput defines the request for applying a condition
type AddConditionInput struct {
	EncounterID string
	TargetID    string
	Condition   combat.Condition
}

// AddConditionOutput defines the response for applying a condition
type AddConditionOutput struct {
	Encounter   *combat.CombatEncounter
	Participant *combat.CombatParticipant
}

// RemoveConditionInput defines the request for removing a condition by name
type RemoveConditionInput struct {
	EncounterID   string
	TargetID      string
	ConditionName string
}

// RemoveConditionOutput defines the response for removing a condition
type RemoveConditionOutput struct {
	Encounter   *combat.CombatEncounter
	Participant *combat.CombatParticipant
}

// RollDeathSaveInput defines the request for a death saving throw
type RollDeathSaveInput struct {
	EncounterID   string
	ParticipantID string
}

// RollDeathSaveOutput defines the response for a death saving throw
type RollDeathSaveOutput struct {
	Encounter *combat.CombatEncounter

	Roll       *combat.DiceRoll
	Success    bool
	Revived    bool
	Stabilized bool
	Died       bool

	Successes int
	Failures  int

	CombatEnded bool
	EndReason   roster.EndReason
}

// StabilizeParticipantInput defines the request for stabilizing a dying
// participant without healing
type StabilizeParticipantInput struct {
	EncounterID   string
	ParticipantID string
}

// StabilizeParticipantOutput defines the response for stabilizing
type StabilizeParticipantOutput struct {
	Encounter   *combat.CombatEncounter
	Participant *combat.CombatParticipant
}

// RollSavingThrowInput defines the request for an ad-hoc saving throw
type RollSavingThrowInput struct {
	EncounterID   string
	ParticipantID string

	Bonus int
	DC    int

	Advantage    bool
	Disadvantage bool
}

// RollSavingThrowOutput defines the response for a saving throw
type RollSavingThrowOutput struct {
	Result *saves.Result
}

// ListMonstersInput defines the request for listing SRD monsters
type ListMonstersInput struct{}

// ListMonstersOutput defines the response for listing SRD monsters
type ListMonstersOutput struct {
	Monsters []*external.MonsterRef
}

// ListDamageTypesInput defines the request for listing SRD damage types
type ListDamageTypesInput struct{}

// ListDamageTypesOutput defines the response for listing SRD damage types
type ListDamageTypesOutput struct {
	DamageTypes []*external.DamageTypeRef
}
