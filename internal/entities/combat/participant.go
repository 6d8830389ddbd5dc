// Package combat defines the value types the combat rules engine operates on.
package combat

// ParticipantType represents the type of combat participant
type ParticipantType string

// Participant types
const (
	ParticipantTypePlayer  ParticipantType = "player"
	ParticipantTypeEnemy   ParticipantType = "enemy"
	ParticipantTypeNPC     ParticipantType = "npc"
	ParticipantTypeMonster ParticipantType = "monster"
)

// Condition is a named status condition with a remaining duration in rounds.
// A duration of zero or less is an indefinite sentinel and never ticks down.
type Condition struct {
	Name     string `json:"name"`
	Duration int    `json:"duration"`
	Source   string `json:"source,omitempty"`
}

// DeathSaveState tracks death saving throw progress for a dying participant.
// Three successes stabilize, three failures kill.
type DeathSaveState struct {
	Successes int  `json:"successes"`
	Failures  int  `json:"failures"`
	IsStable  bool `json:"is_stable,omitempty"`
}

// Concentration references the spell or effect a participant is
// concentrating on.
type Concentration struct {
	SpellName    string   `json:"spell_name"`
	TargetIDs    []string `json:"target_ids,omitempty"`
	StartedRound int      `json:"started_round,omitempty"`
}

// CombatParticipant is one creature in an encounter. The rules packages treat
// it as an immutable record: they take a participant and return a new one
// rather than mutating in place.
type CombatParticipant struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Type ParticipantType `json:"type"`

	// For players
	CharacterID string `json:"character_id,omitempty"`
	Class       string `json:"class,omitempty"`
	Level       int    `json:"level,omitempty"`

	// For monsters
	MonsterRef      string  `json:"monster_ref,omitempty"` // SRD API reference
	ChallengeRating float64 `json:"cr,omitempty"`
	XP              int     `json:"xp,omitempty"`

	MaxHitPoints       int `json:"max_hit_points"`
	CurrentHitPoints   int `json:"current_hit_points"`
	TemporaryHitPoints int `json:"temporary_hit_points"`
	ArmorClass         int `json:"armor_class"`
	Speed              int `json:"speed"`

	// Initiative holds the stored initiative modifier before a roll and the
	// rolled total after. Callers that need both must keep the modifier
	// themselves.
	Initiative int `json:"initiative"`

	// Per-turn action economy, reset when the participant's turn begins
	ActionTaken           bool     `json:"action_taken"`
	BonusActionTaken      bool     `json:"bonus_action_taken"`
	ReactionTaken         bool     `json:"reaction_taken"`
	MovementUsed          int      `json:"movement_used"` // feet
	ReactionOpportunities []string `json:"reaction_opportunities,omitempty"`

	DamageResistances     []DamageType `json:"damage_resistances,omitempty"`
	DamageImmunities      []DamageType `json:"damage_immunities,omitempty"`
	DamageVulnerabilities []DamageType `json:"damage_vulnerabilities,omitempty"`

	Conditions []Condition `json:"conditions,omitempty"`

	DeathSaves DeathSaveState `json:"death_saves"`

	ActiveConcentration *Concentration `json:"active_concentration,omitempty"`
}

// GetID implements core.Entity
func (p *CombatParticipant) GetID() string {
	return p.ID
}

// GetType implements core.Entity
func (p *CombatParticipant) GetType() string {
	return string(p.Type)
}

// IsAlive returns true if the participant has more than 0 HP
func (p *CombatParticipant) IsAlive() bool {
	return p.CurrentHitPoints > 0
}

// IsUnconscious returns true if the participant is at 0 HP but not yet dead
func (p *CombatParticipant) IsUnconscious() bool {
	return p.CurrentHitPoints <= 0 && p.DeathSaves.Failures < 3
}

// IsDead returns true once three death save failures have accumulated
func (p *CombatParticipant) IsDead() bool {
	return p.DeathSaves.Failures >= 3
}

// HasCondition reports whether a condition with the given name is present
func (p *CombatParticipant) HasCondition(name string) bool {
	for _, c := range p.Conditions {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can apply immutable-style updates
// without sharing backing arrays.
func (p CombatParticipant) Clone() CombatParticipant {
	clone := p

	if p.ReactionOpportunities != nil {
		clone.ReactionOpportunities = append([]string(nil), p.ReactionOpportunities...)
	}
	if p.DamageResistances != nil {
		clone.DamageResistances = append([]DamageType(nil), p.DamageResistances...)
	}
	if p.DamageImmunities != nil {
		clone.DamageImmunities = append([]DamageType(nil), p.DamageImmunities...)
	}
	if p.DamageVulnerabilities != nil {
		clone.DamageVulnerabilities = append([]DamageType(nil), p.DamageVulnerabilities...)
	}
	if p.Conditions != nil {
		clone.Conditions = append([]Condition(nil), p.Conditions...)
	}
	if p.ActiveConcentration != nil {
		conc := *p.ActiveConcentration
		if p.ActiveConcentration.TargetIDs != nil {
			conc.TargetIDs = append([]string(nil), p.ActiveConcentration.TargetIDs...)
		}
		clone.ActiveConcentration = &conc
	}

	return clone
}
