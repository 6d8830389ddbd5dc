package combat

import (
	"fmt"
	"time"
)

// EncounterStatus represents the current state of an encounter
type EncounterStatus string

// Encounter lifecycle states
const (
	EncounterStatusSetup     EncounterStatus = "setup"     // roster being assembled
	EncounterStatusRolling   EncounterStatus = "rolling"   // initiative being rolled
	EncounterStatusActive    EncounterStatus = "active"    // combat in progress
	EncounterStatusCompleted EncounterStatus = "completed" // encounter finished
)

// Maximum combat log entries retained per encounter
const maxCombatLogEntries = 20

// CombatEncounter is the aggregate the session layer persists: an ordered
// roster plus round and turn bookkeeping. The rules packages never hold one
// of these; they operate on the roster slice and computed values, and the
// owner applies the results back.
type CombatEncounter struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Name      string          `json:"name"`
	Status    EncounterStatus `json:"status"`

	// Round starts at 1 when combat begins and increments on initiative-order
	// wraparound
	Round int `json:"round"`

	CurrentTurnParticipantID string `json:"current_turn_participant_id,omitempty"`

	// Participants are kept in initiative order while the encounter is active
	Participants []CombatParticipant `json:"participants"`

	CombatLog []string `json:"combat_log,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// FindParticipant returns a pointer into the roster for the given ID, or nil
func (e *CombatEncounter) FindParticipant(id string) *CombatParticipant {
	for i := range e.Participants {
		if e.Participants[i].ID == id {
			return &e.Participants[i]
		}
	}
	return nil
}

// CurrentParticipant returns the participant whose turn it is, or nil
func (e *CombatEncounter) CurrentParticipant() *CombatParticipant {
	if e.CurrentTurnParticipantID == "" {
		return nil
	}
	return e.FindParticipant(e.CurrentTurnParticipantID)
}

// IsActive reports whether combat is in progress
func (e *CombatEncounter) IsActive() bool {
	return e.Status == EncounterStatusActive
}

// Clone returns a deep copy of the encounter
func (e *CombatEncounter) Clone() *CombatEncounter {
	clone := *e

	clone.Participants = make([]CombatParticipant, len(e.Participants))
	for i := range e.Participants {
		clone.Participants[i] = e.Participants[i].Clone()
	}

	if e.CombatLog != nil {
		clone.CombatLog = append([]string(nil), e.CombatLog...)
	}
	if e.StartedAt != nil {
		t := *e.StartedAt
		clone.StartedAt = &t
	}
	if e.EndedAt != nil {
		t := *e.EndedAt
		clone.EndedAt = &t
	}

	return &clone
}

// AddLogEntry appends a round-stamped entry to the combat log, keeping only
// the most recent entries to prevent unbounded growth.
func (e *CombatEncounter) AddLogEntry(entry string) {
	e.CombatLog = append(e.CombatLog, fmt.Sprintf("Round %d: %s", e.Round, entry))
	if len(e.CombatLog) > maxCombatLogEntries {
		e.CombatLog = e.CombatLog[len(e.CombatLog)-maxCombatLogEntries:]
	}
}
