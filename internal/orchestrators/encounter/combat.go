package encounter

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
	"github.com/forgekeep/encounter-api/internal/rules/attacks"
	"github.com/forgekeep/encounter-api/internal/rules/conditions"
	"github.com/forgekeep/encounter-api/internal/rules/damage"
	"github.com/forgekeep/encounter-api/internal/rules/deathsaves"
	"github.com/forgekeep/encounter-api/internal/rules/roster"
	"github.com/forgekeep/encounter-api/internal/rules/saves"
)

// damageApplication is the common result of landing damage on a target,
// shared by PerformAttack and ApplyDamage.
type damageApplication struct {
	result             *damage.Result
	concentrationCheck *saves.Result
	downed             bool
	died               bool
}

// PerformAttack resolves a full attack: d20 roll against the target's AC,
// damage dice on a hit, and all knock-on effects of the damage
func (o *Orchestrator) PerformAttack(ctx context.Context, input *PerformAttackInput) (*PerformAttackOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("attackerID", input.AttackerID, vb)
	errors.ValidateRequired("targetID", input.TargetID, vb)
	errors.ValidateRequired("damageExpression", input.DamageExpression, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	if !enc.IsActive() {
		return nil, errors.FailedPreconditionf("cannot attack while encounter is %s", enc.Status)
	}

	attacker := enc.FindParticipant(input.AttackerID)
	if attacker == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.AttackerID, enc.ID)
	}
	target := enc.FindParticipant(input.TargetID)
	if target == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.TargetID, enc.ID)
	}

	if attacker.IsDead() || !attacker.IsAlive() {
		return nil, errors.FailedPreconditionf("%s cannot attack while down", attacker.Name)
	}

	attackRoll, err := attacks.Roll(o.diceRoller, input.AttackBonus, attacks.Options{
		Advantage:    input.Advantage,
		Disadvantage: input.Disadvantage,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "attack roll failed")
	}

	output := &PerformAttackOutput{
		AttackRoll: attackRoll,
		Hit:        attacks.DoesHit(attackRoll.Roll, target.ArmorClass),
	}

	if !output.Hit {
		enc.AddLogEntry(fmt.Sprintf("%s misses %s (rolled %d vs AC %d)",
			attacker.Name, target.Name, attackRoll.Roll.Total, target.ArmorClass))

		if err := o.saveEncounter(ctx, enc); err != nil {
			return nil, err
		}
		output.Encounter = enc
		return output, nil
	}

	damageRoll, err := attacks.RollDamage(o.diceRoller, input.DamageExpression, attackRoll.Roll.Critical)
	if err != nil {
		return nil, err
	}
	output.DamageRoll = damageRoll

	application, err := o.applyDamageToParticipant(ctx, enc, target, damage.Input{
		Damage:     damageRoll.Total,
		DamageType: input.DamageType,
	}, input.TargetConstitutionSaveBonus)
	if err != nil {
		return nil, err
	}

	enc.AddLogEntry(fmt.Sprintf("%s hits %s for %d damage",
		attacker.Name, target.Name, application.result.FinalDamage))

	output.Damage = application.result
	output.ConcentrationCheck = application.concentrationCheck
	output.TargetDowned = application.downed
	output.TargetDied = application.died

	output.CombatEnded, output.EndReason = o.checkCombatEnd(ctx, enc)

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}
	output.Encounter = enc

	o.publishParticipantEvent(ctx, eventDamageApplied, enc, enc.FindParticipant(input.TargetID), map[string]any{
		"attacker_id": input.AttackerID,
		"damage":      application.result.FinalDamage,
		"damage_type": string(input.DamageType),
		"critical":    attackRoll.Roll.Critical,
	})

	return output, nil
}

// ApplyDamage applies damage from a non-attack source
func (o *Orchestrator) ApplyDamage(ctx context.Context, input *ApplyDamageInput) (*ApplyDamageOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("targetID", input.TargetID, vb)
	if input.Damage < 0 {
		vb.Field("damage", "cannot be negative")
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	if !enc.IsActive() {
		return nil, errors.FailedPreconditionf("cannot apply damage while encounter is %s", enc.Status)
	}

	target := enc.FindParticipant(input.TargetID)
	if target == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.TargetID, enc.ID)
	}

	application, err := o.applyDamageToParticipant(ctx, enc, target, damage.Input{
		Damage:            input.Damage,
		DamageType:        input.DamageType,
		IgnoreResistances: input.IgnoreResistances,
		IgnoreImmunities:  input.IgnoreImmunities,
	}, input.TargetConstitutionSaveBonus)
	if err != nil {
		return nil, err
	}

	enc.AddLogEntry(fmt.Sprintf("%s takes %d damage", target.Name, application.result.FinalDamage))

	output := &ApplyDamageOutput{
		Damage:             application.result,
		ConcentrationCheck: application.concentrationCheck,
		TargetDowned:       application.downed,
		TargetDied:         application.died,
	}
	output.CombatEnded, output.EndReason = o.checkCombatEnd(ctx, enc)

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}
	output.Encounter = enc

	o.publishParticipantEvent(ctx, eventDamageApplied, enc, enc.FindParticipant(input.TargetID), map[string]any{
		"damage":      application.result.FinalDamage,
		"damage_type": string(input.DamageType),
	})

	return output, nil
}

// applyDamageToParticipant lands damage on a roster entry and resolves the
// knock-on effects: massive damage for an already-downed target, dropping to
// 0 HP, and the concentration check. The encounter's roster is updated in
// place; persisting is the caller's job.
func (o *Orchestrator) applyDamageToParticipant(
	ctx context.Context,
	enc *combat.CombatEncounter,
	target *combat.CombatParticipant,
	damageInput damage.Input,
	constitutionSaveBonus int,
) (*damageApplication, error) {
	if target.IsDead() {
		return nil, errors.FailedPreconditionf("%s is already dead", target.Name)
	}

	wasDown := !target.IsAlive()

	updated, result := damage.Apply(*target, damageInput)
	application := &damageApplication{result: result}

	switch {
	case wasDown:
		// Damage to a downed creature: instant death on massive damage,
		// otherwise a death save failure
		massive := deathsaves.CheckMassiveDamage(*target, result.FinalDamage)
		if massive.InstantDeath {
			updated = markDead(updated)
			application.died = true
			enc.AddLogEntry(fmt.Sprintf("%s dies from massive damage", target.Name))
		} else if result.FinalDamage > 0 {
			updated.DeathSaves.Failures++
			updated.DeathSaves.IsStable = false
			if updated.DeathSaves.Failures >= 3 {
				updated = markDead(updated)
				application.died = true
				enc.AddLogEntry(fmt.Sprintf("%s dies", target.Name))
			}
		}
	case updated.CurrentHitPoints <= 0:
		// Dropped to 0 this application
		application.downed = true
		updated.DeathSaves = combat.DeathSaveState{}
		updated = conditions.Add(updated, combat.Condition{
			Name:   conditionUnconscious,
			Source: "damage",
		})
		enc.AddLogEntry(fmt.Sprintf("%s falls unconscious", target.Name))
	}

	// A concentrating caster who takes damage must save or lose the spell
	if updated.ActiveConcentration != nil && result.FinalDamage > 0 {
		check, err := saves.CheckConcentration(o.diceRoller, updated, result.FinalDamage, constitutionSaveBonus)
		if err != nil {
			return nil, errors.Wrapf(err, "concentration check failed to roll")
		}
		application.concentrationCheck = check

		if !check.Success || application.downed || application.died {
			spellName := updated.ActiveConcentration.SpellName
			updated = saves.BreakConcentration(updated)
			enc.AddLogEntry(fmt.Sprintf("%s loses concentration on %s", target.Name, spellName))
			o.publishParticipantEvent(ctx, eventConcentrationBroken, enc, &updated, map[string]any{
				"spell": spellName,
			})
		}
	}

	enc.Participants = roster.Update(enc.Participants, updated)

	if application.downed {
		o.publishParticipantEvent(ctx, eventParticipantDowned, enc, enc.FindParticipant(updated.ID), nil)
	}
	if application.died {
		o.publishParticipantEvent(ctx, eventParticipantDied, enc, enc.FindParticipant(updated.ID), nil)
	}

	return application, nil
}

// markDead settles a participant's final state: three failures, no stale
// success count, and no lingering unconscious condition
func markDead(p combat.CombatParticipant) combat.CombatParticipant {
	p.DeathSaves = combat.DeathSaveState{Failures: 3}
	return conditions.Remove(p, conditionUnconscious)
}

// checkCombatEnd completes the encounter if one side is defeated
func (o *Orchestrator) checkCombatEnd(ctx context.Context, enc *combat.CombatEncounter) (bool, roster.EndReason) {
	end := roster.ShouldCombatEnd(enc.Participants)
	if !end.ShouldEnd {
		return false, ""
	}

	o.completeEncounter(ctx, enc, string(end.Reason))
	return true, end.Reason
}

// HealParticipant applies healing; an unconscious target brought above 0 HP
// regains consciousness with death saves cleared
func (o *Orchestrator) HealParticipant(ctx context.Context, input *HealParticipantInput) (*HealParticipantOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("targetID", input.TargetID, vb)
	if input.Healing < 0 {
		vb.Field("healing", "cannot be negative")
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	target := enc.FindParticipant(input.TargetID)
	if target == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.TargetID, enc.ID)
	}
	if target.IsDead() {
		return nil, errors.FailedPreconditionf("%s is dead and cannot be healed", target.Name)
	}

	wasDown := !target.IsAlive()

	updated, result := damage.ApplyHealing(*target, damage.HealingInput{
		Healing:     input.Healing,
		CanOverheal: input.CanOverheal,
	})

	regained := wasDown && updated.CurrentHitPoints > 0
	if regained {
		updated.DeathSaves = combat.DeathSaveState{}
		updated = conditions.Remove(updated, conditionUnconscious)
		enc.AddLogEntry(fmt.Sprintf("%s regains consciousness", target.Name))
	}

	enc.Participants = roster.Update(enc.Participants, updated)
	enc.AddLogEntry(fmt.Sprintf("%s heals %d HP", target.Name, result.HealingApplied))

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	o.publishParticipantEvent(ctx, eventHealingApplied, enc, enc.FindParticipant(input.TargetID), map[string]any{
		"healing":  result.HealingApplied,
		"regained": regained,
	})

	return &HealParticipantOutput{
		Encounter: enc,
		Healing:   result,
		Regained:  regained,
	}, nil
}

// ApplyTemporaryHP grants temporary hit points; a smaller pool never
// replaces a larger one
func (o *Orchestrator) ApplyTemporaryHP(ctx context.Context, input *ApplyTemporaryHPInput) (*ApplyTemporaryHPOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("targetID", input.TargetID, vb)
	if input.Amount < 0 {
		vb.Field("amount", "cannot be negative")
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	target := enc.FindParticipant(input.TargetID)
	if target == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.TargetID, enc.ID)
	}

	updated := damage.ApplyTemporaryHP(*target, input.Amount)
	enc.Participants = roster.Update(enc.Participants, updated)

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	return &ApplyTemporaryHPOutput{
		Encounter:      enc,
		NewTemporaryHP: updated.TemporaryHitPoints,
	}, nil
}

// AddCondition applies a condition, replacing any existing one of the same
// name
func (o *Orchestrator) AddCondition(ctx context.Context, input *AddConditionInput) (*AddConditionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("targetID", input.TargetID, vb)
	errors.ValidateRequired("condition name", input.Condition.Name, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	target := enc.FindParticipant(input.TargetID)
	if target == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.TargetID, enc.ID)
	}

	updated := conditions.Add(*target, input.Condition)
	enc.Participants = roster.Update(enc.Participants, updated)
	enc.AddLogEntry(fmt.Sprintf("%s is %s", target.Name, input.Condition.Name))

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	return &AddConditionOutput{
		Encounter:   enc,
		Participant: enc.FindParticipant(input.TargetID),
	}, nil
}

// RemoveCondition clears a condition by name
func (o *Orchestrator) RemoveCondition(ctx context.Context, input *RemoveConditionInput) (*RemoveConditionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("targetID", input.TargetID, vb)
	errors.ValidateRequired("conditionName", input.ConditionName, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	target := enc.FindParticipant(input.TargetID)
	if target == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.TargetID, enc.ID)
	}

	updated := conditions.Remove(*target, input.ConditionName)
	enc.Participants = roster.Update(enc.Participants, updated)

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	return &RemoveConditionOutput{
		Encounter:   enc,
		Participant: enc.FindParticipant(input.TargetID),
	}, nil
}

// RollDeathSave resolves one death saving throw for a dying participant
func (o *Orchestrator) RollDeathSave(ctx context.Context, input *RollDeathSaveInput) (*RollDeathSaveOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("participantID", input.ParticipantID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	if !enc.IsActive() {
		return nil, errors.FailedPreconditionf("cannot roll death saves while encounter is %s", enc.Status)
	}

	target := enc.FindParticipant(input.ParticipantID)
	if target == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.ParticipantID, enc.ID)
	}

	result, err := deathsaves.Roll(o.diceRoller, *target)
	if err != nil {
		return nil, err
	}

	updated := result.Participant
	switch {
	case result.Revived:
		updated = conditions.Remove(updated, conditionUnconscious)
		enc.AddLogEntry(fmt.Sprintf("%s rolls a natural 20 and springs back up", target.Name))
	case result.Stabilized:
		enc.AddLogEntry(fmt.Sprintf("%s is stable", target.Name))
	case result.Died:
		updated = markDead(updated)
		enc.AddLogEntry(fmt.Sprintf("%s dies", target.Name))
	case result.Success:
		enc.AddLogEntry(fmt.Sprintf("%s succeeds on a death save (%d/3)", target.Name, updated.DeathSaves.Successes))
	default:
		enc.AddLogEntry(fmt.Sprintf("%s fails a death save (%d/3)", target.Name, updated.DeathSaves.Failures))
	}

	enc.Participants = roster.Update(enc.Participants, updated)

	output := &RollDeathSaveOutput{
		Roll:       result.Roll,
		Success:    result.Success,
		Revived:    result.Revived,
		Stabilized: result.Stabilized,
		Died:       result.Died,
		Successes:  updated.DeathSaves.Successes,
		Failures:   updated.DeathSaves.Failures,
	}

	if result.Died {
		o.publishParticipantEvent(ctx, eventParticipantDied, enc, enc.FindParticipant(input.ParticipantID), nil)
		output.CombatEnded, output.EndReason = o.checkCombatEnd(ctx, enc)
	}
	if result.Revived {
		o.publishParticipantEvent(ctx, eventParticipantRevived, enc, enc.FindParticipant(input.ParticipantID), nil)
	}

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}
	output.Encounter = enc

	slog.DebugContext(ctx, "death save rolled",
		"encounter_id", enc.ID,
		"participant_id", input.ParticipantID,
		"natural", result.Roll.NaturalRoll,
		"successes", updated.DeathSaves.Successes,
		"failures", updated.DeathSaves.Failures)

	return output, nil
}

// StabilizeParticipant stabilizes a dying participant without restoring HP
func (o *Orchestrator) StabilizeParticipant(ctx context.Context, input *StabilizeParticipantInput) (*StabilizeParticipantOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("participantID", input.ParticipantID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	target := enc.FindParticipant(input.ParticipantID)
	if target == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.ParticipantID, enc.ID)
	}

	updated, ok := deathsaves.Stabilize(*target)
	if !ok {
		return nil, errors.FailedPreconditionf("%s is not dying", target.Name)
	}

	enc.Participants = roster.Update(enc.Participants, updated)
	enc.AddLogEntry(fmt.Sprintf("%s is stabilized", target.Name))

	if err := o.saveEncounter(ctx, enc); err != nil {
		return nil, err
	}

	return &StabilizeParticipantOutput{
		Encounter:   enc,
		Participant: enc.FindParticipant(input.ParticipantID),
	}, nil
}

// RollSavingThrow makes an ad-hoc saving throw for a participant. The roll
// itself never mutates encounter state; applying consequences is a separate
// call.
func (o *Orchestrator) RollSavingThrow(ctx context.Context, input *RollSavingThrowInput) (*RollSavingThrowOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("encounterID", input.EncounterID, vb)
	errors.ValidateRequired("participantID", input.ParticipantID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	enc, err := o.getEncounter(ctx, input.EncounterID)
	if err != nil {
		return nil, err
	}

	if enc.FindParticipant(input.ParticipantID) == nil {
		return nil, errors.NotFoundf("participant %s not found in encounter %s", input.ParticipantID, enc.ID)
	}

	result, err := saves.Roll(o.diceRoller, input.Bonus, input.DC, saves.Options{
		Advantage:    input.Advantage,
		Disadvantage: input.Disadvantage,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "saving throw failed to roll")
	}

	return &RollSavingThrowOutput{Result: result}, nil
}
