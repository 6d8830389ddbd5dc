package encounter_test

import (
	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
	"github.com/forgekeep/encounter-api/internal/orchestrators/encounter"
	"github.com/forgekeep/encounter-api/internal/testutils"
)

func (s *OrchestratorTestSuite) TestPerformAttack() {
	s.Run("hit deals damage and can finish the fight", func() {
		s.activeEncounter("enc_hit", fighter("p1", 18), goblin("p2", 12))

		// attack d20 16 (+5 = 21 vs AC 15), damage 1d6 -> 4 (+3 = 7)
		orch := s.newOrchestrator(testutils.NewScriptedRoller(16, 4))

		output, err := orch.PerformAttack(s.ctx, &encounter.PerformAttackInput{
			EncounterID:      "enc_hit",
			AttackerID:       "p1",
			TargetID:         "p2",
			AttackBonus:      5,
			DamageExpression: "1d6+3",
			DamageType:       combat.DamageTypeSlashing,
		})
		s.Require().NoError(err)
		s.True(output.Hit)
		s.Equal(21, output.AttackRoll.Roll.Total)
		s.Equal(7, output.DamageRoll.Total)
		s.Equal(7, output.Damage.FinalDamage)

		target := output.Encounter.FindParticipant("p2")
		s.Equal(0, target.CurrentHitPoints)
		s.True(output.TargetDowned)
		s.True(target.HasCondition("unconscious"))

		// The only enemy went down, so the encounter completes
		s.True(output.CombatEnded)
		s.Equal(combat.EncounterStatusCompleted, output.Encounter.Status)
	})

	s.Run("miss leaves the target untouched", func() {
		s.activeEncounter("enc_miss", fighter("p1", 18), goblin("p2", 12))

		orch := s.newOrchestrator(testutils.NewScriptedRoller(2))

		output, err := orch.PerformAttack(s.ctx, &encounter.PerformAttackInput{
			EncounterID:      "enc_miss",
			AttackerID:       "p1",
			TargetID:         "p2",
			AttackBonus:      5,
			DamageExpression: "1d6+3",
		})
		s.Require().NoError(err)
		s.False(output.Hit)
		s.Nil(output.DamageRoll)
		s.Nil(output.Damage)
		s.Equal(7, output.Encounter.FindParticipant("p2").CurrentHitPoints)
	})

	s.Run("critical hit doubles the damage dice", func() {
		tough := goblin("p2", 12)
		tough.MaxHitPoints = 30
		tough.CurrentHitPoints = 30
		s.activeEncounter("enc_crit", fighter("p1", 18), tough)

		// natural 20, then 1d6+3 rolled as two dice: 4+5+3 = 12
		orch := s.newOrchestrator(testutils.NewScriptedRoller(20, 4, 5))

		output, err := orch.PerformAttack(s.ctx, &encounter.PerformAttackInput{
			EncounterID:      "enc_crit",
			AttackerID:       "p1",
			TargetID:         "p2",
			AttackBonus:      0,
			DamageExpression: "1d6+3",
		})
		s.Require().NoError(err)
		s.True(output.Hit)
		s.True(output.AttackRoll.Roll.Critical)
		s.Equal(12, output.DamageRoll.Total)
		s.Equal(18, output.Encounter.FindParticipant("p2").CurrentHitPoints)
	})

	s.Run("downed attacker cannot attack", func() {
		down := fighter("p1", 18)
		down.CurrentHitPoints = 0
		s.activeEncounter("enc_downed", down, goblin("p2", 12))

		orch := s.newOrchestrator(nil)
		_, err := orch.PerformAttack(s.ctx, &encounter.PerformAttackInput{
			EncounterID:      "enc_downed",
			AttackerID:       "p1",
			TargetID:         "p2",
			DamageExpression: "1d6",
		})
		s.Require().Error(err)
		s.True(errors.IsFailedPrecondition(err))
	})

	s.Run("requires an active encounter", func() {
		enc := &combat.CombatEncounter{
			ID:           "enc_setup_atk",
			SessionID:    "session_1",
			Status:       combat.EncounterStatusSetup,
			Participants: []combat.CombatParticipant{fighter("p1", 18), goblin("p2", 12)},
		}
		s.seedEncounter(enc)

		orch := s.newOrchestrator(nil)
		_, err := orch.PerformAttack(s.ctx, &encounter.PerformAttackInput{
			EncounterID:      "enc_setup_atk",
			AttackerID:       "p1",
			TargetID:         "p2",
			DamageExpression: "1d6",
		})
		s.Require().Error(err)
		s.True(errors.IsFailedPrecondition(err))
	})
}

func (s *OrchestratorTestSuite) TestApplyDamage() {
	s.Run("resistance halves the damage", func() {
		resistant := goblin("p2", 12)
		resistant.MaxHitPoints = 20
		resistant.CurrentHitPoints = 20
		resistant.DamageResistances = []combat.DamageType{combat.DamageTypeFire}
		s.activeEncounter("enc_res", fighter("p1", 18), resistant)

		orch := s.newOrchestrator(nil)
		output, err := orch.ApplyDamage(s.ctx, &encounter.ApplyDamageInput{
			EncounterID: "enc_res",
			TargetID:    "p2",
			Damage:      10,
			DamageType:  combat.DamageTypeFire,
		})
		s.Require().NoError(err)
		s.Equal(5, output.Damage.FinalDamage)
		s.True(output.Damage.WasResisted)
		s.Equal(15, output.Encounter.FindParticipant("p2").CurrentHitPoints)
	})

	s.Run("temporary HP absorbs first", func() {
		shielded := fighter("p1", 18)
		shielded.TemporaryHitPoints = 5
		s.activeEncounter("enc_temp", shielded, goblin("p2", 12))

		orch := s.newOrchestrator(nil)
		output, err := orch.ApplyDamage(s.ctx, &encounter.ApplyDamageInput{
			EncounterID: "enc_temp",
			TargetID:    "p1",
			Damage:      8,
		})
		s.Require().NoError(err)
		s.Equal(5, output.Damage.TempHPAbsorbed)
		s.Equal(3, output.Damage.HPDamage)

		p1 := output.Encounter.FindParticipant("p1")
		s.Equal(0, p1.TemporaryHitPoints)
		s.Equal(21, p1.CurrentHitPoints)
	})

	s.Run("massive damage to a downed target kills outright", func() {
		down := goblin("p2", 12)
		down.CurrentHitPoints = 0
		down.DeathSaves.Successes = 1
		down.Conditions = []combat.Condition{{Name: "unconscious", Source: "damage"}}
		s.activeEncounter("enc_massive", fighter("p1", 18), down)

		orch := s.newOrchestrator(nil)
		output, err := orch.ApplyDamage(s.ctx, &encounter.ApplyDamageInput{
			EncounterID: "enc_massive",
			TargetID:    "p2",
			Damage:      8, // excess 8 >= max HP 7
		})
		s.Require().NoError(err)
		s.True(output.TargetDied)

		// Death settles the record: three failures only, condition cleared
		corpse := output.Encounter.FindParticipant("p2")
		s.Equal(combat.DeathSaveState{Failures: 3}, corpse.DeathSaves)
		s.False(corpse.HasCondition("unconscious"))
	})

	s.Run("third failure from damage while down clears living state", func() {
		down := goblin("p2", 12)
		down.CurrentHitPoints = 0
		down.DeathSaves = combat.DeathSaveState{Successes: 2, Failures: 2}
		down.Conditions = []combat.Condition{{Name: "unconscious", Source: "damage"}}
		s.activeEncounter("enc_third", fighter("p1", 18), down)

		orch := s.newOrchestrator(nil)
		output, err := orch.ApplyDamage(s.ctx, &encounter.ApplyDamageInput{
			EncounterID: "enc_third",
			TargetID:    "p2",
			Damage:      2, // excess 2 < max HP 7, so a failure, not instant death
		})
		s.Require().NoError(err)
		s.True(output.TargetDied)

		corpse := output.Encounter.FindParticipant("p2")
		s.Equal(combat.DeathSaveState{Failures: 3}, corpse.DeathSaves)
		s.False(corpse.HasCondition("unconscious"))
	})

	s.Run("damage to a downed target adds a death save failure", func() {
		down := fighter("p1", 18)
		down.CurrentHitPoints = 0
		s.activeEncounter("enc_fail", down, goblin("p2", 12))

		orch := s.newOrchestrator(nil)
		output, err := orch.ApplyDamage(s.ctx, &encounter.ApplyDamageInput{
			EncounterID: "enc_fail",
			TargetID:    "p1",
			Damage:      5, // excess 5 < max HP 24
		})
		s.Require().NoError(err)
		s.False(output.TargetDied)
		s.Equal(1, output.Encounter.FindParticipant("p1").DeathSaves.Failures)
	})

	s.Run("dead targets are rejected", func() {
		dead := goblin("p2", 12)
		dead.CurrentHitPoints = 0
		dead.DeathSaves.Failures = 3
		s.activeEncounter("enc_dead", fighter("p1", 18), dead)

		orch := s.newOrchestrator(nil)
		_, err := orch.ApplyDamage(s.ctx, &encounter.ApplyDamageInput{
			EncounterID: "enc_dead",
			TargetID:    "p2",
			Damage:      5,
		})
		s.Require().Error(err)
		s.True(errors.IsFailedPrecondition(err))
	})

	s.Run("failed concentration save breaks the spell", func() {
		caster := fighter("p1", 18)
		caster.MaxHitPoints = 40
		caster.CurrentHitPoints = 40
		caster.ActiveConcentration = &combat.Concentration{SpellName: "bless"}
		s.activeEncounter("enc_conc", caster, goblin("p2", 12))

		// 22 damage -> DC 11; save rolls 8+2 = 10, fails
		orch := s.newOrchestrator(testutils.NewScriptedRoller(8))

		output, err := orch.ApplyDamage(s.ctx, &encounter.ApplyDamageInput{
			EncounterID:                 "enc_conc",
			TargetID:                    "p1",
			Damage:                      22,
			TargetConstitutionSaveBonus: 2,
		})
		s.Require().NoError(err)
		s.Require().NotNil(output.ConcentrationCheck)
		s.Equal(11, output.ConcentrationCheck.DC)
		s.False(output.ConcentrationCheck.Success)
		s.Nil(output.Encounter.FindParticipant("p1").ActiveConcentration)
	})

	s.Run("successful concentration save holds the spell", func() {
		caster := fighter("p1", 18)
		caster.MaxHitPoints = 40
		caster.CurrentHitPoints = 40
		caster.ActiveConcentration = &combat.Concentration{SpellName: "bless"}
		s.activeEncounter("enc_conc_ok", caster, goblin("p2", 12))

		// 22 damage -> DC 11; save rolls 15+2 = 17, succeeds
		orch := s.newOrchestrator(testutils.NewScriptedRoller(15))

		output, err := orch.ApplyDamage(s.ctx, &encounter.ApplyDamageInput{
			EncounterID:                 "enc_conc_ok",
			TargetID:                    "p1",
			Damage:                      22,
			TargetConstitutionSaveBonus: 2,
		})
		s.Require().NoError(err)
		s.True(output.ConcentrationCheck.Success)
		s.NotNil(output.Encounter.FindParticipant("p1").ActiveConcentration)
	})
}

func (s *OrchestratorTestSuite) TestHealParticipant() {
	s.Run("brings an unconscious participant back up", func() {
		down := fighter("p1", 18)
		down.CurrentHitPoints = 0
		down.DeathSaves = combat.DeathSaveState{Successes: 1, Failures: 2}
		down.Conditions = []combat.Condition{{Name: "unconscious", Source: "damage"}}
		s.activeEncounter("enc_revive", down, goblin("p2", 12))

		orch := s.newOrchestrator(nil)
		output, err := orch.HealParticipant(s.ctx, &encounter.HealParticipantInput{
			EncounterID: "enc_revive",
			TargetID:    "p1",
			Healing:     5,
		})
		s.Require().NoError(err)
		s.True(output.Regained)
		s.Equal(5, output.Healing.HealingApplied)

		p1 := output.Encounter.FindParticipant("p1")
		s.Equal(5, p1.CurrentHitPoints)
		s.Equal(combat.DeathSaveState{}, p1.DeathSaves)
		s.False(p1.HasCondition("unconscious"))
	})

	s.Run("clamps at max HP", func() {
		hurt := fighter("p1", 18)
		hurt.CurrentHitPoints = 20
		s.activeEncounter("enc_clamp", hurt, goblin("p2", 12))

		orch := s.newOrchestrator(nil)
		output, err := orch.HealParticipant(s.ctx, &encounter.HealParticipantInput{
			EncounterID: "enc_clamp",
			TargetID:    "p1",
			Healing:     10,
		})
		s.Require().NoError(err)
		s.False(output.Regained)
		s.Equal(4, output.Healing.HealingApplied)
		s.Equal(24, output.Encounter.FindParticipant("p1").CurrentHitPoints)
	})

	s.Run("the dead cannot be healed", func() {
		dead := goblin("p2", 12)
		dead.CurrentHitPoints = 0
		dead.DeathSaves.Failures = 3
		s.activeEncounter("enc_heal_dead", fighter("p1", 18), dead)

		orch := s.newOrchestrator(nil)
		_, err := orch.HealParticipant(s.ctx, &encounter.HealParticipantInput{
			EncounterID: "enc_heal_dead",
			TargetID:    "p2",
			Healing:     5,
		})
		s.Require().Error(err)
		s.True(errors.IsFailedPrecondition(err))
	})
}

func (s *OrchestratorTestSuite) TestApplyTemporaryHP() {
	s.activeEncounter("enc_temp_hp", fighter("p1", 18))
	orch := s.newOrchestrator(nil)

	output, err := orch.ApplyTemporaryHP(s.ctx, &encounter.ApplyTemporaryHPInput{
		EncounterID: "enc_temp_hp",
		TargetID:    "p1",
		Amount:      8,
	})
	s.Require().NoError(err)
	s.Equal(8, output.NewTemporaryHP)

	// A smaller grant never replaces a larger pool
	output, err = orch.ApplyTemporaryHP(s.ctx, &encounter.ApplyTemporaryHPInput{
		EncounterID: "enc_temp_hp",
		TargetID:    "p1",
		Amount:      5,
	})
	s.Require().NoError(err)
	s.Equal(8, output.NewTemporaryHP)

	output, err = orch.ApplyTemporaryHP(s.ctx, &encounter.ApplyTemporaryHPInput{
		EncounterID: "enc_temp_hp",
		TargetID:    "p1",
		Amount:      10,
	})
	s.Require().NoError(err)
	s.Equal(10, output.NewTemporaryHP)
}

func (s *OrchestratorTestSuite) TestConditions() {
	s.activeEncounter("enc_cond", fighter("p1", 18))
	orch := s.newOrchestrator(nil)

	output, err := orch.AddCondition(s.ctx, &encounter.AddConditionInput{
		EncounterID: "enc_cond",
		TargetID:    "p1",
		Condition:   combat.Condition{Name: "poisoned", Duration: 3},
	})
	s.Require().NoError(err)
	s.True(output.Participant.HasCondition("poisoned"))

	// Reapplying replaces the existing instance
	output, err = orch.AddCondition(s.ctx, &encounter.AddConditionInput{
		EncounterID: "enc_cond",
		TargetID:    "p1",
		Condition:   combat.Condition{Name: "poisoned", Duration: 10},
	})
	s.Require().NoError(err)
	s.Require().Len(output.Participant.Conditions, 1)
	s.Equal(10, output.Participant.Conditions[0].Duration)

	removed, err := orch.RemoveCondition(s.ctx, &encounter.RemoveConditionInput{
		EncounterID:   "enc_cond",
		TargetID:      "p1",
		ConditionName: "poisoned",
	})
	s.Require().NoError(err)
	s.False(removed.Participant.HasCondition("poisoned"))
}

func (s *OrchestratorTestSuite) TestRollDeathSave() {
	dying := func(id string) combat.CombatParticipant {
		p := fighter(id, 18)
		p.CurrentHitPoints = 0
		p.Conditions = []combat.Condition{{Name: "unconscious", Source: "damage"}}
		return p
	}

	s.Run("natural 20 revives at 1 HP", func() {
		s.activeEncounter("enc_ds_20", goblin("p2", 20), dying("p1"))
		orch := s.newOrchestrator(testutils.NewScriptedRoller(20))

		output, err := orch.RollDeathSave(s.ctx, &encounter.RollDeathSaveInput{
			EncounterID:   "enc_ds_20",
			ParticipantID: "p1",
		})
		s.Require().NoError(err)
		s.True(output.Revived)

		p1 := output.Encounter.FindParticipant("p1")
		s.Equal(1, p1.CurrentHitPoints)
		s.False(p1.HasCondition("unconscious"))
	})

	s.Run("natural 1 counts as two failures", func() {
		s.activeEncounter("enc_ds_1", goblin("p2", 20), dying("p1"))
		orch := s.newOrchestrator(testutils.NewScriptedRoller(1))

		output, err := orch.RollDeathSave(s.ctx, &encounter.RollDeathSaveInput{
			EncounterID:   "enc_ds_1",
			ParticipantID: "p1",
		})
		s.Require().NoError(err)
		s.False(output.Success)
		s.Equal(2, output.Failures)
	})

	s.Run("10 or more is a success", func() {
		s.activeEncounter("enc_ds_ok", goblin("p2", 20), dying("p1"))
		orch := s.newOrchestrator(testutils.NewScriptedRoller(12))

		output, err := orch.RollDeathSave(s.ctx, &encounter.RollDeathSaveInput{
			EncounterID:   "enc_ds_ok",
			ParticipantID: "p1",
		})
		s.Require().NoError(err)
		s.True(output.Success)
		s.Equal(1, output.Successes)
	})

	s.Run("third failure kills and the fight can end", func() {
		doomed := dying("p1")
		doomed.DeathSaves.Failures = 2
		s.activeEncounter("enc_ds_dead", goblin("p2", 20), doomed)
		orch := s.newOrchestrator(testutils.NewScriptedRoller(4))

		output, err := orch.RollDeathSave(s.ctx, &encounter.RollDeathSaveInput{
			EncounterID:   "enc_ds_dead",
			ParticipantID: "p1",
		})
		s.Require().NoError(err)
		s.True(output.Died)
		s.Equal(3, output.Failures)

		corpse := output.Encounter.FindParticipant("p1")
		s.Equal(combat.DeathSaveState{Failures: 3}, corpse.DeathSaves)
		s.False(corpse.HasCondition("unconscious"))

		// The only player is dead, so combat is over
		s.True(output.CombatEnded)
		s.Equal(combat.EncounterStatusCompleted, output.Encounter.Status)
	})

	s.Run("conscious participants are misuse", func() {
		s.activeEncounter("enc_ds_up", fighter("p1", 18), goblin("p2", 12))
		orch := s.newOrchestrator(nil)

		_, err := orch.RollDeathSave(s.ctx, &encounter.RollDeathSaveInput{
			EncounterID:   "enc_ds_up",
			ParticipantID: "p1",
		})
		s.Require().Error(err)
		s.True(errors.IsFailedPrecondition(err))
	})
}

func (s *OrchestratorTestSuite) TestStabilizeParticipant() {
	s.Run("stabilizes a dying participant", func() {
		down := fighter("p1", 18)
		down.CurrentHitPoints = 0
		down.DeathSaves = combat.DeathSaveState{Successes: 1, Failures: 2}
		s.activeEncounter("enc_stab", down, goblin("p2", 12))

		orch := s.newOrchestrator(nil)
		output, err := orch.StabilizeParticipant(s.ctx, &encounter.StabilizeParticipantInput{
			EncounterID:   "enc_stab",
			ParticipantID: "p1",
		})
		s.Require().NoError(err)
		s.True(output.Participant.DeathSaves.IsStable)
		s.Equal(0, output.Participant.CurrentHitPoints, "stabilizing restores no HP")
	})

	s.Run("conscious participants are not dying", func() {
		s.activeEncounter("enc_stab_up", fighter("p1", 18))

		orch := s.newOrchestrator(nil)
		_, err := orch.StabilizeParticipant(s.ctx, &encounter.StabilizeParticipantInput{
			EncounterID:   "enc_stab_up",
			ParticipantID: "p1",
		})
		s.Require().Error(err)
		s.True(errors.IsFailedPrecondition(err))
	})
}

func (s *OrchestratorTestSuite) TestRollSavingThrow() {
	s.activeEncounter("enc_save", fighter("p1", 18))

	s.Run("meets the DC", func() {
		orch := s.newOrchestrator(testutils.NewScriptedRoller(12))
		output, err := orch.RollSavingThrow(s.ctx, &encounter.RollSavingThrowInput{
			EncounterID:   "enc_save",
			ParticipantID: "p1",
			Bonus:         3,
			DC:            15,
		})
		s.Require().NoError(err)
		s.True(output.Result.Success)
		s.Equal(15, output.Result.Roll.Total)
	})

	s.Run("falls short of the DC", func() {
		orch := s.newOrchestrator(testutils.NewScriptedRoller(12))
		output, err := orch.RollSavingThrow(s.ctx, &encounter.RollSavingThrowInput{
			EncounterID:   "enc_save",
			ParticipantID: "p1",
			Bonus:         3,
			DC:            16,
		})
		s.Require().NoError(err)
		s.False(output.Result.Success)
	})

	s.Run("unknown participant", func() {
		orch := s.newOrchestrator(nil)
		_, err := orch.RollSavingThrow(s.ctx, &encounter.RollSavingThrowInput{
			EncounterID:   "enc_save",
			ParticipantID: "p404",
			DC:            10,
		})
		s.Require().Error(err)
		s.True(errors.IsNotFound(err))
	})
}
