package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/forgekeep/encounter-api/internal/clients/external"
	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
	"github.com/forgekeep/encounter-api/internal/orchestrators/encounter"
	"github.com/forgekeep/encounter-api/internal/pkg/idgen"
	"github.com/forgekeep/encounter-api/internal/repositories/encounters"
)

var simMaxRounds int

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted encounter end-to-end",
	Long:  `Run a goblin ambush against the in-memory repository: two players, two goblins, real dice, no network.`,
	RunE:  runSimulation,
}

func init() {
	simulateCmd.Flags().IntVar(&simMaxRounds, "max-rounds", 10, "call the encounter after this many rounds")
}

// offlineCatalog satisfies external.Client from a fixed monster list so the
// simulation never touches the SRD API.
type offlineCatalog struct{}

func (offlineCatalog) ListAvailableMonsters(_ context.Context) ([]*external.MonsterRef, error) {
	return []*external.MonsterRef{
		{Key: "goblin", Name: "Goblin"},
		{Key: "orc", Name: "Orc"},
		{Key: "wolf", Name: "Wolf"},
	}, nil
}

func (c offlineCatalog) VerifyMonster(ctx context.Context, monsterKey string) error {
	monsters, _ := c.ListAvailableMonsters(ctx)
	for _, m := range monsters {
		if m.Key == monsterKey {
			return nil
		}
	}
	return errors.NotFoundf("monster %s not in the offline catalog", monsterKey)
}

func (offlineCatalog) ListDamageTypes(_ context.Context) ([]*external.DamageTypeRef, error) {
	return []*external.DamageTypeRef{
		{Key: "slashing", Name: "Slashing"},
		{Key: "piercing", Name: "Piercing"},
	}, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := encounter.New(&encounter.Config{
		Repository:             encounters.NewInMemory(),
		ExternalClient:         offlineCatalog{},
		IDGenerator:            idgen.NewPrefixed("enc"),
		ParticipantIDGenerator: idgen.NewPrefixed("part"),
	})
	if err != nil {
		return err
	}

	created, err := svc.CreateEncounter(ctx, &encounter.CreateEncounterInput{
		SessionID: "simulation",
		Name:      "Goblin Ambush",
	})
	if err != nil {
		return err
	}
	encounterID := created.Encounter.ID

	for _, p := range []*encounter.AddPlayerInput{
		{EncounterID: encounterID, CharacterID: "char_branwen", Name: "Branwen", Class: "fighter", Level: 3,
			MaxHitPoints: intp(28), ArmorClass: intp(17), InitiativeModifier: intp(2)},
		{EncounterID: encounterID, CharacterID: "char_sorrel", Name: "Sorrel", Class: "cleric", Level: 3,
			MaxHitPoints: intp(21), ArmorClass: intp(16), InitiativeModifier: intp(0)},
	} {
		if _, err := svc.AddPlayer(ctx, p); err != nil {
			return err
		}
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.AddMonster(ctx, &encounter.AddMonsterInput{
			EncounterID:        encounterID,
			MonsterRef:         "goblin",
			Name:               fmt.Sprintf("Goblin %d", i+1),
			ChallengeRating:    0.25,
			XP:                 50,
			MaxHitPoints:       intp(7),
			ArmorClass:         intp(15),
			InitiativeModifier: intp(2),
		}); err != nil {
			return err
		}
	}

	if _, err := svc.RollInitiative(ctx, &encounter.RollInitiativeInput{EncounterID: encounterID}); err != nil {
		return err
	}
	started, err := svc.StartEncounter(ctx, &encounter.StartEncounterInput{EncounterID: encounterID})
	if err != nil {
		return err
	}
	slog.Info("combat started", "first", started.FirstParticipantID)

	for {
		current, err := svc.GetEncounter(ctx, &encounter.GetEncounterInput{EncounterID: encounterID})
		if err != nil {
			return err
		}
		enc := current.Encounter
		if !enc.IsActive() {
			break
		}
		if enc.Round > simMaxRounds {
			if _, err := svc.EndEncounter(ctx, &encounter.EndEncounterInput{EncounterID: encounterID}); err != nil {
				return err
			}
			slog.Info("round cap reached, calling the encounter", "rounds", simMaxRounds)
			break
		}

		if ended, err := takeTurn(ctx, svc, enc); err != nil {
			return err
		} else if ended {
			break
		}

		next, err := svc.NextTurn(ctx, &encounter.NextTurnInput{EncounterID: encounterID})
		if err != nil {
			return err
		}
		if next.CombatEnded {
			slog.Info("combat over", "reason", next.EndReason)
			break
		}

		// Dying players fight for their lives at the top of each round
		if next.RoundAdvanced {
			if ended, err := rollDeathSaves(ctx, svc, next.Encounter); err != nil {
				return err
			} else if ended {
				break
			}
		}
	}

	final, err := svc.GetEncounter(ctx, &encounter.GetEncounterInput{EncounterID: encounterID})
	if err != nil {
		return err
	}
	fmt.Printf("\n%s — %s after %d round(s)\n", final.Encounter.Name, final.Encounter.Status, final.Encounter.Round)
	for _, entry := range final.Encounter.CombatLog {
		fmt.Println("  " + entry)
	}
	return nil
}

// rollDeathSaves rolls for every dying player in the encounter.
func rollDeathSaves(ctx context.Context, svc encounter.Service, enc *combat.CombatEncounter) (bool, error) {
	for i := range enc.Participants {
		p := enc.Participants[i]
		if p.Type != combat.ParticipantTypePlayer || !p.IsUnconscious() || p.DeathSaves.IsStable {
			continue
		}
		output, err := svc.RollDeathSave(ctx, &encounter.RollDeathSaveInput{
			EncounterID:   enc.ID,
			ParticipantID: p.ID,
		})
		if err != nil {
			return false, err
		}
		slog.Info("death save", "participant", p.Name, "roll", output.Roll.Total,
			"successes", output.Successes, "failures", output.Failures)
		if output.CombatEnded {
			return true, nil
		}
	}
	return false, nil
}

// takeTurn swings the current participant at the first standing opponent.
func takeTurn(ctx context.Context, svc encounter.Service, enc *combat.CombatEncounter) (bool, error) {
	actor := enc.CurrentParticipant()
	if actor == nil {
		return false, nil
	}

	target := pickTarget(enc, actor)
	if target == nil {
		return false, nil
	}

	attack := &encounter.PerformAttackInput{
		EncounterID:      enc.ID,
		AttackerID:       actor.ID,
		TargetID:         target.ID,
		AttackBonus:      4,
		DamageExpression: "1d6+2",
		DamageType:       combat.DamageTypePiercing,
	}
	if actor.Type == combat.ParticipantTypePlayer {
		attack.AttackBonus = 5
		attack.DamageExpression = "1d8+3"
		attack.DamageType = combat.DamageTypeSlashing
	}

	output, err := svc.PerformAttack(ctx, attack)
	if err != nil {
		return false, err
	}
	if output.Hit {
		slog.Info("attack hits", "attacker", actor.Name, "target", target.Name,
			"damage", output.Damage.FinalDamage, "target_hp", output.Damage.NewCurrentHP)
	} else {
		slog.Info("attack misses", "attacker", actor.Name, "target", target.Name,
			"rolled", output.AttackRoll.Roll.Total)
	}
	return output.CombatEnded, nil
}

// pickTarget returns the first standing participant on the other side of the
// fight, or nil when nobody is left to swing at.
func pickTarget(enc *combat.CombatEncounter, actor *combat.CombatParticipant) *combat.CombatParticipant {
	actorIsPlayer := actor.Type == combat.ParticipantTypePlayer
	for i := range enc.Participants {
		p := &enc.Participants[i]
		if p.ID == actor.ID || !p.IsAlive() {
			continue
		}
		targetIsPlayer := p.Type == combat.ParticipantTypePlayer
		if targetIsPlayer != actorIsPlayer {
			return p
		}
	}
	return nil
}

func intp(v int) *int {
	return &v
}
