package encounters_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
	"github.com/forgekeep/encounter-api/internal/pkg/clock"
	encounters "github.com/forgekeep/encounter-api/internal/repositories/encounters"
	"github.com/forgekeep/encounter-api/internal/testutils"
)

const (
	testEncounterID = "enc_123"
	testSessionID   = "session_456"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	repo    encounters.Repository
	now     time.Time
	cleanup func()
	ctx     context.Context
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	repo, err := encounters.NewRedis(&encounters.RedisConfig{
		Client: client,
		Clock:  &clock.Fixed{T: s.now},
	})
	s.Require().NoError(err)
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *RedisRepositoryTestSuite) testEncounter() *combat.CombatEncounter {
	return &combat.CombatEncounter{
		ID:        testEncounterID,
		SessionID: testSessionID,
		Name:      "Goblin Ambush",
		Status:    combat.EncounterStatusSetup,
		Participants: []combat.CombatParticipant{
			{
				ID:               "part_1",
				Name:             "Thorin",
				Type:             combat.ParticipantTypePlayer,
				CharacterID:      "char_789",
				MaxHitPoints:     24,
				CurrentHitPoints: 24,
				ArmorClass:       16,
				Speed:            30,
			},
			{
				ID:               "part_2",
				Name:             "Goblin 1",
				Type:             combat.ParticipantTypeMonster,
				MonsterRef:       "goblin",
				MaxHitPoints:     7,
				CurrentHitPoints: 7,
				ArmorClass:       15,
				Speed:            30,
			},
		},
	}
}

func (s *RedisRepositoryTestSuite) TestCreate() {
	s.Run("successful create", func() {
		enc := s.testEncounter()

		output, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
		s.Require().NoError(err)
		s.Require().NotNil(output)
		s.Equal(testEncounterID, output.Encounter.ID)
		s.True(output.Encounter.CreatedAt.Equal(s.now), "create should stamp CreatedAt")

		got, err := s.repo.Get(s.ctx, encounters.GetInput{ID: testEncounterID})
		s.Require().NoError(err)
		s.Equal("Goblin Ambush", got.Encounter.Name)
		s.Len(got.Encounter.Participants, 2)
		s.Equal("goblin", got.Encounter.Participants[1].MonsterRef)
	})

	s.Run("duplicate ID returns already exists", func() {
		enc := s.testEncounter()
		_, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
		s.Require().Error(err)
		s.True(errors.IsAlreadyExists(err))
	})

	s.Run("nil encounter returns invalid argument", func() {
		_, err := s.repo.Create(s.ctx, encounters.CreateInput{})
		s.Require().Error(err)
		s.True(errors.IsInvalidArgument(err))
	})

	s.Run("empty ID returns invalid argument", func() {
		_, err := s.repo.Create(s.ctx, encounters.CreateInput{
			Encounter: &combat.CombatEncounter{SessionID: testSessionID},
		})
		s.Require().Error(err)
		s.True(errors.IsInvalidArgument(err))
	})

	s.Run("preserves caller supplied CreatedAt", func() {
		created := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
		enc := s.testEncounter()
		enc.ID = "enc_timestamped"
		enc.CreatedAt = created

		output, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
		s.Require().NoError(err)
		s.True(output.Encounter.CreatedAt.Equal(created))
	})
}

func (s *RedisRepositoryTestSuite) TestGet() {
	s.Run("missing encounter returns not found", func() {
		_, err := s.repo.Get(s.ctx, encounters.GetInput{ID: "enc_missing"})
		s.Require().Error(err)
		s.True(errors.IsNotFound(err))
	})

	s.Run("empty ID returns invalid argument", func() {
		_, err := s.repo.Get(s.ctx, encounters.GetInput{})
		s.Require().Error(err)
		s.True(errors.IsInvalidArgument(err))
	})

	s.Run("round trips combat state", func() {
		started := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
		enc := s.testEncounter()
		enc.Status = combat.EncounterStatusActive
		enc.Round = 3
		enc.CurrentTurnParticipantID = "part_2"
		enc.StartedAt = &started
		enc.CombatLog = []string{"Thorin hits Goblin 1 for 8 damage"}
		enc.Participants[1].CurrentHitPoints = 0
		enc.Participants[1].Conditions = []combat.Condition{
			{Name: "unconscious", Duration: -1},
		}

		_, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
		s.Require().NoError(err)

		got, err := s.repo.Get(s.ctx, encounters.GetInput{ID: testEncounterID})
		s.Require().NoError(err)
		s.Equal(combat.EncounterStatusActive, got.Encounter.Status)
		s.Equal(3, got.Encounter.Round)
		s.Equal("part_2", got.Encounter.CurrentTurnParticipantID)
		s.Require().NotNil(got.Encounter.StartedAt)
		s.True(got.Encounter.StartedAt.Equal(started))
		s.Equal([]string{"Thorin hits Goblin 1 for 8 damage"}, got.Encounter.CombatLog)
		s.Equal(0, got.Encounter.Participants[1].CurrentHitPoints)
		s.Require().Len(got.Encounter.Participants[1].Conditions, 1)
		s.Equal("unconscious", got.Encounter.Participants[1].Conditions[0].Name)
	})
}

func (s *RedisRepositoryTestSuite) TestUpdate() {
	s.Run("missing encounter returns not found", func() {
		_, err := s.repo.Update(s.ctx, encounters.UpdateInput{Encounter: s.testEncounter()})
		s.Require().Error(err)
		s.True(errors.IsNotFound(err))
	})

	s.Run("replaces stored state", func() {
		enc := s.testEncounter()
		_, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
		s.Require().NoError(err)

		updated := enc.Clone()
		updated.Status = combat.EncounterStatusActive
		updated.Round = 1
		updated.Participants[0].Initiative = 18

		_, err = s.repo.Update(s.ctx, encounters.UpdateInput{Encounter: updated})
		s.Require().NoError(err)

		got, err := s.repo.Get(s.ctx, encounters.GetInput{ID: testEncounterID})
		s.Require().NoError(err)
		s.Equal(combat.EncounterStatusActive, got.Encounter.Status)
		s.Equal(18, got.Encounter.Participants[0].Initiative)
	})

	s.Run("moves session index when session changes", func() {
		enc := s.testEncounter()
		enc.ID = "enc_moving"
		_, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
		s.Require().NoError(err)

		moved := enc.Clone()
		moved.SessionID = "session_999"
		_, err = s.repo.Update(s.ctx, encounters.UpdateInput{Encounter: moved})
		s.Require().NoError(err)

		oldList, err := s.repo.ListBySessionID(s.ctx, encounters.ListBySessionIDInput{
			SessionID: testSessionID,
		})
		s.Require().NoError(err)
		for _, e := range oldList.Encounters {
			s.NotEqual("enc_moving", e.ID)
		}

		newList, err := s.repo.ListBySessionID(s.ctx, encounters.ListBySessionIDInput{
			SessionID: "session_999",
		})
		s.Require().NoError(err)
		s.Require().Len(newList.Encounters, 1)
		s.Equal("enc_moving", newList.Encounters[0].ID)
	})
}

func (s *RedisRepositoryTestSuite) TestDelete() {
	s.Run("missing encounter returns not found", func() {
		_, err := s.repo.Delete(s.ctx, encounters.DeleteInput{ID: "enc_missing"})
		s.Require().Error(err)
		s.True(errors.IsNotFound(err))
	})

	s.Run("removes encounter and session index entry", func() {
		enc := s.testEncounter()
		_, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
		s.Require().NoError(err)

		_, err = s.repo.Delete(s.ctx, encounters.DeleteInput{ID: testEncounterID})
		s.Require().NoError(err)

		_, err = s.repo.Get(s.ctx, encounters.GetInput{ID: testEncounterID})
		s.True(errors.IsNotFound(err))

		list, err := s.repo.ListBySessionID(s.ctx, encounters.ListBySessionIDInput{
			SessionID: testSessionID,
		})
		s.Require().NoError(err)
		s.Empty(list.Encounters)
	})
}

func (s *RedisRepositoryTestSuite) TestListBySessionID() {
	s.Run("empty session ID returns invalid argument", func() {
		_, err := s.repo.ListBySessionID(s.ctx, encounters.ListBySessionIDInput{})
		s.Require().Error(err)
		s.True(errors.IsInvalidArgument(err))
	})

	s.Run("empty session returns no encounters", func() {
		output, err := s.repo.ListBySessionID(s.ctx, encounters.ListBySessionIDInput{
			SessionID: "session_empty",
		})
		s.Require().NoError(err)
		s.Empty(output.Encounters)
	})

	s.Run("returns only the session's encounters", func() {
		first := s.testEncounter()
		second := s.testEncounter()
		second.ID = "enc_456"
		other := s.testEncounter()
		other.ID = "enc_other"
		other.SessionID = "session_other"

		for _, enc := range []*combat.CombatEncounter{first, second, other} {
			_, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
			s.Require().NoError(err)
		}

		output, err := s.repo.ListBySessionID(s.ctx, encounters.ListBySessionIDInput{
			SessionID: testSessionID,
		})
		s.Require().NoError(err)
		s.Len(output.Encounters, 2)
		for _, enc := range output.Encounters {
			s.Equal(testSessionID, enc.SessionID)
		}
	})
}

func (s *RedisRepositoryTestSuite) TestGetActiveBySessionID() {
	s.Run("no encounters returns not found", func() {
		_, err := s.repo.GetActiveBySessionID(s.ctx, encounters.GetActiveBySessionIDInput{
			SessionID: "session_empty",
		})
		s.Require().Error(err)
		s.True(errors.IsNotFound(err))
	})

	s.Run("skips completed encounters", func() {
		done := s.testEncounter()
		done.ID = "enc_done"
		done.Status = combat.EncounterStatusCompleted
		live := s.testEncounter()
		live.ID = "enc_live"
		live.Status = combat.EncounterStatusActive

		for _, enc := range []*combat.CombatEncounter{done, live} {
			_, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
			s.Require().NoError(err)
		}

		output, err := s.repo.GetActiveBySessionID(s.ctx, encounters.GetActiveBySessionIDInput{
			SessionID: testSessionID,
		})
		s.Require().NoError(err)
		s.Equal("enc_live", output.Encounter.ID)
	})

	s.Run("all completed returns not found", func() {
		enc := s.testEncounter()
		enc.ID = "enc_finished"
		enc.SessionID = "session_finished"
		enc.Status = combat.EncounterStatusCompleted
		_, err := s.repo.Create(s.ctx, encounters.CreateInput{Encounter: enc})
		s.Require().NoError(err)

		_, err = s.repo.GetActiveBySessionID(s.ctx, encounters.GetActiveBySessionIDInput{
			SessionID: "session_finished",
		})
		s.Require().Error(err)
		s.True(errors.IsNotFound(err))
	})
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}
