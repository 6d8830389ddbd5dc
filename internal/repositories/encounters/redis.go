package encounters

import (
	"context"
	"encoding/json"
	"log/slog"

	redis "github.com/redis/go-redis/v9"

	"github.com/forgekeep/encounter-api/internal/entities/combat"
	"github.com/forgekeep/encounter-api/internal/errors"
	"github.com/forgekeep/encounter-api/internal/pkg/clock"
	redisclient "github.com/forgekeep/encounter-api/internal/redis"
)

const (
	encounterKeyPrefix = "encounter:"
	sessionIndexPrefix = "encounter:session:"

	// Error messages
	errEncounterNil     = "encounter cannot be nil"
	errEncounterIDEmpty = "encounter ID cannot be empty"
	errSessionIDEmpty   = "session ID cannot be empty"
)

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
}

// RedisConfig contains configuration for the Redis encounter repository.
type RedisConfig struct {
	Client redisclient.Client
	Clock  clock.Clock
}

// Validate validates the RedisConfig.
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	return nil
}

// NewRedis creates a new Redis-backed encounter repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  c,
	}, nil
}

func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if input.Encounter == nil {
		return nil, errors.InvalidArgument(errEncounterNil)
	}
	if input.Encounter.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	key := encounterKeyPrefix + input.Encounter.ID

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check existence")
	}

	if exists > 0 {
		return nil, errors.AlreadyExistsf("encounter with ID %s already exists", input.Encounter.ID)
	}

	enc := input.Encounter
	if enc.CreatedAt.IsZero() {
		enc.CreatedAt = r.clock.Now()
	}

	data, err := json.Marshal(enc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal encounter")
	}

	pipe := r.client.TxPipeline()

	pipe.Set(ctx, key, data, 0) // encounters live until deleted

	if enc.SessionID != "" {
		sessionKey := sessionIndexPrefix + enc.SessionID
		pipe.SAdd(ctx, sessionKey, enc.ID)
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create encounter")
	}

	return &CreateOutput{Encounter: enc}, nil
}

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	key := encounterKeyPrefix + input.ID
	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get encounter")
	}

	var enc combat.CombatEncounter
	if err := json.Unmarshal([]byte(result), &enc); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal encounter")
	}

	return &GetOutput{Encounter: &enc}, nil
}

func (r *redisRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	if input.Encounter == nil {
		return nil, errors.InvalidArgument(errEncounterNil)
	}
	if input.Encounter.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	key := encounterKeyPrefix + input.Encounter.ID

	// Fetch existing to detect session moves
	existing, err := r.Get(ctx, GetInput{ID: input.Encounter.ID})
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(input.Encounter)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal encounter")
	}

	pipe := r.client.TxPipeline()

	pipe.Set(ctx, key, data, 0)

	if existing.Encounter.SessionID != input.Encounter.SessionID {
		if existing.Encounter.SessionID != "" {
			pipe.SRem(ctx, sessionIndexPrefix+existing.Encounter.SessionID, input.Encounter.ID)
		}
		if input.Encounter.SessionID != "" {
			pipe.SAdd(ctx, sessionIndexPrefix+input.Encounter.SessionID, input.Encounter.ID)
		}
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update encounter")
	}

	return &UpdateOutput{Encounter: input.Encounter}, nil
}

func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	getOutput, err := r.Get(ctx, GetInput(input))
	if err != nil {
		return nil, err
	}
	enc := getOutput.Encounter

	pipe := r.client.TxPipeline()

	pipe.Del(ctx, encounterKeyPrefix+input.ID)

	if enc.SessionID != "" {
		pipe.SRem(ctx, sessionIndexPrefix+enc.SessionID, input.ID)
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to delete encounter")
	}

	return &DeleteOutput{}, nil
}

func (r *redisRepository) ListBySessionID(
	ctx context.Context,
	input ListBySessionIDInput,
) (*ListBySessionIDOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	indexKey := sessionIndexPrefix + input.SessionID

	encounterIDs, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get encounters from index %s", indexKey)
	}

	encs := make([]*combat.CombatEncounter, 0, len(encounterIDs))
	for _, id := range encounterIDs {
		getOutput, err := r.Get(ctx, GetInput{ID: id})
		if err != nil {
			// Stale index entry, clean it up and keep going
			if errors.IsNotFound(err) {
				slog.WarnContext(ctx, "encounter not found, cleaning up index",
					"encounter_id", id,
					"index_key", indexKey)
				r.client.SRem(ctx, indexKey, id)
				continue
			}
			return nil, errors.Wrapf(err, "failed to get encounter %s", id)
		}
		encs = append(encs, getOutput.Encounter)
	}

	slog.DebugContext(ctx, "listed encounters by session",
		"session_id", input.SessionID,
		"count", len(encs))

	return &ListBySessionIDOutput{Encounters: encs}, nil
}

func (r *redisRepository) GetActiveBySessionID(
	ctx context.Context,
	input GetActiveBySessionIDInput,
) (*GetActiveBySessionIDOutput, error) {
	listOutput, err := r.ListBySessionID(ctx, ListBySessionIDInput(input))
	if err != nil {
		return nil, err
	}

	for _, enc := range listOutput.Encounters {
		if enc.Status != combat.EncounterStatusCompleted {
			return &GetActiveBySessionIDOutput{Encounter: enc}, nil
		}
	}

	return nil, errors.NotFoundf("no active encounter for session %s", input.SessionID)
}
