// Package external is the location for the dnd5e-api client
package external

//go:generate mockgen -destination=mock/mock_client.go -package=externalmock github.com/forgekeep/encounter-api/internal/clients/external Client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fadedpez/dnd5e-api/clients/dnd5e"

	"github.com/forgekeep/encounter-api/internal/errors"
)

// Client defines the interface for external API interactions. The encounter
// engine keeps monster stat blocks in its own inputs; this client validates
// monster keys and serves reference lists.
type Client interface {
	// ListAvailableMonsters returns all monsters the API knows about
	ListAvailableMonsters(ctx context.Context) ([]*MonsterRef, error)

	// VerifyMonster checks that a monster key exists in the API
	VerifyMonster(ctx context.Context, monsterKey string) error

	// ListDamageTypes returns the damage types the API knows about
	ListDamageTypes(ctx context.Context) ([]*DamageTypeRef, error)
}

type client struct {
	dnd5eClient dnd5e.Interface
}

// Config contains configuration options for the external client.
type Config struct {
	// BaseURL for the D&D 5e API (optional, defaults to https://www.dnd5eapi.co/api/2014/)
	BaseURL string
	// HTTPTimeout for API requests (optional, defaults to 30 seconds)
	HTTPTimeout time.Duration
	// CacheTTL for the cached client (optional, defaults to 24 hours)
	CacheTTL time.Duration
}

// Validate validates the Config and sets defaults if not provided.
func (cfg *Config) Validate() error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.dnd5eapi.co/api/2014/"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return nil
}

// New creates a new external client with the given configuration.
func New(cfg *Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	baseClient, err := dnd5e.NewDND5eAPI(&dnd5e.DND5eAPIConfig{
		Client:  httpClient,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create D&D 5e API client: %w", err)
	}

	// Monster and damage type reference data changes rarely, cache it
	cachedClient := dnd5e.NewCachedClient(baseClient, cfg.CacheTTL)

	return &client{
		dnd5eClient: cachedClient,
	}, nil
}

func (c *client) ListAvailableMonsters(_ context.Context) ([]*MonsterRef, error) {
	slog.Info("Calling D&D 5e API to list monsters")
	refs, err := c.dnd5eClient.ListMonsters()
	if err != nil {
		return nil, fmt.Errorf("failed to list monsters from D&D 5e API: %w", err)
	}
	slog.Debug("Got monster references", "count", len(refs))

	monsters := make([]*MonsterRef, len(refs))
	for i, ref := range refs {
		monsters[i] = &MonsterRef{
			Key:  ref.Key,
			Name: ref.Name,
		}
	}

	return monsters, nil
}

func (c *client) VerifyMonster(_ context.Context, monsterKey string) error {
	if monsterKey == "" {
		return errors.InvalidArgument("monster key is required")
	}

	if _, err := c.dnd5eClient.GetMonster(monsterKey); err != nil {
		return errors.WrapWithCodef(err, errors.CodeNotFound,
			"monster %s not found in D&D 5e API", monsterKey)
	}

	return nil
}

func (c *client) ListDamageTypes(_ context.Context) ([]*DamageTypeRef, error) {
	refs, err := c.dnd5eClient.ListDamageTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to list damage types from D&D 5e API: %w", err)
	}

	damageTypes := make([]*DamageTypeRef, len(refs))
	for i, ref := range refs {
		damageTypes[i] = &DamageTypeRef{
			Key:  ref.Key,
			Name: ref.Name,
		}
	}

	return damageTypes, nil
}
