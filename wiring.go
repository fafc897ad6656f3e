package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	leadx "github.com/inmobot/inmobot/bot/lead"
	nodex "github.com/inmobot/inmobot/bot/nodes/dialogue"
	promptx "github.com/inmobot/inmobot/bot/prompt"
	statex "github.com/inmobot/inmobot/bot/state"
	configx "github.com/inmobot/inmobot/pkg/config"
	"github.com/inmobot/inmobot/pkg/qstash"
	"github.com/rs/zerolog/log"
)

const (
	backendSupabase = "supabase"
	backendPostgres = "postgres"
	backendMemory   = "memory"
	backendUpstash  = "upstash"
)

// StorageConfig selects the lead and session backends.
type StorageConfig struct {
	LeadStoreBackend    string `envconfig:"LEAD_STORE_BACKEND" default:"supabase"`
	SessionStoreBackend string `envconfig:"SESSION_STORE_BACKEND" default:"memory"`
}

func (c *StorageConfig) Validate() error {
	c.LeadStoreBackend = strings.ToLower(strings.TrimSpace(c.LeadStoreBackend))
	c.SessionStoreBackend = strings.ToLower(strings.TrimSpace(c.SessionStoreBackend))

	switch c.LeadStoreBackend {
	case backendSupabase, backendPostgres:
	default:
		return fmt.Errorf("unknown lead store backend %q", c.LeadStoreBackend)
	}
	switch c.SessionStoreBackend {
	case backendMemory, backendUpstash:
	default:
		return fmt.Errorf("unknown session store backend %q", c.SessionStoreBackend)
	}
	return nil
}

func buildLeadStore(ctx context.Context, storage StorageConfig) (leadx.Store, func(), error) {
	if storage.LeadStoreBackend == backendPostgres {
		pgCfg, err := configx.New[leadx.PostgresConfig]("POSTGRES")
		if err != nil {
			return nil, nil, err
		}
		db := leadx.OpenPostgres(*pgCfg)
		store := leadx.NewPostgresStore(db)
		if pgCfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, nil, fmt.Errorf("migrate leads table: %w", err)
			}
		}
		log.Info().Str("backend", backendPostgres).Msg("lead store ready")
		return store, func() { _ = db.Close() }, nil
	}

	sbCfg, err := configx.New[leadx.SupabaseConfig]("SUPABASE")
	if err != nil {
		return nil, nil, err
	}
	store, err := leadx.NewSupabaseStore(*sbCfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("backend", backendSupabase).Msg("lead store ready")
	return store, func() {}, nil
}

func buildSessionStore(storage StorageConfig) (statex.Store, error) {
	if storage.SessionStoreBackend != backendUpstash {
		return statex.NewMemoryStore(), nil
	}

	redisCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		return nil, err
	}
	store, err := statex.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", backendUpstash).Dur("ttl", redisCfg.TTL).Msg("session store ready")
	return store, nil
}

// buildNotifier returns nil when QStash is not configured.
func buildNotifier() nodex.Notifier {
	cfg, err := configx.New[qstash.Config]("QSTASH")
	if err != nil {
		log.Warn().Err(err).Msg("qstash config invalid, lead notifications disabled")
		return nil
	}
	client, err := qstash.NewClient(*cfg)
	if errors.Is(err, qstash.ErrDisabled) {
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("qstash client invalid, lead notifications disabled")
		return nil
	}
	return client
}

func loadPersona() string {
	return promptx.LoadPromptSet().Persona
}
