package main

import (
	"testing"

	statex "github.com/inmobot/inmobot/bot/state"
)

func TestStorageConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := StorageConfig{LeadStoreBackend: " Postgres ", SessionStoreBackend: "MEMORY"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.LeadStoreBackend != backendPostgres || cfg.SessionStoreBackend != backendMemory {
		t.Fatalf("normalized = %+v", cfg)
	}

	for _, bad := range []StorageConfig{
		{LeadStoreBackend: "mongo", SessionStoreBackend: "memory"},
		{LeadStoreBackend: "supabase", SessionStoreBackend: "redis"},
	} {
		if err := bad.Validate(); err == nil {
			t.Fatalf("Validate(%+v) expected error", bad)
		}
	}
}

func TestBuildSessionStoreDefaultsToMemory(t *testing.T) {
	t.Parallel()

	store, err := buildSessionStore(StorageConfig{SessionStoreBackend: backendMemory})
	if err != nil {
		t.Fatalf("buildSessionStore() error = %v", err)
	}
	if _, ok := store.(*statex.MemoryStore); !ok {
		t.Fatalf("store = %T, want *state.MemoryStore", store)
	}
}

func TestLoadPersonaNamesInmoBot(t *testing.T) {
	t.Parallel()

	if p := loadPersona(); p == "" {
		t.Fatal("persona is empty")
	}
}
