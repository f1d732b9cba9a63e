package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/openscrape/facedex/internal/admission"
	"github.com/openscrape/facedex/internal/config"
	"github.com/openscrape/facedex/internal/identity"
	"github.com/openscrape/facedex/internal/naming"
	"github.com/openscrape/facedex/internal/storage"
	"github.com/openscrape/facedex/internal/storage/postgres"
)

// openStore connects to PostgreSQL and applies pending migrations.
func openStore(cfg *config.Config) (*postgres.Repository, *postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return postgres.NewRepository(pool), pool, nil
}

// restoreState rebuilds the in-memory registry and admission gate from
// the persisted snapshot, so restarts keep already-learned identities
// and already-accepted images.
func restoreState(ctx context.Context, cfg *config.Config, store storage.Store) (*admission.Gate, *identity.Registry, error) {
	registry := identity.NewRegistry(cfg.Matching)
	identities, err := store.LoadIdentities(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading identities: %w", err)
	}
	registry.Load(identities)

	hashes, err := store.AcceptedHashes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading accepted hashes: %w", err)
	}
	known := admission.NewHashSet()
	known.Seed(hashes)

	return admission.NewGate(cfg.Admission, cfg.Quality, known), registry, nil
}

// newObjectSink builds the optional object store. Returns nil when no
// endpoint is configured; cover crops and archiving are then skipped.
func newObjectSink(ctx context.Context, cfg *config.Config) (*storage.ObjectStore, error) {
	if cfg.ObjectStore.Endpoint == "" {
		return nil, nil
	}

	objects, err := storage.NewObjectStore(cfg.ObjectStore)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}
	return objects, nil
}

// newNamer builds the label suggestion provider. An empty providerName
// picks whichever backend has credentials; nil means none configured.
func newNamer(ctx context.Context, cfg *config.Config, providerName string) (naming.Provider, error) {
	switch providerName {
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		return naming.NewOpenAIProvider(cfg.OpenAI.Token), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		return naming.NewGeminiProvider(ctx, cfg.Gemini.APIKey)
	case "":
		if cfg.OpenAI.Token != "" {
			return naming.NewOpenAIProvider(cfg.OpenAI.Token), nil
		}
		if cfg.Gemini.APIKey != "" {
			return naming.NewGeminiProvider(ctx, cfg.Gemini.APIKey)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, gemini)", providerName)
	}
}
