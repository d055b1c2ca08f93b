package core

import (
	"context"
	"fmt"

	"dal/internal/history"
	"dal/internal/llm"
)

// NewCompleter builds the completion client for the configured provider.
func NewCompleter(cfg *Config) (llm.Completer, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		client, err := llm.NewOpenAIClient(cfg.LLMConfig())
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		return client, nil
	default:
		client, err := llm.NewClient(cfg.LLMConfig())
		if err != nil {
			return nil, fmt.Errorf("openrouter client: %w", err)
		}
		return client, nil
	}
}

// OpenHistoryStore opens the configured history backend. The postgres
// schema is migrated on open.
func OpenHistoryStore(ctx context.Context, cfg *Config) (history.Store, error) {
	switch cfg.HistoryBackend {
	case BackendMemory:
		return history.NewMemoryStore(), nil
	case BackendFile:
		return history.NewFileStore(cfg.DataDir), nil
	case BackendRedis:
		store, err := history.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis history: %w", err)
		}
		return store, nil
	case BackendPostgres:
		db, err := history.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres history: %w", err)
		}
		store := history.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate postgres history: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}
}
