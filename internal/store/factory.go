package store

import (
	"context"
	"fmt"
	"log/slog"

	"trackrequestd/internal/config"
)

// BackendType selects which Store implementation NewStoreFromConfig wires up.
type BackendType string

const (
	BackendRedis  BackendType = "redis"
	BackendSQLite BackendType = "sqlite"
	BackendMemory BackendType = "memory"
)

// NewStoreFromConfig builds a Store from package config, the same
// switch-on-configured-type shape used to pick a storage backend elsewhere
// in this lineage.
func NewStoreFromConfig(ctx context.Context) (Store, error) {
	backend := BackendType(config.StateBackend)
	slog.Info("creating state store", "backend", backend)

	switch backend {
	case BackendRedis:
		return NewRedisStore(ctx, config.RedisAddr, config.StatusRetention)
	case BackendSQLite:
		return NewSQLiteStore(config.SQLitePath, config.StatusRetention)
	case BackendMemory:
		return NewMemoryStore(config.StatusRetention), nil
	default:
		return nil, fmt.Errorf("store: unsupported backend %q", backend)
	}
}
