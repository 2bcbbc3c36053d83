package history

import (
	"context"
	"fmt"
)

// Options select and parameterize a backend.
type Options struct {
	Backend       string
	PostgresDSN   string
	MongoURI      string
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
}

// Open constructs the history store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(ctx, opts.PostgresDSN)
	case "mongo":
		return NewMongoStore(ctx, opts.MongoURI, "", "")
	case "redis":
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, 0)
	case "sqlite":
		return NewSQLiteStore(ctx, opts.SQLitePath)
	default:
		return nil, fmt.Errorf("history: unknown backend %q", opts.Backend)
	}
}
