package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nitishm/go-rejson/v4"
	"github.com/redis/go-redis/v9"
)

func hashSource(sourceURL string) string {
	h := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(h[:])
}

const (
	redisIndexKey  = "pagelens:history:index"
	redisItemKey   = "pagelens:history:item:"
	redisSourceKey = "pagelens:history:source:"
)

// RedisStore persists history as ReJSON documents ordered by a sorted set.
type RedisStore struct {
	client  *redis.Client
	handler *rejson.Handler
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("history: redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("history: connect redis: %w", err)
	}
	handler := rejson.NewReJSONHandler()
	handler.SetGoRedisClientWithContext(ctx, client)
	return &RedisStore{client: client, handler: handler}, nil
}

func (rs *RedisStore) Save(ctx context.Context, env Envelope) error {
	if env.Record == nil {
		return nil
	}
	sourceKey := redisSourceKey + hashSource(env.Record.SourceURL)

	// Last write wins per source URL: drop any earlier entry first.
	if prev, err := rs.client.Get(ctx, sourceKey).Result(); err == nil && prev != "" {
		rs.client.ZRem(ctx, redisIndexKey, prev)
		rs.client.Del(ctx, redisItemKey+prev)
	}

	if _, err := rs.handler.JSONSet(redisItemKey+env.ID, ".", env); err != nil {
		return fmt.Errorf("history: store document: %w", err)
	}
	if err := rs.client.Set(ctx, sourceKey, env.ID, 0).Err(); err != nil {
		return err
	}
	score := float64(env.SavedAt.UnixNano())
	if err := rs.client.ZAdd(ctx, redisIndexKey, redis.Z{Score: score, Member: env.ID}).Err(); err != nil {
		return err
	}
	return rs.prune(ctx)
}

func (rs *RedisStore) prune(ctx context.Context) error {
	// Everything below the newest Capacity entries goes.
	stale, err := rs.client.ZRevRange(ctx, redisIndexKey, int64(Capacity), -1).Result()
	if err != nil {
		return err
	}
	for _, id := range stale {
		rs.client.ZRem(ctx, redisIndexKey, id)
		rs.client.Del(ctx, redisItemKey+id)
	}
	return nil
}

func (rs *RedisStore) Get(ctx context.Context) ([]Envelope, error) {
	ids, err := rs.client.ZRevRange(ctx, redisIndexKey, 0, int64(Capacity)-1).Result()
	if err != nil {
		return nil, err
	}
	var out []Envelope
	for _, id := range ids {
		raw, err := rs.handler.JSONGet(redisItemKey+id, ".")
		if err != nil {
			continue // index entry without a document; skip
		}
		data, ok := raw.([]byte)
		if !ok {
			data = []byte(fmt.Sprint(raw))
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("history: decode document %s: %w", id, err)
		}
		out = append(out, env)
	}
	return out, nil
}

func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	if err := rs.client.ZRem(ctx, redisIndexKey, id).Err(); err != nil {
		return err
	}
	return rs.client.Del(ctx, redisItemKey+id).Err()
}

func (rs *RedisStore) Clear(ctx context.Context) error {
	ids, err := rs.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		rs.client.Del(ctx, redisItemKey+id)
	}
	return rs.client.Del(ctx, redisIndexKey).Err()
}

// Close releases the connection.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

var _ Store = (*RedisStore)(nil)
