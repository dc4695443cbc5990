package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	geojson "github.com/paulmach/go.geojson"
	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
)

// hashKey is the Redis hash holding the code → geometry map. One flat hash
// mirrors the disk layout and lets several gateway instances share a cache.
const hashKey = "nws-gateway:zone-geom"

// RedisStore persists geometry in a Redis hash. Puts are staged locally and
// flushed in one HSET on PersistAll, so a crash mid-cycle leaves the hash
// exactly as the previous PersistAll did.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger

	mu      sync.Mutex
	pending domain.GeometryMap
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(addr, password string, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client:  redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		logger:  logger,
		pending: domain.GeometryMap{},
	}
}

func (s *RedisStore) Get(ctx context.Context, code string) (*geojson.Geometry, bool) {
	s.mu.Lock()
	if g, ok := s.pending[code]; ok {
		s.mu.Unlock()
		return g, true
	}
	s.mu.Unlock()

	val, err := s.client.HGet(ctx, hashKey, code).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("redis get failed, treating as miss", "code", code, "error", err)
		}
		return nil, false
	}
	g, err := decodeGeometry([]byte(val))
	if err != nil {
		s.logger.Warn("cached geometry corrupt, treating as miss", "code", code, "error", err)
		return nil, false
	}
	return g, true
}

func (s *RedisStore) GetMany(ctx context.Context, codes []string) domain.GeometryMap {
	out := make(domain.GeometryMap, len(codes))
	if len(codes) == 0 {
		return out
	}

	remaining := make([]string, 0, len(codes))
	s.mu.Lock()
	for _, code := range codes {
		if g, ok := s.pending[code]; ok {
			out[code] = g
		} else {
			remaining = append(remaining, code)
		}
	}
	s.mu.Unlock()

	if len(remaining) == 0 {
		return out
	}

	vals, err := s.client.HMGet(ctx, hashKey, remaining...).Result()
	if err != nil {
		s.logger.Warn("redis batch get failed, treating all as misses", "codes", len(remaining), "error", err)
		return out
	}
	for i, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		g, err := decodeGeometry([]byte(str))
		if err != nil {
			s.logger.Warn("cached geometry corrupt, treating as miss", "code", remaining[i], "error", err)
			continue
		}
		out[remaining[i]] = g
	}
	return out
}

func (s *RedisStore) Put(code string, g *geojson.Geometry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[code] = g
}

func (s *RedisStore) PersistAll(ctx context.Context) error {
	s.mu.Lock()
	staged := s.pending
	s.pending = domain.GeometryMap{}
	s.mu.Unlock()

	if len(staged) == 0 {
		return nil
	}

	fields := make(map[string]any, len(staged))
	for code, g := range staged {
		b, err := encodeGeometry(g)
		if err != nil {
			return err
		}
		fields[code] = string(b)
	}

	if err := s.client.HSet(ctx, hashKey, fields).Err(); err != nil {
		// Restage so the next cycle's PersistAll retries the batch.
		s.mu.Lock()
		for code, g := range staged {
			if _, exists := s.pending[code]; !exists {
				s.pending[code] = g
			}
		}
		s.mu.Unlock()
		return fmt.Errorf("persist geometry cache to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadAll(ctx context.Context) (domain.GeometryMap, error) {
	vals, err := s.client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		s.logger.Warn("redis load failed, starting empty", "error", err)
		return domain.GeometryMap{}, nil
	}

	out := make(domain.GeometryMap, len(vals))
	for code, v := range vals {
		g, err := decodeGeometry([]byte(v))
		if err != nil {
			s.logger.Warn("cached geometry corrupt, skipping", "code", code, "error", err)
			continue
		}
		out[code] = g
	}
	return out, nil
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
