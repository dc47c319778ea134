package memstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kairei-project/kairei/value"
	"github.com/redis/go-redis/v9"
)

// Redis is a go-redis/v9-backed Store with namespace isolation (a key
// prefix) and TTL via native Redis expiry (§4.10 "shared-memory plugin...
// side-effects on a key/value store with TTL and namespace isolation").
// Capacity/LRU eviction is delegated to Redis itself (maxmemory-policy);
// Set never returns ErrCapacityFull here.
type Redis struct {
	client    *redis.Client
	namespace string
}

// NewRedis wraps an existing *redis.Client. namespace prefixes every key
// this Store touches, so multiple agents/plugins can share one Redis
// instance without colliding.
func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{client: client, namespace: namespace}
}

func (r *Redis) ns(key string) string { return r.namespace + ":" + key }

type redisRecord struct {
	Value wireValue `json:"value"`
	Meta  Metadata  `json:"meta"`
}

func (r *Redis) Get(ctx context.Context, key string) (value.Value, Metadata, error) {
	raw, err := r.client.Get(ctx, r.ns(key)).Bytes()
	if err == redis.Nil {
		return value.Value{}, Metadata{}, ErrNotFound
	}
	if err != nil {
		return value.Value{}, Metadata{}, err
	}
	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return value.Value{}, Metadata{}, err
	}
	v, err := decodeValue(rec.Value)
	if err != nil {
		return value.Value{}, Metadata{}, err
	}
	return v, rec.Meta, nil
}

func (r *Redis) GetMetadata(ctx context.Context, key string) (Metadata, error) {
	_, meta, err := r.Get(ctx, key)
	return meta, err
}

func (r *Redis) Set(ctx context.Context, key string, v value.Value, ttl time.Duration, contentType string, tags map[string]string) error {
	now := time.Now()
	meta := DefaultMetadata(now)
	meta.ContentType = contentType
	meta.Tags = tags
	meta.Size = estimateSize(v.Display())
	if existing, err := r.GetMetadata(ctx, key); err == nil {
		meta.CreatedAt = existing.CreatedAt
	}

	rec := redisRecord{Value: encodeValue(v), Meta: meta}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.ns(key), raw, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	n, err := r.client.Del(ctx, r.ns(key)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.ns(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Keys scans for namespaced keys matching pattern (Redis's own glob syntax,
// a superset of `*`/`?`, applies directly), stripping the namespace prefix
// before returning them.
func (r *Redis) Keys(ctx context.Context, pattern string) ([]string, error) {
	scanPattern := r.ns(pattern)
	var out []string
	iter := r.client.Scan(ctx, 0, scanPattern, 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val()[len(r.namespace)+1:])
	}
	return out, iter.Err()
}

var _ Store = (*Redis)(nil)
