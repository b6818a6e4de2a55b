// Package redis is a durable registry store backed by Redis, for
// deployments that need endpoint records to survive a registry process
// restart or to be shared across replicas, under the "fabric:registry:*"
// keyspace.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"goa.design/fabric/registry/store"
)

const (
	keyPrefix = "fabric:registry:"
	indexKey  = "fabric:registry:index"
)

// Store is a store.Store backed by a Redis client. Each endpoint is stored
// as a JSON blob under "fabric:registry:<server_name>"; indexKey is a Redis
// set of all server names currently registered, used to implement List
// without a KEYS/SCAN pass.
type Store struct {
	client redis.UniversalClient
}

// New returns a Store using client for all operations.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func recordKey(serverName string) string {
	return keyPrefix + serverName
}

func (s *Store) Register(ctx context.Context, rec store.EndpointRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis store: marshal record: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(rec.ServerName), data, 0)
	pipe.SAdd(ctx, indexKey, rec.ServerName)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis store: register %s: %w", rec.ServerName, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, serverName string) (store.EndpointRecord, error) {
	data, err := s.client.Get(ctx, recordKey(serverName)).Bytes()
	if err == redis.Nil {
		return store.EndpointRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.EndpointRecord{}, fmt.Errorf("redis store: get %s: %w", serverName, err)
	}
	var rec store.EndpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return store.EndpointRecord{}, fmt.Errorf("redis store: unmarshal %s: %w", serverName, err)
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context) ([]store.EndpointRecord, error) {
	names, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: list index: %w", err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = recordKey(n)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: mget: %w", err)
	}

	out := make([]store.EndpointRecord, 0, len(values))
	for i, v := range values {
		if v == nil {
			// Index and record keys drifted apart (e.g. a bare expiry);
			// drop the stale index entry and skip it.
			s.client.SRem(ctx, indexKey, names[i])
			continue
		}
		var rec store.EndpointRecord
		if err := json.Unmarshal([]byte(v.(string)), &rec); err != nil {
			return nil, fmt.Errorf("redis store: unmarshal %s: %w", names[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}
