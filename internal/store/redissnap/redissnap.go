// Package redissnap persists snapshots as single Redis keys, mirroring the
// one-key-per-collection layout of the file backend.
package redissnap

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "billdesk:"

type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	return s.rdb.Set(ctx, keyPrefix+key, data, 0).Err()
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, keyPrefix+key).Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
