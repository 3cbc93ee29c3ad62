package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bridge/internal/model"
)

const (
	redisUserKeyPrefix    = "bridge:user:"
	redisAccountKeyPrefix = "bridge:account:"
	redisOpTimeout        = 5 * time.Second
)

// RedisStore keeps each user's state as a single JSON value.
type RedisStore struct {
	rdb        *redis.Client
	quotaBytes int64
}

func NewRedisStore(addr string, quotaBytes int64) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{rdb: rdb, quotaBytes: quotaBytes}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) LoadUserState(userID string) (model.UserState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	payload, err := s.rdb.Get(ctx, redisUserKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return decodeState(nil)
	}
	if err != nil {
		return model.UserState{}, err
	}
	return decodeState(payload)
}

func (s *RedisStore) SaveUserState(userID string, state model.UserState) error {
	payload, err := encodeState(state, s.quotaBytes)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.rdb.Set(ctx, redisUserKeyPrefix+userID, payload, 0).Err()
}

func (s *RedisStore) SaveAccount(account model.Account) error {
	account.Email = accountKey(account.Email)
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	created, err := s.rdb.SetNX(ctx, redisAccountKeyPrefix+account.Email, data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: %s", ErrAccountExists, account.Email)
	}
	return nil
}

func (s *RedisStore) GetAccount(email string) (model.Account, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	data, err := s.rdb.Get(ctx, redisAccountKeyPrefix+accountKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, err
	}
	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return model.Account{}, false, err
	}
	return account, true, nil
}
