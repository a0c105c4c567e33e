package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"git.carhub.se/carhub/carhub/src/models"
	"git.carhub.se/carhub/carhub/src/oops"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "carhub:session:"

// Optimistic transactions give up after this many conflicting writers.
const redisMaxTxRetries = 5

// RedisStore keeps each session as a JSON value whose TTL matches the
// session's expiry, so redis does the expiring for us.
type RedisStore struct {
	client *redis.Client
	maxAge time.Duration
}

var _ SessionStore = &RedisStore{}

func NewRedisStore(client *redis.Client, maxAge time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		maxAge: maxAge,
	}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func decodeRedisSession(data []byte) (*models.Session, error) {
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, oops.New(err, "failed to decode session")
	}
	return &sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, oops.New(err, "failed to get session")
	}

	sess, err := decodeRedisSession(data)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(time.Now()) {
		return nil, ErrNoSession
	}
	return sess, nil
}

func (s *RedisStore) Create(ctx context.Context) (*models.Session, error) {
	sess := &models.Session{
		ID:        makeSessionId(),
		ExpiresAt: time.Now().Add(s.maxAge),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, oops.New(err, "failed to encode session")
	}

	ok, err := s.client.SetNX(ctx, redisKey(sess.ID), data, s.maxAge).Result()
	if err != nil {
		return nil, oops.New(err, "failed to persist session")
	}
	if !ok {
		return nil, oops.New(nil, "session id collision")
	}
	return sess, nil
}

func (s *RedisStore) SetUser(ctx context.Context, id string, user *models.SessionUser) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) {
		if user == nil {
			sess.User = nil
		} else {
			u := *user
			sess.User = &u
		}
	})
}

func (s *RedisStore) Touch(ctx context.Context, id string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) {})
}

// Read-modify-write under WATCH, so a concurrent write to the same key aborts
// and retries instead of being overwritten.
func (s *RedisStore) update(ctx context.Context, id string, f func(sess *models.Session)) (*models.Session, error) {
	key := redisKey(id)

	var result *models.Session
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNoSession
			}
			return err
		}

		sess, err := decodeRedisSession(data)
		if err != nil {
			return err
		}
		now := time.Now()
		if sess.IsExpired(now) {
			return ErrNoSession
		}

		f(sess)
		sess.ExpiresAt = now.Add(s.maxAge)

		newData, err := json.Marshal(sess)
		if err != nil {
			return oops.New(err, "failed to encode session")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, s.maxAge)
			return nil
		})
		if err == nil {
			result = sess
		}
		return err
	}

	for i := 0; i < redisMaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrNoSession) {
			return nil, ErrNoSession
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, oops.New(err, "failed to update session")
	}

	return nil, oops.New(redis.TxFailedErr, "gave up updating session after %d conflicts", redisMaxTxRetries)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	err := s.client.Del(ctx, redisKey(id)).Err()
	if err != nil {
		return oops.New(err, "failed to delete session")
	}
	return nil
}

// Redis expires keys on its own.
func (s *RedisStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *RedisStore) Count(ctx context.Context) (anonymous int64, authenticated int64, err error) {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		} else if err != nil {
			return 0, 0, oops.New(err, "failed to read session %s", iter.Val())
		}

		sess, err := decodeRedisSession(data)
		if err != nil {
			return 0, 0, err
		}
		if sess.User == nil {
			anonymous++
		} else {
			authenticated++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, 0, oops.New(err, "failed to scan sessions")
	}
	return anonymous, authenticated, nil
}
