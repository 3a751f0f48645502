package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps session state in Redis as one JSON value per field,
// each with its own TTL. Writers are serialized per session by the round
// state machine, so plain last-write-wins SETs are sufficient.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Set(ctx context.Context, quizID, field string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(quizID, field), data, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, quizID, field string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, s.key(quizID, field)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SessionStore) Delete(ctx context.Context, quizID, field string) error {
	return s.client.Del(ctx, s.key(quizID, field)).Err()
}

func (s *SessionStore) Clear(ctx context.Context, quizID string) error {
	keys, err := s.client.Keys(ctx, s.key(quizID, "*")).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *SessionStore) key(quizID, field string) string {
	return "trivia:session:" + quizID + ":" + field
}
