package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-orchestrator/internal/domain"
	"trivia-orchestrator/internal/infra/memory"
)

// QuestionCache caches question snapshots in Redis (hash per quiz) and falls
// back to the loader on cache miss. Snapshots are stored as:
// HSET trivia:quiz:{quizID}:questions {questionID} {json}
type QuestionCache struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) GetQuestion(ctx context.Context, quizID, questionID string) (domain.Question, error) {
	key := c.key(quizID)

	data, err := c.client.HGet(ctx, key, questionID).Bytes()
	if err == nil {
		var q domain.Question
		if err := json.Unmarshal(data, &q); err != nil {
			return domain.Question{}, err
		}
		return q, nil
	}
	if !errors.Is(err, redis.Nil) {
		return domain.Question{}, err
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the hash.
		data, err := c.client.HGet(ctx, key, questionID).Bytes()
		if err == nil {
			var q domain.Question
			if err := json.Unmarshal(data, &q); err != nil {
				return domain.Question{}, err
			}
			return q, nil
		}

		list, err := c.loader.ListQuestions(ctx, quizID)
		if err != nil {
			return domain.Question{}, err
		}

		pipe := c.client.Pipeline()
		var found *domain.Question
		for i := range list {
			q := list[i]
			raw, err := json.Marshal(q)
			if err != nil {
				return domain.Question{}, err
			}
			pipe.HSet(ctx, key, q.ID, raw)
			if q.ID == questionID {
				found = &q
			}
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		if found == nil {
			return domain.Question{}, domain.ErrNotFound("question", questionID)
		}
		return *found, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) key(quizID string) string {
	return "trivia:quiz:" + quizID + ":questions"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
