package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-orchestrator/internal/domain"
)

// QuestionLoader fetches the full question list for a quiz from the backing
// store.
type QuestionLoader interface {
	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// QuestionCache caches question snapshots with TTL to keep validation off the
// database on the hot answer path.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	questions map[string]domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (c *QuestionCache) GetQuestion(ctx context.Context, quizID, questionID string) (domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if quiz, ok := c.cache[quizID]; ok && quiz.expiresAt.After(now) {
		c.mu.RUnlock()
		return lookup(quiz.questions, questionID)
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if quiz, ok := c.cache[quizID]; ok && quiz.expiresAt.After(now) {
			c.mu.RUnlock()
			return quiz.questions, nil
		}
		c.mu.RUnlock()

		list, err := c.loader.ListQuestions(ctx, quizID)
		if err != nil {
			return nil, err
		}
		questions := make(map[string]domain.Question, len(list))
		for _, q := range list {
			questions[q.ID] = q
		}

		c.mu.Lock()
		c.cache[quizID] = cachedQuiz{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return lookup(result.(map[string]domain.Question), questionID)
}

func lookup(questions map[string]domain.Question, questionID string) (domain.Question, error) {
	q, ok := questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrNotFound("question", questionID)
	}
	return q, nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
