package memory

import (
	"context"
	"testing"
	"time"

	"trivia-orchestrator/internal/domain"
)

type countingLoader struct {
	questions []domain.Question
	calls     int
}

func (l *countingLoader) ListQuestions(_ context.Context, _ string) ([]domain.Question, error) {
	l.calls++
	return l.questions, nil
}

func TestQuestionCacheLoadsOnce(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{questions: []domain.Question{
		{ID: "q1", CorrectOption: 1},
		{ID: "q2", CorrectOption: 0},
	}}
	cache := NewQuestionCache(loader, time.Minute)

	q, err := cache.GetQuestion(ctx, "quiz-1", "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if q.CorrectOption != 1 {
		t.Fatalf("expected answer key in snapshot, got %+v", q)
	}
	if loader.calls != 1 {
		t.Fatalf("expected one load, got %d", loader.calls)
	}

	if _, err := cache.GetQuestion(ctx, "quiz-1", "q2"); err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestQuestionCacheUnknownQuestion(t *testing.T) {
	cache := NewQuestionCache(&countingLoader{}, time.Minute)
	_, err := cache.GetQuestion(context.Background(), "quiz-1", "missing")
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}
