package memory

import (
	"context"
	"testing"
	"time"

	"trivia-orchestrator/internal/domain"
)

func seeded() *Persistence {
	p := NewPersistence()
	p.SeedQuiz("quiz-1",
		[]domain.Participant{{ID: "alice", DisplayName: "Alice"}},
		[]domain.Round{{ID: "round-1", RoundNumber: 1, Mode: domain.ModeSequentialMultipleChoice}},
		[]domain.Question{
			{ID: "q1", Kind: domain.KindMultipleChoice, Options: []string{"A", "B"}, CorrectOption: 0, SequenceNumber: 1},
			{ID: "q2", Kind: domain.KindYesNo, Options: []string{"Yes", "No"}, CorrectOption: 1, SequenceNumber: 2},
			{ID: "q3", Kind: domain.KindMultipleChoice, Options: []string{"A", "B"}, CorrectOption: 1, SequenceNumber: 3},
		},
	)
	return p
}

func TestCreateResponseRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	p := seeded()

	resp := domain.Response{
		ID:            "r1",
		QuizID:        "quiz-1",
		RoundID:       "round-1",
		ParticipantID: "alice",
		QuestionID:    "q1",
		PointsEarned:  2,
		Kind:          domain.AnswerNormal,
		AnsweredAt:    time.Now(),
	}
	if err := p.CreateResponse(ctx, resp); err != nil {
		t.Fatalf("first create: %v", err)
	}

	resp.ID = "r2"
	err := p.CreateResponse(ctx, resp)
	if !domain.IsCode(err, domain.CodeDuplicateResponse) {
		t.Fatalf("expected duplicate_response, got %v", err)
	}

	responses, _ := p.ListResponses(ctx, "quiz-1")
	if len(responses) != 1 {
		t.Fatalf("expected one stored response, got %d", len(responses))
	}
}

func TestListUnansweredQuestionsFilters(t *testing.T) {
	ctx := context.Background()
	p := seeded()

	mc, err := p.ListUnansweredQuestions(ctx, "quiz-1", domain.KindMultipleChoice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mc) != 2 || mc[0].ID != "q1" || mc[1].ID != "q3" {
		t.Fatalf("expected q1,q3 for multiple choice, got %+v", mc)
	}

	if err := p.MarkQuestionAnswered(ctx, "q1"); err != nil {
		t.Fatalf("mark answered: %v", err)
	}
	mc, _ = p.ListUnansweredQuestions(ctx, "quiz-1", domain.KindMultipleChoice)
	if len(mc) != 1 || mc[0].ID != "q3" {
		t.Fatalf("expected only q3 after answering q1, got %+v", mc)
	}

	// Empty kind matches everything still open.
	all, _ := p.ListUnansweredQuestions(ctx, "quiz-1", "")
	if len(all) != 2 {
		t.Fatalf("expected 2 open questions across kinds, got %d", len(all))
	}
}

func TestFindRoundNotFound(t *testing.T) {
	p := seeded()
	_, err := p.FindRound(context.Background(), "missing")
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}
