package app

import (
	"context"
	"math"
	"sort"

	"trivia-orchestrator/internal/domain"
)

// questionBuffer pads the required question count so a round never runs dry
// when a question has to be discarded mid-play.
const questionBuffer = 1.25

// requiredQuestions is the readiness-gate size: participants × per-head
// allotment, padded by the buffer factor and rounded up.
func requiredQuestions(participants, questionsPerParticipant int) int {
	return int(math.Ceil(float64(participants*questionsPerParticipant) * questionBuffer))
}

// checkReadiness computes the pre-start gate for a round: enough unanswered
// questions of the round's type, and no strictly-earlier round still active.
// It never mutates state.
func (s *Service) checkReadiness(ctx context.Context, quizID string, round domain.Round) (domain.ReadinessReport, error) {
	order, err := s.participantOrder(ctx, quizID)
	if err != nil {
		return domain.ReadinessReport{}, err
	}

	required := requiredQuestions(len(order), round.QuestionsPerParticipant)
	available, err := s.db.ListUnansweredQuestions(ctx, quizID, round.Mode.QuestionKind())
	if err != nil {
		return domain.ReadinessReport{}, err
	}

	rounds, err := s.db.ListRounds(ctx, quizID)
	if err != nil {
		return domain.ReadinessReport{}, err
	}
	var unmet []int
	for _, r := range rounds {
		if r.RoundNumber < round.RoundNumber && r.Active {
			unmet = append(unmet, r.RoundNumber)
		}
	}
	sort.Ints(unmet)

	report := domain.ReadinessReport{
		RoundID:            round.ID,
		Required:           required,
		Available:          len(available),
		UnmetPrerequisites: unmet,
	}
	if len(available) < required {
		report.Shortage = required - len(available)
	}
	report.IsReady = report.Shortage == 0
	report.CanStart = report.IsReady && len(unmet) == 0
	return report, nil
}

// loadForRound resolves the fixed question list for a round and caches it in
// the session store so repeated lookups stay stable even if the persisted
// pool changes mid-round.
func (s *Service) loadForRound(ctx context.Context, quizID string, round domain.Round, participants int) ([]domain.Question, error) {
	pool, err := s.db.ListUnansweredQuestions(ctx, quizID, round.Mode.QuestionKind())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].SequenceNumber < pool[j].SequenceNumber
	})

	required := requiredQuestions(participants, round.QuestionsPerParticipant)
	if len(pool) < required {
		return nil, domain.ErrInsufficientQuestions(required, len(pool))
	}
	questions := pool[:required]

	if err := s.store.Set(ctx, quizID, questionsField(round.ID), questions, s.cfg.SessionTTL); err != nil {
		return nil, err
	}
	return questions, nil
}

// partitionChunks splits the pool into contiguous, questionsPerParticipant-
// sized chunks, one per participant in order. Chunks are disjoint by
// construction.
func partitionChunks(order []domain.Participant, questions []domain.Question, perParticipant int) map[string][]domain.Question {
	chunks := make(map[string][]domain.Question, len(order))
	for i, p := range order {
		start := i * perParticipant
		chunks[p.ID] = questions[start : start+perParticipant]
	}
	return chunks
}

// roundQuestions returns the cached question list for the active round.
func (s *Service) roundQuestions(ctx context.Context, quizID, roundID string) ([]domain.Question, error) {
	var questions []domain.Question
	ok, err := s.store.Get(ctx, quizID, questionsField(roundID), &questions)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound("question list for round", roundID)
	}
	return questions, nil
}
