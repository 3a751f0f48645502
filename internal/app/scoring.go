package app

import (
	"context"
	"fmt"

	"trivia-orchestrator/internal/domain"
)

// Point values per mode and answer kind. Bonus attempts are worth half a
// normal sequential answer, rounded down to 1; the original participant's
// return attempt is scored at full value.
const (
	pointsSimultaneous    = 5
	pointsSequential      = 2
	pointsSequentialBonus = 1
)

// pointsFor returns the award for a scored attempt. Incorrect answers always
// earn zero.
func pointsFor(mode domain.Mode, kind domain.AnswerKind, correct bool) int {
	if !correct {
		return 0
	}
	if mode == domain.ModeSimultaneous {
		return pointsSimultaneous
	}
	switch kind {
	case domain.AnswerBonus:
		return pointsSequentialBonus
	default:
		return pointsSequential
	}
}

// validate checks a selected option against the cached question snapshot.
// Client-declared correctness is never trusted. A timed-out selection is
// always incorrect.
func (s *Service) validate(ctx context.Context, quizID, questionID string, selected int) (bool, domain.Question, error) {
	q, err := s.questions.GetQuestion(ctx, quizID, questionID)
	if err != nil {
		return false, domain.Question{}, err
	}
	if selected == domain.TimedOutOption {
		return false, q, nil
	}
	if selected < 0 || selected >= len(q.Options) {
		return false, q, domain.ErrInvalidPayload(fmt.Sprintf("option %d out of range for question %s", selected, questionID))
	}
	return selected == q.CorrectOption, q, nil
}

// resultMessage is the human line sent alongside every answerResult.
func resultMessage(kind domain.AnswerKind, correct bool, points int) string {
	switch {
	case correct && kind == domain.AnswerBonus:
		return fmt.Sprintf("Correct! Bonus earns %d point(s).", points)
	case correct:
		return fmt.Sprintf("Correct! %d point(s) awarded.", points)
	case kind == domain.AnswerBonus:
		return "Incorrect, bonus attempt earns no points."
	default:
		return "Incorrect, no points awarded."
	}
}
