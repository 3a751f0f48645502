package app

import (
	"context"

	"github.com/google/uuid"

	"trivia-orchestrator/internal/domain"
)

// simultaneousRound loads the active round and the caller's question chunk,
// rejecting commands that don't belong to a simultaneous round.
func (s *Service) simultaneousRound(ctx context.Context, quizID, participantID string) (domain.Round, []domain.Question, error) {
	round, ok, err := s.activeRound(ctx, quizID)
	if err != nil {
		return domain.Round{}, nil, err
	}
	if !ok || round.Mode != domain.ModeSimultaneous {
		return domain.Round{}, nil, domain.ErrInvalidPayload("no simultaneous round is active")
	}

	var chunks map[string][]domain.Question
	if _, err := s.store.Get(ctx, quizID, chunksField(round.ID), &chunks); err != nil {
		return domain.Round{}, nil, err
	}
	chunk, ok := chunks[participantID]
	if !ok {
		return domain.Round{}, nil, domain.ErrNotFound("question chunk for participant", participantID)
	}
	return round, chunk, nil
}

func (s *Service) participantProgress(ctx context.Context, quizID, roundID, participantID string) (domain.SimultaneousProgress, error) {
	var progress domain.SimultaneousProgress
	if _, err := s.store.Get(ctx, quizID, progressField(roundID, participantID), &progress); err != nil {
		return domain.SimultaneousProgress{}, err
	}
	return progress, nil
}

// submitSimultaneous scores one answer from the participant's own chunk.
// There is no confirmation step: each participant plays independently.
func (s *Service) submitSimultaneous(ctx context.Context, sess *Session, actor domain.Actor, c domain.SubmitSimultaneousAnswer) (*domain.Event, error) {
	round, chunk, err := s.simultaneousRound(ctx, sess.quizID, actor.ParticipantID)
	if err != nil {
		return nil, err
	}
	if !chunkContains(chunk, c.QuestionID) {
		return nil, domain.Errorf(domain.CodeForbidden, "question %s is not in your assigned set", c.QuestionID)
	}

	progress, err := s.participantProgress(ctx, sess.quizID, round.ID, actor.ParticipantID)
	if err != nil {
		return nil, err
	}
	if progress.Ended {
		return nil, domain.ErrInvalidPayload("participation already ended")
	}
	if progress.Seen(c.QuestionID) {
		return nil, domain.ErrDuplicateResponse(actor.ParticipantID, c.QuestionID)
	}

	correct, _, err := s.validate(ctx, sess.quizID, c.QuestionID, c.SelectedOption)
	if err != nil {
		return nil, err
	}
	points := pointsFor(round.Mode, domain.AnswerNormal, correct)

	resp := domain.Response{
		ID:             uuid.NewString(),
		QuizID:         sess.quizID,
		RoundID:        round.ID,
		ParticipantID:  actor.ParticipantID,
		QuestionID:     c.QuestionID,
		SelectedOption: c.SelectedOption,
		IsCorrect:      correct,
		PointsEarned:   points,
		Kind:           domain.AnswerNormal,
		AnsweredAt:     s.now(),
	}
	if err := s.db.CreateResponse(ctx, resp); err != nil {
		if domain.IsCode(err, domain.CodeDuplicateResponse) {
			return nil, err
		}
		return nil, domain.ErrPersistence(err)
	}
	if err := s.db.MarkQuestionAnswered(ctx, c.QuestionID); err != nil {
		return nil, domain.ErrPersistence(err)
	}
	if err := s.appendAnswered(ctx, sess.quizID, round.ID, c.QuestionID); err != nil {
		return nil, err
	}

	progress.AnsweredQuestionIDs = append(progress.AnsweredQuestionIDs, c.QuestionID)
	if err := s.store.Set(ctx, sess.quizID, progressField(round.ID, actor.ParticipantID), progress, s.cfg.SessionTTL); err != nil {
		return nil, err
	}

	if err := s.publishLeaderboard(ctx, sess); err != nil {
		return nil, err
	}
	// Correctness goes back to the submitter only; other participants are
	// still playing their own chunks.
	return &domain.Event{
		Type: domain.EventAnswerResult,
		Payload: domain.AnswerResultPayload{
			ParticipantID:  actor.ParticipantID,
			QuestionID:     c.QuestionID,
			SelectedOption: c.SelectedOption,
			IsCorrect:      correct,
			Points:         points,
			Kind:           domain.AnswerNormal,
			Message:        resultMessage(domain.AnswerNormal, correct, points),
		},
	}, nil
}

// skipQuestion records an unscored pass. The question counts as handled for
// this participant but earns no response row.
func (s *Service) skipQuestion(ctx context.Context, sess *Session, actor domain.Actor, c domain.SkipQuestion) error {
	round, chunk, err := s.simultaneousRound(ctx, sess.quizID, actor.ParticipantID)
	if err != nil {
		return err
	}
	if !chunkContains(chunk, c.QuestionID) {
		return domain.Errorf(domain.CodeForbidden, "question %s is not in your assigned set", c.QuestionID)
	}

	progress, err := s.participantProgress(ctx, sess.quizID, round.ID, actor.ParticipantID)
	if err != nil {
		return err
	}
	if progress.Ended {
		return domain.ErrInvalidPayload("participation already ended")
	}
	if progress.Seen(c.QuestionID) {
		return domain.ErrDuplicateResponse(actor.ParticipantID, c.QuestionID)
	}

	progress.SkippedQuestionIDs = append(progress.SkippedQuestionIDs, c.QuestionID)
	if err := s.store.Set(ctx, sess.quizID, progressField(round.ID, actor.ParticipantID), progress, s.cfg.SessionTTL); err != nil {
		return err
	}

	sess.broadcast(domain.Event{
		Type: domain.EventQuestionSkipped,
		Payload: domain.QuestionSkippedPayload{
			ParticipantID: actor.ParticipantID,
			QuestionID:    c.QuestionID,
		},
	})
	return nil
}

// endParticipation finishes the participant's independent run. When every
// participant has ended, the round completes; otherwise it stays active for
// the moderator to close.
func (s *Service) endParticipation(ctx context.Context, sess *Session, actor domain.Actor) error {
	round, _, err := s.simultaneousRound(ctx, sess.quizID, actor.ParticipantID)
	if err != nil {
		return err
	}

	progress, err := s.participantProgress(ctx, sess.quizID, round.ID, actor.ParticipantID)
	if err != nil {
		return err
	}
	if progress.Ended {
		return nil
	}
	progress.Ended = true
	if err := s.store.Set(ctx, sess.quizID, progressField(round.ID, actor.ParticipantID), progress, s.cfg.SessionTTL); err != nil {
		return err
	}

	sess.broadcast(domain.Event{
		Type:    domain.EventParticipantFinished,
		Payload: domain.ParticipantFinishedPayload{ParticipantID: actor.ParticipantID},
	})

	order, err := s.participantOrder(ctx, sess.quizID)
	if err != nil {
		return err
	}
	for _, p := range order {
		pp, err := s.participantProgress(ctx, sess.quizID, round.ID, p.ID)
		if err != nil {
			return err
		}
		if !pp.Ended {
			return nil
		}
	}
	return s.completeRound(ctx, sess, round)
}

func chunkContains(chunk []domain.Question, questionID string) bool {
	for _, q := range chunk {
		if q.ID == questionID {
			return true
		}
	}
	return false
}
