package app

import (
	"context"

	"trivia-orchestrator/internal/domain"
)

// dispatchBonus redirects an incorrectly answered question to the next
// participant in order for a reduced-value attempt. Never automatic: the
// moderator triggers it after seeing an incorrect selection. The pending
// normal attempt is discarded, not persisted; the bonus replaces it entirely.
func (s *Service) dispatchBonus(ctx context.Context, sess *Session, questionID string) error {
	round, ok, err := s.activeRound(ctx, sess.quizID)
	if err != nil {
		return err
	}
	if !ok || !round.Mode.Sequential() {
		return domain.ErrInvalidPayload("no sequential round is active")
	}

	if _, hasBonus, err := s.bonusState(ctx, sess.quizID); err != nil {
		return err
	} else if hasBonus {
		return domain.ErrInvalidPayload("a bonus cycle is already in progress")
	}

	order, err := s.participantOrder(ctx, sess.quizID)
	if err != nil {
		return err
	}
	// A single-participant session has no distinct "next" participant, so it
	// is bonus-ineligible.
	if len(order) < 2 {
		return domain.ErrInvalidPayload("bonus requires at least two participants")
	}

	var cursor domain.TurnCursor
	if _, err := s.store.Get(ctx, sess.quizID, fieldCursor, &cursor); err != nil {
		return err
	}
	active, current, err := s.currentQuestion(ctx, sess.quizID, round, order)
	if err != nil {
		return err
	}
	if current.ID != questionID {
		return domain.ErrInvalidPayload("question " + questionID + " is not the current question")
	}

	var pending domain.PendingSelection
	hasPending, err := s.store.Get(ctx, sess.quizID, fieldPendingSelection, &pending)
	if err != nil {
		return err
	}
	if !hasPending || pending.QuestionID != questionID {
		return domain.ErrInvalidPayload("no pending selection to redirect")
	}
	correct, _, err := s.validate(ctx, sess.quizID, questionID, pending.SelectedOption)
	if err != nil {
		return err
	}
	if correct {
		return domain.ErrInvalidPayload("pending answer is correct; confirm it instead")
	}

	next := order[(cursor.ParticipantIndex+1)%len(order)]
	bonus := domain.BonusState{
		OriginalParticipantID: active,
		BonusParticipantID:    next.ID,
		QuestionID:            questionID,
		Phase:                 domain.BonusPending,
	}
	if err := s.store.Set(ctx, sess.quizID, fieldBonus, bonus, s.cfg.SessionTTL); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sess.quizID, fieldPendingSelection); err != nil {
		return err
	}
	if err := s.setActiveParticipant(ctx, sess.quizID, next.ID); err != nil {
		return err
	}
	s.sched.Cancel(sess.quizID, questionID)

	sess.broadcast(domain.Event{
		Type: domain.EventBonusDispatched,
		Payload: domain.BonusDispatchedPayload{
			QuestionID:            questionID,
			OriginalParticipantID: active,
			BonusParticipantID:    next.ID,
		},
	})
	s.scheduleAutoConfirm(sess, round, questionID)
	return nil
}
