package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"trivia-orchestrator/internal/domain"
)

// startRound runs the readiness gate, loads the question supply, flips the
// round active and broadcasts the opening state for its mode.
func (s *Service) startRound(ctx context.Context, sess *Session, roundID string) error {
	round, err := s.db.FindRound(ctx, roundID)
	if err != nil {
		return err
	}
	if round.QuizID != sess.quizID {
		return domain.ErrNotFound("round", roundID)
	}
	if round.Active {
		return domain.ErrRoundAlreadyActive(roundID)
	}

	report, err := s.checkReadiness(ctx, sess.quizID, round)
	if err != nil {
		return err
	}
	if !report.CanStart {
		if report.Shortage > 0 {
			return domain.ErrInsufficientQuestions(report.Required, report.Available)
		}
		return domain.ErrPrerequisiteRoundsIncomplete(report.UnmetPrerequisites)
	}

	order, err := s.participantOrder(ctx, sess.quizID)
	if err != nil {
		return err
	}
	questions, err := s.loadForRound(ctx, sess.quizID, round, len(order))
	if err != nil {
		return err
	}

	if err := s.db.SetRoundActive(ctx, roundID, true); err != nil {
		return domain.ErrPersistence(err)
	}
	round.Active = true
	if err := s.store.Set(ctx, sess.quizID, fieldActiveRound, round, s.cfg.SessionTTL); err != nil {
		return err
	}

	payload := domain.RoundStartedPayload{
		RoundID:           round.ID,
		RoundNumber:       round.RoundNumber,
		Mode:              round.Mode,
		TimeBudgetSeconds: round.TimeBudgetSeconds,
		Order:             order,
	}

	if round.Mode.Sequential() {
		if err := s.store.Set(ctx, sess.quizID, fieldCursor, domain.TurnCursor{}, s.cfg.SessionTTL); err != nil {
			return err
		}
		if err := s.setActiveParticipant(ctx, sess.quizID, order[0].ID); err != nil {
			return err
		}
		first := questions[0].Public()
		payload.Question = &first
		payload.ActiveParticipantID = order[0].ID
		sess.broadcast(domain.Event{Type: domain.EventRoundStarted, Payload: payload})
		s.scheduleAutoConfirm(sess, round, questions[0].ID)
		return nil
	}

	chunks := partitionChunks(order, questions, round.QuestionsPerParticipant)
	if err := s.store.Set(ctx, sess.quizID, chunksField(round.ID), chunks, s.cfg.SessionTTL); err != nil {
		return err
	}
	public := make(map[string][]domain.PublicQuestion, len(chunks))
	for id, chunk := range chunks {
		pub := make([]domain.PublicQuestion, 0, len(chunk))
		for _, q := range chunk {
			pub = append(pub, q.Public())
		}
		public[id] = pub
	}
	payload.Chunks = public
	sess.broadcast(domain.Event{Type: domain.EventRoundStarted, Payload: payload})
	return nil
}

// currentQuestion resolves the sequential cursor to the active participant
// and their question. The flat list position is rotation × participants +
// participant index.
func (s *Service) currentQuestion(ctx context.Context, quizID string, round domain.Round, order []domain.Participant) (string, domain.Question, error) {
	var cursor domain.TurnCursor
	ok, err := s.store.Get(ctx, quizID, fieldCursor, &cursor)
	if err != nil {
		return "", domain.Question{}, err
	}
	if !ok {
		return "", domain.Question{}, domain.ErrNotFound("turn cursor for round", round.ID)
	}
	questions, err := s.roundQuestions(ctx, quizID, round.ID)
	if err != nil {
		return "", domain.Question{}, err
	}
	flat := cursor.QuestionIndex*len(order) + cursor.ParticipantIndex
	if flat >= len(questions) {
		return "", domain.Question{}, domain.ErrNotFound("question at cursor for round", round.ID)
	}
	return order[cursor.ParticipantIndex].ID, questions[flat], nil
}

// selectAnswer records a contestant's provisional answer for the current
// question. Only the active participant (bonus participant during a bonus
// cycle) may select.
func (s *Service) selectAnswer(ctx context.Context, sess *Session, actor domain.Actor, c domain.SelectAnswer) error {
	round, ok, err := s.activeRound(ctx, sess.quizID)
	if err != nil {
		return err
	}
	if !ok || !round.Mode.Sequential() {
		return domain.ErrInvalidPayload("no sequential round is active")
	}

	active, err := s.activeParticipant(ctx, sess.quizID)
	if err != nil {
		return err
	}
	if actor.ParticipantID != active {
		return domain.ErrNotYourTurn(actor.ParticipantID)
	}

	order, err := s.participantOrder(ctx, sess.quizID)
	if err != nil {
		return err
	}
	expected, err := s.expectedQuestionID(ctx, sess.quizID, round, order)
	if err != nil {
		return err
	}
	if c.QuestionID != expected {
		return domain.ErrInvalidPayload("question " + c.QuestionID + " is not the current question")
	}

	q, err := s.questions.GetQuestion(ctx, sess.quizID, c.QuestionID)
	if err != nil {
		return err
	}
	if c.SelectedOption < 0 || c.SelectedOption >= len(q.Options) {
		return domain.ErrInvalidPayload("selected option out of range")
	}

	pending := domain.PendingSelection{
		QuestionID:     c.QuestionID,
		ParticipantID:  actor.ParticipantID,
		SelectedOption: c.SelectedOption,
		SelectedAt:     s.now(),
	}
	if err := s.store.Set(ctx, sess.quizID, fieldPendingSelection, pending, s.cfg.SelectionTTL); err != nil {
		return err
	}

	sess.broadcast(domain.Event{
		Type: domain.EventAnswerSelected,
		Payload: domain.AnswerSelectedPayload{
			QuestionID:     c.QuestionID,
			ParticipantID:  actor.ParticipantID,
			SelectedOption: c.SelectedOption,
		},
	})
	return nil
}

// expectedQuestionID is the question currently up for answering: the bonus
// question during a bonus cycle, otherwise the cursor's question.
func (s *Service) expectedQuestionID(ctx context.Context, quizID string, round domain.Round, order []domain.Participant) (string, error) {
	bonus, hasBonus, err := s.bonusState(ctx, quizID)
	if err != nil {
		return "", err
	}
	if hasBonus {
		return bonus.QuestionID, nil
	}
	_, q, err := s.currentQuestion(ctx, quizID, round, order)
	if err != nil {
		return "", err
	}
	return q.ID, nil
}

// confirmAnswer scores the pending selection for a question and drives the
// state machine forward. Manual confirmation and the auto-confirm timer both
// funnel through here; whichever fires second observes cleared state and
// becomes a no-op. An auto-confirm with no selection on file scores a
// timed-out attempt so the rotation keeps moving.
func (s *Service) confirmAnswer(ctx context.Context, sess *Session, questionID string, auto bool) error {
	round, ok, err := s.activeRound(ctx, sess.quizID)
	if err != nil {
		return err
	}
	if !ok || !round.Mode.Sequential() {
		// Confirm raced round completion or abort; swallow.
		return nil
	}

	order, err := s.participantOrder(ctx, sess.quizID)
	if err != nil {
		return err
	}

	bonus, hasBonus, err := s.bonusState(ctx, sess.quizID)
	if err != nil {
		return err
	}

	kind := domain.AnswerNormal
	var answerer string
	switch {
	case hasBonus && bonus.QuestionID == questionID && bonus.Phase == domain.BonusPending:
		kind = domain.AnswerBonus
		answerer = bonus.BonusParticipantID
	case hasBonus && bonus.QuestionID == questionID && bonus.Phase == domain.BonusAnswered:
		kind = domain.AnswerOriginalReturn
		answerer = bonus.OriginalParticipantID
	default:
		active, q, err := s.currentQuestion(ctx, sess.quizID, round, order)
		if err != nil {
			return err
		}
		if q.ID != questionID {
			// Stale confirm for an already-advanced question; swallow.
			return nil
		}
		answerer = active
	}

	var pending domain.PendingSelection
	hasPending, err := s.store.Get(ctx, sess.quizID, fieldPendingSelection, &pending)
	if err != nil {
		return err
	}
	selected := domain.TimedOutOption
	if hasPending && pending.QuestionID == questionID {
		selected = pending.SelectedOption
		if pending.ParticipantID != "" {
			answerer = pending.ParticipantID
		}
	} else if !auto {
		// Idempotent confirmation: the slot was already cleared.
		return nil
	}

	correct, question, err := s.validate(ctx, sess.quizID, questionID, selected)
	if err != nil {
		return err
	}
	points := pointsFor(round.Mode, kind, correct)

	resp := domain.Response{
		ID:             uuid.NewString(),
		QuizID:         sess.quizID,
		RoundID:        round.ID,
		ParticipantID:  answerer,
		QuestionID:     questionID,
		SelectedOption: selected,
		IsCorrect:      correct,
		PointsEarned:   points,
		Kind:           kind,
		AnsweredAt:     s.now(),
	}
	if err := s.db.CreateResponse(ctx, resp); err != nil {
		if domain.IsCode(err, domain.CodeDuplicateResponse) {
			if auto {
				return nil
			}
			return err
		}
		return domain.ErrPersistence(err)
	}

	if err := s.store.Delete(ctx, sess.quizID, fieldPendingSelection); err != nil {
		return err
	}
	s.sched.Cancel(sess.quizID, questionID)

	// Bonus attempts leave the question eligible for the original
	// participant's return attempt.
	if kind != domain.AnswerBonus {
		if err := s.db.MarkQuestionAnswered(ctx, questionID); err != nil {
			return domain.ErrPersistence(err)
		}
		if err := s.appendAnswered(ctx, sess.quizID, round.ID, questionID); err != nil {
			return err
		}
	}

	if err := s.publishLeaderboard(ctx, sess); err != nil {
		return err
	}
	sess.broadcast(domain.Event{
		Type: domain.EventAnswerResult,
		Payload: domain.AnswerResultPayload{
			ParticipantID:  answerer,
			QuestionID:     questionID,
			SelectedOption: selected,
			IsCorrect:      correct,
			Points:         points,
			Kind:           kind,
			Message:        resultMessage(kind, correct, points),
		},
	})

	switch kind {
	case domain.AnswerBonus:
		// Control returns to the original participant for the same question.
		bonus.Phase = domain.BonusAnswered
		if err := s.store.Set(ctx, sess.quizID, fieldBonus, bonus, s.cfg.SessionTTL); err != nil {
			return err
		}
		if err := s.setActiveParticipant(ctx, sess.quizID, bonus.OriginalParticipantID); err != nil {
			return err
		}
		pub := question.Public()
		sess.broadcast(domain.Event{
			Type: domain.EventTurnAdvanced,
			Payload: domain.TurnAdvancedPayload{
				ActiveParticipantID: bonus.OriginalParticipantID,
				Question:            &pub,
			},
		})
		s.scheduleAutoConfirm(sess, round, questionID)
		return nil
	case domain.AnswerOriginalReturn:
		if err := s.store.Delete(ctx, sess.quizID, fieldBonus); err != nil {
			return err
		}
		sess.broadcast(domain.Event{
			Type: domain.EventBonusCompleted,
			Payload: domain.BonusCompletedPayload{
				QuestionID:            questionID,
				OriginalParticipantID: bonus.OriginalParticipantID,
			},
		})
		return s.advanceAfterDelay(ctx, sess, round, order, questionID)
	default:
		return s.advanceTurn(ctx, sess, round, order)
	}
}

// advanceTurn moves the cursor to the next participant, wrapping into the
// next rotation, and completes the round when the allotment is exhausted.
func (s *Service) advanceTurn(ctx context.Context, sess *Session, round domain.Round, order []domain.Participant) error {
	var cursor domain.TurnCursor
	if _, err := s.store.Get(ctx, sess.quizID, fieldCursor, &cursor); err != nil {
		return err
	}
	cursor.ParticipantIndex++
	if cursor.ParticipantIndex >= len(order) {
		cursor.ParticipantIndex = 0
		cursor.QuestionIndex++
	}

	questions, err := s.roundQuestions(ctx, sess.quizID, round.ID)
	if err != nil {
		return err
	}
	flat := cursor.QuestionIndex*len(order) + cursor.ParticipantIndex
	if cursor.QuestionIndex >= round.QuestionsPerParticipant || flat >= len(questions) {
		return s.completeRound(ctx, sess, round)
	}

	if err := s.store.Set(ctx, sess.quizID, fieldCursor, cursor, s.cfg.SessionTTL); err != nil {
		return err
	}
	next := order[cursor.ParticipantIndex]
	if err := s.setActiveParticipant(ctx, sess.quizID, next.ID); err != nil {
		return err
	}

	q := questions[flat]
	pub := q.Public()
	sess.broadcast(domain.Event{
		Type: domain.EventTurnAdvanced,
		Payload: domain.TurnAdvancedPayload{
			ActiveParticipantID: next.ID,
			Question:            &pub,
		},
	})
	s.scheduleAutoConfirm(sess, round, q.ID)
	return nil
}

// completeRound marks the round inactive, clears all transient state and
// cancels outstanding timers. No turn events follow.
func (s *Service) completeRound(ctx context.Context, sess *Session, round domain.Round) error {
	s.sched.CancelSession(sess.quizID)
	if err := s.db.SetRoundActive(ctx, round.ID, false); err != nil {
		return domain.ErrPersistence(err)
	}
	if err := s.clearRoundState(ctx, sess.quizID, round); err != nil {
		return err
	}
	sess.broadcast(domain.Event{
		Type:    domain.EventRoundCompleted,
		Payload: domain.RoundCompletedPayload{RoundID: round.ID},
	})
	return nil
}

// abortRound is the moderator's cancel switch: bonus state, pending
// selections and timers are all dropped. Aborting with no active round is a
// no-op.
func (s *Service) abortRound(ctx context.Context, sess *Session) error {
	round, ok, err := s.activeRound(ctx, sess.quizID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.sched.CancelSession(sess.quizID)
	if err := s.db.SetRoundActive(ctx, round.ID, false); err != nil {
		return domain.ErrPersistence(err)
	}
	if err := s.clearRoundState(ctx, sess.quizID, round); err != nil {
		return err
	}
	sess.broadcast(domain.Event{
		Type:    domain.EventRoundAborted,
		Payload: domain.RoundAbortedPayload{RoundID: round.ID},
	})
	return nil
}

func (s *Service) clearRoundState(ctx context.Context, quizID string, round domain.Round) error {
	fields := []string{
		fieldActiveRound,
		fieldActiveParticipant,
		fieldCursor,
		fieldPendingSelection,
		fieldBonus,
		questionsField(round.ID),
		chunksField(round.ID),
		answeredField(round.ID),
	}
	for _, f := range fields {
		if err := s.store.Delete(ctx, quizID, f); err != nil {
			return err
		}
	}
	order, err := s.participantOrder(ctx, quizID)
	if err != nil {
		return err
	}
	for _, p := range order {
		if err := s.store.Delete(ctx, quizID, progressField(round.ID, p.ID)); err != nil {
			return err
		}
	}
	return nil
}

// scheduleAutoConfirm arms the per-question deadline. The callback dispatches
// through the normal command path so it serializes with client commands.
func (s *Service) scheduleAutoConfirm(sess *Session, round domain.Round, questionID string) {
	d := time.Duration(round.TimeBudgetSeconds) * time.Second
	if d <= 0 {
		d = s.cfg.AutoConfirmFallback
	}
	quizID := sess.quizID
	s.sched.Schedule(quizID, questionID, d, func() {
		if _, err := s.Dispatch(context.Background(), quizID, systemActor, domain.AutoConfirmAnswer{QuestionID: questionID}); err != nil {
			log.Printf("auto-confirm %s/%s: %v", quizID, questionID, err)
		}
	})
}

// advanceAfterDelay gives clients a beat to settle after a bonus cycle
// before the rotation resumes. Purely cosmetic pacing.
func (s *Service) advanceAfterDelay(ctx context.Context, sess *Session, round domain.Round, order []domain.Participant, questionID string) error {
	if s.cfg.BonusReturnDelay <= 0 {
		return s.advanceTurn(ctx, sess, round, order)
	}
	quizID := sess.quizID
	s.sched.Schedule(quizID, "advance:"+questionID, s.cfg.BonusReturnDelay, func() {
		sess.dispatchMu.Lock()
		defer sess.dispatchMu.Unlock()
		ctx := context.Background()
		current, ok, err := s.activeRound(ctx, quizID)
		if err != nil || !ok || current.ID != round.ID {
			return
		}
		order, err := s.participantOrder(ctx, quizID)
		if err != nil {
			log.Printf("bonus advance %s: %v", quizID, err)
			return
		}
		if err := s.advanceTurn(ctx, sess, current, order); err != nil {
			log.Printf("bonus advance %s: %v", quizID, err)
		}
	})
	return nil
}
