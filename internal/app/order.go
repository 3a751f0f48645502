package app

import (
	"context"
	"fmt"

	"trivia-orchestrator/internal/domain"
)

// participantOrder returns the session's ordered participant list, deriving
// and persisting a default order from the participant roster on first use.
func (s *Service) participantOrder(ctx context.Context, quizID string) ([]domain.Participant, error) {
	var order []domain.Participant
	ok, err := s.store.Get(ctx, quizID, fieldOrder, &order)
	if err != nil {
		return nil, err
	}
	if ok && len(order) > 0 {
		return order, nil
	}

	order, err = s.db.ListParticipantOrder(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		order, err = s.db.ListParticipants(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if len(order) == 0 {
			return nil, domain.ErrNotFound("participants for quiz", quizID)
		}
		if err := s.db.ReplaceParticipantOrder(ctx, quizID, order); err != nil {
			return nil, err
		}
	}
	if err := s.store.Set(ctx, quizID, fieldOrder, order, s.cfg.SessionTTL); err != nil {
		return nil, err
	}
	return order, nil
}

// reorder atomically replaces the participant order. Rejected while any
// round is active: the rotation is frozen once play begins.
func (s *Service) reorder(ctx context.Context, sess *Session, newOrder []string) error {
	rounds, err := s.db.ListRounds(ctx, sess.quizID)
	if err != nil {
		return err
	}
	for _, r := range rounds {
		if r.Active {
			return domain.ErrRoundAlreadyActive(r.ID)
		}
	}

	current, err := s.participantOrder(ctx, sess.quizID)
	if err != nil {
		return err
	}
	if len(newOrder) != len(current) {
		return domain.ErrInvalidPayload(fmt.Sprintf("order has %d entries, session has %d participants", len(newOrder), len(current)))
	}

	byID := make(map[string]domain.Participant, len(current))
	for _, p := range current {
		byID[p.ID] = p
	}
	ordered := make([]domain.Participant, 0, len(newOrder))
	seen := make(map[string]bool, len(newOrder))
	for _, id := range newOrder {
		p, ok := byID[id]
		if !ok {
			return domain.ErrInvalidPayload("unknown participant " + id)
		}
		if seen[id] {
			return domain.ErrInvalidPayload("duplicate participant " + id)
		}
		seen[id] = true
		ordered = append(ordered, p)
	}

	if err := s.db.ReplaceParticipantOrder(ctx, sess.quizID, ordered); err != nil {
		return err
	}
	if err := s.store.Set(ctx, sess.quizID, fieldOrder, ordered, s.cfg.SessionTTL); err != nil {
		return err
	}

	sess.broadcast(domain.Event{
		Type:    domain.EventParticipantOrderUpdated,
		Payload: domain.ParticipantOrderPayload{Order: ordered},
	})
	return nil
}
