package app

import (
	"context"
	"time"

	"trivia-orchestrator/internal/domain"
)

// Config carries the tunable TTLs and pacing delays for the orchestrator.
type Config struct {
	// SessionTTL bounds the lifetime of order, cursor and bonus fields.
	SessionTTL time.Duration
	// SelectionTTL bounds a pending, unconfirmed answer selection.
	SelectionTTL time.Duration
	// BonusReturnDelay is cosmetic pacing before the turn advances after a
	// completed bonus cycle. Zero advances immediately.
	BonusReturnDelay time.Duration
	// AutoConfirmFallback is the auto-confirm deadline for rounds without a
	// time budget.
	AutoConfirmFallback time.Duration
}

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 4 * time.Hour
	}
	if c.SelectionTTL <= 0 {
		c.SelectionTTL = 5 * time.Minute
	}
	if c.AutoConfirmFallback <= 0 {
		c.AutoConfirmFallback = 30 * time.Second
	}
	return c
}

// systemActor originates scheduler-driven commands. The transport layer never
// decodes auto-confirm commands from clients.
var systemActor = domain.Actor{ParticipantID: "system", Role: domain.RoleModerator}

// Service is the round state machine: it owns every session mutation and the
// authoritative "what happens next" decision.
type Service struct {
	registry  *Registry
	store     SessionStore
	db        Persistence
	questions QuestionSnapshots
	sched     *scheduler
	cfg       Config
	now       func() time.Time
}

func NewService(store SessionStore, db Persistence, questions QuestionSnapshots, cfg Config) *Service {
	return NewServiceWithClock(store, db, questions, cfg, time.Now)
}

// NewServiceWithClock is test-only for deterministic timestamps.
func NewServiceWithClock(store SessionStore, db Persistence, questions QuestionSnapshots, cfg Config, now func() time.Time) *Service {
	return &Service{
		registry:  NewRegistry(),
		store:     store,
		db:        db,
		questions: questions,
		sched:     newScheduler(),
		cfg:       cfg.withDefaults(),
		now:       now,
	}
}

// Subscribe returns a channel of session events for one connected client.
func (s *Service) Subscribe(quizID string) (<-chan domain.Event, func()) {
	return s.registry.GetOrCreate(quizID).subscribe()
}

// Leave drops the actor from the connected registry and the session itself
// once the last client disconnects. Durable state decays via store TTLs.
func (s *Service) Leave(quizID, participantID string) {
	sess, ok := s.registry.Get(quizID)
	if !ok {
		return
	}
	sess.unregister(participantID)
	s.registry.DeleteIfEmpty(quizID)
}

// Dispatch routes one inbound command through the state machine. Commands for
// the same session run to completion in dispatch order; sessions are fully
// parallel with respect to each other. The returned event, if any, is a reply
// for the originating client only; everything else is broadcast.
func (s *Service) Dispatch(ctx context.Context, quizID string, actor domain.Actor, cmd domain.Command) (*domain.Event, error) {
	sess := s.registry.GetOrCreate(quizID)
	sess.dispatchMu.Lock()
	defer sess.dispatchMu.Unlock()

	switch c := cmd.(type) {
	case domain.JoinSession:
		return s.join(ctx, sess, actor)
	case domain.ReorderParticipants:
		if err := requireRole(actor, domain.RoleModerator, "reorder participants"); err != nil {
			return nil, err
		}
		return nil, s.reorder(ctx, sess, c.Order)
	case domain.StartRound:
		if err := requireRole(actor, domain.RoleModerator, "start a round"); err != nil {
			return nil, err
		}
		return nil, s.startRound(ctx, sess, c.RoundID)
	case domain.CheckRoundReadiness:
		if err := requireRole(actor, domain.RoleModerator, "check round readiness"); err != nil {
			return nil, err
		}
		round, err := s.db.FindRound(ctx, c.RoundID)
		if err != nil {
			return nil, err
		}
		report, err := s.checkReadiness(ctx, sess.quizID, round)
		if err != nil {
			return nil, err
		}
		return &domain.Event{Type: domain.EventReadinessReport, Payload: report}, nil
	case domain.SelectAnswer:
		if err := requireRole(actor, domain.RoleContestant, "select an answer"); err != nil {
			return nil, err
		}
		return nil, s.selectAnswer(ctx, sess, actor, c)
	case domain.ConfirmAnswer:
		if err := requireRole(actor, domain.RoleModerator, "confirm an answer"); err != nil {
			return nil, err
		}
		return nil, s.confirmAnswer(ctx, sess, c.QuestionID, false)
	case domain.AutoConfirmAnswer:
		// Scheduler-internal; the transport layer never decodes this type.
		return nil, s.confirmAnswer(ctx, sess, c.QuestionID, true)
	case domain.SubmitSimultaneousAnswer:
		if err := requireRole(actor, domain.RoleContestant, "submit an answer"); err != nil {
			return nil, err
		}
		return s.submitSimultaneous(ctx, sess, actor, c)
	case domain.SkipQuestion:
		if err := requireRole(actor, domain.RoleContestant, "skip a question"); err != nil {
			return nil, err
		}
		return nil, s.skipQuestion(ctx, sess, actor, c)
	case domain.EndSimultaneousParticipation:
		if err := requireRole(actor, domain.RoleContestant, "end participation"); err != nil {
			return nil, err
		}
		return nil, s.endParticipation(ctx, sess, actor)
	case domain.DispatchBonus:
		if err := requireRole(actor, domain.RoleModerator, "dispatch a bonus"); err != nil {
			return nil, err
		}
		return nil, s.dispatchBonus(ctx, sess, c.QuestionID)
	case domain.AbortRound:
		if err := requireRole(actor, domain.RoleModerator, "abort the round"); err != nil {
			return nil, err
		}
		return nil, s.abortRound(ctx, sess)
	}
	return nil, domain.ErrInvalidPayload("unsupported command")
}

func requireRole(actor domain.Actor, role domain.Role, action string) error {
	if actor.Role != role {
		return domain.ErrForbidden(action, actor.Role)
	}
	return nil
}

// join registers the actor, seeds the participant order on first use, and
// hands the joiner a leaderboard snapshot.
func (s *Service) join(ctx context.Context, sess *Session, actor domain.Actor) (*domain.Event, error) {
	sess.register(actor)

	if _, err := s.participantOrder(ctx, sess.quizID); err != nil {
		// A moderator may connect before any participant exists.
		if !domain.IsCode(err, domain.CodeNotFound) {
			return nil, err
		}
	}

	sess.broadcast(domain.Event{
		Type: domain.EventParticipantJoined,
		Payload: domain.ParticipantJoinedPayload{
			Participant: domain.Participant{ID: actor.ParticipantID, DisplayName: actor.DisplayName},
			Role:        actor.Role,
		},
	})

	lb, err := s.recomputeLeaderboard(ctx, sess.quizID)
	if err != nil {
		return nil, err
	}
	return &domain.Event{Type: domain.EventLeaderboardUpdated, Payload: lb}, nil
}

// activeRound returns the round snapshot cached at round start.
func (s *Service) activeRound(ctx context.Context, quizID string) (domain.Round, bool, error) {
	var round domain.Round
	ok, err := s.store.Get(ctx, quizID, fieldActiveRound, &round)
	return round, ok, err
}

func (s *Service) setActiveParticipant(ctx context.Context, quizID, participantID string) error {
	return s.store.Set(ctx, quizID, fieldActiveParticipant, participantID, s.cfg.SessionTTL)
}

func (s *Service) activeParticipant(ctx context.Context, quizID string) (string, error) {
	var id string
	if _, err := s.store.Get(ctx, quizID, fieldActiveParticipant, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) bonusState(ctx context.Context, quizID string) (domain.BonusState, bool, error) {
	var bonus domain.BonusState
	ok, err := s.store.Get(ctx, quizID, fieldBonus, &bonus)
	return bonus, ok, err
}

func (s *Service) appendAnswered(ctx context.Context, quizID, roundID, questionID string) error {
	var answered []string
	if _, err := s.store.Get(ctx, quizID, answeredField(roundID), &answered); err != nil {
		return err
	}
	answered = append(answered, questionID)
	return s.store.Set(ctx, quizID, answeredField(roundID), answered, s.cfg.SessionTTL)
}
