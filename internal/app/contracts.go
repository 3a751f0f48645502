package app

import (
	"context"
	"time"

	"trivia-orchestrator/internal/domain"
)

// SessionStore holds all mutable, ephemeral per-session state as TTL'd,
// JSON-serialized fields scoped to a quiz id. Pure storage, no policy;
// the round state machine is the sole writer of turn, cursor and bonus
// fields, so last-write-wins is sufficient.
type SessionStore interface {
	Set(ctx context.Context, quizID, field string, value any, ttl time.Duration) error
	// Get unmarshals the field into dest and reports whether it was present.
	Get(ctx context.Context, quizID, field string, dest any) (bool, error)
	Delete(ctx context.Context, quizID, field string) error
	// Clear drops every field for the session.
	Clear(ctx context.Context, quizID string) error
}

// Session store field names. Round-scoped fields embed the round id so stale
// entries from a previous round can never be misread.
const (
	fieldOrder             = "order"
	fieldActiveRound       = "active_round"
	fieldActiveParticipant = "active_participant"
	fieldCursor            = "cursor"
	fieldPendingSelection  = "pending_selection"
	fieldBonus             = "bonus"
)

func questionsField(roundID string) string { return "questions:" + roundID }
func chunksField(roundID string) string    { return "chunks:" + roundID }
func answeredField(roundID string) string  { return "answered:" + roundID }

func progressField(roundID, participantID string) string {
	return "progress:" + roundID + ":" + participantID
}

// Persistence is the excluded storage collaborator. Rounds, questions,
// participants and responses are the system of record; the orchestrator
// reads them and appends responses.
type Persistence interface {
	FindRound(ctx context.Context, roundID string) (domain.Round, error)
	ListRounds(ctx context.Context, quizID string) ([]domain.Round, error)
	SetRoundActive(ctx context.Context, roundID string, active bool) error

	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	// ListUnansweredQuestions returns unanswered questions ordered by
	// sequence number. An empty kind matches every question type.
	ListUnansweredQuestions(ctx context.Context, quizID string, kind domain.QuestionKind) ([]domain.Question, error)
	MarkQuestionAnswered(ctx context.Context, questionID string) error

	// CreateResponse appends a response. It fails with a duplicate_response
	// error when a response already exists for the (participant, question)
	// pair; this is the sole idempotence guard against double scoring.
	CreateResponse(ctx context.Context, resp domain.Response) error
	// ListResponses returns all responses for the quiz in insertion order.
	ListResponses(ctx context.Context, quizID string) ([]domain.Response, error)

	ListParticipants(ctx context.Context, quizID string) ([]domain.Participant, error)
	ListParticipantOrder(ctx context.Context, quizID string) ([]domain.Participant, error)
	ReplaceParticipantOrder(ctx context.Context, quizID string, order []domain.Participant) error
}

// QuestionSnapshots serves cached question snapshots, answer key included,
// for validation. Snapshots are stable for the cache TTL even if the
// persisted pool changes mid-round.
type QuestionSnapshots interface {
	GetQuestion(ctx context.Context, quizID, questionID string) (domain.Question, error)
}
