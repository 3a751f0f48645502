package domain

// Event is the outbound envelope broadcast to session members.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	EventRoundStarted            = "roundStarted"
	EventReadinessReport         = "readinessReport"
	EventAnswerSelected          = "answerSelected"
	EventAnswerResult            = "answerResult"
	EventBonusDispatched         = "bonusDispatched"
	EventBonusCompleted          = "bonusCompleted"
	EventTurnAdvanced            = "turnAdvanced"
	EventRoundCompleted          = "roundCompleted"
	EventRoundAborted            = "roundAborted"
	EventLeaderboardUpdated      = "leaderboardUpdated"
	EventParticipantOrderUpdated = "participantOrderUpdated"
	EventParticipantJoined       = "participantJoined"
	EventParticipantFinished     = "participantFinished"
	EventQuestionSkipped         = "questionSkipped"
	EventError                   = "error"
)

// RoundStartedPayload announces a new round. Sequential rounds carry the
// first question and active participant; simultaneous rounds carry one
// disjoint question chunk per participant.
type RoundStartedPayload struct {
	RoundID             string                      `json:"roundId"`
	RoundNumber         int                         `json:"roundNumber"`
	Mode                Mode                        `json:"mode"`
	TimeBudgetSeconds   int                         `json:"timeBudgetSeconds"`
	Order               []Participant               `json:"order"`
	Question            *PublicQuestion             `json:"question,omitempty"`
	ActiveParticipantID string                      `json:"activeParticipantId,omitempty"`
	Chunks              map[string][]PublicQuestion `json:"chunks,omitempty"`
}

// AnswerSelectedPayload mirrors a provisional selection to the session so the
// moderator can confirm it.
type AnswerSelectedPayload struct {
	QuestionID     string `json:"questionId"`
	ParticipantID  string `json:"participantId"`
	SelectedOption int    `json:"selectedOption"`
}

// AnswerResultPayload reports the outcome of one scored attempt.
type AnswerResultPayload struct {
	ParticipantID  string     `json:"participantId"`
	QuestionID     string     `json:"questionId"`
	SelectedOption int        `json:"selectedOption"`
	IsCorrect      bool       `json:"isCorrect"`
	Points         int        `json:"points"`
	Kind           AnswerKind `json:"kind"`
	Message        string     `json:"message"`
}

type BonusDispatchedPayload struct {
	QuestionID            string `json:"questionId"`
	OriginalParticipantID string `json:"originalParticipantId"`
	BonusParticipantID    string `json:"bonusParticipantId"`
}

type BonusCompletedPayload struct {
	QuestionID            string `json:"questionId"`
	OriginalParticipantID string `json:"originalParticipantId"`
}

// TurnAdvancedPayload names the next active participant and question, or
// marks the round complete when the rotation is exhausted.
type TurnAdvancedPayload struct {
	ActiveParticipantID string          `json:"activeParticipantId,omitempty"`
	Question            *PublicQuestion `json:"question,omitempty"`
	RoundCompleted      bool            `json:"roundCompleted"`
}

type RoundCompletedPayload struct {
	RoundID string `json:"roundId"`
}

type RoundAbortedPayload struct {
	RoundID string `json:"roundId"`
}

type ParticipantOrderPayload struct {
	Order []Participant `json:"order"`
}

type ParticipantJoinedPayload struct {
	Participant Participant `json:"participant"`
	Role        Role        `json:"role"`
}

type ParticipantFinishedPayload struct {
	ParticipantID string `json:"participantId"`
}

type QuestionSkippedPayload struct {
	ParticipantID string `json:"participantId"`
	QuestionID    string `json:"questionId"`
}

// ErrorEvent wraps a structured error for the originating client.
func ErrorEvent(err *Error) Event {
	return Event{Type: EventError, Payload: err}
}
