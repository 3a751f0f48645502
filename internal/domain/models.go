package domain

import "time"

// Role classifies a connected client for command authorization.
type Role string

const (
	RoleModerator  Role = "moderator"
	RoleContestant Role = "contestant"
	RoleAudience   Role = "audience"
)

// Actor is the verified identity attached to a connection by the auth collaborator.
type Actor struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Role          Role   `json:"role"`
}

// Mode is the answering discipline of a round.
type Mode string

const (
	ModeSequentialMultipleChoice Mode = "sequential_multiple_choice"
	ModeSequentialYesNo          Mode = "sequential_yes_no"
	ModeSimultaneous             Mode = "simultaneous"
)

// Sequential reports whether the mode rotates a single turn among participants.
func (m Mode) Sequential() bool {
	return m == ModeSequentialMultipleChoice || m == ModeSequentialYesNo
}

// QuestionKind returns the question type a sequential round draws from.
// Simultaneous rounds draw from the whole pool.
func (m Mode) QuestionKind() QuestionKind {
	switch m {
	case ModeSequentialMultipleChoice:
		return KindMultipleChoice
	case ModeSequentialYesNo:
		return KindYesNo
	}
	return ""
}

// QuestionKind is the shape of a question's option list.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindYesNo          QuestionKind = "yes_no"
)

// Participant identifies one team in a quiz.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Round is a scored segment of a quiz. Everything but Active is owned by the
// quiz-management collaborator; the orchestrator only flips Active.
type Round struct {
	ID                      string `json:"id"`
	QuizID                  string `json:"quizId"`
	RoundNumber             int    `json:"roundNumber"`
	Mode                    Mode   `json:"mode"`
	TimeBudgetSeconds       int    `json:"timeBudgetSeconds"`
	QuestionsPerParticipant int    `json:"questionsPerParticipant"`
	Active                  bool   `json:"active"`
}

// Question is a read-only snapshot loaded at round start. CorrectOption must
// never reach contestant-facing clients.
type Question struct {
	ID             string       `json:"id"`
	QuizID         string       `json:"quizId"`
	Kind           QuestionKind `json:"kind"`
	Text           string       `json:"text"`
	Options        []string     `json:"options"`
	CorrectOption  int          `json:"correctOption"`
	SequenceNumber int          `json:"sequenceNumber"`
}

// Public strips the answer key for broadcast to clients.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:             q.ID,
		Kind:           q.Kind,
		Text:           q.Text,
		Options:        q.Options,
		SequenceNumber: q.SequenceNumber,
	}
}

// PublicQuestion is the client-safe view of a question.
type PublicQuestion struct {
	ID             string       `json:"id"`
	Kind           QuestionKind `json:"kind"`
	Text           string       `json:"text"`
	Options        []string     `json:"options"`
	SequenceNumber int          `json:"sequenceNumber"`
}

// AnswerKind distinguishes how a response was produced for scoring.
type AnswerKind string

const (
	AnswerNormal         AnswerKind = "normal"
	AnswerBonus          AnswerKind = "bonus"
	AnswerOriginalReturn AnswerKind = "original_return"
)

// TimedOutOption is recorded as the selected option when the auto-confirm
// deadline passes with no selection on file.
const TimedOutOption = -1

// Response is the persisted, append-only record of one scored attempt.
// At most one Response may exist per (participant, question) pair.
type Response struct {
	ID             string     `json:"id"`
	QuizID         string     `json:"quizId"`
	RoundID        string     `json:"roundId"`
	ParticipantID  string     `json:"participantId"`
	QuestionID     string     `json:"questionId"`
	SelectedOption int        `json:"selectedOption"`
	IsCorrect      bool       `json:"isCorrect"`
	PointsEarned   int        `json:"pointsEarned"`
	Kind           AnswerKind `json:"kind"`
	AnsweredAt     time.Time  `json:"answeredAt"`
}

// PendingSelection is a contestant's not-yet-confirmed answer.
type PendingSelection struct {
	QuestionID     string    `json:"questionId"`
	ParticipantID  string    `json:"participantId"`
	SelectedOption int       `json:"selectedOption"`
	SelectedAt     time.Time `json:"selectedAt"`
}

// BonusPhase tracks progress through the bonus sub-flow.
type BonusPhase string

const (
	BonusPending  BonusPhase = "bonus_pending"
	BonusAnswered BonusPhase = "bonus_answered"
)

// BonusState is the nested state machine entered when a sequential answer is
// marked incorrect and the moderator redirects the question to the next
// participant in order.
type BonusState struct {
	OriginalParticipantID string     `json:"originalParticipantId"`
	BonusParticipantID    string     `json:"bonusParticipantId"`
	QuestionID            string     `json:"questionId"`
	Phase                 BonusPhase `json:"phase"`
}

// TurnCursor identifies whose turn it is in a sequential round. QuestionIndex
// counts completed rotations through the order, not flat list positions.
type TurnCursor struct {
	ParticipantIndex int `json:"participantIndex"`
	QuestionIndex    int `json:"questionIndex"`
}

// SimultaneousProgress is one participant's independent progress through
// their assigned question chunk.
type SimultaneousProgress struct {
	AnsweredQuestionIDs []string `json:"answeredQuestionIds"`
	SkippedQuestionIDs  []string `json:"skippedQuestionIds"`
	Ended               bool     `json:"ended"`
}

// Seen reports whether the participant already handled the question, by
// answer or by skip.
func (p SimultaneousProgress) Seen(questionID string) bool {
	for _, id := range p.AnsweredQuestionIDs {
		if id == questionID {
			return true
		}
	}
	for _, id := range p.SkippedQuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// LeaderboardEntry is one participant's aggregate standing.
type LeaderboardEntry struct {
	ParticipantID string         `json:"participantId"`
	DisplayName   string         `json:"displayName"`
	TotalScore    int            `json:"totalScore"`
	Rank          int            `json:"rank"`
	PerRound      map[string]int `json:"perRound"`
}

// Leaderboard is the full-replacement scoreboard broadcast after every
// scoring event.
type Leaderboard struct {
	QuizID    string             `json:"quizId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ReadinessReport is the pre-start gate result for a round. Producing it
// never mutates state, so it may be requested repeatedly.
type ReadinessReport struct {
	RoundID            string `json:"roundId"`
	Required           int    `json:"required"`
	Available          int    `json:"available"`
	Shortage           int    `json:"shortage"`
	UnmetPrerequisites []int  `json:"unmetPrerequisites"`
	IsReady            bool   `json:"isReady"`
	CanStart           bool   `json:"canStart"`
}
