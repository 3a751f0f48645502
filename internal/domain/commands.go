package domain

// Command is the closed set of inbound session commands. The round state
// machine matches on the concrete type, so adding a command is a
// compile-time-checked change rather than a string lookup.
type Command interface {
	isCommand()
}

// JoinSession registers the connecting actor with the live session.
type JoinSession struct{}

// ReorderParticipants replaces the participant order before any round starts.
type ReorderParticipants struct {
	Order []string `json:"order"`
}

// StartRound begins a round after passing the readiness gate.
type StartRound struct {
	RoundID string `json:"roundId"`
}

// CheckRoundReadiness produces a readiness report without mutating state.
type CheckRoundReadiness struct {
	RoundID string `json:"roundId"`
}

// SelectAnswer records a contestant's provisional answer in sequential mode.
type SelectAnswer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
}

// ConfirmAnswer scores the pending selection. Moderator-only.
type ConfirmAnswer struct {
	QuestionID string `json:"questionId"`
}

// AutoConfirmAnswer is raised by the per-question timer when the time budget
// runs out. It is never accepted from clients.
type AutoConfirmAnswer struct {
	QuestionID string `json:"questionId"`
}

// SubmitSimultaneousAnswer scores an answer immediately in simultaneous mode.
type SubmitSimultaneousAnswer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
}

// SkipQuestion records an unscored pass over one of the participant's
// assigned questions in simultaneous mode.
type SkipQuestion struct {
	QuestionID string `json:"questionId"`
}

// EndSimultaneousParticipation finishes the participant's independent run.
type EndSimultaneousParticipation struct{}

// DispatchBonus redirects an incorrectly answered question to the next
// participant for a reduced-value attempt. Moderator-only.
type DispatchBonus struct {
	QuestionID string `json:"questionId"`
}

// AbortRound cancels the active round, clearing all transient state and
// timers. Moderator-only.
type AbortRound struct{}

func (JoinSession) isCommand()                  {}
func (ReorderParticipants) isCommand()          {}
func (StartRound) isCommand()                   {}
func (CheckRoundReadiness) isCommand()          {}
func (SelectAnswer) isCommand()                 {}
func (ConfirmAnswer) isCommand()                {}
func (AutoConfirmAnswer) isCommand()            {}
func (SubmitSimultaneousAnswer) isCommand()     {}
func (SkipQuestion) isCommand()                 {}
func (EndSimultaneousParticipation) isCommand() {}
func (DispatchBonus) isCommand()                {}
func (AbortRound) isCommand()                   {}
