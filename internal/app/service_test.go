package app_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"trivia-orchestrator/internal/app"
	"trivia-orchestrator/internal/domain"
	"trivia-orchestrator/internal/infra/memory"
)

var (
	moderator = domain.Actor{ParticipantID: "mod-1", DisplayName: "Mod", Role: domain.RoleModerator}
	audience  = domain.Actor{ParticipantID: "aud-1", DisplayName: "Watcher", Role: domain.RoleAudience}
)

func contestant(id string) domain.Actor {
	return domain.Actor{ParticipantID: id, DisplayName: id, Role: domain.RoleContestant}
}

func trio() []domain.Participant {
	return []domain.Participant{
		{ID: "alice", DisplayName: "Alice"},
		{ID: "bob", DisplayName: "Bob"},
		{ID: "cara", DisplayName: "Cara"},
	}
}

// mcQuestions builds q1..qn with three options each; option 1 is correct.
func mcQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:             fmt.Sprintf("q%d", i+1),
			Kind:           domain.KindMultipleChoice,
			Text:           fmt.Sprintf("Question %d", i+1),
			Options:        []string{"A", "B", "C"},
			CorrectOption:  1,
			SequenceNumber: i + 1,
		})
	}
	return questions
}

func newFixture(t *testing.T, participants []domain.Participant, rounds []domain.Round, questions []domain.Question) (*app.Service, *memory.Persistence) {
	t.Helper()
	db := memory.NewPersistence()
	db.SeedQuiz("quiz-1", participants, rounds, questions)
	service := app.NewService(
		memory.NewSessionStore(),
		db,
		memory.NewQuestionCache(db, time.Minute),
		app.Config{
			SessionTTL:   time.Hour,
			SelectionTTL: time.Minute,
			// Inline turn advancement keeps the tests synchronous.
			BonusReturnDelay:    0,
			AutoConfirmFallback: time.Hour,
		},
	)
	return service, db
}

// sequentialFixture is a three-team quiz with one sequential round of two
// questions per team. Ten questions cover the required eight.
func sequentialFixture(t *testing.T, questionCount int) (*app.Service, *memory.Persistence) {
	t.Helper()
	return newFixture(t, trio(), []domain.Round{{
		ID:                      "round-seq",
		RoundNumber:             1,
		Mode:                    domain.ModeSequentialMultipleChoice,
		TimeBudgetSeconds:       60,
		QuestionsPerParticipant: 2,
	}}, mcQuestions(questionCount))
}

// recorder drains a subscription so broadcast buffers never overflow during a
// long command sequence. drain must be called between commands.
type recorder struct {
	ch     <-chan domain.Event
	cancel func()
	events []domain.Event
}

func record(t *testing.T, service *app.Service, quizID string) *recorder {
	t.Helper()
	ch, cancel := service.Subscribe(quizID)
	r := &recorder{ch: ch, cancel: cancel}
	t.Cleanup(cancel)
	return r
}

func (r *recorder) drain() {
	for {
		select {
		case ev, ok := <-r.ch:
			if !ok {
				return
			}
			r.events = append(r.events, ev)
		default:
			return
		}
	}
}

func (r *recorder) ofType(typ string) []domain.Event {
	r.drain()
	var out []domain.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func dispatch(t *testing.T, service *app.Service, actor domain.Actor, cmd domain.Command) *domain.Event {
	t.Helper()
	reply, err := service.Dispatch(context.Background(), "quiz-1", actor, cmd)
	if err != nil {
		t.Fatalf("dispatch %T as %s: %v", cmd, actor.ParticipantID, err)
	}
	return reply
}

func TestReadinessReportCountsShortage(t *testing.T) {
	// 3 participants x 2 questions x 1.25 buffer = 8 required, 5 on hand.
	service, _ := sequentialFixture(t, 5)

	reply := dispatch(t, service, moderator, domain.CheckRoundReadiness{RoundID: "round-seq"})
	if reply == nil || reply.Type != domain.EventReadinessReport {
		t.Fatalf("expected readiness report, got %+v", reply)
	}
	report := reply.Payload.(domain.ReadinessReport)
	if report.Required != 8 || report.Available != 5 || report.Shortage != 3 {
		t.Fatalf("expected required=8 available=5 shortage=3, got %+v", report)
	}
	if report.IsReady || report.CanStart {
		t.Fatalf("expected not ready, got %+v", report)
	}

	_, err := service.Dispatch(context.Background(), "quiz-1", moderator, domain.StartRound{RoundID: "round-seq"})
	if !domain.IsCode(err, domain.CodeInsufficientQuestions) {
		t.Fatalf("expected insufficient_questions, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.Shortage != 3 {
		t.Fatalf("expected shortage 3 on error, got %v", err)
	}
}

func TestReadinessBlocksOnEarlierActiveRound(t *testing.T) {
	rounds := []domain.Round{
		{ID: "round-1", RoundNumber: 1, Mode: domain.ModeSequentialMultipleChoice, TimeBudgetSeconds: 60, QuestionsPerParticipant: 2},
		{ID: "round-2", RoundNumber: 2, Mode: domain.ModeSequentialMultipleChoice, TimeBudgetSeconds: 60, QuestionsPerParticipant: 2},
	}
	service, _ := newFixture(t, trio(), rounds, mcQuestions(10))

	dispatch(t, service, moderator, domain.StartRound{RoundID: "round-1"})

	reply := dispatch(t, service, moderator, domain.CheckRoundReadiness{RoundID: "round-2"})
	report := reply.Payload.(domain.ReadinessReport)
	if report.CanStart {
		t.Fatalf("expected round-2 blocked, got %+v", report)
	}
	if len(report.UnmetPrerequisites) != 1 || report.UnmetPrerequisites[0] != 1 {
		t.Fatalf("expected unmet prerequisite round 1, got %v", report.UnmetPrerequisites)
	}

	_, err := service.Dispatch(context.Background(), "quiz-1", moderator, domain.StartRound{RoundID: "round-2"})
	if !domain.IsCode(err, domain.CodePrerequisiteRoundsIncomplete) {
		t.Fatalf("expected prerequisite_rounds_incomplete, got %v", err)
	}
}

func TestReorderBeforeStart(t *testing.T) {
	service, db := sequentialFixture(t, 10)
	rec := record(t, service, "quiz-1")

	dispatch(t, service, moderator, domain.ReorderParticipants{Order: []string{"cara", "alice", "bob"}})

	updated := rec.ofType(domain.EventParticipantOrderUpdated)
	if len(updated) != 1 {
		t.Fatalf("expected one order update, got %d", len(updated))
	}
	order, err := db.ListParticipantOrder(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("list order: %v", err)
	}
	if order[0].ID != "cara" || order[1].ID != "alice" || order[2].ID != "bob" {
		t.Fatalf("expected persisted order cara,alice,bob, got %+v", order)
	}

	// The new first participant opens the round.
	dispatch(t, service, moderator, domain.StartRound{RoundID: "round-seq"})
	started := rec.ofType(domain.EventRoundStarted)
	payload := started[0].Payload.(domain.RoundStartedPayload)
	if payload.ActiveParticipantID != "cara" {
		t.Fatalf("expected cara to open, got %s", payload.ActiveParticipantID)
	}
}

func TestReorderFrozenWhileRoundActive(t *testing.T) {
	service, _ := sequentialFixture(t, 10)
	dispatch(t, service, moderator, domain.StartRound{RoundID: "round-seq"})

	_, err := service.Dispatch(context.Background(), "quiz-1", moderator,
		domain.ReorderParticipants{Order: []string{"cara", "alice", "bob"}})
	if !domain.IsCode(err, domain.CodeRoundAlreadyActive) {
		t.Fatalf("expected round_already_active, got %v", err)
	}
}

func TestReorderRejectsBadPermutations(t *testing.T) {
	service, _ := sequentialFixture(t, 10)
	ctx := context.Background()

	cases := [][]string{
		{"alice", "bob"},            // wrong length
		{"alice", "bob", "mallory"}, // unknown participant
		{"alice", "alice", "bob"},   // duplicate
	}
	for _, order := range cases {
		_, err := service.Dispatch(ctx, "quiz-1", moderator, domain.ReorderParticipants{Order: order})
		if !domain.IsCode(err, domain.CodeInvalidPayload) {
			t.Fatalf("order %v: expected invalid_payload, got %v", order, err)
		}
	}
}

func TestRoleGates(t *testing.T) {
	service, _ := sequentialFixture(t, 10)
	ctx := context.Background()

	cases := []struct {
		actor domain.Actor
		cmd   domain.Command
	}{
		{contestant("alice"), domain.StartRound{RoundID: "round-seq"}},
		{contestant("alice"), domain.ConfirmAnswer{QuestionID: "q1"}},
		{contestant("alice"), domain.DispatchBonus{QuestionID: "q1"}},
		{contestant("alice"), domain.AbortRound{}},
		{moderator, domain.SelectAnswer{QuestionID: "q1", SelectedOption: 0}},
		{audience, domain.SubmitSimultaneousAnswer{QuestionID: "q1", SelectedOption: 0}},
		{audience, domain.EndSimultaneousParticipation{}},
	}
	for _, tc := range cases {
		_, err := service.Dispatch(ctx, "quiz-1", tc.actor, tc.cmd)
		if !domain.IsCode(err, domain.CodeForbidden) {
			t.Fatalf("%T as %s: expected forbidden, got %v", tc.cmd, tc.actor.Role, err)
		}
	}
}

func TestJoinReplyIsLeaderboardSnapshot(t *testing.T) {
	service, db := sequentialFixture(t, 10)

	seedResponse(t, db, "bob", "q1", 2)
	seedResponse(t, db, "alice", "q2", 2)

	reply := dispatch(t, service, audience, domain.JoinSession{})
	if reply == nil || reply.Type != domain.EventLeaderboardUpdated {
		t.Fatalf("expected leaderboard reply, got %+v", reply)
	}
	lb := reply.Payload.(domain.Leaderboard)
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lb.Entries))
	}
	// Equal totals: first scorer wins the tie.
	if lb.Entries[0].ParticipantID != "bob" || lb.Entries[0].Rank != 1 {
		t.Fatalf("expected bob ranked first on tie, got %+v", lb.Entries[0])
	}
	if lb.Entries[1].ParticipantID != "alice" || lb.Entries[1].Rank != 2 {
		t.Fatalf("expected alice ranked second, got %+v", lb.Entries[1])
	}

	// Recomputation without new responses is stable.
	again := dispatch(t, service, audience, domain.JoinSession{})
	if !reflect.DeepEqual(lb.Entries, again.Payload.(domain.Leaderboard).Entries) {
		t.Fatalf("expected identical recompute, got %+v vs %+v", lb.Entries, again.Payload)
	}
}

func seedResponse(t *testing.T, db *memory.Persistence, participantID, questionID string, points int) {
	t.Helper()
	err := db.CreateResponse(context.Background(), domain.Response{
		ID:            participantID + "-" + questionID,
		QuizID:        "quiz-1",
		RoundID:       "round-seq",
		ParticipantID: participantID,
		QuestionID:    questionID,
		IsCorrect:     points > 0,
		PointsEarned:  points,
		Kind:          domain.AnswerNormal,
		AnsweredAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("seed response: %v", err)
	}
}
