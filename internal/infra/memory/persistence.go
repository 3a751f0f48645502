package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-orchestrator/internal/domain"
)

// Persistence is an in-memory system of record, useful for tests and for
// running the service without Postgres.
type Persistence struct {
	mu           sync.RWMutex
	rounds       map[string]*domain.Round
	questions    map[string]*storedQuestion
	participants map[string][]domain.Participant
	order        map[string][]domain.Participant
	responses    []domain.Response
	responseKeys map[string]struct{}
}

type storedQuestion struct {
	domain.Question
	answered bool
}

func NewPersistence() *Persistence {
	return &Persistence{
		rounds:       make(map[string]*domain.Round),
		questions:    make(map[string]*storedQuestion),
		participants: make(map[string][]domain.Participant),
		order:        make(map[string][]domain.Participant),
		responseKeys: make(map[string]struct{}),
	}
}

// SeedQuiz loads fixture data for one quiz.
func (p *Persistence) SeedQuiz(quizID string, participants []domain.Participant, rounds []domain.Round, questions []domain.Question) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.participants[quizID] = append([]domain.Participant(nil), participants...)
	for i := range rounds {
		r := rounds[i]
		r.QuizID = quizID
		p.rounds[r.ID] = &r
	}
	for i := range questions {
		q := questions[i]
		q.QuizID = quizID
		p.questions[q.ID] = &storedQuestion{Question: q}
	}
}

func (p *Persistence) FindRound(_ context.Context, roundID string) (domain.Round, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.rounds[roundID]
	if !ok {
		return domain.Round{}, domain.ErrNotFound("round", roundID)
	}
	return *r, nil
}

func (p *Persistence) ListRounds(_ context.Context, quizID string) ([]domain.Round, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var rounds []domain.Round
	for _, r := range p.rounds {
		if r.QuizID == quizID {
			rounds = append(rounds, *r)
		}
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].RoundNumber < rounds[j].RoundNumber })
	return rounds, nil
}

func (p *Persistence) SetRoundActive(_ context.Context, roundID string, active bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.rounds[roundID]
	if !ok {
		return domain.ErrNotFound("round", roundID)
	}
	r.Active = active
	return nil
}

func (p *Persistence) ListQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var questions []domain.Question
	for _, q := range p.questions {
		if q.QuizID == quizID {
			questions = append(questions, q.Question)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].SequenceNumber < questions[j].SequenceNumber })
	return questions, nil
}

func (p *Persistence) ListUnansweredQuestions(_ context.Context, quizID string, kind domain.QuestionKind) ([]domain.Question, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var questions []domain.Question
	for _, q := range p.questions {
		if q.QuizID != quizID || q.answered {
			continue
		}
		if kind != "" && q.Kind != kind {
			continue
		}
		questions = append(questions, q.Question)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].SequenceNumber < questions[j].SequenceNumber })
	return questions, nil
}

func (p *Persistence) MarkQuestionAnswered(_ context.Context, questionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.questions[questionID]
	if !ok {
		return domain.ErrNotFound("question", questionID)
	}
	q.answered = true
	return nil
}

func (p *Persistence) CreateResponse(_ context.Context, resp domain.Response) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := resp.ParticipantID + "|" + resp.QuestionID
	if _, exists := p.responseKeys[key]; exists {
		return domain.ErrDuplicateResponse(resp.ParticipantID, resp.QuestionID)
	}
	p.responseKeys[key] = struct{}{}
	p.responses = append(p.responses, resp)
	return nil
}

func (p *Persistence) ListResponses(_ context.Context, quizID string) ([]domain.Response, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var responses []domain.Response
	for _, r := range p.responses {
		if r.QuizID == quizID {
			responses = append(responses, r)
		}
	}
	return responses, nil
}

func (p *Persistence) ListParticipants(_ context.Context, quizID string) ([]domain.Participant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.Participant(nil), p.participants[quizID]...), nil
}

func (p *Persistence) ListParticipantOrder(_ context.Context, quizID string) ([]domain.Participant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.Participant(nil), p.order[quizID]...), nil
}

func (p *Persistence) ReplaceParticipantOrder(_ context.Context, quizID string, order []domain.Participant) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.order[quizID] = append([]domain.Participant(nil), order...)
	return nil
}
