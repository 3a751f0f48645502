package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-orchestrator/internal/domain"
)

const uniqueViolation = "23505"

// Persistence is the Postgres-backed system of record for rounds, questions,
// participants and responses.
type Persistence struct {
	pool *pgxpool.Pool
}

func NewPersistence(pool *pgxpool.Pool) *Persistence {
	return &Persistence{pool: pool}
}

func (p *Persistence) FindRound(ctx context.Context, roundID string) (domain.Round, error) {
	var r domain.Round
	err := p.pool.QueryRow(ctx, `
		SELECT id, quiz_id, round_number, mode, time_budget_seconds, questions_per_participant, active
		FROM rounds WHERE id=$1`, roundID).
		Scan(&r.ID, &r.QuizID, &r.RoundNumber, &r.Mode, &r.TimeBudgetSeconds, &r.QuestionsPerParticipant, &r.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Round{}, domain.ErrNotFound("round", roundID)
	}
	if err != nil {
		return domain.Round{}, fmt.Errorf("find round: %w", err)
	}
	return r, nil
}

func (p *Persistence) ListRounds(ctx context.Context, quizID string) ([]domain.Round, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, quiz_id, round_number, mode, time_budget_seconds, questions_per_participant, active
		FROM rounds WHERE quiz_id=$1 ORDER BY round_number`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []domain.Round
	for rows.Next() {
		var r domain.Round
		if err := rows.Scan(&r.ID, &r.QuizID, &r.RoundNumber, &r.Mode, &r.TimeBudgetSeconds, &r.QuestionsPerParticipant, &r.Active); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

func (p *Persistence) SetRoundActive(ctx context.Context, roundID string, active bool) error {
	tag, err := p.pool.Exec(ctx, `UPDATE rounds SET active=$2 WHERE id=$1`, roundID, active)
	if err != nil {
		return fmt.Errorf("set round active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("round", roundID)
	}
	return nil
}

func (p *Persistence) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	return p.queryQuestions(ctx, `
		SELECT id, quiz_id, kind, text, options, correct_option, sequence_number
		FROM questions WHERE quiz_id=$1 ORDER BY sequence_number`, quizID)
}

func (p *Persistence) ListUnansweredQuestions(ctx context.Context, quizID string, kind domain.QuestionKind) ([]domain.Question, error) {
	if kind == "" {
		return p.queryQuestions(ctx, `
			SELECT id, quiz_id, kind, text, options, correct_option, sequence_number
			FROM questions WHERE quiz_id=$1 AND NOT answered ORDER BY sequence_number`, quizID)
	}
	return p.queryQuestions(ctx, `
		SELECT id, quiz_id, kind, text, options, correct_option, sequence_number
		FROM questions WHERE quiz_id=$1 AND kind=$2 AND NOT answered ORDER BY sequence_number`, quizID, kind)
}

func (p *Persistence) queryQuestions(ctx context.Context, query string, args ...any) ([]domain.Question, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Kind, &q.Text, &options, &q.CorrectOption, &q.SequenceNumber); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (p *Persistence) MarkQuestionAnswered(ctx context.Context, questionID string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE questions SET answered=TRUE WHERE id=$1`, questionID)
	if err != nil {
		return fmt.Errorf("mark question answered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("question", questionID)
	}
	return nil
}

func (p *Persistence) CreateResponse(ctx context.Context, resp domain.Response) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO responses (id, quiz_id, round_id, participant_id, question_id, selected_option, is_correct, points_earned, kind, answered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		resp.ID, resp.QuizID, resp.RoundID, resp.ParticipantID, resp.QuestionID,
		resp.SelectedOption, resp.IsCorrect, resp.PointsEarned, resp.Kind, resp.AnsweredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateResponse(resp.ParticipantID, resp.QuestionID)
		}
		return fmt.Errorf("create response: %w", err)
	}
	return nil
}

func (p *Persistence) ListResponses(ctx context.Context, quizID string) ([]domain.Response, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, quiz_id, round_id, participant_id, question_id, selected_option, is_correct, points_earned, kind, answered_at
		FROM responses WHERE quiz_id=$1 ORDER BY answered_at, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []domain.Response
	for rows.Next() {
		var r domain.Response
		if err := rows.Scan(&r.ID, &r.QuizID, &r.RoundID, &r.ParticipantID, &r.QuestionID,
			&r.SelectedOption, &r.IsCorrect, &r.PointsEarned, &r.Kind, &r.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func (p *Persistence) ListParticipants(ctx context.Context, quizID string) ([]domain.Participant, error) {
	return p.queryParticipants(ctx, `
		SELECT id, display_name FROM participants WHERE quiz_id=$1 ORDER BY id`, quizID)
}

func (p *Persistence) ListParticipantOrder(ctx context.Context, quizID string) ([]domain.Participant, error) {
	return p.queryParticipants(ctx, `
		SELECT id, display_name FROM participants WHERE quiz_id=$1 AND position >= 0 ORDER BY position, id`, quizID)
}

func (p *Persistence) queryParticipants(ctx context.Context, query string, args ...any) ([]domain.Participant, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (p *Persistence) ReplaceParticipantOrder(ctx context.Context, quizID string, order []domain.Participant) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order update: %w", err)
	}
	defer tx.Rollback(ctx)

	for pos, participant := range order {
		if _, err := tx.Exec(ctx, `UPDATE participants SET position=$1 WHERE id=$2 AND quiz_id=$3`,
			pos, participant.ID, quizID); err != nil {
			return fmt.Errorf("update participant position: %w", err)
		}
	}
	return tx.Commit(ctx)
}
