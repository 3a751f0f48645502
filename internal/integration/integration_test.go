package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-orchestrator/internal/app"
	"trivia-orchestrator/internal/domain"
	pgstore "trivia-orchestrator/internal/infra/postgres"
	pgmigrations "trivia-orchestrator/internal/infra/postgres/migrations"
	infraredis "trivia-orchestrator/internal/infra/redis"
)

func TestSequentialRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedTrivia(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	db := pgstore.NewPersistence(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	service := app.NewService(
		infraredis.NewSessionStore(redisClient),
		db,
		infraredis.NewQuestionCache(redisClient, db, 5*time.Minute),
		app.Config{SessionTTL: time.Hour, SelectionTTL: time.Minute},
	)

	moderator := domain.Actor{ParticipantID: "mod-1", DisplayName: "Mod", Role: domain.RoleModerator}
	alice := domain.Actor{ParticipantID: "alice", DisplayName: "Alice", Role: domain.RoleContestant}

	if _, err := service.Dispatch(ctx, "quiz-1", moderator, domain.JoinSession{}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.Dispatch(ctx, "quiz-1", moderator, domain.StartRound{RoundID: "round-1"}); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if _, err := service.Dispatch(ctx, "quiz-1", alice, domain.SelectAnswer{QuestionID: "q1", SelectedOption: 1}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := service.Dispatch(ctx, "quiz-1", moderator, domain.ConfirmAnswer{QuestionID: "q1"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	var points int
	var correct bool
	err = pool.QueryRow(ctx, `
		SELECT points_earned, is_correct FROM responses
		WHERE quiz_id='quiz-1' AND participant_id='alice' AND question_id='q1'`).Scan(&points, &correct)
	if err != nil {
		t.Fatalf("read response row: %v", err)
	}
	if !correct || points != 2 {
		t.Fatalf("expected correct response worth 2, got correct=%v points=%d", correct, points)
	}

	// One participant, one question each: confirming completes the round.
	round, err := db.FindRound(ctx, "round-1")
	if err != nil {
		t.Fatalf("find round: %v", err)
	}
	if round.Active {
		t.Fatalf("expected round inactive after completion")
	}

	// Scoring once more for the same pair must hit the unique constraint.
	err = db.CreateResponse(ctx, domain.Response{
		ID:            "dup",
		QuizID:        "quiz-1",
		RoundID:       "round-1",
		ParticipantID: "alice",
		QuestionID:    "q1",
		Kind:          domain.AnswerNormal,
		AnsweredAt:    time.Now(),
	})
	if !domain.IsCode(err, domain.CodeDuplicateResponse) {
		t.Fatalf("expected duplicate_response, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// seedTrivia migrates the schema and loads one quiz: a single team and a
// one-question-per-team sequential round with a spare question for the buffer.
func seedTrivia(t *testing.T, ctx context.Context, dsn string) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	statements := []string{
		`INSERT INTO participants (id, quiz_id, display_name) VALUES ('alice', 'quiz-1', 'Alice')`,
		`INSERT INTO rounds (id, quiz_id, round_number, mode, time_budget_seconds, questions_per_participant)
		 VALUES ('round-1', 'quiz-1', 1, 'sequential_multiple_choice', 60, 1)`,
		`INSERT INTO questions (id, quiz_id, kind, text, options, correct_option, sequence_number)
		 VALUES ('q1', 'quiz-1', 'multiple_choice', 'First?', '["A","B","C"]'::jsonb, 1, 1)`,
		`INSERT INTO questions (id, quiz_id, kind, text, options, correct_option, sequence_number)
		 VALUES ('q2', 'quiz-1', 'multiple_choice', 'Spare?', '["A","B","C"]'::jsonb, 0, 2)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
