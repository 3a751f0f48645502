package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-orchestrator/internal/app"
	"trivia-orchestrator/internal/config"
	"trivia-orchestrator/internal/domain"
	"trivia-orchestrator/internal/infra/memory"
	pgstore "trivia-orchestrator/internal/infra/postgres"
	redisstore "trivia-orchestrator/internal/infra/redis"
	transport "trivia-orchestrator/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the orchestration server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var db app.Persistence
	var loader memory.QuestionLoader
	if pool != nil {
		pg := pgstore.NewPersistence(pool)
		db = pg
		loader = pg
	} else {
		mem := memory.NewPersistence()
		seedSampleQuiz(mem)
		db = mem
		loader = mem
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionSnapshots
	if redisClient != nil {
		questions = redisstore.NewQuestionCache(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionCache(loader, questionTTL)
	}

	var store app.SessionStore
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient)
	} else {
		store = memory.NewSessionStore()
	}

	service := app.NewService(store, db, questions, app.Config{
		SessionTTL:          config.TTLDuration(cfg.Session.TTL, 4*time.Hour),
		SelectionTTL:        config.TTLDuration(cfg.Session.SelectionTTL, 5*time.Minute),
		BonusReturnDelay:    config.TTLDuration(cfg.Pacing.BonusReturnDelay, 3*time.Second),
		AutoConfirmFallback: config.TTLDuration(cfg.Pacing.AutoConfirmFallback, 30*time.Second),
	})
	wsHandler := transport.NewWSHandler(service, transport.QueryAuthenticator{})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia orchestrator on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedSampleQuiz loads a small fixture so the server is playable without
// Postgres.
func seedSampleQuiz(p *memory.Persistence) {
	p.SeedQuiz("quiz-1",
		[]domain.Participant{
			{ID: "team-red", DisplayName: "Red Team"},
			{ID: "team-blue", DisplayName: "Blue Team"},
		},
		[]domain.Round{
			{ID: "round-1", RoundNumber: 1, Mode: domain.ModeSequentialMultipleChoice, TimeBudgetSeconds: 30, QuestionsPerParticipant: 2},
			{ID: "round-2", RoundNumber: 2, Mode: domain.ModeSimultaneous, TimeBudgetSeconds: 120, QuestionsPerParticipant: 2},
		},
		sampleQuestions(),
	)
}

func sampleQuestions() []domain.Question {
	questions := []domain.Question{
		{ID: "q1", Text: "Which planet is closest to the sun?", Options: []string{"Venus", "Mercury", "Mars"}, CorrectOption: 1},
		{ID: "q2", Text: "What is the capital of Australia?", Options: []string{"Sydney", "Melbourne", "Canberra"}, CorrectOption: 2},
		{ID: "q3", Text: "Which element has the symbol Fe?", Options: []string{"Iron", "Fluorine", "Francium"}, CorrectOption: 0},
		{ID: "q4", Text: "How many minutes are in a full day?", Options: []string{"1440", "3600", "720"}, CorrectOption: 0},
		{ID: "q5", Text: "Which ocean is the largest?", Options: []string{"Atlantic", "Indian", "Pacific"}, CorrectOption: 2},
		{ID: "q6", Text: "What gas do plants absorb from the air?", Options: []string{"Oxygen", "Carbon dioxide", "Nitrogen"}, CorrectOption: 1},
		{ID: "q7", Text: "Which country hosted the 2016 Summer Olympics?", Options: []string{"China", "Brazil", "UK"}, CorrectOption: 1},
		{ID: "q8", Text: "What is the square root of 144?", Options: []string{"11", "12", "14"}, CorrectOption: 1},
		{ID: "q9", Text: "Which composer wrote the Ninth Symphony?", Options: []string{"Mozart", "Bach", "Beethoven"}, CorrectOption: 2},
		{ID: "q10", Text: "What is the longest river in the world?", Options: []string{"Amazon", "Nile", "Yangtze"}, CorrectOption: 1},
	}
	for i := range questions {
		questions[i].Kind = domain.KindMultipleChoice
		questions[i].SequenceNumber = i + 1
	}
	return questions
}
