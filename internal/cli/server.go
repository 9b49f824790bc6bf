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

	"quiz-raffle-service/internal/app"
	"quiz-raffle-service/internal/config"
	"quiz-raffle-service/internal/domain"
	"quiz-raffle-service/internal/infra/memory"
	pginfra "quiz-raffle-service/internal/infra/postgres"
	redisinfra "quiz-raffle-service/internal/infra/redis"
	transport "quiz-raffle-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz and raffle server",
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
		defer pool.Close()
	}

	quizCfg := app.QuizConfig{
		SessionTTL:  config.TTLDuration(cfg.Quiz.SessionTTL, 15*time.Minute),
		AnswerGrace: config.TTLDuration(cfg.Quiz.AnswerGrace, 3*time.Second),
	}
	raffleCfg := app.RaffleConfig{
		DefaultEntryLimit: cfg.Raffle.EntryLimit,
		PhoneTimeout:      config.TTLDuration(cfg.Raffle.PhoneTimeout, 2*time.Minute),
		QuestionTimeout:   config.TTLDuration(cfg.Raffle.QuestionTimeout, time.Minute),
		RotationWindow:    config.TTLDuration(cfg.Raffle.RotationWindow, 30*24*time.Hour),
	}
	poolTTL := config.TTLDuration(cfg.Quiz.PoolTTL, 10*time.Minute)

	var (
		durable  app.SessionStore
		types    app.QuizTypeRepository
		loader   memory.QuestionLoader
		attempts app.AttemptRecorder
		raffles  app.RaffleStore
		winnerQs app.WinnerQuestionRepository
	)
	if pool != nil {
		durable = pginfra.NewSessionStore(pool)
		types = pginfra.NewQuizTypeRepository(pool)
		loader = pginfra.NewQuestionLoader(pool)
		attempts = pginfra.NewAttemptRecorder(pool)
		raffles = pginfra.NewRaffleStore(pool)
		winnerQs = pginfra.NewWinnerQuestionRepository(pool)
	} else {
		durable = memory.NewSessionStore()
		types = memory.NewQuizTypeRepository(sampleQuizTypes())
		loader = memory.NewStaticQuestionLoader(sampleQuestions())
		attempts = memory.NewAttemptLog()
		raffles = memory.NewRaffleStore()
		winnerQs = memory.NewWinnerQuestionRepository(sampleWinnerQuestions())
	}

	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, poolTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, poolTTL)
	}

	sessions := durable
	if redisClient != nil {
		cacheTTL := config.TTLDuration(cfg.Redis.TTL, quizCfg.SessionTTL)
		sessions = app.NewDualSessionStore(durable, redisinfra.NewSessionCache(redisClient, cacheTTL))
	}

	quizService := app.NewQuizService(sessions, types, questions, attempts, quizCfg)
	raffleService := app.NewRaffleService(raffles, winnerQs, raffleCfg)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	sweeper := app.NewSweeper(sessions, raffles, raffleCfg)
	go sweeper.Run(sweepCtx, config.TTLDuration(cfg.Raffle.SweepInterval, time.Minute))

	api := transport.NewAPI(quizService, raffleService)
	feed := transport.NewDrawFeedHandler(raffleService)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	api.Register(mux)
	mux.HandleFunc("GET /ws/raffles/{id}", feed.ServeFeed)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz-raffle service on :%s", finalPort)
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

// sampleQuizTypes seeds the in-memory mode; production reads quiz types from Postgres.
func sampleQuizTypes() []domain.QuizType {
	return []domain.QuizType{
		{
			ID:              "easy-5",
			Name:            "Easy round",
			Difficulty:      "easy",
			Enabled:         true,
			QuestionCount:   3,
			TimeLimit:       20 * time.Second,
			MaxEntries:      3,
			AnswersPerEntry: 1,
		},
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID: "q1", Difficulty: "easy", Text: "What is 2 + 2?", Kind: "single", Points: 1,
			Answers: []domain.Answer{
				{ID: "q1a1", Text: "3"},
				{ID: "q1a2", Text: "4", Correct: true},
				{ID: "q1a3", Text: "5"},
			},
		},
		{
			ID: "q2", Difficulty: "easy", Text: "Which planet is closest to the sun?", Kind: "single", Points: 1,
			Answers: []domain.Answer{
				{ID: "q2a1", Text: "Mercury", Correct: true},
				{ID: "q2a2", Text: "Venus"},
			},
		},
		{
			ID: "q3", Difficulty: "easy", Text: "How many days are in a week?", Kind: "single", Points: 1,
			Answers: []domain.Answer{
				{ID: "q3a1", Text: "Six"},
				{ID: "q3a2", Text: "Seven", Correct: true},
			},
		},
	}
}

func sampleWinnerQuestions() []domain.WinnerQuestion {
	return []domain.WinnerQuestion{
		{ID: "w1", Text: "What is the capital of France?"},
		{ID: "w2", Text: "What color is the sky on a clear day?"},
	}
}
