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

	"quiz-raffle-service/internal/app"
	"quiz-raffle-service/internal/domain"
	"quiz-raffle-service/internal/infra/postgres"
	"quiz-raffle-service/internal/infra/postgres/migrations"
	infraredis "quiz-raffle-service/internal/infra/redis"
)

func TestQuizToRaffleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedDatabase(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	quiz := app.NewQuizService(
		app.NewDualSessionStore(
			postgres.NewSessionStore(pool),
			infraredis.NewSessionCache(redisClient, 15*time.Minute),
		),
		postgres.NewQuizTypeRepository(pool),
		infraredis.NewQuestionRepository(redisClient, postgres.NewQuestionLoader(pool), 5*time.Minute),
		postgres.NewAttemptRecorder(pool),
		app.DefaultQuizConfig(),
	)
	raffles := app.NewRaffleService(
		postgres.NewRaffleStore(pool),
		postgres.NewWinnerQuestionRepository(pool),
		app.DefaultRaffleConfig(),
	)

	// Play the quiz: both questions answered correctly.
	started, err := quiz.Start(ctx, "u1", "qt1")
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	correctByQuestion := map[string]string{"q1": "q1a2", "q2": "q2a1"}
	for i := 0; i < started.TotalQuestions; i++ {
		view, err := quiz.NextQuestion(ctx, started.Token)
		if err != nil {
			t.Fatalf("question %d: %v", i+1, err)
		}
		result, err := quiz.SubmitAnswer(ctx, started.Token, view.ID, correctByQuestion[view.ID], 4*time.Second)
		if err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
		if !result.Correct {
			t.Fatalf("answer %d judged wrong", i+1)
		}
	}
	results, err := quiz.Complete(ctx, started.Token)
	if err != nil {
		t.Fatalf("complete quiz: %v", err)
	}
	if results.Correct != 2 || results.EntriesEarned != 2 {
		t.Fatalf("unexpected results %+v", results)
	}

	// Feed the earned entries into a raffle and resolve a winner.
	raffleID, err := raffles.CreateEvent(ctx, "Friday night", "A bicycle", true, time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("create raffle: %v", err)
	}
	requests := make([]app.EntryRequest, results.EntriesEarned)
	for i := range requests {
		requests[i] = app.EntryRequest{UserID: "u1", Phone: "+15550001", SourceType: "quiz", SourceID: started.Token}
	}
	accepted, err := raffles.AddEntries(ctx, raffleID, requests)
	if err != nil {
		t.Fatalf("add entries: %v", err)
	}
	if accepted != results.EntriesEarned {
		t.Fatalf("expected %d accepted, got %d", results.EntriesEarned, accepted)
	}

	if err := raffles.StartDraw(ctx, raffleID); err != nil {
		t.Fatalf("start draw: %v", err)
	}
	drawn, err := raffles.DrawWinner(ctx, raffleID)
	if err != nil {
		t.Fatalf("draw winner: %v", err)
	}
	if drawn.Question.ID == "" {
		t.Fatalf("expected a verification question")
	}
	if err := raffles.RecordPhoneAnswer(ctx, drawn.Draw.ID, true); err != nil {
		t.Fatalf("record phone: %v", err)
	}
	if err := raffles.RecordQuestionAnswer(ctx, drawn.Draw.ID, time.Now(), true); err != nil {
		t.Fatalf("record question: %v", err)
	}
	if err := raffles.CompleteEvent(ctx, raffleID, drawn.Entry.ID); err != nil {
		t.Fatalf("complete raffle: %v", err)
	}

	event, err := raffles.Event(ctx, raffleID)
	if err != nil {
		t.Fatalf("load raffle: %v", err)
	}
	if event.Status != domain.RaffleCompleted || event.WinnerEntryID != drawn.Entry.ID {
		t.Fatalf("unexpected completed raffle %+v", event)
	}
}

func TestEntryCapacityEnforcedInPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	seedDatabase(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	raffles := app.NewRaffleService(
		postgres.NewRaffleStore(pool),
		postgres.NewWinnerQuestionRepository(pool),
		app.DefaultRaffleConfig(),
	)

	raffleID, err := raffles.CreateEvent(ctx, "Small raffle", "A mug", false, time.Now().Add(time.Hour), 3)
	if err != nil {
		t.Fatalf("create raffle: %v", err)
	}

	batch := make([]app.EntryRequest, 5)
	for i := range batch {
		batch[i] = app.EntryRequest{UserID: fmt.Sprintf("u%d", i), Phone: "+15550000"}
	}
	accepted, err := raffles.AddEntries(ctx, raffleID, batch)
	if err != nil {
		t.Fatalf("add entries: %v", err)
	}
	if accepted != 3 {
		t.Fatalf("expected capacity cutoff at 3, got %d", accepted)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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

// seedDatabase runs the migrations and loads a quiz type, its question pool,
// and the winner-question pool.
func seedDatabase(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	exec := func(query string, args ...any) {
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	exec(`INSERT INTO quiz_types (id, name, difficulty, enabled, question_count, time_limit_seconds, max_entries, answers_per_entry)
		VALUES ('qt1', 'Easy round', 'easy', TRUE, 2, 20, 3, 1)`)

	exec(`INSERT INTO questions (id, difficulty, text) VALUES
		('q1', 'easy', 'What is 2 + 2?'),
		('q2', 'easy', 'Largest ocean?')`)
	exec(`INSERT INTO question_answers (id, question_id, text, correct) VALUES
		('q1a1', 'q1', '3', FALSE),
		('q1a2', 'q1', '4', TRUE),
		('q2a1', 'q2', 'Pacific', TRUE),
		('q2a2', 'q2', 'Atlantic', FALSE)`)

	exec(`INSERT INTO winner_questions (id, text) VALUES
		('wq1', 'Name the capital of France.'),
		('wq2', 'Spell the word raffle.')`)
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
