package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quiz-raffle-service/internal/app"
	"quiz-raffle-service/internal/config"
	pginfra "quiz-raffle-service/internal/infra/postgres"
)

// NewSweepCmd runs the expiry sweeps once, for cron-style scheduling outside
// the server process. Idempotent on any cadence.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale quiz sessions and void stale raffle draws once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), *configPath)
		},
	}
}

func runSweep(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("sweep requires a configured postgres url")
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	raffleCfg := app.RaffleConfig{
		PhoneTimeout:    config.TTLDuration(cfg.Raffle.PhoneTimeout, 2*time.Minute),
		QuestionTimeout: config.TTLDuration(cfg.Raffle.QuestionTimeout, time.Minute),
	}
	sweeper := app.NewSweeper(pginfra.NewSessionStore(pool), pginfra.NewRaffleStore(pool), raffleCfg)

	expired, err := sweeper.ExpireStaleSessions(ctx)
	if err != nil {
		return err
	}
	voided, err := sweeper.VoidStaleDraws(ctx)
	if err != nil {
		return err
	}
	log.Printf("sweep done: expired %d sessions, voided %d draws", expired, voided)
	return nil
}
