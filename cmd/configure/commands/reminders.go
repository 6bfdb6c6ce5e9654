package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signlingo/api/internal/config"
	"github.com/signlingo/api/internal/database"
	"github.com/signlingo/api/internal/queue"
	"github.com/signlingo/api/internal/reminder"
)

// NewRemindersCmd creates the reminders command
func NewRemindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Operate the inactivity reminder pipeline",
	}
	cmd.AddCommand(newRemindersRunNowCmd())
	return cmd
}

func newRemindersRunNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-now",
		Short: "Sweep for due reminders and enqueue email jobs",
		Long:  "Finds users inactive past the configured threshold and enqueues one reminder email job each. Workers deliver the emails.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			zapLogger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = zapLogger.Sync() }()

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ connection: %v\n", err)
				}
			}()

			dispatcher := reminder.NewDispatcher(
				database.NewReminderRepository(db),
				jobQueue,
				cfg.ReminderDays,
				cfg.ReminderBatchLimit,
				zapLogger,
			)

			enqueued, err := dispatcher.RunNow(context.Background())
			if err != nil {
				return fmt.Errorf("reminder sweep failed: %w", err)
			}

			fmt.Printf("Enqueued %d reminder email job(s).\n", enqueued)
			return nil
		},
	}
}
