package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/signlingo/api/internal/config"
	"github.com/signlingo/api/internal/database"
	"github.com/signlingo/api/internal/logger"
	"github.com/signlingo/api/internal/mailer"
	"github.com/signlingo/api/internal/queue"
	"github.com/signlingo/api/internal/reminder"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("worker_starting", zap.Bool("debug_mode", debugMode))

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("database_connection_failed", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("database_close_failed", zap.Error(err))
		}
	}()
	zapLogger.Info("database_connected")

	reminderRepo := database.NewReminderRepository(db)

	mail, err := mailer.NewMailer(zapLogger)
	if err != nil {
		zapLogger.Fatal("mailer_setup_failed", zap.Error(err))
	}

	jobQueue := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("rabbitmq_close_failed", zap.Error(err))
		}
	}()

	processor := reminder.NewProcessor(jobQueue, mail, reminderRepo, cfg.FrontendURL, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- processor.Run(ctx)
	}()

	zapLogger.Info("worker_consuming", zap.String("queue", queue.DefaultQueueName))

	select {
	case <-sigChan:
		zapLogger.Info("shutdown_signal_received")
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Fatal("worker_stopped_with_error", zap.Error(err))
		}
	}

	zapLogger.Info("worker_stopped")
}

// connectRabbitMQ retries the broker connection with exponential backoff.
// The worker usually races the broker at deploy time.
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	delay := 2 * time.Second
	for attempt := 1; ; attempt++ {
		q, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("rabbitmq_connected", zap.Int("attempt", attempt))
			return q
		}
		if attempt >= maxRetries {
			zapLogger.Fatal("rabbitmq_connection_failed", zap.Int("attempts", attempt), zap.Error(err))
		}
		zapLogger.Warn("rabbitmq_connection_retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
		delay *= 2
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
}
