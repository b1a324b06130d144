package main

import (
	"context"
	"errors"
	"time"

	"moneybook/internal/cli"
	"moneybook/internal/log"
	"moneybook/internal/recurrence"
	"moneybook/internal/services"
	"moneybook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(nil))
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	logger.Info("Starting moneybook-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// The worker recomputes inline: it is the consumer end of the queue.
	engine := services.NewEngine(repo, cli.EngineOptions(cfg, logger, nil)...)
	defer engine.Close()

	processor := recurrence.NewProcessor(repo, engine.Ledger, logger)
	recomputeWorker := worker.NewRecomputeWorker(engine.Recompute, logger)

	amqpClient := cli.InitAMQP(logger, cfg)
	cleanup := func() {
		if amqpClient != nil {
			amqpClient.Close()
		}
	}
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, cleanup)

	logger.Info("Recurring transaction processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath,
		"queue", cfg.QueueEnabled())

	// Catch up on anything missed while the worker was down
	processRecurring(ctx, logger, processor, engine.Recompute, time.Now())
	if err := recomputeWorker.RecomputeAll(ctx); err != nil {
		logger.Error("Startup recompute failed", log.FieldError, err)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeRecompute(ctx, recomputeWorker.HandleRecomputeMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled - only recurring transactions are processed")
	}

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				processRecurring(ctx, logger, processor, engine.Recompute, now)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("moneybook-worker stopped")
}

func processRecurring(ctx context.Context, logger *log.Logger, p *recurrence.Processor, r *services.Recomputer, now time.Time) {
	created, err := p.ProcessDue(ctx, now)
	if err != nil {
		logger.Error("Recurring processing failed", log.FieldError, err)
		return
	}
	if len(created) == 0 {
		logger.Debug("No recurring transactions due")
		return
	}
	if err := r.AfterWrite(ctx, created...); err != nil {
		logger.Error("Recompute after recurring processing failed", log.FieldError, err)
	}
	logger.Info("Recurring processing complete", "transactions_created", len(created))
}
