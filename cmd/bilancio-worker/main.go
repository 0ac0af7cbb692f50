package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/alert"
	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/log"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting bilancio-worker")

	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	engine := alert.NewEngine(repo, repo, repo, repo)
	alertWorker := worker.NewAlertWorker(engine, repo, cfg.BackstopWindow, cfg.BackstopBatch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Catch up on anything written while the worker was down. Safe to
	// repeat: already-alerted tiers are skipped by the ledger.
	if err := alertWorker.ProcessRecentMonths(ctx); err != nil {
		logger.Error("Startup backstop sweep failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeExpenseChanges(gctx, alertWorker.HandleExpenseChanged)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.BackstopInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := alertWorker.ProcessRecentMonths(gctx); err != nil {
					logger.Error("Backstop sweep failed", log.FieldError, err)
				}
			}
		}
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-gctx.Done():
		logger.Info("Worker context cancelled", log.FieldError, gctx.Err())
	}

	cancel()
	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", log.FieldError, err)
	}
	logger.Info("Worker shutdown complete")
}
