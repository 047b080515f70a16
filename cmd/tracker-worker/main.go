package main

import (
	"context"
	"errors"
	"os"
	"time"

	"projecttracker/internal/amqp"
	"projecttracker/internal/cli"
	applog "projecttracker/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap()
	logger.Info("Starting tracker-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	// The worker only runs jobs; it never queues new ones.
	app, err := cli.NewApp(context.Background(), cfg, logger, nil)
	if err != nil {
		logger.Error("Failed to initialize application", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		_ = app.Close()
		os.Exit(1)
	}

	if !app.Session.SignedIn() {
		logger.Warn("Not signed in; cloud jobs will fail until cmd/signin has run")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close failed", applog.FieldError, err)
		}
		if err := app.Close(); err != nil {
			logger.Warn("Store close failed", applog.FieldError, err)
		}
	})

	jobs := app.NewJobWorker()
	if err := amqpClient.ConsumeJobs(ctx, jobs.HandleJob); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
}
