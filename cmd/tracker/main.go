package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"projecttracker/internal/amqp"
	"projecttracker/internal/cli"
	apphttp "projecttracker/internal/http"
	applog "projecttracker/internal/log"
	"projecttracker/internal/services"
	"projecttracker/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap()
	logger.Info("Starting tracker", "backend", cfg.DataBackend, "port", cfg.Port)

	// Without a broker, cloud jobs run in this process. The worker needs the
	// services, so the dispatcher resolves it lazily.
	var (
		inline     *worker.JobWorker
		amqpClient *amqp.Client
		dispatcher services.Dispatcher
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		amqpClient = client
		dispatcher = services.DispatcherFunc(client.PublishJob)
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		dispatcher = cli.InlineDispatcher(func(ctx context.Context, msg *amqp.JobMessage) error {
			return inline.HandleJob(ctx, msg)
		})
		logger.Info("AMQP disabled, cloud jobs run inline")
	}

	app, err := cli.NewApp(context.Background(), cfg, logger, dispatcher)
	if err != nil {
		logger.Error("Failed to initialize application", applog.FieldError, err)
		os.Exit(1)
	}
	inline = app.NewJobWorker()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Projects: app.Projects,
		Stats:    app.Stats,
		Exports:  app.Exports,
		Session:  app.Session,
		Cache:    app.Cache,
		Logger:   logger,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown failed", applog.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close failed", applog.FieldError, err)
			}
		}
		if err := app.Close(); err != nil {
			logger.Warn("Store close failed", applog.FieldError, err)
		}
	})

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", applog.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
}
