// Command trackerctl records and reports project work from the terminal,
// against the same SQLite store the server uses.
package main

import (
	"context"
	"log/slog"
	"os"

	"projecttracker/internal/backend"
	"projecttracker/internal/cli"
	applog "projecttracker/internal/log"
)

func main() {
	cli.LoadEnvFile()
	// Logs go to stderr so command output stays pipeable.
	logger := applog.New(applog.Config{Level: slog.LevelWarn, Writer: os.Stderr})

	open := func(ctx context.Context) (*cli.App, error) {
		cfg := cli.LoadAndValidateConfig(logger)
		cfg.DataBackend = string(backend.SQLiteBackend)
		return cli.NewApp(ctx, cfg, logger, nil)
	}
	root, closeStore := newRootCmd(open)
	err := root.ExecuteContext(context.Background())
	if cerr := closeStore(); cerr != nil {
		logger.Warn("Store close failed", applog.FieldError, cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
