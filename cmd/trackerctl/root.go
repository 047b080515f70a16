package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"projecttracker/internal/cli"
	"projecttracker/internal/core"
)

// opener builds the App once the chosen command is known, so --help and
// argument errors never touch the store.
type opener func(ctx context.Context) (*cli.App, error)

type env struct {
	open opener
	app  *cli.App
}

// newRootCmd returns the command tree and a func that closes the store if a
// command opened it.
func newRootCmd(open opener) (*cobra.Command, func() error) {
	e := &env{open: open}
	root := &cobra.Command{
		Use:   "trackerctl",
		Short: "Record hours, expenses and payments against projects",
		Long: `trackerctl works on the tracker's SQLite store directly.
Amounts and hours are decimals; an unparsable number is recorded as zero.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			e.app = app
			return nil
		},
	}

	root.AddCommand(
		newProjectCmd(e),
		newEntryCmd(e, core.KindHours, "hours", "Log worked hours", "<hours>"),
		newEntryCmd(e, core.KindExpenses, "expense", "Record an expense", "<amount>"),
		newEntryCmd(e, core.KindPayments, "payment", "Record a payment received", "<amount>"),
		newStatsCmd(e),
		newExportCmd(e),
	)
	return root, e.close
}

func (e *env) close() error {
	if e.app == nil {
		return nil
	}
	return e.app.Close()
}

var errInvalidID = errors.New("id must be a positive integer")

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, s)
	}
	return id, nil
}
