package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"projecttracker/internal/core"
	"projecttracker/internal/services"
)

// newEntryCmd builds "<use> add <projectID> <value> <note>" for one entry kind.
func newEntryCmd(e *env, kind core.EntryKind, use, short, valueArg string) *cobra.Command {
	var in services.EntryInput
	add := &cobra.Command{
		Use:   "add <projectID> " + valueArg + " <note>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if kind == core.KindHours {
				in.Hours = args[1]
			} else {
				in.Amount = args[1]
			}
			in.Note = args[2]

			entry, err := e.app.Projects.AddEntry(cmd.Context(), kind, projectID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s entry %d to project %d\n", use, entryID(entry), projectID)
			return nil
		},
	}
	add.Flags().StringVar(&in.Date, "date", "", "date YYYY-MM-DD (default today)")
	if kind == core.KindExpenses {
		add.Flags().StringVar(&in.Category, "category", "", "expense category")
		add.Flags().StringVar(&in.ReceiptRef, "receipt", "", "receipt reference")
	}

	cmd := &cobra.Command{Use: use, Short: short}
	cmd.AddCommand(add)
	return cmd
}

func entryID(entry any) int64 {
	switch v := entry.(type) {
	case core.HourEntry:
		return v.ID
	case core.Expense:
		return v.ID
	case core.Payment:
		return v.ID
	}
	return 0
}
