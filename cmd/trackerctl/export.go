package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(e *env) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <projectID>",
		Short: "Write a project's workbook to the export directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if dir == "" {
				dir = e.app.Config.ExportDir
			}
			path, err := e.app.Exports.SaveReport(cmd.Context(), id, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default EXPORT_DIR)")
	return cmd
}
