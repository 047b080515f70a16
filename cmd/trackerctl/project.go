package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"projecttracker/internal/export"
	"projecttracker/internal/services"
)

func newProjectCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "List and create projects",
	}
	cmd.AddCommand(newProjectListCmd(e), newProjectAddCmd(e))
	return cmd
}

func newProjectListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := e.app.Projects.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			f := e.app.Formatter
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCLIENT\tSTART\tAGREED\tACTIVE")
			for _, p := range projects {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Name, p.Client, f.Date(p.StartDate), f.Money(p.AgreedAmount), export.YesNo(p.Active))
			}
			return tw.Flush()
		},
	}
}

func newProjectAddCmd(e *env) *cobra.Command {
	var in services.ProjectInput
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			p, err := e.app.Projects.CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %d %q\n", p.ID, p.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Client, "client", "", "client name")
	cmd.Flags().StringVar(&in.StartDate, "start", "", "start date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&in.AgreedAmount, "agreed", "", "agreed price")
	cmd.Flags().StringVar(&in.Description, "description", "", "free text")
	return cmd
}
