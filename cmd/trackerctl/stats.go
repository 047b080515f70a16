package main

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"projecttracker/internal/calendar"
)

func newStatsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregated totals",
	}
	cmd.AddCommand(
		newStatsProjectCmd(e),
		newStatsDayCmd(e),
		newStatsMonthCmd(e),
		newStatsTrendCmd(e),
	)
	return cmd
}

func newStatsProjectCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "project <projectID>",
		Short: "Lifetime totals and profit of one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := e.app.Projects.GetProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			t, err := e.app.Stats.ProjectTotals(cmd.Context(), id)
			if err != nil {
				return err
			}
			f := e.app.Formatter
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Project\t%s\n", p.Name)
			fmt.Fprintf(tw, "Hours\t%s\n", f.Hours(t.TotalHours))
			fmt.Fprintf(tw, "Expenses\t%s\n", f.Money(t.TotalExpenses))
			fmt.Fprintf(tw, "Payments\t%s\n", f.Money(t.TotalPayments))
			fmt.Fprintf(tw, "Profit\t%s\n", f.Money(t.Profit))
			fmt.Fprintf(tw, "Profit per hour\t%s\n", f.Money(t.ProfitPerHour))
			return tw.Flush()
		},
	}
}

func newStatsDayCmd(e *env) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "day <projectID>",
		Short: "One project's totals for a single day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			day := e.app.Stats.Today()
			if date != "" {
				if day, err = calendar.ParseDate(date); err != nil {
					return err
				}
			}
			t, err := e.app.Stats.DayTotals(cmd.Context(), id, day)
			if err != nil {
				return err
			}
			f := e.app.Formatter
			fmt.Fprintf(cmd.OutOrStdout(), "%s  hours %s  expenses %s  payments %s\n",
				t.Date, f.Hours(t.Hours), f.Money(t.Expenses), f.Money(t.Payments))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day YYYY-MM-DD (default today)")
	return cmd
}

func newStatsMonthCmd(e *env) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "month",
		Short: "All projects over one calendar month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := monthOrCurrent(e, month)
			if err != nil {
				return err
			}
			t, err := e.app.Stats.MonthTotals(cmd.Context(), m)
			if err != nil {
				return err
			}
			f := e.app.Formatter
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  hours %s  costs %s  income %s  net %s\n",
				t.Month, f.Hours(t.Hours), f.Money(t.Costs), f.Money(t.Income), f.Money(t.Net))

			days := make([]string, len(t.DaysWithWork))
			for i, d := range t.DaysWithWork {
				days[i] = fmt.Sprint(d.Day)
			}
			fmt.Fprintf(out, "Days worked: %s\n", strings.Join(days, " "))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROJECT\tHOURS\tPAYMENTS")
			for _, row := range t.Projects {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Project.Name, f.Hours(row.Hours), f.Money(row.Payments))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month YYYY-MM (default current)")
	return cmd
}

func newStatsTrendCmd(e *env) *cobra.Command {
	var (
		month string
		width int
	)
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Net income and hours over the trailing months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := monthOrCurrent(e, month)
			if err != nil {
				return err
			}
			if width <= 0 {
				return fmt.Errorf("width must be positive, got %d", width)
			}
			points, err := e.app.Stats.Trend(cmd.Context(), m, float64(width))
			if err != nil {
				return err
			}
			f := e.app.Formatter
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MONTH\tNET\t\tHOURS\t")
			for _, p := range points {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					p.Month, f.Money(p.Net), bar(p.NetBar), f.Hours(p.Hours), bar(p.HoursBar))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "last month of the window YYYY-MM (default current)")
	cmd.Flags().IntVar(&width, "width", 20, "bar width in characters")
	return cmd
}

func monthOrCurrent(e *env, s string) (calendar.YearMonth, error) {
	if s == "" {
		return e.app.Stats.Today().YearMonth(), nil
	}
	m, err := calendar.ParseYearMonth(s)
	if err != nil {
		return calendar.YearMonth{}, err
	}
	return m, m.Validate()
}

func bar(v float64) string {
	return strings.Repeat("#", int(math.Round(v)))
}
