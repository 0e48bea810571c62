package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"expensetrack/internal/core"
	"expensetrack/internal/export"
	"expensetrack/internal/filter"
	"expensetrack/internal/report"
	"expensetrack/internal/services"
)

// selectorFlags mirror the summary page query parameters.
type selectorFlags struct {
	mode       string
	date       string
	start      string
	end        string
	month      string
	categories []string
}

func (f *selectorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "daily", "Time window: daily, weekly, monthly or all")
	cmd.Flags().StringVar(&f.date, "date", "", "Day for daily mode (format: YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.start, "start", "", "First day for weekly mode (default this Monday)")
	cmd.Flags().StringVar(&f.end, "end", "", "Last day for weekly mode (default start + 6 days)")
	cmd.Flags().StringVar(&f.month, "month", "", "Month for monthly mode (format: YYYY-MM, default this month, empty for every month)")
	cmd.Flags().StringArrayVarP(&f.categories, "category", "c", nil, "Only include this category (repeatable)")
}

// selector resolves the flags the same way the summary page resolves its
// query string.
func (f *selectorFlags) selector(cmd *cobra.Command, svc *services.ExpenseService) (filter.Selector, error) {
	q := url.Values{}
	q.Set("mode", f.mode)
	for name, value := range map[string]string{"date": f.date, "start": f.start, "end": f.end, "month": f.month} {
		if cmd.Flags().Changed(name) {
			q.Set(name, value)
		}
	}
	q["category"] = f.categories
	return filter.FromQuery(q, clock(), svc.Location())
}

// describe renders a selector as a heading, e.g. "Weekly 2024-06-10 to 2024-06-16".
func describe(sel filter.Selector) string {
	var b strings.Builder
	b.WriteString(sel.Mode.String())
	switch sel.Mode {
	case filter.Daily:
		b.WriteString(" " + sel.Day)
	case filter.Weekly:
		b.WriteString(" " + sel.WeekStart + " to " + sel.WeekEnd)
	case filter.Monthly:
		if sel.Month == "" {
			b.WriteString(" (every month)")
		} else {
			b.WriteString(" " + sel.Month)
		}
	}
	if len(sel.Categories) > 0 {
		names := make([]string, 0, len(sel.Categories))
		for _, c := range sel.Categories {
			names = append(names, string(c))
		}
		b.WriteString(" · " + strings.Join(names, ", "))
	}
	return b.String()
}

func newSummaryCmd() *cobra.Command {
	var (
		f       selectorFlags
		details bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show per-category totals for a time window",
		Example: `  expensectl summary
  expensectl summary --mode weekly --start 2024-06-03
  expensectl summary --mode monthly --month 2024-06 -c Food -c Travel --details`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *services.ExpenseService) error {
				sel, err := f.selector(cmd, svc)
				if err != nil {
					return err
				}
				view := svc.Summary(ctx, sel)
				printSummary(cmd.OutOrStdout(), view, details)
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&details, "details", false, "List the expenses of each category by day")
	return cmd
}

func printSummary(out io.Writer, view *services.SummaryView, details bool) {
	fmt.Fprintln(out, describe(view.Selector))
	if len(view.Summary.Categories) == 0 {
		fmt.Fprintln(out, "No expenses to summarize yet.")
		return
	}

	share := make(map[core.Category]float64, len(view.Breakdown))
	for _, s := range view.Breakdown {
		share[s.Category] = s.Percent
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Category\tItems\tTotal\tShare\t")
	for _, g := range view.Summary.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%s%s\t%.1f%%\t\n", g.Category, g.Count, CurrencySymbol, g.Total, share[g.Category])
		if !details {
			continue
		}
		for _, d := range report.DetailByDay(g) {
			for _, e := range d.Expenses {
				fmt.Fprintf(tw, "  %s %s\t\t%s%s\t\t\n", d.Display, e.Title, CurrencySymbol, e.Amount)
			}
		}
	}
	fmt.Fprintf(tw, "Total Spent\t%d\t%s%s\t\t\n", view.Summary.Count, CurrencySymbol, view.Summary.Total)
	_ = tw.Flush()
}

func newExportCmd() *cobra.Command {
	var (
		f       selectorFlags
		output  string
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the expenses of a time window as CSV",
		Long: `Export writes a semicolon-separated, UTF-8 (with BOM) CSV of the selected
expenses, or of their per-category totals with --summary.`,
		Example: `  expensectl export --mode all > expenses.csv
  expensectl export --mode monthly --month 2024-06 --summary -o june.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *services.ExpenseService) error {
				sel, err := f.selector(cmd, svc)
				if err != nil {
					return err
				}
				view := svc.Summary(ctx, sel)

				write := func(w io.Writer) error {
					if summary {
						return export.WriteSummary(w, view.Summary)
					}
					return export.WriteExpenses(w, view.Expenses)
				}
				if output == "" || output == "-" {
					return write(cmd.OutOrStdout())
				}

				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				if err := write(file); err != nil {
					file.Close()
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				if err := file.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d expenses to %s\n", len(view.Expenses), output)
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Write per-category totals instead of expenses")
	return cmd
}
