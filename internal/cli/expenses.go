package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"expensetrack/internal/core"
	"expensetrack/internal/services"
)

// CurrencySymbol prefixes printed amounts.
const CurrencySymbol = "₹"

type expenseFlags struct {
	title    string
	amount   string
	category string
	date     string
}

func (f *expenseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "What the money was spent on")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "Amount, e.g. 12.50 or 12,50")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "Category ("+categoryList()+")")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "Date (format: YYYY-MM-DD, default today)")
}

// apply copies the flags that were set onto e.
func (f *expenseFlags) apply(cmd *cobra.Command, e core.Expense) core.Expense {
	flags := cmd.Flags()
	if flags.Changed("title") {
		e.Title = f.title
	}
	if flags.Changed("amount") {
		// Unparseable input stays invalid and fails validation.
		e.Amount, _ = core.ParseAmountInput(f.amount)
	}
	if flags.Changed("category") {
		e.Category = core.ParseCategory(f.category)
	}
	if flags.Changed("date") {
		e.Date = strings.TrimSpace(f.date)
	}
	return e
}

func newAddCmd() *cobra.Command {
	var f expenseFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense",
		Example: `  expensectl add -t Lunch -a 12.50 -c Food
  expensectl add --title "Train ticket" --amount 40 --category Travel --date 2024-06-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *services.ExpenseService) error {
				e := f.apply(cmd, core.Expense{
					Date: core.FormatDateOnly(clock().In(svc.Location())),
				})
				created, err := svc.Create(ctx, e)
				if err != nil {
					return fmt.Errorf("failed to add expense: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added expense %d: %s %s%s (%s, %s)\n",
					created.ID, created.Title, CurrencySymbol, created.Amount, created.Category, created.Date)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List expenses grouped by day, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *services.ExpenseService) error {
				groups := svc.DayGroups(ctx, clock().In(svc.Location()))
				out := cmd.OutOrStdout()
				if len(groups) == 0 {
					fmt.Fprintln(out, "No expenses recorded yet.")
					return nil
				}

				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for i, g := range groups {
					if i > 0 {
						fmt.Fprintln(tw)
					}
					fmt.Fprintf(tw, "%s (%s)\t\t%s%s\t\n", g.Label, g.Key, CurrencySymbol, g.Total)
					for _, e := range g.Expenses {
						fmt.Fprintf(tw, "  %d\t%s\t%s%s\t%s\n", e.ID, e.Title, CurrencySymbol, e.Amount, e.Category.OrOther())
					}
				}
				return tw.Flush()
			})
		},
	}
}

func newEditCmd() *cobra.Command {
	var f expenseFlags
	cmd := &cobra.Command{
		Use:     "edit <id>",
		Short:   "Change fields of an existing expense",
		Example: `  expensectl edit 1718000000000 --amount 15 --category Food`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, svc *services.ExpenseService) error {
				current, err := svc.Get(ctx, id)
				if err != nil {
					return err
				}
				updated, err := svc.Update(ctx, f.apply(cmd, current))
				if err != nil {
					return fmt.Errorf("failed to update expense %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated expense %d: %s %s%s (%s, %s)\n",
					updated.ID, updated.Title, CurrencySymbol, updated.Amount, updated.Category, updated.Date)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, svc *services.ExpenseService) error {
				e, err := svc.Get(ctx, id)
				if err != nil {
					return err
				}
				prompt := fmt.Sprintf("Are you sure you want to delete %q (%s%s)?", e.Title, CurrencySymbol, e.Amount)
				if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
				if err := svc.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted expense %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation")
	return cmd
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *services.ExpenseService) error {
				n := len(svc.List(ctx))
				if n == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No expenses recorded yet.")
					return nil
				}
				if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete all %d expenses?", n)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
				svc.Clear(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expenses\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Clear without asking for confirmation")
	return cmd
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense id %q", s)
	}
	return id, nil
}

func categoryList() string {
	names := make([]string, 0, len(core.Categories))
	for _, c := range core.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
