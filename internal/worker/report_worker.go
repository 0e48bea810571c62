// Package worker turns expense change events into CSV month reports.
package worker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"expensetrack/internal/amqp"
	"expensetrack/internal/core"
	"expensetrack/internal/export"
	"expensetrack/internal/filter"
	applog "expensetrack/internal/log"
	"expensetrack/internal/report"
)

// Source is the read side of the expense store.
type Source interface {
	GetAll(ctx context.Context) []core.Expense
}

// ReportWorker keeps one pair of CSV reports per month. Events only say
// "something changed" and may concern any month, so each event rewrites
// every month with expenses, every month that already has a report and
// the current month from a fresh read of the store.
type ReportWorker struct {
	source Source
	writer *export.Writer
	loc    *time.Location
	now    func() time.Time
	logger *applog.Logger
}

func NewReportWorker(source Source, writer *export.Writer, loc *time.Location, logger *applog.Logger) *ReportWorker {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ReportWorker{
		source: source,
		writer: writer,
		loc:    loc,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleChange processes a single change message from AMQP.
func (w *ReportWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing change event",
		"action", msg.Action,
		applog.FieldExpenseID, msg.ID,
		"timestamp", msg.Timestamp)

	if _, err := w.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh reports: %w", err)
	}
	return nil
}

// StartupSnapshot refreshes every report once so the directory is fresh
// even if events were missed while the worker was down.
func (w *ReportWorker) StartupSnapshot(ctx context.Context) error {
	months, err := w.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("startup snapshot: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup snapshot completed",
		applog.FieldOperation, applog.OpStartup, "months", months)
	return nil
}

// Refresh rewrites the reports of every month with expenses, every month
// with an existing report and the current month. A month whose expenses
// all moved or were deleted is rewritten empty. It returns the months
// written, oldest first.
func (w *ReportWorker) Refresh(ctx context.Context) ([]string, error) {
	all := w.source.GetAll(ctx)

	existing, err := w.writer.Reports()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{w.currentMonth(): true}
	for _, name := range existing {
		seen[name] = true
	}
	for _, e := range all {
		if d, ok := e.ParsedDate(w.loc); ok {
			seen[d.Format(monthLayout)] = true
		}
	}

	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Strings(months)

	for _, m := range months {
		if _, err := w.writeMonth(ctx, all, m); err != nil {
			return nil, fmt.Errorf("write report for %s: %w", m, err)
		}
	}
	return months, nil
}

// WriteMonth writes the expenses and the category summary of yearMonth
// (YYYY-MM) and returns the written paths.
func (w *ReportWorker) WriteMonth(ctx context.Context, yearMonth string) ([]string, error) {
	return w.writeMonth(ctx, w.source.GetAll(ctx), yearMonth)
}

func (w *ReportWorker) writeMonth(ctx context.Context, all []core.Expense, yearMonth string) ([]string, error) {
	expenses := filter.Apply(all, filter.Month(yearMonth), w.loc)
	summary := report.GroupByCategory(expenses, w.loc)

	paths, err := w.writer.WriteReport(yearMonth, expenses, summary)
	if err != nil {
		applog.NewStructuredLogger(w.logger).LogError(ctx, "Report write failed", err,
			applog.ComponentWorker, applog.OpExport, applog.LogFields{"month": yearMonth})
		return nil, err
	}
	w.logger.InfoContext(ctx, "Report written",
		"month", yearMonth,
		applog.FieldCount, summary.Count,
		applog.FieldAmount, summary.Total.String())
	return paths, nil
}

const monthLayout = "2006-01"

func (w *ReportWorker) currentMonth() string {
	return w.now().In(w.loc).Format(monthLayout)
}
