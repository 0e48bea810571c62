// Package services orchestrates expense mutations, change notifications and
// cached summary computation.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"expensetrack/internal/amqp"
	"expensetrack/internal/cache"
	"expensetrack/internal/core"
	"expensetrack/internal/filter"
	applog "expensetrack/internal/log"
	"expensetrack/internal/report"
)

// ErrExpenseNotFound is returned when an update or delete names an unknown id.
var ErrExpenseNotFound = errors.New("expense not found")

// Store is the persistence the service needs. storage.ExpenseStore
// implements it.
type Store interface {
	GetAll(ctx context.Context) []core.Expense
	Get(ctx context.Context, id int64) (core.Expense, bool)
	Add(ctx context.Context, e core.Expense) core.Expense
	Update(ctx context.Context, e core.Expense) (core.Expense, bool)
	Remove(ctx context.Context, id int64) bool
	Clear(ctx context.Context)
}

// Notifier announces changes to other processes. amqp.Client implements it.
type Notifier interface {
	PublishChange(ctx context.Context, action amqp.ChangeAction, id int64) error
}

// SummaryView is everything the summary page shows for one selector.
type SummaryView struct {
	Selector  filter.Selector
	Expenses  []core.Expense
	Summary   report.Summary
	Breakdown []report.Slice
}

// ExpenseService orchestrates expense operations across the store, the
// summary cache and change notifications.
type ExpenseService struct {
	store    Store
	notifier Notifier
	cache    *cache.LRUCache[*SummaryView]
	group    singleflight.Group
	loc      *time.Location
	logger   *applog.Logger
	events   *applog.StructuredLogger

	revision atomic.Uint64
}

type Option func(*ExpenseService)

// WithNotifier publishes a change event after every mutation.
func WithNotifier(n Notifier) Option {
	return func(s *ExpenseService) { s.notifier = n }
}

// WithSummaryCache caches computed summaries until the next mutation.
func WithSummaryCache(c *cache.LRUCache[*SummaryView]) Option {
	return func(s *ExpenseService) { s.cache = c }
}

// WithLocation sets the zone expense dates are anchored in.
func WithLocation(loc *time.Location) Option {
	return func(s *ExpenseService) { s.loc = loc }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *ExpenseService) { s.logger = l }
}

func NewExpenseService(store Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{store: store, loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentExpense)
	s.events = applog.NewStructuredLogger(s.logger)
	return s
}

// Location is the zone dates are interpreted in.
func (s *ExpenseService) Location() *time.Location {
	return s.loc
}

// List returns every stored expense in stored order.
func (s *ExpenseService) List(ctx context.Context) []core.Expense {
	return s.store.GetAll(ctx)
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, ok := s.store.Get(ctx, id)
	if !ok {
		return core.Expense{}, fmt.Errorf("get %d: %w", id, ErrExpenseNotFound)
	}
	return e, nil
}

// Create validates e and stores it as a new expense.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e = normalize(e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	created := s.store.Add(ctx, e)
	s.changed(ctx, amqp.ActionCreated, applog.OpCreate, created)
	return created, nil
}

// Update validates e and replaces the stored expense with the same id.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	e = normalize(e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	updated, ok := s.store.Update(ctx, e)
	if !ok {
		return core.Expense{}, fmt.Errorf("update %d: %w", e.ID, ErrExpenseNotFound)
	}
	s.changed(ctx, amqp.ActionUpdated, applog.OpUpdate, updated)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if !s.store.Remove(ctx, id) {
		return fmt.Errorf("delete %d: %w", id, ErrExpenseNotFound)
	}
	s.changed(ctx, amqp.ActionDeleted, applog.OpDelete, core.Expense{ID: id})
	return nil
}

// Clear removes every expense.
func (s *ExpenseService) Clear(ctx context.Context) {
	s.store.Clear(ctx)
	s.changed(ctx, amqp.ActionCleared, applog.OpClear, core.Expense{})
}

// DayGroups returns the full list grouped by day relative to now.
func (s *ExpenseService) DayGroups(ctx context.Context, now time.Time) []report.DayGroup {
	return report.GroupByDay(s.store.GetAll(ctx), now, s.loc)
}

// Summary filters the collection with sel and aggregates the result.
// Identical concurrent requests share one computation.
func (s *ExpenseService) Summary(ctx context.Context, sel filter.Selector) *SummaryView {
	key := sel.Key() + "@" + strconv.FormatUint(s.revision.Load(), 10)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v
		}
	}

	v, _, _ := s.group.Do(key, func() (any, error) {
		filtered := filter.Apply(s.store.GetAll(ctx), sel, s.loc)
		view := &SummaryView{
			Selector:  sel,
			Expenses:  filtered,
			Summary:   report.GroupByCategory(filtered, s.loc),
			Breakdown: report.Breakdown(filtered),
		}
		s.logger.DebugContext(ctx, "Summary computed",
			applog.FieldOperation, applog.OpSummary,
			applog.FieldSelector, sel.Key(),
			applog.FieldCount, view.Summary.Count)
		if s.cache != nil {
			s.cache.Set(key, view)
		}
		return view, nil
	})
	return v.(*SummaryView)
}

// HandleChange drops cached summaries when a change event arrives, so
// writes by other processes sharing the store show up on the next load.
func (s *ExpenseService) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	s.Invalidate()
	s.logger.DebugContext(ctx, "Summary cache invalidated",
		"action", msg.Action, applog.FieldExpenseID, msg.ID)
	return nil
}

// Invalidate drops cached summaries.
func (s *ExpenseService) Invalidate() {
	s.revision.Add(1)
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *ExpenseService) changed(ctx context.Context, action amqp.ChangeAction, op string, e core.Expense) {
	s.Invalidate()
	s.events.LogExpenseChange(ctx, op, e)

	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishChange(ctx, action, e.ID); err != nil {
		// The store is already updated; a lost event only delays consumers.
		s.logger.ErrorContext(ctx, "Failed to publish change event",
			applog.FieldOperation, op, applog.FieldExpenseID, e.ID, applog.FieldError, err)
	}
}

func normalize(e core.Expense) core.Expense {
	e.Title = strings.TrimSpace(e.Title)
	e.Category = core.ParseCategory(string(e.Category))
	e.Date = strings.TrimSpace(e.Date)
	return e
}
