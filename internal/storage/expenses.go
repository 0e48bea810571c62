package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"expensetrack/internal/core"
	applog "expensetrack/internal/log"
)

// ExpensesKey is the key the whole collection is stored under.
const ExpensesKey = "expenses"

// IDGenerator hands out increasing, timestamp-derived ids (Unix millis).
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns an id greater than every id it returned before and greater
// than floor.
func (g *IDGenerator) Next(floor int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	if id <= floor {
		id = floor + 1
	}
	g.last = id
	return id
}

// ExpenseStore keeps the expense collection as one JSON array in a KV.
//
// Reads never fail: a missing, corrupt or unreachable value is an empty
// collection. Write failures are logged and dropped. Mutations are
// serialised by the store, which assumes it is the only writer.
type ExpenseStore struct {
	kv     KV
	ids    *IDGenerator
	logger *applog.Logger
	mu     sync.Mutex
}

type StoreOption func(*ExpenseStore)

func WithIDGenerator(g *IDGenerator) StoreOption {
	return func(s *ExpenseStore) { s.ids = g }
}

func WithLogger(l *applog.Logger) StoreOption {
	return func(s *ExpenseStore) { s.logger = l }
}

func NewExpenseStore(kv KV, opts ...StoreOption) *ExpenseStore {
	s := &ExpenseStore{kv: kv}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = NewIDGenerator(nil)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentStorage)
	return s
}

// GetAll returns the stored collection in stored order.
func (s *ExpenseStore) GetAll(ctx context.Context) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the expense with id.
func (s *ExpenseStore) Get(ctx context.Context, id int64) (core.Expense, bool) {
	for _, e := range s.GetAll(ctx) {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

// SaveAll replaces the stored collection.
func (s *ExpenseStore) SaveAll(ctx context.Context, expenses []core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(ctx, expenses)
}

// Add prepends e to the collection. A zero or already used id is replaced
// by a fresh one; the stored expense is returned.
func (s *ExpenseStore) Add(ctx context.Context, e core.Expense) core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load(ctx)
	var maxID int64
	taken := false
	for _, x := range all {
		maxID = max(maxID, x.ID)
		if x.ID == e.ID {
			taken = true
		}
	}
	if e.ID == 0 || taken {
		e.ID = s.ids.Next(maxID)
	}

	out := make([]core.Expense, 0, len(all)+1)
	out = append(out, e)
	out = append(out, all...)
	s.save(ctx, out)
	return e
}

// Update replaces the expense with the same id. It reports false when no
// such expense exists.
func (s *ExpenseStore) Update(ctx context.Context, e core.Expense) (core.Expense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load(ctx)
	found := false
	for i := range all {
		if all[i].ID == e.ID {
			all[i] = e
			found = true
		}
	}
	if !found {
		return core.Expense{}, false
	}
	s.save(ctx, all)
	return e, true
}

// Remove deletes the expense with id. It reports whether anything was removed.
func (s *ExpenseStore) Remove(ctx context.Context, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load(ctx)
	out := make([]core.Expense, 0, len(all))
	for _, e := range all {
		if e.ID != id {
			out = append(out, e)
		}
	}
	if len(out) == len(all) {
		return false
	}
	s.save(ctx, out)
	return true
}

// Clear removes the stored collection entirely.
func (s *ExpenseStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, ExpensesKey); err != nil {
		s.logger.ErrorContext(ctx, "Failed to clear expenses",
			applog.FieldOperation, applog.OpClear, applog.FieldError, err)
	}
}

func (s *ExpenseStore) load(ctx context.Context) []core.Expense {
	data, err := s.kv.Get(ctx, ExpensesKey)
	if errors.Is(err, ErrNotFound) {
		return []core.Expense{}
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read expenses, using empty collection",
			applog.FieldOperation, applog.OpRead, applog.FieldKey, ExpensesKey,
			applog.FieldError, err, "error_type", applog.ErrorTypeStorage)
		return []core.Expense{}
	}
	return s.decode(ctx, data)
}

// decode tolerates individual malformed records by skipping them; a value
// that is not a JSON array is treated as empty.
func (s *ExpenseStore) decode(ctx context.Context, data []byte) []core.Expense {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.WarnContext(ctx, "Stored expenses are corrupt, using empty collection",
			applog.FieldOperation, applog.OpParse, applog.FieldError, err)
		return []core.Expense{}
	}
	out := make([]core.Expense, 0, len(raw))
	for i, r := range raw {
		var e core.Expense
		if err := json.Unmarshal(r, &e); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed expense record",
				"index", i, applog.FieldError, err)
			continue
		}
		out = append(out, e)
	}
	return out
}

func (s *ExpenseStore) save(ctx context.Context, expenses []core.Expense) {
	if expenses == nil {
		expenses = []core.Expense{}
	}
	data, err := json.Marshal(expenses)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode expenses",
			applog.FieldOperation, applog.OpUpdate, applog.FieldError, err)
		return
	}
	if err := s.kv.Set(ctx, ExpensesKey, data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write expenses",
			applog.FieldOperation, applog.OpUpdate, applog.FieldKey, ExpensesKey, applog.FieldCount, len(expenses),
			applog.FieldError, err, "error_type", applog.ErrorTypeStorage)
	}
}
