/*
cache.go - In-memory read model over the treasury store

PURPOSE:
  Screens read everything (member lists, dues grids, dashboards) from one
  immutable snapshot instead of hitting the database per widget. The cache
  owns a single Snapshot value; reads copy the value out under a read lock
  and never observe a half-applied mutation.

REFRESH:
  Refresh() re-fetches every collection through the injected Fetcher.
  Concurrent refreshes are coalesced: while one fetch is in flight, further
  callers wait on its result instead of issuing their own. Each fetch runs
  under a deadline. On failure the cache publishes an empty but well-formed
  snapshot (every summary field zero, LastUpdated set) and returns the
  error; callers decide whether to retry.

POINT MUTATIONS:
  After a successful write the api layer patches the affected collection
  here instead of re-fetching everything. Every mutation rebuilds the
  summary from scratch from the patched collections, so the summary can
  never drift from the rows it describes. Deleting a member or an
  extraordinary fee cascades to its payment rows, mirroring the store's
  foreign keys.

OBSERVERS:
  Subscribers are notified synchronously with the new snapshot after every
  publication, outside the write lock.

SEE ALSO:
  - store/sqlite/sqlite.go: the production Fetcher
  - report/report.go: period aggregation over a Snapshot
*/
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/logia/treasury-engine/treasury"
)

// DefaultRefreshTimeout bounds one bulk fetch.
const DefaultRefreshTimeout = 10 * time.Second

// =============================================================================
// SNAPSHOT
// =============================================================================

// Collections holds every table the screens read. Slices inside a published
// snapshot are never mutated afterwards; mutations replace them.
type Collections struct {
	Members               []treasury.Member
	MonthlyPayments       []treasury.MonthlyPayment
	Expenses              []treasury.Expense
	ExtraordinaryFees     []treasury.ExtraordinaryFee
	ExtraordinaryPayments []treasury.ExtraordinaryPayment
	DegreeFees            []treasury.DegreeFee
	Settings              *treasury.Settings
}

// Summary is the dashboard aggregate, always recomputed from the collections
// it ships with.
type Summary struct {
	TotalIncome              decimal.Decimal // monthly dues (benefit rows excluded) + extraordinary
	TotalExtraordinaryIncome decimal.Decimal
	TotalDegreeFeeIncome     decimal.Decimal
	TotalExpenses            decimal.Decimal
	Balance                  decimal.Decimal // TotalIncome + TotalDegreeFeeIncome - TotalExpenses
	MemberCount              int             // active members only
	PaidPaymentsCount        int             // dues rows, benefit rows excluded
}

// Snapshot is one consistent read of the whole treasury.
type Snapshot struct {
	Collections
	Summary     Summary
	LastUpdated time.Time
}

// Fetcher loads every collection in one consistent read.
type Fetcher interface {
	FetchAll(ctx context.Context) (Collections, error)
}

// =============================================================================
// CACHE
// =============================================================================

// Observer receives every published snapshot, synchronously, outside the
// write lock.
type Observer func(Snapshot)

// Cache holds the current snapshot. Construct with New and inject where
// needed; the zero value is not usable.
type Cache struct {
	fetcher Fetcher
	timeout time.Duration

	mu   sync.RWMutex
	snap Snapshot

	group singleflight.Group

	obsMu     sync.Mutex
	observers []Observer
}

// New returns a cache with an empty well-formed snapshot. Call Refresh to
// populate it.
func New(fetcher Fetcher) *Cache {
	c := &Cache{fetcher: fetcher, timeout: DefaultRefreshTimeout}
	c.snap = emptySnapshot(time.Now())
	return c
}

// SetRefreshTimeout overrides the per-fetch deadline. Not safe to call
// concurrently with Refresh.
func (c *Cache) SetRefreshTimeout(d time.Duration) { c.timeout = d }

// Snapshot returns the current snapshot by value. The caller may read its
// slices freely; they are never mutated after publication.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Subscribe registers an observer for every future publication.
func (c *Cache) Subscribe(fn Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, fn)
}

// Refresh re-fetches all collections and publishes a fresh snapshot.
// Concurrent callers share one in-flight fetch and receive its outcome.
// On fetch failure the cache publishes an empty snapshot and returns a
// wrapped ErrStoreFailed.
//
// The shared fetch runs on its own deadline, detached from the initiating
// caller: the outcome is published for every reader, so one caller's
// cancellation must not count as a store failure.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		col, err := c.fetcher.FetchAll(fetchCtx)
		if err != nil {
			c.publish(emptySnapshot(time.Now()))
			return nil, fmt.Errorf("%w: refresh: %v", treasury.ErrStoreFailed, err)
		}
		c.publish(Snapshot{Collections: col, Summary: summarize(col), LastUpdated: time.Now()})
		return nil, nil
	})
	return err
}

// =============================================================================
// POINT MUTATIONS
// =============================================================================

// UpsertMember replaces the member by ID, or appends it.
func (c *Cache) UpsertMember(m treasury.Member) {
	c.mutate(func(col *Collections) {
		col.Members = upsert(col.Members, m, func(x treasury.Member) string { return x.ID })
	})
}

// DeleteMember removes the member and cascades to its dues and
// extraordinary payment rows.
func (c *Cache) DeleteMember(id string) {
	c.mutate(func(col *Collections) {
		col.Members = remove(col.Members, func(x treasury.Member) bool { return x.ID == id })
		col.MonthlyPayments = remove(col.MonthlyPayments, func(x treasury.MonthlyPayment) bool { return x.MemberID == id })
		col.ExtraordinaryPayments = remove(col.ExtraordinaryPayments, func(x treasury.ExtraordinaryPayment) bool { return x.MemberID == id })
	})
}

// UpsertMonthlyPayment replaces the dues row by ID, or appends it.
func (c *Cache) UpsertMonthlyPayment(p treasury.MonthlyPayment) {
	c.mutate(func(col *Collections) {
		col.MonthlyPayments = upsert(col.MonthlyPayments, p, func(x treasury.MonthlyPayment) string { return x.ID })
	})
}

// AddMonthlyPayments appends a whole batch in one publication, so observers
// see the batch as a unit.
func (c *Cache) AddMonthlyPayments(rows []treasury.MonthlyPayment) {
	if len(rows) == 0 {
		return
	}
	c.mutate(func(col *Collections) {
		next := make([]treasury.MonthlyPayment, 0, len(col.MonthlyPayments)+len(rows))
		next = append(next, col.MonthlyPayments...)
		next = append(next, rows...)
		col.MonthlyPayments = next
	})
}

// DeleteMonthlyPayment removes one dues row.
func (c *Cache) DeleteMonthlyPayment(id string) {
	c.mutate(func(col *Collections) {
		col.MonthlyPayments = remove(col.MonthlyPayments, func(x treasury.MonthlyPayment) bool { return x.ID == id })
	})
}

// UpsertExpense replaces the expense by ID, or appends it.
func (c *Cache) UpsertExpense(e treasury.Expense) {
	c.mutate(func(col *Collections) {
		col.Expenses = upsert(col.Expenses, e, func(x treasury.Expense) string { return x.ID })
	})
}

// DeleteExpense removes one expense.
func (c *Cache) DeleteExpense(id string) {
	c.mutate(func(col *Collections) {
		col.Expenses = remove(col.Expenses, func(x treasury.Expense) bool { return x.ID == id })
	})
}

// UpsertExtraordinaryFee replaces the fee by ID, or appends it.
func (c *Cache) UpsertExtraordinaryFee(f treasury.ExtraordinaryFee) {
	c.mutate(func(col *Collections) {
		col.ExtraordinaryFees = upsert(col.ExtraordinaryFees, f, func(x treasury.ExtraordinaryFee) string { return x.ID })
	})
}

// DeleteExtraordinaryFee removes the fee and cascades to its payment rows.
func (c *Cache) DeleteExtraordinaryFee(id string) {
	c.mutate(func(col *Collections) {
		col.ExtraordinaryFees = remove(col.ExtraordinaryFees, func(x treasury.ExtraordinaryFee) bool { return x.ID == id })
		col.ExtraordinaryPayments = remove(col.ExtraordinaryPayments, func(x treasury.ExtraordinaryPayment) bool { return x.ExtraordinaryFeeID == id })
	})
}

// UpsertExtraordinaryPayment replaces the payment by ID, or appends it.
func (c *Cache) UpsertExtraordinaryPayment(p treasury.ExtraordinaryPayment) {
	c.mutate(func(col *Collections) {
		col.ExtraordinaryPayments = upsert(col.ExtraordinaryPayments, p, func(x treasury.ExtraordinaryPayment) string { return x.ID })
	})
}

// DeleteExtraordinaryPayment removes one extraordinary payment row.
func (c *Cache) DeleteExtraordinaryPayment(id string) {
	c.mutate(func(col *Collections) {
		col.ExtraordinaryPayments = remove(col.ExtraordinaryPayments, func(x treasury.ExtraordinaryPayment) bool { return x.ID == id })
	})
}

// UpsertDegreeFee replaces the degree fee by ID, or appends it.
func (c *Cache) UpsertDegreeFee(f treasury.DegreeFee) {
	c.mutate(func(col *Collections) {
		col.DegreeFees = upsert(col.DegreeFees, f, func(x treasury.DegreeFee) string { return x.ID })
	})
}

// DeleteDegreeFee removes one degree fee record.
func (c *Cache) DeleteDegreeFee(id string) {
	c.mutate(func(col *Collections) {
		col.DegreeFees = remove(col.DegreeFees, func(x treasury.DegreeFee) bool { return x.ID == id })
	})
}

// SetSettings replaces the settings record.
func (c *Cache) SetSettings(s treasury.Settings) {
	c.mutate(func(col *Collections) {
		col.Settings = &s
	})
}

// =============================================================================
// DERIVED READS
// =============================================================================

// MonthlyFee returns the configured base fee, or the bootstrap default when
// no settings are loaded yet.
func (c *Cache) MonthlyFee() decimal.Decimal {
	snap := c.Snapshot()
	if snap.Settings != nil && snap.Settings.MonthlyFeeBase.IsPositive() {
		return snap.Settings.MonthlyFeeBase
	}
	return treasury.DefaultSettings().MonthlyFeeBase
}

// InstitutionName returns the configured name, or the bootstrap default.
func (c *Cache) InstitutionName() string {
	snap := c.Snapshot()
	if snap.Settings != nil && snap.Settings.InstitutionName != "" {
		return snap.Settings.InstitutionName
	}
	return treasury.DefaultSettings().InstitutionName
}

// Treasurer returns the member currently holding the treasurer office. An
// explicit settings assignment wins; otherwise the most recently created
// member holding the office. Nil when no one holds it.
func (c *Cache) Treasurer() *treasury.Member {
	snap := c.Snapshot()
	if snap.Settings != nil && snap.Settings.TreasurerID != "" {
		for i := range snap.Members {
			if snap.Members[i].ID == snap.Settings.TreasurerID {
				m := snap.Members[i]
				return &m
			}
		}
	}
	var found *treasury.Member
	for i := range snap.Members {
		m := snap.Members[i]
		if m.CargoLogial != treasury.OfficeTesorero {
			continue
		}
		if found == nil || m.CreatedAt.After(found.CreatedAt) {
			cp := m
			found = &cp
		}
	}
	return found
}

// =============================================================================
// INTERNALS
// =============================================================================

func (c *Cache) mutate(apply func(*Collections)) {
	c.mu.Lock()
	col := c.snap.Collections
	apply(&col)
	snap := Snapshot{Collections: col, Summary: summarize(col), LastUpdated: time.Now()}
	c.snap = snap
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Cache) publish(snap Snapshot) {
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Cache) notify(snap Snapshot) {
	c.obsMu.Lock()
	obs := make([]Observer, len(c.observers))
	copy(obs, c.observers)
	c.obsMu.Unlock()
	for _, fn := range obs {
		fn(snap)
	}
}

func emptySnapshot(at time.Time) Snapshot {
	col := Collections{}
	return Snapshot{Collections: col, Summary: summarize(col), LastUpdated: at}
}

func summarize(col Collections) Summary {
	var s Summary
	s.TotalIncome = decimal.Zero
	s.TotalExtraordinaryIncome = decimal.Zero
	s.TotalDegreeFeeIncome = decimal.Zero
	s.TotalExpenses = decimal.Zero

	var monthly = decimal.Zero
	for _, p := range col.MonthlyPayments {
		if p.PaymentType == treasury.PaymentProntoPagoBenefit {
			continue
		}
		monthly = monthly.Add(p.Amount)
		s.PaidPaymentsCount++
	}
	for _, p := range col.ExtraordinaryPayments {
		s.TotalExtraordinaryIncome = s.TotalExtraordinaryIncome.Add(p.AmountPaid)
	}
	for _, f := range col.DegreeFees {
		s.TotalDegreeFeeIncome = s.TotalDegreeFeeIncome.Add(f.Amount)
	}
	for _, e := range col.Expenses {
		s.TotalExpenses = s.TotalExpenses.Add(e.Amount)
	}
	for _, m := range col.Members {
		if m.IsActive() {
			s.MemberCount++
		}
	}

	s.TotalIncome = monthly.Add(s.TotalExtraordinaryIncome)
	s.Balance = s.TotalIncome.Add(s.TotalDegreeFeeIncome).Sub(s.TotalExpenses)
	return s
}

// upsert replaces the element whose key matches v's key, or appends v.
// Always returns a fresh slice so published snapshots stay immutable.
func upsert[T any](in []T, v T, key func(T) string) []T {
	out := make([]T, 0, len(in)+1)
	replaced := false
	k := key(v)
	for _, x := range in {
		if key(x) == k {
			out = append(out, v)
			replaced = true
			continue
		}
		out = append(out, x)
	}
	if !replaced {
		out = append(out, v)
	}
	return out
}

// remove filters out matching elements into a fresh slice.
func remove[T any](in []T, match func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, x := range in {
		if !match(x) {
			out = append(out, x)
		}
	}
	return out
}
