package roster

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Applied describes the outcome of a reconciled batch.
type Applied struct {
	Table Table
	// Lines are the order lines the batch introduced, in event order.
	Lines []OrderLine
}

// ItemNames returns the names of the lines the batch introduced.
func (a Applied) ItemNames() []string {
	names := make([]string, len(a.Lines))
	for i, l := range a.Lines {
		names[i] = l.ItemName
	}
	return names
}

// Roster is the fixed collection of tables. It is not safe for concurrent use.
type Roster struct {
	tables   []*Table
	byNumber map[int]*Table

	mergeOnInsert bool
	now           func() time.Time
	newLineID     func() string
	newSessionKey func() string
}

// Option customises a Roster.
type Option func(*Roster)

// WithMergeOnInsert folds same-name items into existing lines on arrival.
func WithMergeOnInsert(enabled bool) Option {
	return func(r *Roster) { r.mergeOnInsert = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Roster) { r.now = now }
}

// WithIDs overrides the order line and session key generators.
func WithIDs(lineID, sessionKey func() string) Option {
	return func(r *Roster) {
		r.newLineID = lineID
		r.newSessionKey = sessionKey
	}
}

// NewLineID returns a unique order line ID made of a timestamp and a random suffix.
func NewLineID() string {
	return fmt.Sprintf("order-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// New builds a roster from its seed. Duplicate numbers keep the first entry.
func New(seeds []Seed, opts ...Option) *Roster {
	r := &Roster{
		byNumber:      make(map[int]*Table, len(seeds)),
		now:           time.Now,
		newLineID:     NewLineID,
		newSessionKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, s := range seeds {
		if _, dup := r.byNumber[s.Number]; dup {
			log.Printf("roster: duplicate seed for table %d ignored", s.Number)
			continue
		}
		t := newTable(s)
		r.tables = append(r.tables, t)
		r.byNumber[s.Number] = t
	}
	return r
}

// Len returns the number of tables.
func (r *Roster) Len() int { return len(r.tables) }

// Snapshot returns deep copies of every table in seed order.
func (r *Roster) Snapshot() []Table {
	out := make([]Table, len(r.tables))
	for i, t := range r.tables {
		out[i] = t.Clone()
	}
	return out
}

// Table returns a copy of one table.
func (r *Roster) Table(number int) (Table, bool) {
	t, ok := r.byNumber[number]
	if !ok {
		return Table{}, false
	}
	return t.Clone(), true
}

// ApplyBatch reconciles a feed batch into its table and marks the table as
// occupied and alerting. Invalid items are skipped.
func (r *Roster) ApplyBatch(b Batch) (Applied, error) {
	t, ok := r.byNumber[b.TableNumber]
	if !ok {
		return Applied{}, fmt.Errorf("table %d: %w", b.TableNumber, ErrUnknownTable)
	}

	items := make([]Item, 0, len(b.Items))
	for _, it := range b.Items {
		if err := it.Validate(); err != nil {
			log.Printf("roster: skipping item for %s: %v", t.ID, err)
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return Applied{}, fmt.Errorf("table %s: %w", t.ID, ErrEmptyBatch)
	}

	if r.mergeOnInsert {
		t.Orders = ReconcileMerging(t.Orders, items, r.newLineID)
	} else {
		t.Orders = Reconcile(t.Orders, items, r.newLineID)
	}
	t.markOrdered(r.now(), r.newSessionKey)

	fresh := 0
	for _, l := range t.Orders {
		if l.IsNew {
			fresh++
		}
	}
	applied := Applied{Table: t.Clone()}
	applied.Lines = applied.Table.Orders[:fresh:fresh]
	return applied, nil
}

// Cycle advances a table along the manual status cycle.
func (r *Roster) Cycle(number int) (Table, error) {
	t, ok := r.byNumber[number]
	if !ok {
		return Table{}, fmt.Errorf("table %d: %w", number, ErrUnknownTable)
	}
	t.advance(r.newSessionKey)
	return t.Clone(), nil
}

// ToggleServed flips the served flag of a single order line.
func (r *Roster) ToggleServed(number int, lineID string) (OrderLine, error) {
	t, ok := r.byNumber[number]
	if !ok {
		return OrderLine{}, fmt.Errorf("table %d: %w", number, ErrUnknownTable)
	}
	for i := range t.Orders {
		if t.Orders[i].ID == lineID {
			t.Orders[i].IsServed = !t.Orders[i].IsServed
			return t.Orders[i], nil
		}
	}
	return OrderLine{}, fmt.Errorf("table %s line %q: %w", t.ID, lineID, ErrUnknownOrderLine)
}

// Idle reports whether a table has no seating session to clear.
func (r *Roster) Idle(number int) (bool, error) {
	t, ok := r.byNumber[number]
	if !ok {
		return false, fmt.Errorf("table %d: %w", number, ErrUnknownTable)
	}
	return t.idle(), nil
}

// Reset clears a table after a successful checkout.
func (r *Roster) Reset(number int) error {
	t, ok := r.byNumber[number]
	if !ok {
		return fmt.Errorf("table %d: %w", number, ErrUnknownTable)
	}
	t.reset()
	return nil
}

// Settle removes the billed quantities from a table after checkout. When
// nothing else is left the table is reset; quantities that arrived while the
// checkout was running, including those folded into a billed line, are kept
// and open a new session.
func (r *Roster) Settle(number int, billed []OrderLine) (Table, error) {
	t, ok := r.byNumber[number]
	if !ok {
		return Table{}, fmt.Errorf("table %d: %w", number, ErrUnknownTable)
	}

	settled := make(map[string]int, len(billed))
	for _, l := range billed {
		settled[l.ID] += l.Quantity
	}
	remaining := make([]OrderLine, 0, len(t.Orders))
	for _, l := range t.Orders {
		if q, ok := settled[l.ID]; ok {
			if l.Quantity <= q {
				continue
			}
			l.Quantity -= q
		}
		remaining = append(remaining, l)
	}

	if len(remaining) == 0 {
		t.reset()
		return t.Clone(), nil
	}
	t.Orders = remaining
	t.SessionKey = ""
	t.enterSession(r.newSessionKey)
	return t.Clone(), nil
}
