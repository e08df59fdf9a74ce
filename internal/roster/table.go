// Package roster holds the in-memory floor plan: the fixed set of tables, the
// order lines attached to each one, and the rules that mutate them.
//
// A Roster is owned by a single goroutine. It performs no locking; callers
// outside the owner must work on the copies returned by Snapshot and Table.
package roster

import (
	"errors"
	"fmt"
	"time"

	"restaurant-admin-backend/internal/parse"
)

var (
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnknownOrderLine = errors.New("unknown order line")
	ErrEmptyBatch       = errors.New("batch has no valid items")
)

// Status is the lifecycle state of a table.
type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
	StatusReady     Status = "ready"
)

// Size is the physical size class of a table.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// OrderLine is one line item of a table's active order, before aggregation.
type OrderLine struct {
	ID        string  `json:"id"`
	ItemName  string  `json:"item"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
	IsNew     bool    `json:"isNew"`
	IsServed  bool    `json:"isServed"`
}

// Item is an incoming order item as carried by the live feed.
type Item struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

// Validate reports why an item cannot become an order line.
func (i Item) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("item has no name")
	}
	if i.Quantity <= 0 {
		return fmt.Errorf("item %q has non-positive quantity %d", i.Name, i.Quantity)
	}
	if i.UnitPrice < 0 {
		return fmt.Errorf("item %q has negative price %.2f", i.Name, i.UnitPrice)
	}
	return nil
}

// Batch is the set of items introduced by a single feed event.
type Batch struct {
	TableNumber int
	Items       []Item
}

// Table is a physical dining table tracked through a seating session.
type Table struct {
	Number      int         `json:"number"`
	ID          string      `json:"id"`
	Status      Status      `json:"status"`
	Size        Size        `json:"size"`
	Capacity    int         `json:"capacity"`
	HasAlert    bool        `json:"hasAlert"`
	LastOrderAt *time.Time  `json:"lastOrder,omitempty"`
	SessionKey  string      `json:"sessionKey,omitempty"`
	Orders      []OrderLine `json:"orders"`
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	c := t
	c.Orders = append(make([]OrderLine, 0, len(t.Orders)), t.Orders...)
	if t.LastOrderAt != nil {
		ts := *t.LastOrderAt
		c.LastOrderAt = &ts
	}
	return c
}

// Seed describes a table of the initial roster.
type Seed struct {
	Number   int
	Size     Size
	Capacity int
}

func newTable(s Seed) *Table {
	return &Table{
		Number:   s.Number,
		ID:       parse.TableID(s.Number),
		Status:   StatusAvailable,
		Size:     s.Size,
		Capacity: s.Capacity,
		Orders:   []OrderLine{},
	}
}
