package store

import "errors"

// ErrNotFound is returned when a record addressed by ID does not exist.
var ErrNotFound = errors.New("record not found")

// LineItem is an item as persisted in order records.
type LineItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// HistoryRecord is the input of CreateOrderHistory.
type HistoryRecord struct {
	// SessionKey identifies the seating session; a second create with the
	// same key returns the first record instead of inserting a duplicate.
	SessionKey  string
	TableNumber int
	Items       []LineItem
	Total       float64
	PaymentMode string
	Status      string
}

// HistoryFilter narrows ListOrderHistory.
type HistoryFilter struct {
	TableNumber *int
}

// HistoryUpdate carries the fields of an order history record to change.
// Nil fields are left alone; a non-nil Items replaces every item.
type HistoryUpdate struct {
	TableNumber *int
	TotalAmount *float64
	PaymentMode *string
	Status      *string
	BookMark    *bool
	Items       *[]LineItem
}
