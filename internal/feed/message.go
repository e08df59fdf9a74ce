package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"restaurant-admin-backend/internal/parse"
	"restaurant-admin-backend/internal/roster"
)

// Message types on the order channel.
const (
	TypeRegisterAdmin    = "register_admin"
	TypeAdminOrderUpdate = "admin_order_update"
)

// Message models a frame received from the order channel.
type Message struct {
	Type        string      `json:"type"`
	TableNumber TableRef    `json:"tableNumber"`
	Orders      []OrderItem `json:"orders"`
}

// OrderItem is one item of an admin_order_update.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// TableRef accepts the table number as a JSON number or as a string such
// as "3", "03" or "T-03".
type TableRef int

func (r *TableRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := parse.TableNumber(s)
		if err != nil {
			return err
		}
		*r = TableRef(n)
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("table number %s: %w", data, err)
	}
	*r = TableRef(n)
	return nil
}

// OrderEvent is an order batch ready for reconciliation.
type OrderEvent struct {
	Batch      roster.Batch
	ReceivedAt time.Time
}

// Decode parses a raw frame.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode feed message: %w", err)
	}
	return m, nil
}

// Event converts an order update into an OrderEvent.
func (m Message) Event(now time.Time) OrderEvent {
	items := make([]roster.Item, len(m.Orders))
	for i, o := range m.Orders {
		items[i] = roster.Item{Name: o.Name, Quantity: o.Quantity, UnitPrice: o.Price}
	}
	return OrderEvent{
		Batch:      roster.Batch{TableNumber: int(m.TableNumber), Items: items},
		ReceivedAt: now,
	}
}
