// Package checkout settles a table: it writes the bill to order history and
// then tears down the table's remote session records.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"restaurant-admin-backend/internal/metrics"
	"restaurant-admin-backend/internal/model"
	"restaurant-admin-backend/internal/roster"
	"restaurant-admin-backend/internal/store"
)

// PaymentMode is how a bill was paid.
type PaymentMode string

const (
	Cash  PaymentMode = "Cash"
	Card  PaymentMode = "Card"
	Mixed PaymentMode = "Mixed"
)

var ErrInvalidPaymentMode = errors.New("invalid payment mode")

// ParsePaymentMode accepts any casing of a known mode.
func ParsePaymentMode(s string) (PaymentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash":
		return Cash, nil
	case "card":
		return Card, nil
	case "mixed":
		return Mixed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMode, s)
}

// Step names a persistence call made during checkout.
type Step string

const (
	StepHistory      Step = "order history"
	StepVerification Step = "verification"
	StepOTP          Step = "otp"
	StepActiveOrders Step = "active orders"
	StepAllocation   Step = "allocation"
)

// StepError reports which step aborted a checkout.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("checkout step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Persister is the part of the store checkout needs.
type Persister interface {
	CreateOrderHistory(ctx context.Context, rec store.HistoryRecord) (*model.OrderHistory, error)
	InvalidateVerification(ctx context.Context, tableNumber int) error
	DeleteOTP(ctx context.Context, tableNumber int) error
	DeleteActiveOrders(ctx context.Context, tableNumber int) error
	DeleteAllocation(ctx context.Context, tableNumber int) error
}

// Result is a settled checkout.
type Result struct {
	Bill    roster.Bill
	History *model.OrderHistory
}

// Coordinator runs the checkout steps in order and stops at the first failure.
// It never touches the roster; resetting the table is left to the caller.
type Coordinator struct {
	store Persister
	rec   metrics.Recorder
}

func NewCoordinator(s Persister, rec metrics.Recorder) *Coordinator {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Coordinator{store: s, rec: rec}
}

// Settle persists the table's bill and clears its session records. Every
// step is idempotent, so a failed checkout can simply be retried.
func (c *Coordinator) Settle(ctx context.Context, t roster.Table, mode PaymentMode) (Result, error) {
	start := time.Now()
	defer func() {
		c.rec.ObserveLatency(metrics.CheckoutDuration, time.Since(start).Seconds())
	}()

	bill := roster.BillFor(t)
	sessionKey := t.SessionKey
	if sessionKey == "" {
		sessionKey = uuid.NewString()
	}

	items := make([]store.LineItem, len(bill.Lines))
	for i, l := range bill.Lines {
		items[i] = store.LineItem{Name: l.ItemName, Quantity: l.Quantity, Price: l.UnitPrice}
	}

	history, err := c.store.CreateOrderHistory(ctx, store.HistoryRecord{
		SessionKey:  sessionKey,
		TableNumber: t.Number,
		Items:       items,
		Total:       bill.Total,
		PaymentMode: string(mode),
		Status:      model.HistoryStatusCompleted,
	})
	if err != nil {
		return Result{}, c.fail(t, StepHistory, err)
	}

	steps := []struct {
		step Step
		fn   func(context.Context, int) error
	}{
		{StepVerification, c.store.InvalidateVerification},
		{StepOTP, c.store.DeleteOTP},
		{StepActiveOrders, c.store.DeleteActiveOrders},
		{StepAllocation, c.store.DeleteAllocation},
	}
	for _, s := range steps {
		if err := s.fn(ctx, t.Number); err != nil {
			return Result{}, c.fail(t, s.step, err)
		}
	}

	c.rec.IncCounter(metrics.CheckoutsSucceeded, 1)
	log.Printf("Checkout of %s settled: %.2f by %s (history %d)", t.ID, bill.Total, mode, history.ID)
	return Result{Bill: bill, History: history}, nil
}

func (c *Coordinator) fail(t roster.Table, step Step, err error) error {
	c.rec.IncCounter(metrics.CheckoutFailures, 1)
	log.Printf("Checkout of %s failed at %s: %v", t.ID, step, err)
	return &StepError{Step: step, Err: err}
}
