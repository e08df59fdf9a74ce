// Package frontdesk owns the table roster. A single goroutine applies feed
// events and operator commands to it in arrival order.
package frontdesk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"restaurant-admin-backend/config"
	"restaurant-admin-backend/internal/checkout"
	"restaurant-admin-backend/internal/feed"
	"restaurant-admin-backend/internal/metrics"
	"restaurant-admin-backend/internal/model"
	"restaurant-admin-backend/internal/notification"
	"restaurant-admin-backend/internal/roster"
	"restaurant-admin-backend/internal/store"
)

var (
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrStopped            = errors.New("front desk stopped")
)

// Store is the persistence the front desk uses beyond checkout.
type Store interface {
	checkout.Persister
	RecordActiveOrders(ctx context.Context, tableNumber int, items []store.LineItem) error
	SaveOTP(ctx context.Context, tableNumber int, code string) (*model.TableOTP, error)
}

// Alerter fires order alerts.
type Alerter interface {
	Dispatch(a notification.Alert)
	Interact()
}

// Broadcaster pushes frames to connected dashboards.
type Broadcaster interface {
	Broadcast(f notification.Frame) int
}

// CheckoutOutcome is the result of a checkout request.
type CheckoutOutcome struct {
	Notice  Notice              `json:"notice"`
	Table   *roster.Table       `json:"table,omitempty"`
	Bill    *roster.Bill        `json:"bill,omitempty"`
	History *model.OrderHistory `json:"history,omitempty"`
}

type command func()

// Service is the single writer of the roster.
type Service struct {
	roster   *roster.Roster
	checkout *checkout.Coordinator
	store    Store
	alerts   Alerter
	board    Broadcaster
	rec      metrics.Recorder
	otp      func() (string, error)

	commands chan command
	done     chan struct{}
	stopOnce sync.Once

	// Owned by the loop.
	checkingOut map[int]bool

	background sync.WaitGroup
	bgCtx      context.Context
	bgCancel   context.CancelFunc
}

// Option customises a Service.
type Option func(*Service)

// WithBroadcaster publishes roster updates to dashboards.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.board = b }
}

// WithMetrics records loop activity.
func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Service) { s.rec = rec }
}

// WithOTPGenerator overrides the OTP source.
func WithOTPGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.otp = fn }
}

// NewService wires the roster to its collaborators. Run must be called
// before any command is issued.
func NewService(r *roster.Roster, st Store, alerts Alerter, opts ...Option) *Service {
	s := &Service{
		roster:      r,
		store:       st,
		alerts:      alerts,
		rec:         metrics.Nop{},
		otp:         GenerateOTP,
		commands:    make(chan command),
		done:        make(chan struct{}),
		checkingOut: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.checkout = checkout.NewCoordinator(st, s.rec)
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	return s
}

// Run processes feed events and commands until ctx is cancelled. A closed
// events channel stops feed processing but not the service.
func (s *Service) Run(ctx context.Context, events <-chan feed.OrderEvent) {
	log.Println("Starting front desk...")
	defer s.stop()
	s.publish()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				log.Println("Order feed closed; serving operator commands only.")
				events = nil
				continue
			}
			s.handleEvent(ev)
		case cmd := <-s.commands:
			cmd()
		case <-ctx.Done():
			log.Println("Front desk shutting down.")
			return
		}
	}
}

// Wait blocks until background persistence started by the loop has finished.
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.bgCancel()
	})
}

// do runs fn on the loop and waits for it.
func (s *Service) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.commands <- cmd:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// interact is called on the loop for every operator command.
func (s *Service) interact() {
	s.alerts.Interact()
}

func (s *Service) handleEvent(ev feed.OrderEvent) {
	applied, err := s.roster.ApplyBatch(ev.Batch)
	if err != nil {
		if errors.Is(err, roster.ErrUnknownTable) {
			s.rec.IncCounter(metrics.UnknownTableDrops, 1)
		}
		log.Printf("Dropping order batch: %v", err)
		return
	}
	s.rec.IncCounter(metrics.BatchesApplied, 1)

	s.alerts.Dispatch(notification.Alert{TableID: applied.Table.ID, ItemNames: applied.ItemNames()})
	s.recordBatch(ev.Batch)
	s.publish()
}

// recordBatch persists the batch's valid items as active orders. Failures
// are logged only.
func (s *Service) recordBatch(b roster.Batch) {
	items := make([]store.LineItem, 0, len(b.Items))
	for _, it := range b.Items {
		if it.Validate() != nil {
			continue
		}
		items = append(items, store.LineItem{Name: it.Name, Quantity: it.Quantity, Price: it.UnitPrice})
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.store.RecordActiveOrders(s.bgCtx, b.TableNumber, items); err != nil {
			log.Printf("Error recording active orders for table %d: %v", b.TableNumber, err)
		}
	}()
}

// publish pushes the current roster to dashboards.
func (s *Service) publish() {
	snap := s.roster.Snapshot()
	occupied := 0
	for _, t := range snap {
		if t.Status != roster.StatusAvailable {
			occupied++
		}
	}
	s.rec.SetGauge(metrics.OccupiedTables, float64(occupied))
	if s.board != nil {
		s.board.Broadcast(notification.Frame{Type: notification.FrameRosterUpdate, Payload: snap})
	}
}

// Snapshot returns copies of every table.
func (s *Service) Snapshot(ctx context.Context) ([]roster.Table, error) {
	var out []roster.Table
	err := s.do(ctx, func() {
		out = s.roster.Snapshot()
	})
	return out, err
}

// Table returns a copy of one table.
func (s *Service) Table(ctx context.Context, number int) (roster.Table, error) {
	var (
		out   roster.Table
		found bool
	)
	if err := s.do(ctx, func() {
		out, found = s.roster.Table(number)
	}); err != nil {
		return roster.Table{}, err
	}
	if !found {
		return roster.Table{}, fmt.Errorf("table %d: %w", number, roster.ErrUnknownTable)
	}
	return out, nil
}

// Bill returns the aggregated bill of a table.
func (s *Service) Bill(ctx context.Context, number int) (roster.Bill, error) {
	t, err := s.Table(ctx, number)
	if err != nil {
		return roster.Bill{}, err
	}
	return roster.BillFor(t), nil
}

// Cycle advances a table along the manual status cycle.
func (s *Service) Cycle(ctx context.Context, number int) (roster.Table, Notice, error) {
	var (
		out    roster.Table
		cmdErr error
	)
	if err := s.do(ctx, func() {
		s.interact()
		out, cmdErr = s.roster.Cycle(number)
		if cmdErr == nil {
			s.publish()
		}
	}); err != nil {
		return roster.Table{}, Notice{}, err
	}
	if cmdErr != nil {
		return roster.Table{}, failure(cmdErr.Error()), cmdErr
	}
	return out, info(fmt.Sprintf("Table %s is now %s.", out.ID, out.Status)), nil
}

// ToggleServed flips the served flag of one order line.
func (s *Service) ToggleServed(ctx context.Context, number int, lineID string) (roster.OrderLine, error) {
	var (
		out    roster.OrderLine
		cmdErr error
	)
	if err := s.do(ctx, func() {
		s.interact()
		out, cmdErr = s.roster.ToggleServed(number, lineID)
		if cmdErr == nil {
			s.publish()
		}
	}); err != nil {
		return roster.OrderLine{}, err
	}
	return out, cmdErr
}

// GenerateOTP issues a fresh session code for a table.
func (s *Service) GenerateOTP(ctx context.Context, number int) (string, Notice, error) {
	var (
		t     roster.Table
		found bool
	)
	if err := s.do(ctx, func() {
		s.interact()
		t, found = s.roster.Table(number)
	}); err != nil {
		return "", failure("Front desk is not running."), err
	}
	if !found {
		err := fmt.Errorf("table %d: %w", number, roster.ErrUnknownTable)
		return "", failure(err.Error()), err
	}

	code, err := s.otp()
	if err != nil {
		return "", failure("Failed to generate OTP."), fmt.Errorf("generate otp: %w", err)
	}
	if _, err := s.store.SaveOTP(ctx, number, code); err != nil {
		return "", failure(fmt.Sprintf("Failed to save OTP for table %s.", t.ID)), err
	}
	return code, success(fmt.Sprintf("OTP for table %s: %s", t.ID, code)), nil
}

// Checkout settles a table. The persistence steps run on the caller's
// goroutine; the loop keeps serving other tables meanwhile.
func (s *Service) Checkout(ctx context.Context, number int, paymentMode string) (CheckoutOutcome, error) {
	mode, err := checkout.ParsePaymentMode(paymentMode)
	if err != nil {
		return CheckoutOutcome{Notice: failure(fmt.Sprintf("Unknown payment mode %q.", paymentMode))}, err
	}

	var (
		snap   roster.Table
		idle   bool
		cmdErr error
	)
	if err := s.do(ctx, func() {
		s.interact()
		t, ok := s.roster.Table(number)
		if !ok {
			cmdErr = fmt.Errorf("table %d: %w", number, roster.ErrUnknownTable)
			return
		}
		free, _ := s.roster.Idle(number)
		switch {
		case s.checkingOut[number]:
			cmdErr = fmt.Errorf("table %s: %w", t.ID, ErrCheckoutInProgress)
		case free:
			snap, idle = t, true
		default:
			snap = t
			s.checkingOut[number] = true
		}
	}); err != nil {
		return CheckoutOutcome{Notice: failure("Front desk is not running.")}, err
	}
	if cmdErr != nil {
		return CheckoutOutcome{Notice: failure(cmdErr.Error())}, cmdErr
	}
	if idle {
		return CheckoutOutcome{Notice: info(fmt.Sprintf("Table %s has no active session.", snap.ID)), Table: &snap}, nil
	}

	res, settleErr := s.checkout.Settle(ctx, snap, mode)

	var (
		cleared roster.Table
		doneErr error
	)
	// Completion must reach the loop even if the caller has gone away.
	if err := s.do(context.Background(), func() {
		delete(s.checkingOut, number)
		if settleErr != nil {
			return
		}
		cleared, doneErr = s.roster.Settle(number, snap.Orders)
		s.publish()
	}); err != nil {
		return CheckoutOutcome{Notice: failure("Front desk stopped during checkout.")}, err
	}

	if settleErr != nil {
		return CheckoutOutcome{
			Notice: failure(fmt.Sprintf("Failed to clear table %s: %v. Please retry.", snap.ID, settleErr)),
			Table:  &snap,
		}, settleErr
	}
	if doneErr != nil {
		return CheckoutOutcome{Notice: failure(doneErr.Error())}, doneErr
	}
	return CheckoutOutcome{
		Notice:  success(fmt.Sprintf("Table %s cleared. %.2f paid by %s.", snap.ID, res.Bill.Total, mode)),
		Table:   &cleared,
		Bill:    &res.Bill,
		History: res.History,
	}, nil
}

// Seeds converts the configured floor plan into roster seeds.
func Seeds(cfg config.RosterConfig) []roster.Seed {
	out := make([]roster.Seed, len(cfg.Tables))
	for i, t := range cfg.Tables {
		out[i] = roster.Seed{Number: t.Number, Size: roster.Size(t.Size), Capacity: t.Capacity}
	}
	return out
}
