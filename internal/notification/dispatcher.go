package notification

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"restaurant-admin-backend/internal/metrics"
)

// Surface is where order alerts end up: a sound on the operator's screen
// and a system notification.
type Surface interface {
	// RequestPermission reports whether notifications may be shown. It is
	// asked once, when the dispatcher is created.
	RequestPermission() bool
	PlayAlert(tableID string) error
	Notify(title, body string, persistent bool) error
}

// Alert describes one reconciled order batch.
type Alert struct {
	TableID   string
	ItemNames []string
}

// Title is the notification title for the alert.
func (a Alert) Title() string {
	return fmt.Sprintf("New Order for Table %s", a.TableID)
}

// Body lists the batch's item names.
func (a Alert) Body() string {
	return "New order received: " + strings.Join(a.ItemNames, ", ")
}

// Dispatcher fires the sound and notification for each batch off the
// caller's goroutine. Failures are logged and counted, never returned.
type Dispatcher struct {
	surface   Surface
	permitted bool
	rec       metrics.Recorder

	mu      sync.Mutex
	pending *Alert // sound to replay on the next interaction

	wg sync.WaitGroup
}

// NewDispatcher asks the surface for notification permission once.
func NewDispatcher(s Surface, rec metrics.Recorder) *Dispatcher {
	if rec == nil {
		rec = metrics.Nop{}
	}
	d := &Dispatcher{surface: s, rec: rec, permitted: s.RequestPermission()}
	if !d.permitted {
		log.Printf("Notification permission not granted; order alerts will be sound only")
	}
	return d
}

// Permitted reports the permission answer obtained at startup.
func (d *Dispatcher) Permitted() bool {
	return d.permitted
}

// Dispatch fires the alert asynchronously.
func (d *Dispatcher) Dispatch(a Alert) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.fire(a)
	}()
}

// Interact runs the armed sound retry, if any. The retry is consumed
// whether or not it succeeds.
func (d *Dispatcher) Interact() {
	d.mu.Lock()
	a := d.pending
	d.pending = nil
	d.mu.Unlock()
	if a == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.recoverPanic("sound retry")
		if err := d.surface.PlayAlert(a.TableID); err != nil {
			d.rec.IncCounter(metrics.SideEffectFailures, 1)
			log.Printf("Alert sound retry for table %s failed: %v", a.TableID, err)
		}
	}()
}

// Armed reports whether a sound retry is waiting for an interaction.
func (d *Dispatcher) Armed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Wait blocks until every in-flight alert has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) fire(a Alert) {
	defer d.recoverPanic("alert for table " + a.TableID)

	d.playSound(a)

	if !d.permitted {
		log.Printf("WARN: notification for table %s skipped: permission not granted", a.TableID)
		return
	}
	if err := d.surface.Notify(a.Title(), a.Body(), true); err != nil {
		d.rec.IncCounter(metrics.SideEffectFailures, 1)
		log.Printf("Notification for table %s failed: %v", a.TableID, err)
	}
}

func (d *Dispatcher) playSound(a Alert) {
	defer func() {
		if r := recover(); r != nil {
			d.rec.IncCounter(metrics.SideEffectFailures, 1)
			log.Printf("Alert sound for table %s panicked: %v", a.TableID, r)
			d.arm(a)
		}
	}()
	if err := d.surface.PlayAlert(a.TableID); err != nil {
		d.rec.IncCounter(metrics.SideEffectFailures, 1)
		log.Printf("Alert sound for table %s failed, will retry on next interaction: %v", a.TableID, err)
		d.arm(a)
	}
}

func (d *Dispatcher) arm(a Alert) {
	d.mu.Lock()
	d.pending = &a
	d.mu.Unlock()
}

func (d *Dispatcher) recoverPanic(what string) {
	if r := recover(); r != nil {
		d.rec.IncCounter(metrics.SideEffectFailures, 1)
		log.Printf("Side effect %s panicked: %v", what, r)
	}
}
