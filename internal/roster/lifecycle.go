package roster

import "time"

// Next returns the state that follows s in the manual operator cycle
// available → occupied → ready → available.
func (s Status) Next() Status {
	switch s {
	case StatusAvailable:
		return StatusOccupied
	case StatusOccupied:
		return StatusReady
	default:
		return StatusAvailable
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusReady:
		return true
	}
	return false
}

// markOrdered records the arrival of a batch: the table is occupied and
// alerting from now on.
func (t *Table) markOrdered(now time.Time, sessionKey func() string) {
	t.enterSession(sessionKey)
	t.Status = StatusOccupied
	t.HasAlert = true
	ts := now
	t.LastOrderAt = &ts
}

// advance moves the table one step along the manual cycle. Orders are left
// untouched; only checkout clears them.
func (t *Table) advance(sessionKey func() string) Status {
	next := t.Status.Next()
	if next == StatusOccupied {
		t.enterSession(sessionKey)
	}
	t.Status = next
	return next
}

// reset puts the table back into the state it had at startup.
func (t *Table) reset() {
	t.Status = StatusAvailable
	t.Orders = []OrderLine{}
	t.HasAlert = false
	t.LastOrderAt = nil
	t.SessionKey = ""
}

// idle reports whether the table has no seating session to clear.
func (t *Table) idle() bool {
	return t.Status == StatusAvailable && len(t.Orders) == 0
}

func (t *Table) enterSession(sessionKey func() string) {
	if t.SessionKey == "" {
		t.SessionKey = sessionKey()
	}
}
