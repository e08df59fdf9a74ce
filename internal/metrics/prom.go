package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counter names.
const (
	FeedMessages       = "tabled_feed_messages_total"
	FeedParseFailures  = "tabled_feed_parse_failures_total"
	BatchesApplied     = "tabled_batches_applied_total"
	UnknownTableDrops  = "tabled_unknown_table_drops_total"
	CheckoutsSucceeded = "tabled_checkouts_total"
	CheckoutFailures   = "tabled_checkout_failures_total"
	SideEffectFailures = "tabled_side_effect_failures_total"
	PushSent           = "tabled_push_sent_total"
	PushExpired        = "tabled_push_expired_total"
)

// Gauge names.
const (
	OccupiedTables   = "tabled_occupied_tables"
	DashboardClients = "tabled_dashboard_clients"
)

// Histogram names.
const (
	CheckoutDuration = "tabled_checkout_duration_seconds"
)

// Recorder is what the rest of the service needs from metrics.
type Recorder interface {
	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
	ObserveLatency(name string, seconds float64)
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64)     {}
func (Nop) SetGauge(string, float64)       {}
func (Nop) ObserveLatency(string, float64) {}

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs creates the collectors and registers them with reg.
func NewPromObs(reg prometheus.Registerer) *PromObs {
	p := &PromObs{
		counters: map[string]prometheus.Counter{},
		gauges:   map[string]prometheus.Gauge{},
		histos:   map[string]prometheus.Observer{},
	}

	counter := func(name, help string) {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		reg.MustRegister(c)
		p.counters[name] = c
	}
	gauge := func(name, help string) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		reg.MustRegister(g)
		p.gauges[name] = g
	}

	counter(FeedMessages, "Messages received on the order feed.")
	counter(FeedParseFailures, "Feed messages that could not be decoded.")
	counter(BatchesApplied, "Order batches merged into a table.")
	counter(UnknownTableDrops, "Order batches dropped because the table is not on the roster.")
	counter(CheckoutsSucceeded, "Checkouts that persisted history and reset the table.")
	counter(CheckoutFailures, "Checkouts aborted by a persistence failure.")
	counter(SideEffectFailures, "Alert sound or notification attempts that failed.")
	counter(PushSent, "Web push notifications delivered to a push service.")
	counter(PushExpired, "Push subscriptions removed after the push service reported them gone.")

	gauge(OccupiedTables, "Tables currently not available.")
	gauge(DashboardClients, "Connected dashboard websockets.")

	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    CheckoutDuration,
		Help:    "Time spent running the checkout persistence steps.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})
	reg.MustRegister(latency)
	p.histos[CheckoutDuration] = latency

	return p
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}
