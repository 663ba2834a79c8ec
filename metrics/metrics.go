// Package metrics provides Prometheus instrumentation for ledger replays.
//
// Collectors live on a private registry so that several engines (and tests)
// can coexist in one process. There is no listener: the registry is written
// to a node-exporter textfile at the end of a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/warp/payments-engine/payments"
)

// Collector holds the replay collectors. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Operations counts applied operations, partitioned by type and result.
	Operations *prometheus.CounterVec

	// Rejections counts rejected operations by type and failure reason.
	Rejections *prometheus.CounterVec

	// Accounts tracks the number of accounts in the last snapshot.
	Accounts prometheus.Gauge

	// LockedAccounts tracks frozen accounts in the last snapshot.
	LockedAccounts prometheus.Gauge

	// HeldFunds is the summed held balance in currency units.
	HeldFunds prometheus.Gauge

	// ReplayDuration records wall time of whole replays.
	ReplayDuration prometheus.Histogram
}

// New registers the replay collectors on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_operations_total",
			Help: "Total ledger operations submitted, by operation and result",
		}, []string{"operation", "result"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_operation_rejections_total",
			Help: "Ledger operations rejected, by operation and reason",
		}, []string{"operation", "reason"}),
		Accounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "payments_accounts",
			Help: "Number of client accounts",
		}),
		LockedAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "payments_locked_accounts",
			Help: "Number of client accounts frozen by a chargeback",
		}),
		HeldFunds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "payments_held_funds",
			Help: "Sum of held balances across all accounts",
		}),
		ReplayDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "payments_replay_duration_seconds",
			Help:    "Replay wall time in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
	}
}

// Registry exposes the private registry, e.g. for testutil.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveOperation counts one operation outcome. err is the engine result.
func (c *Collector) ObserveOperation(op payments.OpType, err error) {
	if c == nil {
		return
	}
	if err == nil {
		c.Operations.WithLabelValues(string(op), "applied").Inc()
		return
	}
	c.Operations.WithLabelValues(string(op), "rejected").Inc()
	c.Rejections.WithLabelValues(string(op), payments.Reason(err)).Inc()
}

// ObserveSnapshot sets the account gauges from a final account listing.
func (c *Collector) ObserveSnapshot(accounts []payments.Account) {
	if c == nil {
		return
	}

	var locked int
	var held decimal.Decimal
	for _, acc := range accounts {
		if acc.Locked {
			locked++
		}
		held = held.Add(acc.Held.Decimal())
	}

	c.Accounts.Set(float64(len(accounts)))
	c.LockedAccounts.Set(float64(locked))
	c.HeldFunds.Set(held.InexactFloat64())
}

// ObserveReplay records the duration of one replay.
func (c *Collector) ObserveReplay(d time.Duration) {
	if c == nil {
		return
	}
	c.ReplayDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
