package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payments-engine/generic"
	"github.com/warp/payments-engine/metrics"
	"github.com/warp/payments-engine/payments"
)

func TestObserveOperation_CountsByResultAndReason(t *testing.T) {
	c := metrics.New()
	e := payments.NewEngine()

	c.ObserveOperation(payments.OpDeposit, e.Deposit(1, 1, generic.MustParseAmount("5")))
	c.ObserveOperation(payments.OpDeposit, e.Deposit(1, 2, generic.MustParseAmount("5")))
	c.ObserveOperation(payments.OpWithdrawal, e.Withdrawal(1, 3, generic.MustParseAmount("50")))
	c.ObserveOperation(payments.OpDispute, e.Dispute(1, 99))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Operations.WithLabelValues("deposit", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("withdrawal", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Rejections.WithLabelValues("withdrawal", "insufficient_funds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Rejections.WithLabelValues("dispute", "transaction_does_not_exist")))
}

func TestObserveSnapshot_SetsGauges(t *testing.T) {
	c := metrics.New()
	accounts := []payments.Account{
		{Client: 1, Available: generic.MustParseAmount("1"), Held: generic.MustParseAmount("2.5"), Total: generic.MustParseAmount("3.5")},
		{Client: 2, Held: generic.MustParseAmount("0.25"), Total: generic.MustParseAmount("0.25")},
		{Client: 3, Locked: true},
	}

	c.ObserveSnapshot(accounts)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.Accounts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LockedAccounts))
	assert.InDelta(t, 2.75, testutil.ToFloat64(c.HeldFunds), 1e-9)
}

func TestCollectors_AreIsolatedPerInstance(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.ObserveOperation(payments.OpDeposit, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Operations.WithLabelValues("deposit", "applied")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Operations.WithLabelValues("deposit", "applied")))
}

func TestNilCollector_IsNoop(t *testing.T) {
	var c *metrics.Collector

	assert.NotPanics(t, func() {
		c.ObserveOperation(payments.OpDeposit, nil)
		c.ObserveSnapshot(nil)
		c.ObserveReplay(time.Second)
	})
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "never.prom")))
}

func TestWriteTextfile(t *testing.T) {
	c := metrics.New()
	c.ObserveOperation(payments.OpDeposit, nil)
	c.ObserveSnapshot([]payments.Account{{Client: 1}})
	c.ObserveReplay(20 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "payments.prom")
	require.NoError(t, c.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.True(t, strings.Contains(out, `payments_operations_total{operation="deposit",result="applied"} 1`), out)
	assert.Contains(t, out, "payments_accounts 1")
	assert.Contains(t, out, "payments_replay_duration_seconds_count 1")
}
