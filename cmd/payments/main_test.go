package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payments-engine/report/sqlite"
)

const sample = `type, client, tx, amount
deposit, 1, 1, 1.0
deposit, 2, 2, 2.0
deposit, 1, 3, 2.0
withdrawal, 1, 4, 1.5
withdrawal, 2, 5, 3.0
`

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnv(string) string { return "" }

func TestRun_PrintsAccounts(t *testing.T) {
	// GIVEN: The sample input, where client 2 overdraws
	input := writeInput(t, sample)
	var stdout, stderr bytes.Buffer

	// WHEN: Running with default settings
	code := run(context.Background(), []string{input}, noEnv, &stdout, &stderr)

	// THEN: Exit 0, report on stdout, rejection logged on stderr only
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "client,available,held,total,locked\n"+
		"1,1.5000,0.0000,1.5000,false\n"+
		"2,2.0000,0.0000,2.0000,false\n", stdout.String())
	assert.Contains(t, stderr.String(), "insufficient_funds")
}

func TestRun_StrictFailsOnRejection(t *testing.T) {
	input := writeInput(t, sample)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-strict", input}, noEnv, &stdout, &stderr)

	assert.Equal(t, exitRun, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "line 6")
}

func TestRun_MalformedInput(t *testing.T) {
	input := writeInput(t, "type,client,tx,amount\ndeposit,1,1,\n")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{input}, noEnv, &stdout, &stderr)

	assert.Equal(t, exitRun, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "line 2")
}

func TestRun_UsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, exitUsage, run(context.Background(), nil, noEnv, &stdout, &stderr))
	assert.Equal(t, exitUsage, run(context.Background(), []string{"-log-format=xml", "x.csv"}, noEnv, &stdout, &stderr))
	assert.Empty(t, stdout.String())
}

func TestRun_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{filepath.Join(t.TempDir(), "absent.csv")}, noEnv, &stdout, &stderr)

	assert.Equal(t, exitRun, code)
}

func TestRun_Exports(t *testing.T) {
	// GIVEN: SQLite and metrics outputs configured through the environment
	input := writeInput(t, sample)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "run.db")
	promPath := filepath.Join(dir, "payments.prom")
	getenv := func(k string) string {
		return map[string]string{
			"PAYMENTS_SQLITE_PATH":  dbPath,
			"PAYMENTS_METRICS_FILE": promPath,
		}[k]
	}
	var stdout, stderr bytes.Buffer

	// WHEN: Running
	code := run(context.Background(), []string{input}, getenv, &stdout, &stderr)

	// THEN: Both files describe the same final state
	require.Equal(t, exitOK, code, stderr.String())

	exp, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer exp.Close()
	accounts, err := exp.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "1.5000", accounts[0].Available.String())
	txs, err := exp.Transactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 4)

	prom, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "payments_accounts 2")
	assert.Contains(t, string(prom), `payments_operation_rejections_total{operation="withdrawal",reason="insufficient_funds"} 1`)
}

func TestRun_CancelledContext(t *testing.T) {
	input := writeInput(t, sample)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer

	code := run(ctx, []string{input}, noEnv, &stdout, &stderr)

	assert.Equal(t, exitRun, code)
	assert.Empty(t, stdout.String())
}

func TestRun_FailedExportPrintsNothing(t *testing.T) {
	// GIVEN: A metrics file in a directory that does not exist
	input := writeInput(t, sample)
	promPath := filepath.Join(t.TempDir(), "missing", "payments.prom")
	var stdout, stderr bytes.Buffer

	// WHEN: Running
	code := run(context.Background(), []string{"-metrics-file", promPath, input}, noEnv, &stdout, &stderr)

	// THEN: The run fails and no partial report reaches stdout
	assert.Equal(t, exitRun, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "write metrics")
}
