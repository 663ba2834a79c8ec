/*
Package sqlite exports a replay snapshot into a SQLite database file.

PURPOSE:
  The CSV report on stdout is the primary output. This exporter writes the
  same final state, plus every recorded transaction, into SQLite so it can
  be inspected with ordinary SQL after the process exits. It is a report
  sink: the engine never reads state back from it.

KEY TABLES:
  runs:         One row describing the replay that produced the snapshot
  accounts:     Final per-client balances
  transactions: Deposits and withdrawals with their final dispute state

SNAPSHOT SEMANTICS:
  Export replaces whatever snapshot the file already holds, inside a single
  SQL transaction. A failed export leaves the previous snapshot intact.

AMOUNTS:
  Stored as TEXT with exactly four decimals ("12.3400") so that values round
  trip through generic.ParseAmount without touching floating point.

USAGE:
  exp, err := sqlite.New("./out/payments.db")
  if err != nil {
      return err
  }
  defer exp.Close()

  err = exp.Export(ctx, sqlite.Snapshot{RunID: id, Accounts: e.Accounts(), ...})

SEE ALSO:
  - report/csv.go: stdout report
  - payments/types.go: Account and Transaction
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/payments-engine/generic"
	"github.com/warp/payments-engine/payments"
)

// Snapshot is everything one export writes.
type Snapshot struct {
	RunID        string
	CreatedAt    time.Time
	Source       string
	Accounts     []payments.Account
	Transactions []payments.Transaction
}

// Run is the metadata row of the stored snapshot.
type Run struct {
	ID           string
	CreatedAt    time.Time
	Source       string
	Accounts     int
	Transactions int
}

// Exporter writes snapshots to one SQLite file.
type Exporter struct {
	db *sql.DB
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Exporter, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	exp := &Exporter{db: db}
	if err := exp.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return exp, nil
}

// Close closes the database connection.
func (x *Exporter) Close() error {
	return x.db.Close()
}

func (x *Exporter) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		source TEXT NOT NULL,
		accounts INTEGER NOT NULL,
		transactions INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		client INTEGER PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		available TEXT NOT NULL,
		held TEXT NOT NULL,
		total TEXT NOT NULL,
		locked INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		tx INTEGER PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		client INTEGER NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		state TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_client
		ON transactions(client, tx);
	`

	_, err := x.db.Exec(schema)
	return err
}

// =============================================================================
// EXPORT
// =============================================================================

// Export replaces the stored snapshot with snap.
func (x *Exporter) Export(ctx context.Context, snap Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	sqlTx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, table := range []string{"transactions", "accounts", "runs"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	_, err = sqlTx.ExecContext(ctx,
		"INSERT INTO runs (id, created_at, source, accounts, transactions) VALUES (?, ?, ?, ?, ?)",
		snap.RunID,
		snap.CreatedAt.UTC().Format(time.RFC3339Nano),
		snap.Source,
		len(snap.Accounts),
		len(snap.Transactions),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	accStmt, err := sqlTx.PrepareContext(ctx,
		"INSERT INTO accounts (client, run_id, available, held, total, locked) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare account insert: %w", err)
	}
	defer accStmt.Close()

	for _, acc := range snap.Accounts {
		_, err := accStmt.ExecContext(ctx,
			int64(acc.Client),
			snap.RunID,
			acc.Available.String(),
			acc.Held.String(),
			acc.Total.String(),
			acc.Locked,
		)
		if err != nil {
			return fmt.Errorf("failed to insert account %d: %w", acc.Client, err)
		}
	}

	txStmt, err := sqlTx.PrepareContext(ctx,
		"INSERT INTO transactions (tx, run_id, client, tx_type, amount, state) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer txStmt.Close()

	for _, tx := range snap.Transactions {
		_, err := txStmt.ExecContext(ctx,
			int64(tx.ID),
			snap.RunID,
			int64(tx.Client),
			tx.Type.String(),
			tx.Amount.String(),
			tx.State.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %d: %w", tx.ID, err)
		}
	}

	return sqlTx.Commit()
}

// =============================================================================
// QUERIES
// =============================================================================

// LastRun returns the metadata of the stored snapshot, or false if the file
// holds none.
func (x *Exporter) LastRun(ctx context.Context) (Run, bool, error) {
	var (
		run     Run
		created string
	)
	err := x.db.QueryRowContext(ctx,
		"SELECT id, created_at, source, accounts, transactions FROM runs LIMIT 1",
	).Scan(&run.ID, &created, &run.Source, &run.Accounts, &run.Transactions)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("failed to query run: %w", err)
	}

	run.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, false, fmt.Errorf("failed to parse run time %q: %w", created, err)
	}
	return run, true, nil
}

// Accounts reads the stored accounts in ascending client order.
func (x *Exporter) Accounts(ctx context.Context) ([]payments.Account, error) {
	rows, err := x.db.QueryContext(ctx,
		"SELECT client, available, held, total, locked FROM accounts ORDER BY client")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var out []payments.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

// Transactions reads the stored transactions in ascending tx order.
func (x *Exporter) Transactions(ctx context.Context) ([]payments.Transaction, error) {
	rows, err := x.db.QueryContext(ctx,
		"SELECT tx, client, tx_type, amount, state FROM transactions ORDER BY tx")
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []payments.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanAccount(rows *sql.Rows) (payments.Account, error) {
	var (
		client                 int64
		available, held, total string
		acc                    payments.Account
	)
	if err := rows.Scan(&client, &available, &held, &total, &acc.Locked); err != nil {
		return acc, err
	}

	acc.Client = payments.ClientID(client)
	for _, f := range []struct {
		text string
		dst  *generic.Amount
	}{
		{available, &acc.Available},
		{held, &acc.Held},
		{total, &acc.Total},
	} {
		a, err := generic.ParseAmount(f.text)
		if err != nil {
			return acc, fmt.Errorf("account %d: %w", client, err)
		}
		*f.dst = a
	}
	return acc, nil
}

func scanTransaction(rows *sql.Rows) (payments.Transaction, error) {
	var (
		id, client         int64
		typ, amount, state string
		tx                 payments.Transaction
	)
	if err := rows.Scan(&id, &client, &typ, &amount, &state); err != nil {
		return tx, err
	}

	tx.ID = payments.TxID(id)
	tx.Client = payments.ClientID(client)

	var err error
	if tx.Type, err = payments.ParseTxType(typ); err != nil {
		return tx, fmt.Errorf("transaction %d: %w", id, err)
	}
	if tx.State, err = payments.ParseTxState(state); err != nil {
		return tx, fmt.Errorf("transaction %d: %w", id, err)
	}
	if tx.Amount, err = generic.ParseAmount(amount); err != nil {
		return tx, fmt.Errorf("transaction %d: %w", id, err)
	}
	return tx, nil
}
