/*
engine.go - Ledger engine: the five operations and read accessors

PURPOSE:
  Applies deposit, withdrawal, dispute, resolve and chargeback requests to
  the account and transaction stores, one at a time, in submission order.
  The engine exclusively owns both stores.

CRITICAL INVARIANTS:
  1. Total == Available + Held for every account after every operation
  2. A locked account never changes again
  3. All-or-nothing: every precondition is checked before the first write,
     so a failed operation leaves both stores unchanged

FUND MOVEMENTS:
  operation    available   held      total    tx state
  deposit      +amount     .         +amount  new Normal
  withdrawal   -amount     .         -amount  new Normal
  dispute      -amount     +amount   .        Normal -> Disputed
  resolve      +amount     -amount   .        Disputed -> Normal
  chargeback   .           -amount   -amount  Disputed -> Reversed, account locked

CONCURRENCY:
  None. The engine is synchronous and not safe for concurrent use.

SEE ALSO:
  - errors.go: failure taxonomy
  - operation.go: Apply dispatch for ingestion adapters
  - generic/store/memory.go: default stores
*/
package payments

import (
	"go.uber.org/zap"

	"github.com/warp/payments-engine/generic"
	"github.com/warp/payments-engine/generic/store"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the ledger state machine.
type Engine struct {
	accounts generic.CreatingStore[ClientID, Account]
	txs      generic.Store[TxID, Transaction]
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for applied operations (debug level).
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithAccountStore replaces the default in-memory account store.
// The store's FindOrCreate must produce a zeroed, unlocked account.
func WithAccountStore(s generic.CreatingStore[ClientID, Account]) Option {
	return func(e *Engine) { e.accounts = s }
}

// WithTransactionStore replaces the default in-memory transaction store.
func WithTransactionStore(s generic.Store[TxID, Transaction]) Option {
	return func(e *Engine) { e.txs = s }
}

// NewAccountStore returns an empty in-memory account store with the
// zeroed, unlocked default record.
func NewAccountStore() *store.Memory[ClientID, Account] {
	return store.NewMemoryWithDefault(newAccount)
}

// NewTransactionStore returns an empty in-memory transaction store.
func NewTransactionStore() *store.Memory[TxID, Transaction] {
	return store.NewMemory[TxID, Transaction]()
}

// NewEngine creates an engine with empty in-memory stores.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		accounts: NewAccountStore(),
		txs:      NewTransactionStore(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Deposit credits amount to client, creating the account on first use.
func (e *Engine) Deposit(client ClientID, tx TxID, amount generic.Amount) error {
	if amount.IsNegative() {
		return fail(OpDeposit, client, tx, ErrInvalidAmount)
	}

	acc, exists := e.accounts.Find(client)
	if exists && acc.Locked {
		return fail(OpDeposit, client, tx, ErrAccountLocked)
	}
	if _, dup := e.txs.Find(tx); dup {
		return fail(OpDeposit, client, tx, ErrDuplicateTransaction)
	}

	available, okA := acc.Available.CheckedAdd(amount)
	total, okT := acc.Total.CheckedAdd(amount)
	if !okA || !okT {
		return fail(OpDeposit, client, tx, generic.ErrAmountOutOfRange)
	}

	// Only a deposit may create an account, and only once it is known to succeed.
	acc = e.accounts.FindOrCreate(client)
	acc.Available = available
	acc.Total = total

	e.txs.Upsert(tx, Transaction{ID: tx, Type: TxDeposit, Client: client, Amount: amount, State: StateNormal})
	e.accounts.Upsert(client, acc)

	e.applied(OpDeposit, acc, tx, amount)
	return nil
}

// Withdrawal debits amount from client's available funds.
func (e *Engine) Withdrawal(client ClientID, tx TxID, amount generic.Amount) error {
	if amount.IsNegative() {
		return fail(OpWithdrawal, client, tx, ErrInvalidAmount)
	}

	acc, exists := e.accounts.Find(client)
	if !exists {
		return fail(OpWithdrawal, client, tx, ErrAccountDoesNotExist)
	}
	if acc.Locked {
		return fail(OpWithdrawal, client, tx, ErrAccountLocked)
	}
	if _, dup := e.txs.Find(tx); dup {
		return fail(OpWithdrawal, client, tx, ErrDuplicateTransaction)
	}
	if acc.Available.LessThan(amount) {
		return fail(OpWithdrawal, client, tx, &InsufficientFundsError{Available: acc.Available, Requested: amount})
	}

	total, ok := acc.Total.CheckedSub(amount)
	if !ok {
		return fail(OpWithdrawal, client, tx, generic.ErrAmountOutOfRange)
	}
	acc.Available = acc.Available.Sub(amount)
	acc.Total = total

	e.txs.Upsert(tx, Transaction{ID: tx, Type: TxWithdrawal, Client: client, Amount: amount, State: StateNormal})
	e.accounts.Upsert(client, acc)

	e.applied(OpWithdrawal, acc, tx, amount)
	return nil
}

// Dispute moves a transaction's amount from available to held.
func (e *Engine) Dispute(client ClientID, tx TxID) error {
	acc, t, err := e.disputable(OpDispute, client, tx, StateNormal)
	if err != nil {
		return err
	}

	available, okA := acc.Available.CheckedSub(t.Amount)
	held, okH := acc.Held.CheckedAdd(t.Amount)
	if !okA || !okH {
		return fail(OpDispute, client, tx, generic.ErrAmountOutOfRange)
	}
	acc.Available = available
	acc.Held = held
	t.State = StateDisputed

	e.txs.Upsert(tx, t)
	e.accounts.Upsert(client, acc)

	e.applied(OpDispute, acc, tx, t.Amount)
	return nil
}

// Resolve releases a disputed transaction's amount back to available.
func (e *Engine) Resolve(client ClientID, tx TxID) error {
	acc, t, err := e.disputable(OpResolve, client, tx, StateDisputed)
	if err != nil {
		return err
	}

	available, okA := acc.Available.CheckedAdd(t.Amount)
	held, okH := acc.Held.CheckedSub(t.Amount)
	if !okA || !okH {
		return fail(OpResolve, client, tx, generic.ErrAmountOutOfRange)
	}
	acc.Available = available
	acc.Held = held
	t.State = StateNormal

	e.txs.Upsert(tx, t)
	e.accounts.Upsert(client, acc)

	e.applied(OpResolve, acc, tx, t.Amount)
	return nil
}

// Chargeback withdraws a disputed transaction's held amount and locks the account.
func (e *Engine) Chargeback(client ClientID, tx TxID) error {
	acc, t, err := e.disputable(OpChargeback, client, tx, StateDisputed)
	if err != nil {
		return err
	}

	held, okH := acc.Held.CheckedSub(t.Amount)
	total, okT := acc.Total.CheckedSub(t.Amount)
	if !okH || !okT {
		return fail(OpChargeback, client, tx, generic.ErrAmountOutOfRange)
	}
	acc.Held = held
	acc.Total = total
	acc.Locked = true
	t.State = StateReversed

	e.txs.Upsert(tx, t)
	e.accounts.Upsert(client, acc)

	e.applied(OpChargeback, acc, tx, t.Amount)
	return nil
}

// disputable runs the checks shared by dispute, resolve and chargeback and
// returns copies of the account and transaction for the caller to mutate.
func (e *Engine) disputable(op OpType, client ClientID, tx TxID, from TxState) (Account, Transaction, error) {
	acc, ok := e.accounts.Find(client)
	if !ok {
		return Account{}, Transaction{}, fail(op, client, tx, ErrAccountDoesNotExist)
	}
	if acc.Locked {
		return Account{}, Transaction{}, fail(op, client, tx, ErrAccountLocked)
	}
	t, ok := e.txs.Find(tx)
	if !ok || t.Client != client {
		return Account{}, Transaction{}, fail(op, client, tx, ErrTransactionDoesNotExist)
	}
	if t.State != from {
		return Account{}, Transaction{}, fail(op, client, tx, ErrInvalidTransactionState)
	}
	return acc, t, nil
}

// =============================================================================
// READ ACCESSORS
// =============================================================================

// Account returns the account for client, if it exists.
func (e *Engine) Account(client ClientID) (Account, bool) {
	return e.accounts.Find(client)
}

// Accounts returns every account in ascending client order.
func (e *Engine) Accounts() []Account {
	return e.accounts.FindAll()
}

// Transaction returns the transaction with id tx, if it exists.
func (e *Engine) Transaction(tx TxID) (Transaction, bool) {
	return e.txs.Find(tx)
}

// Transactions returns every transaction in ascending id order.
func (e *Engine) Transactions() []Transaction {
	return e.txs.FindAll()
}

// =============================================================================
// HELPERS
// =============================================================================

func fail(op OpType, client ClientID, tx TxID, err error) error {
	return &OperationError{Op: op, Client: client, Tx: tx, Err: err}
}

func (e *Engine) applied(op OpType, acc Account, tx TxID, amount generic.Amount) {
	e.logger.Debug("operation applied",
		zap.String("op", string(op)),
		zap.Uint16("client", uint16(acc.Client)),
		zap.Uint32("tx", uint32(tx)),
		zap.Stringer("amount", amount),
		zap.Stringer("available", acc.Available),
		zap.Stringer("held", acc.Held),
		zap.Stringer("total", acc.Total),
		zap.Bool("locked", acc.Locked),
	)
}
