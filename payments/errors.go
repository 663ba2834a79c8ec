/*
errors.go - Ledger error taxonomy

PURPOSE:
  Every failure of an engine operation is one of the sentinels below,
  returned wrapped in an *OperationError that names the operation, client
  and transaction. A failed operation never mutates either store.

ERROR CATEGORIES:
  1. Account state - ErrAccountLocked, ErrAccountDoesNotExist
  2. Transaction state - ErrTransactionDoesNotExist, ErrInvalidTransactionState,
     ErrDuplicateTransaction
  3. Funds - ErrInsufficientFunds (as *InsufficientFundsError)
  4. Input - ErrInvalidAmount, ErrMalformedOperation

USAGE:
    err := engine.Withdrawal(1, 7, amount)
    if errors.Is(err, payments.ErrInsufficientFunds) {
        // skip the record
    }
*/
package payments

import (
	"errors"
	"fmt"

	"github.com/warp/payments-engine/generic"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountLocked is returned for any operation on a charged-back account.
	ErrAccountLocked = errors.New("account locked")

	// ErrAccountDoesNotExist is returned when withdrawal, dispute, resolve or
	// chargeback names a client that has never deposited.
	ErrAccountDoesNotExist = errors.New("account does not exist")

	// ErrTransactionDoesNotExist is returned when dispute, resolve or
	// chargeback names an unknown transaction, or one owned by another client.
	ErrTransactionDoesNotExist = errors.New("transaction does not exist")

	// ErrInvalidTransactionState is returned when the transaction is not in
	// the state the operation transitions from.
	ErrInvalidTransactionState = errors.New("invalid transaction state")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the
	// available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction is returned when a deposit or withdrawal reuses
	// a transaction id.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")

	// ErrInvalidAmount is returned for negative deposit or withdrawal amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrMalformedOperation is returned by Apply when the amount is missing
	// on a deposit or withdrawal, or present on any other operation.
	ErrMalformedOperation = errors.New("malformed operation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OperationError wraps a failure with the operation that produced it.
type OperationError struct {
	Op     OpType
	Client ClientID
	Tx     TxID
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s client=%d tx=%d: %v", e.Op, e.Client, e.Tx, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// InsufficientFundsError provides details about a rejected withdrawal.
type InsufficientFundsError struct {
	Available generic.Amount
	Requested generic.Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s", e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// Reason returns a short stable label for err, for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrAccountDoesNotExist):
		return "account_does_not_exist"
	case errors.Is(err, ErrTransactionDoesNotExist):
		return "transaction_does_not_exist"
	case errors.Is(err, ErrInvalidTransactionState):
		return "invalid_transaction_state"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrDuplicateTransaction):
		return "duplicate_transaction"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrMalformedOperation):
		return "malformed_operation"
	case errors.Is(err, generic.ErrAmountOutOfRange):
		return "amount_out_of_range"
	default:
		return "unknown"
	}
}

// IsNotFound returns true if the error names a missing account or transaction.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountDoesNotExist) ||
		errors.Is(err, ErrTransactionDoesNotExist)
}

// IsClientError returns true if the error is a rejection of a well-formed
// record by ledger rules, as opposed to malformed input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAccountLocked) ||
		IsNotFound(err) ||
		errors.Is(err, ErrInvalidTransactionState) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrDuplicateTransaction)
}
