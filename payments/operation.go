package payments

import (
	"fmt"
	"strings"

	"github.com/warp/payments-engine/generic"
)

// OpType names one of the five ledger operations.
type OpType string

const (
	OpDeposit    OpType = "deposit"
	OpWithdrawal OpType = "withdrawal"
	OpDispute    OpType = "dispute"
	OpResolve    OpType = "resolve"
	OpChargeback OpType = "chargeback"
)

// OpTypes lists every operation in a stable order.
var OpTypes = []OpType{OpDeposit, OpWithdrawal, OpDispute, OpResolve, OpChargeback}

// ParseOpType reads an operation name case-insensitively.
func ParseOpType(s string) (OpType, error) {
	op := OpType(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpDeposit, OpWithdrawal, OpDispute, OpResolve, OpChargeback:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// RequiresAmount reports whether the operation carries an amount.
func (o OpType) RequiresAmount() bool {
	return o == OpDeposit || o == OpWithdrawal
}

// Operation is one request submitted to the engine.
// Amount is set for deposits and withdrawals and nil otherwise.
type Operation struct {
	Type   OpType
	Client ClientID
	Tx     TxID
	Amount *generic.Amount
}

// Validate checks the amount is present exactly when the type requires it.
func (op Operation) Validate() error {
	switch {
	case op.Type.RequiresAmount() && op.Amount == nil:
		return fmt.Errorf("%w: %s requires an amount", ErrMalformedOperation, op.Type)
	case !op.Type.RequiresAmount() && op.Amount != nil:
		return fmt.Errorf("%w: %s cannot have an amount", ErrMalformedOperation, op.Type)
	}
	return nil
}

// Apply dispatches op to the matching engine operation.
func (e *Engine) Apply(op Operation) error {
	if err := op.Validate(); err != nil {
		return &OperationError{Op: op.Type, Client: op.Client, Tx: op.Tx, Err: err}
	}

	switch op.Type {
	case OpDeposit:
		return e.Deposit(op.Client, op.Tx, *op.Amount)
	case OpWithdrawal:
		return e.Withdrawal(op.Client, op.Tx, *op.Amount)
	case OpDispute:
		return e.Dispute(op.Client, op.Tx)
	case OpResolve:
		return e.Resolve(op.Client, op.Tx)
	case OpChargeback:
		return e.Chargeback(op.Client, op.Tx)
	default:
		return &OperationError{Op: op.Type, Client: op.Client, Tx: op.Tx,
			Err: fmt.Errorf("%w: unknown operation %q", ErrMalformedOperation, op.Type)}
	}
}
