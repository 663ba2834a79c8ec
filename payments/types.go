// Package payments implements the client ledger state machine: accounts,
// transactions, and the deposit, withdrawal, dispute, resolve and
// chargeback operations that move funds between them.
package payments

import (
	"fmt"

	"github.com/warp/payments-engine/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies a deposit or withdrawal. Unique across a run.
type TxID uint32

// =============================================================================
// ACCOUNT
// =============================================================================

// Account is the ledger record of one client.
//
// INVARIANTS:
//   - Total == Available + Held after every operation.
//   - Locked is monotonic: once set by a chargeback, no operation
//     changes Available, Held or Total again.
type Account struct {
	Client    ClientID
	Available generic.Amount
	Held      generic.Amount
	Total     generic.Amount
	Locked    bool
}

// newAccount is the account store's default record: zeroed and unlocked.
func newAccount(client ClientID) Account {
	return Account{Client: client}
}

// =============================================================================
// TRANSACTION
// =============================================================================

type TxType uint8

const (
	TxDeposit TxType = iota
	TxWithdrawal
)

func (t TxType) String() string {
	switch t {
	case TxDeposit:
		return "deposit"
	case TxWithdrawal:
		return "withdrawal"
	default:
		return fmt.Sprintf("TxType(%d)", uint8(t))
	}
}

// ParseTxType is the inverse of TxType.String.
func ParseTxType(s string) (TxType, error) {
	switch s {
	case "deposit":
		return TxDeposit, nil
	case "withdrawal":
		return TxWithdrawal, nil
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

// TxState is the dispute-cycle state of a transaction.
//
//	Normal --dispute--> Disputed --resolve--> Normal
//	                    Disputed --chargeback--> Reversed (terminal)
type TxState uint8

const (
	StateNormal TxState = iota
	StateDisputed
	StateReversed
)

func (s TxState) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateDisputed:
		return "disputed"
	case StateReversed:
		return "reversed"
	default:
		return fmt.Sprintf("TxState(%d)", uint8(s))
	}
}

// ParseTxState is the inverse of TxState.String.
func ParseTxState(s string) (TxState, error) {
	switch s {
	case "normal":
		return StateNormal, nil
	case "disputed":
		return StateDisputed, nil
	case "reversed":
		return StateReversed, nil
	}
	return 0, fmt.Errorf("unknown transaction state %q", s)
}

// Transaction records a deposit or withdrawal. Only State changes after
// creation.
type Transaction struct {
	ID     TxID
	Type   TxType
	Client ClientID
	Amount generic.Amount
	State  TxState
}
