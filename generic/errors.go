/*
errors.go - Error types for the generic building blocks

PURPOSE:
  Errors raised while converting or combining Amounts. Domain packages
  wrap these with their own context:

    if errors.Is(err, generic.ErrAmountOutOfRange) {
        return &payments.OperationError{...}
    }

SEE ALSO:
  - types.go: Amount conversion and checked arithmetic
  - payments/errors.go: ledger error taxonomy
*/
package generic

import "errors"

var (
	// ErrInvalidAmount is returned when text or a float cannot be read as a
	// decimal amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAmountOutOfRange is returned when a value does not fit the scaled
	// int64 representation, either on conversion or after arithmetic.
	ErrAmountOutOfRange = errors.New("amount out of range")
)
