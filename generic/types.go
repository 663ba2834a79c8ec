/*
Package generic provides the domain-agnostic building blocks of the payments engine.

PURPOSE:
  Holds the pieces that know nothing about clients, disputes or chargebacks:
  the fixed-point monetary Amount and the keyed store abstraction the
  ledger engine is built on.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: a monetary value with exactly 4 fractional digits, stored as a
    scaled int64 (value x 10,000)

DESIGN PRINCIPLES:
  1. Exactness: ledger arithmetic is integer-only, no float accumulation
  2. Boundary conversion: decimal.Decimal is used only to parse and render
  3. Rounding: half away from zero when input has more than 4 decimals

USAGE:
  amount, err := generic.ParseAmount("42.42")
  total := amount.Add(generic.AmountFromWhole(1))
  fmt.Println(total) // "43.4200"

SEE ALSO:
  - store.go: Store and CreatingStore interfaces
  - store/memory.go: ordered in-memory implementation
*/
package generic

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Fixed-point monetary value
// =============================================================================

// Scale is the number of fractional digits carried by an Amount.
const Scale = 4

// unitsPerWhole is 10^Scale.
const unitsPerWhole = 10_000

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// Amount is a monetary value in ten-thousandths of a currency unit.
// The zero value is 0.0000.
type Amount int64

// AmountFromDecimal converts d to an Amount, rounding half away from zero
// to 4 fractional digits.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(Scale).Round(0)
	if scaled.GreaterThan(maxAmount) || scaled.LessThan(minAmount) {
		return 0, ErrAmountOutOfRange
	}
	return Amount(scaled.IntPart()), nil
}

// AmountFromFloat converts a float64 to an Amount using its shortest
// decimal representation, so 42.42 becomes exactly 42.4200.
func AmountFromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return AmountFromDecimal(decimal.NewFromFloat(f))
}

// ParseAmount parses decimal text such as "1.5" or "-0.0001".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return AmountFromDecimal(d)
}

// MustParseAmount is ParseAmount for constants and tests. It panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic("generic: invalid amount " + s + ": " + err.Error())
	}
	return a
}

// AmountFromWhole returns n whole currency units.
func AmountFromWhole(n int64) Amount { return Amount(n * unitsPerWhole) }

// Decimal returns the value as a decimal with exponent -4.
func (a Amount) Decimal() decimal.Decimal { return decimal.New(int64(a), -Scale) }

// String renders the amount with exactly 4 fractional digits.
func (a Amount) String() string { return a.Decimal().StringFixed(Scale) }

// Units returns the raw scaled integer.
func (a Amount) Units() int64 { return int64(a) }

func (a Amount) Add(b Amount) Amount { return a + b }
func (a Amount) Sub(b Amount) Amount { return a - b }
func (a Amount) Neg() Amount { return -a }
func (a Amount) IsZero() bool { return a == 0 }
func (a Amount) IsNegative() bool { return a < 0 }
func (a Amount) LessThan(b Amount) bool { return a < b }
func (a Amount) GreaterThan(b Amount) bool { return a > b }

// CheckedAdd returns a+b, or false if the result overflows int64.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// CheckedSub returns a-b, or false if the result overflows int64.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, false
	}
	return diff, true
}
