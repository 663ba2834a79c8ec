/*
Package ingest reads transaction records and replays them against the ledger engine.

PURPOSE:
  The engine knows nothing about files. This package turns CSV rows into
  payments.Operation values, validates their shape, and submits them to
  the engine one at a time, in file order.

INPUT FORMAT:
  type,       client, tx, amount
  deposit,         1,  1,    1.0
  withdrawal,      1,  4,    1.5
  dispute,         1,  1,
  resolve,         1,  1,
  chargeback,      1,  1

  - Header row required; column order is taken from it
  - Whitespace around fields is ignored, as is a leading UTF-8 BOM
  - The amount column may be empty or missing for dispute/resolve/chargeback
  - client fits uint16, tx fits uint32
  - Amounts with more than 4 fractional digits are rounded half away from zero

FAILURE POLICY:
  Malformed rows always stop the run: the file itself is broken.
  Ledger rejections (locked account, insufficient funds, ...) are skipped
  and logged by default, or stop the run under PolicyAbort.

SEE ALSO:
  - replay.go: Replayer
  - payments/operation.go: Operation and Apply
*/
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/warp/payments-engine/generic"
	"github.com/warp/payments-engine/payments"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrMalformedRecord is returned for rows that cannot become an Operation.
var ErrMalformedRecord = errors.New("malformed record")

// LineError attaches the 1-based input line to an error.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func malformed(line int, format string, args ...any) error {
	return &LineError{Line: line, Err: fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))}
}

// =============================================================================
// READER
// =============================================================================

// Record is one parsed input row.
type Record struct {
	Line int
	Op   payments.Operation
}

// Reader yields Records from CSV input.
type Reader struct {
	csv    *csv.Reader
	cols   columns
	header bool
}

const utf8BOM = "\ufeff"

type columns struct {
	typ, client, tx, amount int // amount is -1 when the column is absent
}

// NewReader returns a Reader over r. The header is read on the first Next.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{csv: cr}
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	if !r.header {
		if err := r.readHeader(); err != nil {
			return Record{}, err
		}
	}

	for {
		row, err := r.csv.Read()
		if err == io.EOF {
			return Record{}, io.EOF
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return Record{}, malformed(parseErr.StartLine, "%v", parseErr.Err)
			}
			return Record{}, fmt.Errorf("read input: %w", err)
		}
		line, _ := r.csv.FieldPos(0)
		if isBlank(row) {
			continue
		}
		op, err := r.parse(line, row)
		if err != nil {
			return Record{}, err
		}
		return Record{Line: line, Op: op}, nil
	}
}

func (r *Reader) readHeader() error {
	row, err := r.csv.Read()
	if err == io.EOF {
		return malformed(1, "missing header")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	if len(row) > 0 {
		row[0] = strings.TrimPrefix(row[0], utf8BOM)
	}

	cols := columns{typ: -1, client: -1, tx: -1, amount: -1}
	for i, name := range row {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "type":
			cols.typ = i
		case "client":
			cols.client = i
		case "tx":
			cols.tx = i
		case "amount":
			cols.amount = i
		}
	}
	if cols.typ < 0 || cols.client < 0 || cols.tx < 0 {
		return malformed(1, "header must name type, client and tx columns, got %q", strings.Join(row, ","))
	}

	r.cols = cols
	r.header = true
	return nil
}

func (r *Reader) parse(line int, row []string) (payments.Operation, error) {
	field := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	typ, err := payments.ParseOpType(field(r.cols.typ))
	if err != nil {
		return payments.Operation{}, malformed(line, "%v", err)
	}

	client, err := strconv.ParseUint(field(r.cols.client), 10, 16)
	if err != nil {
		return payments.Operation{}, malformed(line, "client %q is not a 16-bit unsigned integer", field(r.cols.client))
	}

	tx, err := strconv.ParseUint(field(r.cols.tx), 10, 32)
	if err != nil {
		return payments.Operation{}, malformed(line, "tx %q is not a 32-bit unsigned integer", field(r.cols.tx))
	}

	op := payments.Operation{Type: typ, Client: payments.ClientID(client), Tx: payments.TxID(tx)}

	if raw := field(r.cols.amount); raw != "" {
		amount, err := generic.ParseAmount(raw)
		if err != nil {
			return payments.Operation{}, malformed(line, "amount %q: %v", raw, err)
		}
		op.Amount = &amount
	}

	if err := ValidateShape(op); err != nil {
		return payments.Operation{}, &LineError{Line: line, Err: err}
	}
	return op, nil
}

// ValidateShape checks an operation is well formed before it reaches the
// engine: deposits and withdrawals carry a non-negative amount, the other
// operations carry none.
func ValidateShape(op payments.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if op.Amount != nil && op.Amount.IsNegative() {
		return fmt.Errorf("%w: %s amount %s is negative", ErrMalformedRecord, op.Type, op.Amount)
	}
	return nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
