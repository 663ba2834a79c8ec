package ingest_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payments-engine/generic"
	"github.com/warp/payments-engine/ingest"
	"github.com/warp/payments-engine/payments"
)

func readAll(t *testing.T, input string) ([]ingest.Record, error) {
	t.Helper()
	r := ingest.NewReader(strings.NewReader(input))
	var out []ingest.Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func amt(s string) *generic.Amount {
	a := generic.MustParseAmount(s)
	return &a
}

// =============================================================================
// PARSING
// =============================================================================

func TestReader_ParsesPaddedInput(t *testing.T) {
	// GIVEN: The classic padded layout, with and without trailing amount columns
	input := "type,       client, tx, amount\n" +
		"deposit,         1,  1,    1.0\n" +
		"withdrawal,      1,  4,    1.5\n" +
		"dispute,         1,  1,\n" +
		"resolve,         1,  1\n" +
		"chargeback,      2,  7\n"

	// WHEN: Reading every record
	recs, err := readAll(t, input)

	// THEN: One operation per row, line numbers counting the header as 1
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, ingest.Record{Line: 2, Op: payments.Operation{Type: payments.OpDeposit, Client: 1, Tx: 1, Amount: amt("1")}}, recs[0])
	assert.Equal(t, ingest.Record{Line: 3, Op: payments.Operation{Type: payments.OpWithdrawal, Client: 1, Tx: 4, Amount: amt("1.5")}}, recs[1])
	assert.Equal(t, ingest.Record{Line: 4, Op: payments.Operation{Type: payments.OpDispute, Client: 1, Tx: 1}}, recs[2])
	assert.Equal(t, ingest.Record{Line: 5, Op: payments.Operation{Type: payments.OpResolve, Client: 1, Tx: 1}}, recs[3])
	assert.Equal(t, ingest.Record{Line: 6, Op: payments.Operation{Type: payments.OpChargeback, Client: 2, Tx: 7}}, recs[4])
}

func TestReader_ColumnOrderFromHeader(t *testing.T) {
	recs, err := readAll(t, "amount,tx,client,type\n2.5,9,3,deposit\n")

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, payments.Operation{Type: payments.OpDeposit, Client: 3, Tx: 9, Amount: amt("2.5")}, recs[0].Op)
}

func TestReader_NoAmountColumn(t *testing.T) {
	recs, err := readAll(t, "type,client,tx\ndispute,1,1\n")

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].Op.Amount)
}

func TestReader_SkipsBlankLinesKeepingLineNumbers(t *testing.T) {
	recs, err := readAll(t, "type,client,tx,amount\n\ndeposit,1,1,1\n  ,  ,  ,\ndeposit,1,2,1\n")

	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 3, recs[0].Line)
	assert.Equal(t, 5, recs[1].Line)
}

func TestReader_LeadingByteOrderMark(t *testing.T) {
	// GIVEN: A file saved with a UTF-8 BOM before the header
	input := "\ufefftype,client,tx,amount\ndeposit,1,1,1.0\n"

	// WHEN: Reading
	recs, err := readAll(t, input)

	// THEN: The BOM is not part of the first column name
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, payments.Operation{Type: payments.OpDeposit, Client: 1, Tx: 1, Amount: amt("1")}, recs[0].Op)
	assert.Equal(t, 2, recs[0].Line)
}

func TestReader_RoundsExtraPrecision(t *testing.T) {
	recs, err := readAll(t, "type,client,tx,amount\ndeposit,1,1,1.23456\n")

	require.NoError(t, err)
	assert.Equal(t, "1.2346", recs[0].Op.Amount.String())
}

func TestReader_IDBoundaries(t *testing.T) {
	recs, err := readAll(t, "type,client,tx,amount\ndeposit,65535,4294967295,1\n")

	require.NoError(t, err)
	assert.Equal(t, payments.ClientID(65535), recs[0].Op.Client)
	assert.Equal(t, payments.TxID(4294967295), recs[0].Op.Tx)
}

// =============================================================================
// MALFORMED INPUT
// =============================================================================

func TestReader_MalformedRows(t *testing.T) {
	cases := map[string]string{
		"unknown type":           "transfer,1,1,1",
		"client too large":       "deposit,65536,1,1",
		"client negative":        "deposit,-1,1,1",
		"tx too large":           "deposit,1,4294967296,1",
		"tx not a number":        "deposit,1,abc,1",
		"deposit without amount": "deposit,1,1,",
		"withdrawal no column":   "withdrawal,1,1",
		"dispute with amount":    "dispute,1,1,1.0",
		"negative amount":        "deposit,1,1,-1",
		"amount not a number":    "deposit,1,1,ten",
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			recs, err := readAll(t, "type,client,tx,amount\ndeposit,9,100,1\n"+row+"\n")

			assert.Len(t, recs, 1, "rows before the bad one are delivered")
			require.ErrorIs(t, err, ingest.ErrMalformedRecord)
			var lineErr *ingest.LineError
			require.ErrorAs(t, err, &lineErr)
			assert.Equal(t, 3, lineErr.Line)
			assert.Contains(t, err.Error(), "line 3")
		})
	}
}

func TestReader_BadHeader(t *testing.T) {
	for name, input := range map[string]string{
		"empty input":    "",
		"missing column": "type,client,amount\ndeposit,1,1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := readAll(t, input)

			require.ErrorIs(t, err, ingest.ErrMalformedRecord)
			var lineErr *ingest.LineError
			require.ErrorAs(t, err, &lineErr)
			assert.Equal(t, 1, lineErr.Line)
		})
	}
}

func TestReader_CSVSyntaxError(t *testing.T) {
	_, err := readAll(t, "type,client,tx,amount\ndeposit,1,1,1\ndeposit,\"1,2,1\n")

	assert.ErrorIs(t, err, ingest.ErrMalformedRecord)
}

func TestValidateShape(t *testing.T) {
	assert.NoError(t, ingest.ValidateShape(payments.Operation{Type: payments.OpDeposit, Client: 1, Tx: 1, Amount: amt("0")}))
	assert.NoError(t, ingest.ValidateShape(payments.Operation{Type: payments.OpChargeback, Client: 1, Tx: 1}))

	assert.ErrorIs(t, ingest.ValidateShape(payments.Operation{Type: payments.OpResolve, Client: 1, Tx: 1, Amount: amt("1")}), ingest.ErrMalformedRecord)
	assert.ErrorIs(t, ingest.ValidateShape(payments.Operation{Type: payments.OpWithdrawal, Client: 1, Tx: 1, Amount: amt("-0.5")}), ingest.ErrMalformedRecord)
}
