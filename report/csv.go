// Package report renders the final account snapshot of a replay.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/warp/payments-engine/payments"
)

// Header is the column row written before the accounts.
var Header = []string{"client", "available", "held", "total", "locked"}

// WriteCSV writes one row per account, in the order given. Engine.Accounts
// already lists them by ascending client id.
func WriteCSV(w io.Writer, accounts []payments.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(Header))
	for _, acc := range accounts {
		row[0] = strconv.FormatUint(uint64(acc.Client), 10)
		row[1] = acc.Available.String()
		row[2] = acc.Held.String()
		row[3] = acc.Total.String()
		row[4] = strconv.FormatBool(acc.Locked)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write client %d: %w", acc.Client, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
