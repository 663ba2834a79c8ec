package ingest

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/warp/payments-engine/metrics"
	"github.com/warp/payments-engine/payments"
)

// Policy decides what a replay does with an operation the engine rejects.
type Policy int

const (
	// PolicySkip logs the rejection and moves on to the next record.
	PolicySkip Policy = iota
	// PolicyAbort stops the replay at the first rejection.
	PolicyAbort
)

func (p Policy) String() string {
	if p == PolicyAbort {
		return "abort"
	}
	return "skip"
}

// Summary describes a finished (or interrupted) replay.
type Summary struct {
	Records  int
	Applied  int
	Rejected int
	ByReason map[string]int
}

// Replayer feeds records to an Engine in input order.
type Replayer struct {
	Engine  *payments.Engine
	Logger  *zap.Logger        // optional
	Metrics *metrics.Collector // optional
	Policy  Policy
}

// Run replays every record of in. It returns the summary so far together
// with the first error that stopped the run: a malformed record, a
// rejection under PolicyAbort, a read failure, or ctx cancellation.
func (r *Replayer) Run(ctx context.Context, in io.Reader) (Summary, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	summary := Summary{ByReason: map[string]int{}}
	reader := NewReader(in)

	defer func() {
		r.Metrics.ObserveReplay(time.Since(start))
	}()

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}
		summary.Records++

		err = r.Engine.Apply(rec.Op)
		r.Metrics.ObserveOperation(rec.Op.Type, err)
		if err == nil {
			summary.Applied++
			continue
		}

		reason := payments.Reason(err)
		summary.Rejected++
		summary.ByReason[reason]++

		if r.Policy == PolicyAbort {
			return summary, &LineError{Line: rec.Line, Err: err}
		}
		logger.Warn("operation rejected",
			zap.Int("line", rec.Line),
			zap.String("operation", string(rec.Op.Type)),
			zap.Uint16("client", uint16(rec.Op.Client)),
			zap.Uint32("tx", uint32(rec.Op.Tx)),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}

	logger.Info("replay finished",
		zap.Int("records", summary.Records),
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Duration("elapsed", time.Since(start)),
	)
	return summary, nil
}
