// Package reconcile decides which market orders bring holdings in line with
// a day's signals.
package reconcile

import (
	"context"
	"errors"

	"signal-trader/internal/logger"
	"signal-trader/internal/types"
)

const (
	SignalOut = 0
	SignalIn  = 1
)

// Plan is the outcome of one reconciliation pass.
type Plan struct {
	Intents []types.OrderIntent
	Skips   []types.Skip
	// Holds counts tickers already in the desired state.
	Holds int
}

type Reconciler struct {
	sizer Sizer
}

func New(sizer Sizer) (*Reconciler, error) {
	if sizer == nil {
		return nil, errors.New("reconciler requires a sizer")
	}
	return &Reconciler{sizer: sizer}, nil
}

// Reconcile walks signals in order and emits at most one intent per ticker.
// positions is a snapshot and is not modified. The only error returned is the
// context's, when the run is cancelled mid-pass.
func (r *Reconciler) Reconcile(ctx context.Context, signals []types.SignalRow, positions map[string]types.Position) (Plan, error) {
	var plan Plan
	seen := make(map[string]struct{}, len(signals))

	for _, row := range signals {
		if err := ctx.Err(); err != nil {
			return plan, err
		}

		if _, dup := seen[row.Ticker]; dup {
			plan.skip(ctx, types.Skip{Ticker: row.Ticker, Reason: types.SkipDuplicateTicker, Detail: "ticker repeated for " + row.Date.String()})
			continue
		}
		seen[row.Ticker] = struct{}{}

		pos, invested := positions[row.Ticker]

		switch {
		case row.PredictedSignal == SignalIn && !invested:
			qty, skip, err := r.sizer.Size(ctx, row.Ticker)
			if err != nil {
				return plan, err
			}
			if skip != nil {
				plan.skip(ctx, *skip)
				continue
			}
			logger.Decision(ctx, row.Ticker, row.PredictedSignal, invested, string(types.SideBuy), "quantity", qty, "sizing", r.sizer.Name())
			plan.Intents = append(plan.Intents, types.OrderIntent{Ticker: row.Ticker, Side: types.SideBuy, Quantity: qty})

		case row.PredictedSignal == SignalOut && invested:
			qty := abs(pos.Quantity)
			if qty == 0 {
				logger.Decision(ctx, row.Ticker, row.PredictedSignal, invested, "HOLD", "reason", "flat position")
				plan.Holds++
				continue
			}
			logger.Decision(ctx, row.Ticker, row.PredictedSignal, invested, string(types.SideSell), "quantity", qty, "held", pos.Quantity)
			plan.Intents = append(plan.Intents, types.OrderIntent{Ticker: row.Ticker, Side: types.SideSell, Quantity: qty})

		case row.PredictedSignal == SignalIn || row.PredictedSignal == SignalOut:
			logger.Decision(ctx, row.Ticker, row.PredictedSignal, invested, "HOLD")
			plan.Holds++

		default:
			plan.skip(ctx, types.Skip{Ticker: row.Ticker, Reason: types.SkipUnknownSignal, Detail: "signal must be 0 or 1"})
		}
	}

	return plan, nil
}

func (p *Plan) skip(ctx context.Context, s types.Skip) {
	logger.Skipped(ctx, s.Ticker, string(s.Reason), s.Detail)
	p.Skips = append(p.Skips, s)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
