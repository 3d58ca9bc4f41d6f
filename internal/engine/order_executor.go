package engine

import (
	"context"
	"strings"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/tradelog"
	"signal-trader/internal/types"
)

// orderExecutor hands intents to the order sink and journals the outcome.
type orderExecutor struct {
	sink    interfaces.OrderSink
	timeout time.Duration
}

func newOrderExecutor(sink interfaces.OrderSink, timeout time.Duration) *orderExecutor {
	return &orderExecutor{sink: sink, timeout: timeout}
}

// submit places one market order. A failure is logged and folded into the
// outcome; it never stops the run.
func (oe *orderExecutor) submit(ctx context.Context, report *types.RunReport, intent types.OrderIntent) types.OrderOutcome {
	cctx, cancel := context.WithTimeout(ctx, oe.timeout)
	defer cancel()

	req := types.OrderReq{
		Symbol:        intent.Ticker,
		Side:          intent.Side,
		Qty:           intent.Quantity,
		TimeInForce:   types.TimeInForceDay,
		ClientOrderID: clientOrderID(report.RunID, intent.Ticker),
		Tag:           runTag(report.RunID),
	}

	out := types.OrderOutcome{Intent: intent}
	entry := tradelog.Entry{
		RunID:      report.RunID,
		Symbol:     intent.Ticker,
		Side:       string(intent.Side),
		Qty:        intent.Quantity,
		TargetDate: report.TargetDate.String(),
	}

	resp, err := oe.sink.PlaceOrder(cctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Order failed", err,
			"symbol", intent.Ticker,
			"side", intent.Side,
			"qty", intent.Quantity,
			"client_order_id", req.ClientOrderID,
		)
		out.Error = err.Error()
		entry.Error = out.Error
	} else {
		out.OrderID = resp.OrderID
		out.Status = resp.Status
		entry.OrderID = resp.OrderID
		entry.Status = resp.Status
	}

	if jerr := tradelog.Append(entry); jerr != nil {
		logger.Warn(ctx, "Trade journal write failed", "symbol", intent.Ticker, "error", jerr)
	}
	return out
}

// clientOrderID is unique per run and ticker.
func clientOrderID(runID, ticker string) string {
	return runID + "-" + strings.ToUpper(ticker)
}

func runTag(runID string) string {
	if i := strings.IndexByte(runID, '-'); i > 0 {
		return "run-" + runID[:i]
	}
	return "run-" + runID
}
