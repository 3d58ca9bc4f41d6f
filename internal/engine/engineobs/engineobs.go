package engineobs

import (
	"context"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/metrics"
	"signal-trader/internal/trace"
	"signal-trader/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

type observableEngine struct {
	engine   interfaces.Engine
	recorder *metrics.Recorder
}

var _ interfaces.Engine = (*observableEngine)(nil)

// Wrap adds a root span, start/end logs and metric observation to each run.
// recorder may be nil.
func Wrap(eng interfaces.Engine, recorder *metrics.Recorder) interfaces.Engine {
	return &observableEngine{
		engine:   eng,
		recorder: recorder,
	}
}

func (oe *observableEngine) Run(ctx context.Context, target types.Date) (*types.RunReport, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Run")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting reconciliation run",
		"target_date", target.String(),
	)

	report, err := oe.engine.Run(ctx, target)
	elapsed := time.Since(start)
	if oe.recorder != nil {
		oe.recorder.Observe(report, elapsed, err)
	}

	if err != nil {
		trace.RecordError(ctx, err)
		logger.ErrorWithErrSkip(ctx, 1, "Reconciliation run failed", err,
			"target_date", target.String(),
			"duration_ms", elapsed.Milliseconds(),
		)
		return report, err
	}

	trace.AddEvent(ctx, "run.complete",
		attribute.String("run_id", report.RunID),
		attribute.Int("orders", len(report.Orders)),
		attribute.Int("failed", report.Failed()),
		attribute.Int("skipped", len(report.Skips)),
	)
	logger.InfoSkip(ctx, 1, "Reconciliation run completed",
		"run_id", report.RunID,
		"target_date", target.String(),
		"orders", len(report.Orders),
		"failed", report.Failed(),
		"skipped", len(report.Skips),
		"duration_ms", elapsed.Milliseconds(),
	)

	return report, nil
}
