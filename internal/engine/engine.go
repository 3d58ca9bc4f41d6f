package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/reconcile"
	"signal-trader/internal/signals"
	"signal-trader/internal/tradelog"
	"signal-trader/internal/types"

	"github.com/google/uuid"
)

// Engine runs one reconciliation pass per call to Run.
type Engine struct {
	signals   interfaces.SignalSource
	positions interfaces.PositionSource
	rec       *reconcile.Reconciler
	exec      *orderExecutor
	timeout   time.Duration
	newRunID  func() string
}

var _ interfaces.Engine = (*Engine)(nil)

func newEngine(d Deps) *Engine {
	timeout := d.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		signals:   d.Signals,
		positions: d.Broker,
		rec:       d.Reconciler,
		exec:      newOrderExecutor(d.Broker, timeout),
		timeout:   timeout,
		newRunID:  uuid.NewString,
	}
}

// Run fetches the signals for target, compares them with current holdings
// and submits the resulting orders. Only a signal or position fetch failure
// (or cancellation) returns an error; order failures are reported in the
// RunReport.
func (e *Engine) Run(ctx context.Context, target types.Date) (*types.RunReport, error) {
	if target.IsZero() {
		return nil, errors.New("run requires a target date")
	}
	report := &types.RunReport{RunID: e.newRunID(), TargetDate: target}

	rows, err := e.fetchSignals(ctx)
	if err != nil {
		return report, err
	}

	today := signals.ForDate(rows, target)
	report.SignalCount = len(today)
	logger.Info(ctx, "Signals loaded", "run_id", report.RunID, "target_date", target.String(), "total_rows", len(rows), "for_date", len(today))
	if len(today) == 0 {
		logger.Info(ctx, "No signals for target date, nothing to do", "run_id", report.RunID, "target_date", target.String())
		return report, nil
	}

	positions, err := e.snapshotPositions(ctx)
	if err != nil {
		return report, err
	}
	report.Positions = len(positions)

	plan, err := e.rec.Reconcile(ctx, today, positions)
	report.Skips = plan.Skips
	report.Holds = plan.Holds
	e.journalSkips(ctx, report)
	if err != nil {
		return report, fmt.Errorf("reconcile: %w", err)
	}
	report.Intents = plan.Intents

	for _, intent := range plan.Intents {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Orders = append(report.Orders, e.exec.submit(ctx, report, intent))
	}

	logger.Info(ctx, "Run summary",
		"run_id", report.RunID,
		"signals", report.SignalCount,
		"positions", report.Positions,
		"orders", len(report.Orders),
		"failed", report.Failed(),
		"skipped", len(report.Skips),
		"held", report.Holds,
	)
	return report, nil
}

func (e *Engine) fetchSignals(ctx context.Context) ([]types.SignalRow, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.signals.Fetch(cctx)
	if err != nil {
		return nil, fmt.Errorf("signal fetch failure: %w", err)
	}
	return rows, nil
}

func (e *Engine) snapshotPositions(ctx context.Context) (map[string]types.Position, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	positions, err := e.positions.Positions(cctx)
	if err != nil {
		return nil, fmt.Errorf("position snapshot failure: %w", err)
	}
	if positions == nil {
		positions = map[string]types.Position{}
	}
	return positions, nil
}

func (e *Engine) journalSkips(ctx context.Context, report *types.RunReport) {
	for _, s := range report.Skips {
		err := tradelog.AppendSkip(tradelog.SkipEntry{
			RunID:      report.RunID,
			Symbol:     s.Ticker,
			Reason:     string(s.Reason),
			Detail:     s.Detail,
			TargetDate: report.TargetDate.String(),
		})
		if err != nil {
			logger.Warn(ctx, "Skip journal write failed", "symbol", s.Ticker, "reason", s.Reason, "error", err)
		}
	}
}
