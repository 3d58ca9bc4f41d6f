package engineobs

import (
	"context"
	"errors"
	"testing"

	"signal-trader/internal/metrics"
	"signal-trader/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubEngine struct {
	report *types.RunReport
	err    error
}

func (s *stubEngine) Run(ctx context.Context, target types.Date) (*types.RunReport, error) {
	return s.report, s.err
}

var day = types.Date{Year: 2024, Month: 7, Day: 14}

func TestWrapPassesThrough(t *testing.T) {
	want := &types.RunReport{RunID: "r1", TargetDate: day, Orders: []types.OrderOutcome{
		{Intent: types.OrderIntent{Ticker: "AAPL", Side: types.SideBuy, Quantity: 10}, OrderID: "o1"},
	}}
	rec := metrics.New()

	got, err := Wrap(&stubEngine{report: want}, rec).Run(context.Background(), day)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != want {
		t.Errorf("report not passed through")
	}
	if n, err := testutil.GatherAndCount(rec.Registry(), "signal_trader_orders_total"); err != nil || n != 1 {
		t.Errorf("order series = %d, want 1", n)
	}
}

func TestWrapReturnsError(t *testing.T) {
	boom := errors.New("signal fetch failure")
	rec := metrics.New()

	_, err := Wrap(&stubEngine{err: boom}, rec).Run(context.Background(), day)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if n, err := testutil.GatherAndCount(rec.Registry(), "signal_trader_orders_total"); err != nil || n != 0 {
		t.Errorf("order series = %d, want 0", n)
	}
}

func TestWrapNilRecorder(t *testing.T) {
	if _, err := Wrap(&stubEngine{report: &types.RunReport{}}, nil).Run(context.Background(), day); err != nil {
		t.Fatal(err)
	}
}
