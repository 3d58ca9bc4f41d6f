package dryrun

import (
	"context"
	"strings"
	"testing"

	"signal-trader/internal/types"
)

type stubBroker struct {
	orders int
}

func (s *stubBroker) Name() string { return "stub" }

func (s *stubBroker) Positions(ctx context.Context) (map[string]types.Position, error) {
	return map[string]types.Position{"AAPL": {Ticker: "AAPL", Quantity: 3}}, nil
}

func (s *stubBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	s.orders++
	return types.OrderResp{OrderID: "real"}, nil
}

func TestDryRunSimulatesOrders(t *testing.T) {
	inner := &stubBroker{}
	b := Wrap(inner)

	resp, err := b.PlaceOrder(context.Background(), types.OrderReq{Symbol: "AAPL", Side: types.SideBuy, Qty: 10})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if inner.orders != 0 {
		t.Errorf("inner broker received %d orders, want 0", inner.orders)
	}
	if resp.Status != StatusSimulated || !strings.HasPrefix(resp.OrderID, "SIM-") {
		t.Errorf("resp = %+v", resp)
	}
	if b.Name() != "stub+dry_run" {
		t.Errorf("Name = %q", b.Name())
	}
}

func TestDryRunReadsRealPositions(t *testing.T) {
	positions, err := Wrap(&stubBroker{}).Positions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if positions["AAPL"].Quantity != 3 {
		t.Errorf("positions = %+v", positions)
	}
}
