package brokerobs

import (
	"context"
	"errors"
	"testing"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/types"

	"github.com/shopspring/decimal"
)

type stubBroker struct {
	positionsErr error
	orderErr     error
	lastReq      types.OrderReq
}

func (s *stubBroker) Name() string { return "stub" }

func (s *stubBroker) Positions(ctx context.Context) (map[string]types.Position, error) {
	if s.positionsErr != nil {
		return nil, s.positionsErr
	}
	return map[string]types.Position{"AAPL": {Ticker: "AAPL", Quantity: 1}}, nil
}

func (s *stubBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	s.lastReq = req
	if s.orderErr != nil {
		return types.OrderResp{}, s.orderErr
	}
	return types.OrderResp{OrderID: "o-1", Status: "accepted"}, nil
}

func TestWrapPassesThrough(t *testing.T) {
	inner := &stubBroker{}
	b := Wrap(inner)

	if b.Name() != "stub" {
		t.Errorf("Name = %q", b.Name())
	}
	positions, err := b.Positions(context.Background())
	if err != nil || len(positions) != 1 {
		t.Fatalf("Positions = %v, %v", positions, err)
	}

	req := types.OrderReq{Symbol: "AAPL", Side: types.SideBuy, Qty: 2}
	resp, err := b.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if resp.OrderID != "o-1" || inner.lastReq != req {
		t.Errorf("resp = %+v, inner saw %+v", resp, inner.lastReq)
	}
}

func TestWrapKeepsErrorChain(t *testing.T) {
	boom := errors.New("boom")
	b := Wrap(&stubBroker{positionsErr: boom, orderErr: boom})

	if _, err := b.Positions(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Positions err = %v, want wrapped boom", err)
	}
	if _, err := b.PlaceOrder(context.Background(), types.OrderReq{Symbol: "AAPL"}); !errors.Is(err, boom) {
		t.Errorf("PlaceOrder err = %v, want boom", err)
	}
}

type stubPrices struct{}

func (stubPrices) LatestClose(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if ticker == "NONE" {
		return decimal.Zero, interfaces.ErrPriceUnavailable
	}
	return decimal.NewFromInt(42), nil
}

func TestWrapPrices(t *testing.T) {
	p := WrapPrices("stub", stubPrices{})
	price, err := p.LatestClose(context.Background(), "AAPL")
	if err != nil || !price.Equal(decimal.NewFromInt(42)) {
		t.Errorf("LatestClose = %s, %v", price, err)
	}
	if _, err := p.LatestClose(context.Background(), "NONE"); !errors.Is(err, interfaces.ErrPriceUnavailable) {
		t.Errorf("err = %v, want ErrPriceUnavailable", err)
	}
}
