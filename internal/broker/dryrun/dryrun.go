// Package dryrun wraps a broker so orders are logged and acknowledged
// without reaching the brokerage. Positions are still read from the account.
package dryrun

import (
	"context"
	"fmt"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/types"

	"github.com/google/uuid"
)

const StatusSimulated = "SIMULATED"

type dryRunBroker struct {
	interfaces.PositionSource
	name string
}

var _ interfaces.Broker = (*dryRunBroker)(nil)

func Wrap(b interfaces.Broker) interfaces.Broker {
	return &dryRunBroker{PositionSource: b, name: b.Name()}
}

func (d *dryRunBroker) Name() string { return d.name + "+dry_run" }

func (d *dryRunBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if req.Qty <= 0 {
		return types.OrderResp{}, fmt.Errorf("order %s: quantity must be positive, got %d", req.Symbol, req.Qty)
	}
	resp := types.OrderResp{
		OrderID: "SIM-" + uuid.NewString(),
		Status:  StatusSimulated,
		Message: "dry-run",
	}
	logger.Info(ctx, "Simulated order placed", "symbol", req.Symbol, "side", req.Side, "qty", req.Qty, "order_id", resp.OrderID)
	return resp, nil
}
