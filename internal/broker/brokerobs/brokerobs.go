package brokerobs

import (
	"context"
	"fmt"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/trace"
	"signal-trader/internal/types"

	"github.com/shopspring/decimal"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

func (ob *observableBroker) Name() string { return ob.broker.Name() }

// Positions snapshots holdings with observability
func (ob *observableBroker) Positions(ctx context.Context) (map[string]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Positions")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching positions", "broker", ob.broker.Name())

	positions, err := ob.broker.Positions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch positions", err, "broker", ob.broker.Name())
		return nil, fmt.Errorf("positions from %s: %w", ob.broker.Name(), err)
	}

	logger.InfoSkip(ctx, 1, "Positions fetched", "broker", ob.broker.Name(), "count", len(positions))
	return positions, nil
}

// PlaceOrder places an order with observability
func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Qty,
		"time_in_force", req.TimeInForce,
		"client_order_id", req.ClientOrderID,
	)

	resp, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Qty,
		)
		return types.OrderResp{}, err
	}

	logger.Trade(ctx, req.Symbol, string(req.Side), req.Qty, resp.OrderID, resp.Status, "broker", ob.broker.Name())
	return resp, nil
}

// observablePrices wraps a PriceSource with observability
type observablePrices struct {
	name   string
	prices interfaces.PriceSource
}

var _ interfaces.PriceSource = (*observablePrices)(nil)

// WrapPrices wraps a price source with observability middleware
func WrapPrices(name string, prices interfaces.PriceSource) interfaces.PriceSource {
	return &observablePrices{name: name, prices: prices}
}

func (op *observablePrices) LatestClose(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ctx, span := trace.StartSpan(ctx, "prices.LatestClose")
	defer span.End()

	price, err := op.prices.LatestClose(ctx, ticker)
	if err != nil {
		logger.WarnSkip(ctx, 1, "Price lookup failed", "source", op.name, "ticker", ticker, "error", err)
		return decimal.Zero, err
	}

	logger.DebugSkip(ctx, 1, "Price fetched", "source", op.name, "ticker", ticker, "price", price.String())
	return price, nil
}
