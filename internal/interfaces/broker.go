package interfaces

import (
	"context"
	"errors"

	"signal-trader/internal/types"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable marks a price lookup that returned no usable price.
// Price sources wrap it so callers can tell "no price" apart from other failures.
var ErrPriceUnavailable = errors.New("price unavailable")

// PositionSource returns the account's current holdings keyed by ticker.
type PositionSource interface {
	Positions(ctx context.Context) (map[string]types.Position, error)
}

// PriceSource returns the most recent daily close for a ticker.
type PriceSource interface {
	LatestClose(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// OrderSink submits a market order.
type OrderSink interface {
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}

// Broker is a brokerage account that can report holdings and take orders.
type Broker interface {
	PositionSource
	OrderSink
	Name() string
}
