package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/types"

	"github.com/shopspring/decimal"
)

// Sizer turns a BUY decision into a share count. A non-nil Skip means no
// order should be placed for the ticker; err is reserved for run-level
// failures such as a cancelled context.
type Sizer interface {
	Size(ctx context.Context, ticker string) (qty int64, skip *types.Skip, err error)
	Name() string
}

// FixedShares buys the same number of shares for every ticker.
type FixedShares struct {
	Shares int64
}

func NewFixedShares(shares int64) (*FixedShares, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("fixed share count must be positive, got %d", shares)
	}
	return &FixedShares{Shares: shares}, nil
}

func (f *FixedShares) Name() string { return "fixed_shares" }

func (f *FixedShares) Size(ctx context.Context, ticker string) (int64, *types.Skip, error) {
	return f.Shares, nil, nil
}

// Budget buys floor(budget / latest close) shares. A positive CallTimeout
// bounds each price lookup.
type Budget struct {
	Dollars     decimal.Decimal
	Prices      interfaces.PriceSource
	CallTimeout time.Duration
}

func NewBudget(dollars decimal.Decimal, prices interfaces.PriceSource) (*Budget, error) {
	if !dollars.IsPositive() {
		return nil, fmt.Errorf("budget must be positive, got %s", dollars)
	}
	if prices == nil {
		return nil, errors.New("budget sizing requires a price source")
	}
	return &Budget{Dollars: dollars, Prices: prices}, nil
}

func (b *Budget) Name() string { return "budget_dollars" }

func (b *Budget) Size(ctx context.Context, ticker string) (int64, *types.Skip, error) {
	lctx := ctx
	if b.CallTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, b.CallTimeout)
		defer cancel()
	}

	price, err := b.Prices.LatestClose(lctx, ticker)
	if err != nil {
		// A cancelled run is not a per-ticker skip.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		if errors.Is(err, interfaces.ErrPriceUnavailable) {
			return 0, &types.Skip{Ticker: ticker, Reason: types.SkipPriceUnavailable, Detail: err.Error()}, nil
		}
		logger.ErrorWithErr(ctx, "Price lookup failed", err, "ticker", ticker, "sizing", b.Name())
		return 0, &types.Skip{Ticker: ticker, Reason: types.SkipPriceError, Detail: err.Error()}, nil
	}
	if !price.IsPositive() {
		return 0, &types.Skip{
			Ticker: ticker,
			Reason: types.SkipPriceUnavailable,
			Detail: fmt.Sprintf("non-positive price %s", price),
		}, nil
	}

	qty := SharesForBudget(b.Dollars, price)
	if qty == 0 {
		return 0, &types.Skip{
			Ticker: ticker,
			Reason: types.SkipZeroQuantity,
			Detail: fmt.Sprintf("price %s exceeds budget %s", price.StringFixed(2), b.Dollars.StringFixed(2)),
		}, nil
	}
	return qty, nil, nil
}

// SharesForBudget returns floor(budget/price) for positive inputs.
func SharesForBudget(budget, price decimal.Decimal) int64 {
	if !price.IsPositive() || !budget.IsPositive() {
		return 0
	}
	q, _ := budget.QuoRem(price, 0)
	return q.IntPart()
}
