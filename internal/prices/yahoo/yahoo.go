// Package yahoo reads daily closing prices from Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signal-trader/internal/interfaces"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
)

const lookbackDays = 10

type Source struct {
	now func() time.Time
	// closes returns the daily closes for symbol between start and end, oldest first.
	closes func(symbol string, start, end time.Time) ([]decimal.Decimal, error)
}

var _ interfaces.PriceSource = (*Source)(nil)

func New() *Source {
	return &Source{now: time.Now, closes: chartCloses}
}

type result struct {
	price decimal.Decimal
	err   error
}

// LatestClose returns the close of the last daily bar in the lookback window.
// finance-go has no context support, so the lookup runs in a goroutine and is
// abandoned if ctx ends first.
func (s *Source) LatestClose(ctx context.Context, ticker string) (decimal.Decimal, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	done := make(chan result, 1)

	go func() {
		p, err := s.fetch(symbol)
		done <- result{price: p, err: err}
	}()

	select {
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("yahoo close %s: %w", symbol, ctx.Err())
	case r := <-done:
		return r.price, r.err
	}
}

func (s *Source) fetch(symbol string) (decimal.Decimal, error) {
	end := s.now()
	start := end.AddDate(0, 0, -lookbackDays)

	closes, err := s.closes(symbol, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i].IsPositive() {
			return closes[i], nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no daily bars for %s", interfaces.ErrPriceUnavailable, symbol)
}

func chartCloses(symbol string, start, end time.Time) ([]decimal.Decimal, error) {
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var out []decimal.Decimal
	for iter.Next() {
		if bar := iter.Bar(); bar != nil {
			out = append(out, bar.Close)
		}
	}
	return out, iter.Err()
}
