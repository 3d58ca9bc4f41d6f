package zerodha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/types"

	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// Kite allows at most 20 characters in an order tag.
const maxTagLen = 20

type Params struct {
	APIKey      string
	AccessToken string
	Exchange    string
	Timeout     time.Duration
}

type Zerodha struct {
	p  Params
	kc kiteAPI
}

var (
	_ interfaces.Broker      = (*Zerodha)(nil)
	_ interfaces.PriceSource = (*Zerodha)(nil)
)

func NewZerodha(p Params) (*Zerodha, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, errors.New("missing API key/access token")
	}
	if p.Exchange == "" {
		p.Exchange = kiteconnect.ExchangeNSE
	}
	return &Zerodha{p: p, kc: newKiteClient(p.APIKey, p.AccessToken, p.Timeout)}, nil
}

func (z *Zerodha) Name() string { return "zerodha" }

// Positions merges delivery holdings with net positions on the configured
// exchange. Quantities for the same trading symbol are summed.
func (z *Zerodha) Positions(ctx context.Context) (map[string]types.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	holdings, err := z.kc.GetHoldings()
	if err != nil {
		return nil, fmt.Errorf("kite holdings: %w", err)
	}
	positions, err := z.kc.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("kite positions: %w", err)
	}

	out := make(map[string]types.Position)
	add := func(exchange, symbol string, qty int) {
		if exchange != z.p.Exchange || qty == 0 {
			return
		}
		p := out[symbol]
		p.Ticker = symbol
		p.Quantity += int64(qty)
		out[symbol] = p
	}
	for _, h := range holdings {
		add(h.Exchange, h.Tradingsymbol, h.Quantity+h.T1Quantity)
	}
	for _, p := range positions.Net {
		add(p.Exchange, p.Tradingsymbol, p.Quantity)
	}
	for sym, p := range out {
		if p.Quantity == 0 {
			delete(out, sym)
		}
	}

	logger.Debug(ctx, "Kite positions loaded", "count", len(out), "exchange", z.p.Exchange)
	return out, nil
}

func (z *Zerodha) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if err := ctx.Err(); err != nil {
		return types.OrderResp{}, err
	}
	if req.Qty <= 0 {
		return types.OrderResp{}, fmt.Errorf("order %s: quantity must be positive, got %d", req.Symbol, req.Qty)
	}

	var txn string
	switch req.Side {
	case types.SideBuy:
		txn = kiteconnect.TransactionTypeBuy
	case types.SideSell:
		txn = kiteconnect.TransactionTypeSell
	default:
		return types.OrderResp{}, fmt.Errorf("order %s: unknown side %q", req.Symbol, req.Side)
	}

	params := kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   req.Symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         kiteconnect.ProductCNC,
		OrderType:       kiteconnect.OrderTypeMarket,
		TransactionType: txn,
		Quantity:        int(req.Qty),
		Tag:             orderTag(req.Tag),
	}

	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("kite place order %s: %w", req.Symbol, err)
	}
	return types.OrderResp{OrderID: resp.OrderID, Status: "PLACED"}, nil
}

// LatestClose uses the last traded price; Kite quotes it for the live
// session and the closing price once the market is shut.
func (z *Zerodha) LatestClose(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	key := z.p.Exchange + ":" + ticker
	quotes, err := z.kc.GetLTP(key)
	if err != nil {
		return decimal.Zero, fmt.Errorf("kite ltp %s: %w", key, err)
	}
	q, ok := quotes[key]
	if !ok || q.LastPrice <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no LTP for %s", interfaces.ErrPriceUnavailable, key)
	}
	return decimal.NewFromFloat(q.LastPrice), nil
}

func orderTag(tag string) string {
	tag = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, tag)
	if len(tag) > maxTagLen {
		tag = tag[:maxTagLen]
	}
	return tag
}
