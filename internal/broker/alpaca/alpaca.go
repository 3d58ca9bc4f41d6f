// Package alpaca talks to the Alpaca trading and market-data REST APIs.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/types"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	headerKeyID  = "APCA-API-KEY-ID"
	headerSecret = "APCA-API-SECRET-KEY"

	// Daily bars are requested over this window so weekends and holidays
	// still leave at least one completed session.
	barLookback = 10 * 24 * time.Hour
)

type Params struct {
	APIKey     string
	APISecret  string
	TradingURL string
	DataURL    string
	DataFeed   string
	Timeout    time.Duration
}

type Client struct {
	trading *resty.Client
	data    *resty.Client
	feed    string
	now     func() time.Time
}

var (
	_ interfaces.Broker      = (*Client)(nil)
	_ interfaces.PriceSource = (*Client)(nil)
)

func New(p Params) *Client {
	newClient := func(base string) *resty.Client {
		c := resty.New()
		c.SetBaseURL(strings.TrimRight(base, "/"))
		c.SetTimeout(p.Timeout)
		c.SetHeader(headerKeyID, p.APIKey)
		c.SetHeader(headerSecret, p.APISecret)
		c.SetHeader("Accept", "application/json")
		return c
	}
	return &Client{
		trading: newClient(p.TradingURL),
		data:    newClient(p.DataURL),
		feed:    p.DataFeed,
		now:     time.Now,
	}
}

func (c *Client) Name() string { return "alpaca" }

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("alpaca error %d: %s", e.Code, e.Message)
}

type position struct {
	Symbol string `json:"symbol"`
	Qty    string `json:"qty"`
	Side   string `json:"side"`
}

// Positions returns every open position. Fractional quantities are truncated
// toward zero.
func (c *Client) Positions(ctx context.Context) (map[string]types.Position, error) {
	var body []position
	resp, err := c.trading.R().
		SetContext(ctx).
		SetResult(&body).
		SetError(&apiError{}).
		Get("/v2/positions")
	if err := responseErr("list positions", resp, err); err != nil {
		return nil, err
	}

	out := make(map[string]types.Position, len(body))
	for _, p := range body {
		qty, err := decimal.NewFromString(p.Qty)
		if err != nil {
			return nil, fmt.Errorf("position %s: bad qty %q: %w", p.Symbol, p.Qty, err)
		}
		out[p.Symbol] = types.Position{Ticker: p.Symbol, Quantity: qty.IntPart()}
	}
	logger.Debug(ctx, "Alpaca positions loaded", "count", len(out))
	return out, nil
}

type orderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

type order struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Status        string `json:"status"`
	Symbol        string `json:"symbol"`
}

func (c *Client) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if req.Qty <= 0 {
		return types.OrderResp{}, fmt.Errorf("order %s: quantity must be positive, got %d", req.Symbol, req.Qty)
	}
	tif := strings.ToLower(req.TimeInForce)
	if tif == "" {
		tif = "day"
	}

	var placed order
	resp, err := c.trading.R().
		SetContext(ctx).
		SetBody(orderRequest{
			Symbol:        req.Symbol,
			Qty:           fmt.Sprintf("%d", req.Qty),
			Side:          strings.ToLower(string(req.Side)),
			Type:          "market",
			TimeInForce:   tif,
			ClientOrderID: req.ClientOrderID,
		}).
		SetResult(&placed).
		SetError(&apiError{}).
		Post("/v2/orders")
	if err := responseErr("submit order "+req.Symbol, resp, err); err != nil {
		return types.OrderResp{}, err
	}

	return types.OrderResp{OrderID: placed.ID, Status: placed.Status}, nil
}

type bar struct {
	Timestamp time.Time       `json:"t"`
	Close     decimal.Decimal `json:"c"`
}

type barsResponse struct {
	Bars          []bar  `json:"bars"`
	Symbol        string `json:"symbol"`
	NextPageToken string `json:"next_page_token"`
}

// LatestClose returns the close of the most recent daily bar.
func (c *Client) LatestClose(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var body barsResponse
	resp, err := c.data.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"timeframe": "1Day",
			"start":     c.now().Add(-barLookback).UTC().Format(time.RFC3339),
			"feed":      c.feed,
			"limit":     "1000",
		}).
		SetResult(&body).
		SetError(&apiError{}).
		Get("/v2/stocks/" + url.PathEscape(ticker) + "/bars")
	if err := responseErr("daily bars "+ticker, resp, err); err != nil {
		if resp != nil && resp.StatusCode() == 404 {
			return decimal.Zero, fmt.Errorf("%w: %v", interfaces.ErrPriceUnavailable, err)
		}
		return decimal.Zero, err
	}

	if len(body.Bars) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no daily bars for %s", interfaces.ErrPriceUnavailable, ticker)
	}
	last := body.Bars[len(body.Bars)-1]
	logger.Debug(ctx, "Alpaca daily close", "ticker", ticker, "close", last.Close.String(), "bar_time", last.Timestamp)
	return last.Close, nil
}

func responseErr(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Message != "" {
		return fmt.Errorf("%s: HTTP %d: %w", op, resp.StatusCode(), apiErr)
	}
	return fmt.Errorf("%s: HTTP %d: %s", op, resp.StatusCode(), strings.TrimSpace(resp.String()))
}

// IsAPIError reports whether err carries an Alpaca error body.
func IsAPIError(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr)
}
