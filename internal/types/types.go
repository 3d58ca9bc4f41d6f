package types

import (
	"fmt"
	"time"
)

// Date is a calendar day with no time-of-day or zone component.
// Two Dates are equal iff they name the same day, so == is day-granular.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SignalRow is one parsed line of the signal CSV.
type SignalRow struct {
	Ticker          string `json:"ticker"`
	Date            Date   `json:"date"`
	PredictedSignal int    `json:"predicted_signal"`
}

// Position is a held quantity at the brokerage. Quantity is signed.
type Position struct {
	Ticker   string `json:"ticker"`
	Quantity int64  `json:"quantity"`
}

// OrderIntent is a decision to trade, before it reaches the broker.
type OrderIntent struct {
	Ticker   string `json:"ticker"`
	Side     Side   `json:"side"`
	Quantity int64  `json:"quantity"`
}

type SkipReason string

const (
	SkipPriceUnavailable SkipReason = "price_unavailable"
	SkipPriceError       SkipReason = "price_error"
	SkipZeroQuantity     SkipReason = "zero_quantity"
	SkipDuplicateTicker  SkipReason = "duplicate_ticker"
	SkipUnknownSignal    SkipReason = "unknown_signal"
)

// Skip records a ticker that produced no order for a non-fatal reason.
type Skip struct {
	Ticker string     `json:"ticker"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

const TimeInForceDay = "DAY"

type OrderReq struct {
	Symbol        string `json:"symbol"`
	Side          Side   `json:"side"`
	Qty           int64  `json:"qty"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id"`
	Tag           string `json:"tag,omitempty"`
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OrderOutcome is the result of handing one intent to the order sink.
type OrderOutcome struct {
	Intent  OrderIntent `json:"intent"`
	OrderID string      `json:"order_id,omitempty"`
	Status  string      `json:"status,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (o OrderOutcome) Failed() bool { return o.Error != "" }

// RunReport summarises a single reconciliation run.
type RunReport struct {
	RunID       string         `json:"run_id"`
	TargetDate  Date           `json:"target_date"`
	SignalCount int            `json:"signal_count"`
	Positions   int            `json:"positions"`
	Intents     []OrderIntent  `json:"intents"`
	Orders      []OrderOutcome `json:"orders"`
	Skips       []Skip         `json:"skips"`
	Holds       int            `json:"holds"`
}

// Failed returns the number of orders the sink rejected.
func (r *RunReport) Failed() int {
	n := 0
	for _, o := range r.Orders {
		if o.Failed() {
			n++
		}
	}
	return n
}
