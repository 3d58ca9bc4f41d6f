package zerodha

import (
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// kiteAPI is the subset of the Kite Connect client the broker uses.
type kiteAPI interface {
	// GetHoldings returns delivery holdings carried over from previous sessions
	GetHoldings() (kiteconnect.Holdings, error)

	// GetPositions returns intraday and carry-forward positions
	GetPositions() (kiteconnect.Positions, error)

	// GetLTP returns last traded prices keyed by "EXCHANGE:SYMBOL"
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)

	// PlaceOrder submits an order of the given variety
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
}
