package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Params{
		APIKey:     "key-id",
		APISecret:  "secret",
		TradingURL: srv.URL,
		DataURL:    srv.URL + "/",
		DataFeed:   "iex",
		Timeout:    5 * time.Second,
	})
	c.now = func() time.Time { return time.Date(2024, time.July, 15, 14, 0, 0, 0, time.UTC) }
	return c
}

func checkAuth(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get(headerKeyID); got != "key-id" {
		t.Errorf("%s = %q", headerKeyID, got)
	}
	if got := r.Header.Get(headerSecret); got != "secret" {
		t.Errorf("%s = %q", headerSecret, got)
	}
}

func TestPositions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		checkAuth(t, r)
		if r.URL.Path != "/v2/positions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"symbol":"AAPL","qty":"15","side":"long"},
			{"symbol":"TSLA","qty":"-3","side":"short"},
			{"symbol":"BRK.B","qty":"2.75","side":"long"}
		]`))
	})

	got, err := c.Positions(context.Background())
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	want := map[string]int64{"AAPL": 15, "TSLA": -3, "BRK.B": 2}
	if len(got) != len(want) {
		t.Fatalf("positions = %+v", got)
	}
	for sym, qty := range want {
		if got[sym].Quantity != qty || got[sym].Ticker != sym {
			t.Errorf("%s = %+v, want qty %d", sym, got[sym], qty)
		}
	}
}

func TestPositionsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":40110000,"message":"request is not authorized"}`))
	})

	_, err := c.Positions(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsAPIError(err) {
		t.Errorf("err = %v, want api error", err)
	}
	if !strings.Contains(err.Error(), "not authorized") {
		t.Errorf("err = %q", err)
	}
}

func TestPlaceOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		checkAuth(t, r)
		if r.Method != http.MethodPost || r.URL.Path != "/v2/orders" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body orderRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := orderRequest{Symbol: "AAPL", Qty: "10", Side: "buy", Type: "market", TimeInForce: "day", ClientOrderID: "run-1-AAPL"}
		if body != want {
			t.Errorf("body = %+v, want %+v", body, want)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"ord-123","client_order_id":"run-1-AAPL","status":"accepted","symbol":"AAPL"}`))
	})

	resp, err := c.PlaceOrder(context.Background(), types.OrderReq{
		Symbol: "AAPL", Side: types.SideBuy, Qty: 10, TimeInForce: types.TimeInForceDay, ClientOrderID: "run-1-AAPL",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if resp.OrderID != "ord-123" || resp.Status != "accepted" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestPlaceOrderRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":40310000,"message":"insufficient qty available for order"}`))
	})

	_, err := c.PlaceOrder(context.Background(), types.OrderReq{Symbol: "AAPL", Side: types.SideSell, Qty: 5})
	if err == nil || !strings.Contains(err.Error(), "insufficient qty") {
		t.Fatalf("err = %v", err)
	}
}

func TestPlaceOrderRejectsNonPositiveQty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := c.PlaceOrder(context.Background(), types.OrderReq{Symbol: "AAPL", Side: types.SideBuy}); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestLatestClose(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		checkAuth(t, r)
		if r.URL.Path != "/v2/stocks/AAPL/bars" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("timeframe") != "1Day" || q.Get("feed") != "iex" {
			t.Errorf("query = %v", q)
		}
		if q.Get("start") != "2024-07-05T14:00:00Z" {
			t.Errorf("start = %s", q.Get("start"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"AAPL","bars":[
			{"t":"2024-07-11T04:00:00Z","o":1,"h":1,"l":1,"c":227.57,"v":1},
			{"t":"2024-07-12T04:00:00Z","o":1,"h":1,"l":1,"c":230.54,"v":1}
		],"next_page_token":null}`))
	})

	price, err := c.LatestClose(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LatestClose: %v", err)
	}
	if price.String() != "230.54" {
		t.Errorf("price = %s, want 230.54", price)
	}
}

func TestLatestCloseUnavailable(t *testing.T) {
	t.Run("no bars", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"symbol":"ZZZZ","bars":[]}`))
		})
		_, err := c.LatestClose(context.Background(), "ZZZZ")
		if !errors.Is(err, interfaces.ErrPriceUnavailable) {
			t.Fatalf("err = %v, want ErrPriceUnavailable", err)
		}
	})

	t.Run("unknown symbol", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":40410000,"message":"symbol not found"}`))
		})
		_, err := c.LatestClose(context.Background(), "ZZZZ")
		if !errors.Is(err, interfaces.ErrPriceUnavailable) {
			t.Fatalf("err = %v, want ErrPriceUnavailable", err)
		}
	})
}
