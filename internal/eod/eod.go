// Package eod rolls a day's trade journal up into a per-ticker CSV.
package eod

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"signal-trader/internal/interfaces"

	"github.com/gocarina/gocsv"
)

type journalLine struct {
	RunID, Symbol, Side, OrderID, Status string
	Qty                                  int64
	Error                                string
}

type summaryRow struct {
	Symbol     string `csv:"symbol"`
	BuyOrders  int    `csv:"buy_orders"`
	BuyQty     int64  `csv:"buy_qty"`
	SellOrders int    `csv:"sell_orders"`
	SellQty    int64  `csv:"sell_qty"`
	Failed     int    `csv:"failed"`
	Runs       int    `csv:"runs"`
}

type summarizer struct{}

var _ interfaces.Summarizer = (*summarizer)(nil)

func NewSummarizer() interfaces.Summarizer {
	return &summarizer{}
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func journalPath(t time.Time) string {
	return filepath.Join(logDir(), t.Format("2006-01-02")+".txt")
}

func summaryPath(t time.Time) string {
	return filepath.Join(logDir(), "eod", t.Format("2006-01-02")+".csv")
}

// SummarizeDay rewrites the summary for t's journal and returns its path.
// An empty path with a nil error means there was nothing to summarize.
func (s *summarizer) SummarizeDay(ctx context.Context, t time.Time) (string, error) {
	f, err := os.Open(journalPath(t))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	aggs := map[string]*summaryRow{}
	runs := map[string]map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var jl journalLine
		if err := json.Unmarshal(sc.Bytes(), &jl); err != nil || jl.Symbol == "" {
			continue
		}
		row := aggs[jl.Symbol]
		if row == nil {
			row = &summaryRow{Symbol: jl.Symbol}
			aggs[jl.Symbol] = row
			runs[jl.Symbol] = map[string]struct{}{}
		}
		runs[jl.Symbol][jl.RunID] = struct{}{}
		if jl.Error != "" {
			row.Failed++
			continue
		}
		switch jl.Side {
		case "BUY":
			row.BuyOrders++
			row.BuyQty += jl.Qty
		case "SELL":
			row.SellOrders++
			row.SellQty += jl.Qty
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	rows := make([]summaryRow, 0, len(aggs))
	for sym, r := range aggs {
		r.Runs = len(runs[sym])
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })

	out := summaryPath(t)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	w, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := gocsv.MarshalFile(&rows, w); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return out, nil
}
