// Package signals fetches and parses the daily signal CSV.
package signals

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/types"

	"github.com/go-resty/resty/v2"
	"github.com/gocarina/gocsv"
)

// DateLayout accepts both zero-padded and bare month/day values.
const DateLayout = "1/2/2006"

const (
	colTicker = "Ticker"
	colDate   = "Date"
	colSignal = "PredictedSignal"
)

// ErrFetch wraps every failure to retrieve or decode the signal document.
var ErrFetch = errors.New("signal fetch failed")

type CSVSource struct {
	client *resty.Client
	url    string
}

var _ interfaces.SignalSource = (*CSVSource)(nil)

// NewCSVSource builds a source that GETs url with the given per-request timeout.
func NewCSVSource(url string, timeout time.Duration) *CSVSource {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "text/csv, text/plain, */*")
	return &CSVSource{client: client, url: url}
}

func (s *CSVSource) Fetch(ctx context.Context) ([]types.SignalRow, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrFetch, s.url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: GET %s: HTTP %d", ErrFetch, s.url, resp.StatusCode())
	}

	rows, err := Parse(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	logger.Debug(ctx, "Signals fetched", "url", s.url, "rows", len(rows), "bytes", len(resp.Body()))
	return rows, nil
}

type csvRecord struct {
	Ticker string `csv:"Ticker"`
	Date   string `csv:"Date"`
	Signal string `csv:"PredictedSignal"`
}

var utf8BOM = []byte("\xef\xbb\xbf")

// Parse decodes a signal CSV document. The header must name the Ticker, Date
// and PredictedSignal columns; any other columns are ignored.
func Parse(body []byte) ([]types.SignalRow, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if err := checkHeader(body); err != nil {
		return nil, err
	}

	var records []*csvRecord
	if err := gocsv.UnmarshalBytes(body, &records); err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	rows := make([]types.SignalRow, 0, len(records))
	for i, r := range records {
		line := i + 2
		ticker := strings.TrimSpace(r.Ticker)
		if ticker == "" {
			return nil, fmt.Errorf("row %d: empty ticker", line)
		}
		day, err := parseRowDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", line, ticker, err)
		}
		signal, err := parseSignal(r.Signal)
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", line, ticker, err)
		}
		rows = append(rows, types.SignalRow{Ticker: ticker, Date: day, PredictedSignal: signal})
	}
	return rows, nil
}

func parseRowDate(s string) (types.Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return types.Date{}, fmt.Errorf("date %q is not MM/DD/YYYY", s)
	}
	return types.DateOf(t), nil
}

// parseSignal accepts integral values, including float renderings like "1.0".
func parseSignal(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("signal %q is not an integer", s)
	}
	return int(f), nil
}

func checkHeader(body []byte) error {
	header, err := csv.NewReader(bytes.NewReader(body)).Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range []string{colTicker, colDate, colSignal} {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("csv header missing column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// ForDate keeps the rows dated day, preserving order.
func ForDate(rows []types.SignalRow, day types.Date) []types.SignalRow {
	var out []types.SignalRow
	for _, r := range rows {
		if r.Date == day {
			out = append(out, r)
		}
	}
	return out
}

// Yesterday is the calendar day before now, as seen from loc.
func Yesterday(now time.Time, loc *time.Location) types.Date {
	if loc == nil {
		loc = time.Local
	}
	return types.DateOf(now.In(loc)).AddDays(-1)
}

// ParseDate accepts a target date override as MM/DD/YYYY or YYYY-MM-DD.
func ParseDate(s string) (types.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return types.DateOf(t), nil
		}
	}
	return types.Date{}, fmt.Errorf("date %q is neither MM/DD/YYYY nor YYYY-MM-DD", s)
}
