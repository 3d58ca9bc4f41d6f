package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func withClock(t *testing.T, ts time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
}

func TestAppendWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)
	withClock(t, time.Date(2024, time.July, 15, 9, 31, 0, 0, time.UTC))

	if err := Append(Entry{RunID: "r1", Symbol: "AAPL", Side: "BUY", Qty: 10, OrderID: "o1", Status: "accepted"}); err != nil {
		t.Fatal(err)
	}
	if err := Append(Entry{RunID: "r1", Symbol: "MSFT", Side: "SELL", Qty: 4, Error: "rejected"}); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "2024-07-15.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	if got[0].Time != "2024-07-15 09:31:00" || got[0].Symbol != "AAPL" {
		t.Errorf("entry[0] = %+v", got[0])
	}
	if got[1].Error != "rejected" {
		t.Errorf("entry[1] = %+v", got[1])
	}
}

func TestAppendSkip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)
	withClock(t, time.Date(2024, time.July, 15, 9, 31, 0, 0, time.UTC))

	if err := AppendSkip(SkipEntry{RunID: "r1", Symbol: "MSFT", Reason: "zero_quantity"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "skips", "2024-07-15.txt")); err != nil {
		t.Errorf("skip journal missing: %v", err)
	}
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	old := filepath.Join(dir, "2024-01-01.txt")
	fresh := filepath.Join(dir, "2024-07-15.txt")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte(`{"Symbol":"AAPL"}`+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	if err := CompressOlder(7); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("old journal still present: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh journal removed: %v", err)
	}

	f, err := os.Open(old + ".gz")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	b, err := io.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"Symbol":"AAPL"}`+"\n" {
		t.Errorf("gz content = %q", b)
	}
}

func TestCompressOlderDisabled(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	if err := CompressOlder(0); err != nil {
		t.Fatal(err)
	}
}
