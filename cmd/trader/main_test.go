package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"signal-trader/internal/logger"
	"signal-trader/internal/store"
	"signal-trader/internal/types"
)

func TestResolveTargetDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	now := time.Date(2024, time.July, 15, 2, 0, 0, 0, time.UTC) // July 14 22:00 in New York

	tests := []struct {
		name    string
		flag    string
		want    types.Date
		wantErr bool
	}{
		{name: "default is yesterday in zone", want: types.Date{Year: 2024, Month: time.July, Day: 13}},
		{name: "us format", flag: "07/01/2024", want: types.Date{Year: 2024, Month: time.July, Day: 1}},
		{name: "iso format", flag: "2024-07-01", want: types.Date{Year: 2024, Month: time.July, Day: 1}},
		{name: "garbage", flag: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTargetDate(tt.flag, now, ny)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

var configEnvKeys = []string{
	"MODE", "BROKER", "PRICE_SOURCE", "CSV_URL", "TIMEZONE", "SIZING_POLICY",
	"SIZING_AMOUNT", "HTTP_TIMEOUT_SECONDS", "API_KEY", "API_SECRET",
	"ALPACA_API_KEY", "ALPACA_API_SECRET", "KITE_API_KEY", "KITE_ACCESS_TOKEN",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func testConfig(t *testing.T, env map[string]string) *store.Config {
	t.Helper()
	clearConfigEnv(t)
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := store.LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestInitializeBroker(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t, map[string]string{"BROKER": "alpaca", "API_KEY": "k", "API_SECRET": "s"})
	brk, err := initializeBroker(ctx, cfg)
	if err != nil || brk.Name() != "alpaca" {
		t.Fatalf("alpaca broker = %v, %v", brk, err)
	}

	cfg = testConfig(t, map[string]string{"BROKER": "zerodha", "API_KEY": "k", "API_SECRET": "s"})
	brk, err = initializeBroker(ctx, cfg)
	if err != nil || brk.Name() != "zerodha" {
		t.Fatalf("zerodha broker = %v, %v", brk, err)
	}
}

func TestWrapBrokerDryRun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, map[string]string{"MODE": "DRY_RUN", "BROKER": "alpaca"})

	brk, err := initializeBroker(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := wrapBroker(ctx, cfg, brk).Name(); got != "alpaca+dry_run" {
		t.Errorf("Name = %q", got)
	}
}

func TestInitializeSizer(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t, map[string]string{"MODE": "DRY_RUN", "SIZING_POLICY": "budget_dollars", "SIZING_AMOUNT": "2500"})
	brk, err := initializeBroker(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	sizer, err := initializeSizer(ctx, cfg, brk)
	if err != nil || sizer.Name() != "budget_dollars" {
		t.Fatalf("sizer = %v, %v", sizer, err)
	}

	cfg = testConfig(t, map[string]string{"MODE": "DRY_RUN", "SIZING_POLICY": "fixed_shares", "SIZING_AMOUNT": "3"})
	sizer, err = initializeSizer(ctx, cfg, brk)
	if err != nil || sizer.Name() != "fixed_shares" {
		t.Fatalf("sizer = %v, %v", sizer, err)
	}
}

func TestLoadConfigDryRunFlag(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MODE", "LIVE")

	var buf bytes.Buffer
	if err := logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "json"}, &buf); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "text"}, os.Stderr) })

	// LIVE without credentials would fail validation; the flag must win first.
	cfg, err := loadConfig(context.Background(), "", true)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Mode != store.ModeDryRun {
		t.Errorf("Mode = %q, want %q", cfg.Mode, store.ModeDryRun)
	}
	if got := os.Getenv("MODE"); got != "LIVE" {
		t.Errorf("MODE env = %q, want it left alone", got)
	}

	out := buf.String()
	if strings.Contains(out, "api_key") || strings.Contains(out, "[REDACTED]") {
		t.Errorf("config log mentions the key: %s", out)
	}
	if !strings.Contains(out, `"credentials_set":false`) {
		t.Errorf("config log lacks credentials_set: %s", out)
	}
}
