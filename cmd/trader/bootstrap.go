package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"signal-trader/internal/broker/alpaca"
	"signal-trader/internal/broker/brokerobs"
	"signal-trader/internal/broker/dryrun"
	"signal-trader/internal/broker/zerodha"
	"signal-trader/internal/engine"
	"signal-trader/internal/engine/engineobs"
	"signal-trader/internal/eod"
	"signal-trader/internal/eod/eodobs"
	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/metrics"
	"signal-trader/internal/prices/yahoo"
	"signal-trader/internal/reconcile"
	"signal-trader/internal/signals"
	"signal-trader/internal/store"
	"signal-trader/internal/trace"
	"signal-trader/internal/tradelog"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// brokerClient is a broker that can also quote closes.
type brokerClient interface {
	interfaces.Broker
	interfaces.PriceSource
}

// initializeSystem loads .env and sets up the logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(version); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string, dryRun bool) (*store.Config, error) {
	var overrides []func(*store.Config)
	if dryRun {
		overrides = append(overrides, func(c *store.Config) { c.Mode = store.ModeDryRun })
	}
	cfg, err := store.LoadConfig(path, overrides...)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	logger.Info(ctx, "Configuration loaded",
		"mode", cfg.Mode,
		"broker", cfg.Broker,
		"price_source", cfg.PriceSource,
		"sizing", cfg.Sizing.Policy,
		"amount", cfg.Sizing.Amount,
		"csv_url", cfg.CSVURL,
		"credentials_set", cfg.APIKey != "" && cfg.APISecret != "",
	)
	return cfg, nil
}

// compressOldLogs compresses old tradelog files if retention is configured
func compressOldLogs(ctx context.Context) {
	v := os.Getenv("TRADER_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Ignoring invalid TRADER_LOG_RETENTION_DAYS", "value", v)
		return
	}
	op := logger.StartOperation(ctx, "tradelog.CompressOlder", "retention_days", n)
	if err := tradelog.CompressOlder(n); err != nil {
		op.EndWithError(err)
		return
	}
	op.End()
}

// initializeBroker builds the configured brokerage client, unwrapped.
func initializeBroker(ctx context.Context, cfg *store.Config) (brokerClient, error) {
	switch cfg.Broker {
	case store.BrokerZerodha:
		z, err := zerodha.NewZerodha(zerodha.Params{
			APIKey:      cfg.APIKey.Reveal(),
			AccessToken: cfg.APISecret.Reveal(),
			Exchange:    cfg.Zerodha.Exchange,
			Timeout:     cfg.HTTPTimeout(),
		})
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "Using Zerodha Kite", "exchange", cfg.Zerodha.Exchange)
		return z, nil
	case store.BrokerAlpaca:
		logger.Info(ctx, "Using Alpaca", "trading_url", cfg.Alpaca.TradingURL, "feed", cfg.Alpaca.DataFeed)
		return alpaca.New(alpaca.Params{
			APIKey:     cfg.APIKey.Reveal(),
			APISecret:  cfg.APISecret.Reveal(),
			TradingURL: cfg.Alpaca.TradingURL,
			DataURL:    cfg.Alpaca.DataURL,
			DataFeed:   cfg.Alpaca.DataFeed,
			Timeout:    cfg.HTTPTimeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}
}

// wrapBroker applies dry-run simulation and observability middleware.
func wrapBroker(ctx context.Context, cfg *store.Config, brk interfaces.Broker) interfaces.Broker {
	if cfg.Mode == store.ModeDryRun {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
		brk = dryrun.Wrap(brk)
	}
	return brokerobs.Wrap(brk)
}

func initializePrices(ctx context.Context, cfg *store.Config, brk brokerClient) interfaces.PriceSource {
	if cfg.PriceSource == store.PriceSourceYahoo {
		logger.Info(ctx, "Using Yahoo Finance daily closes")
		return brokerobs.WrapPrices("yahoo", yahoo.New())
	}
	return brokerobs.WrapPrices(brk.Name(), brk)
}

func initializeSizer(ctx context.Context, cfg *store.Config, brk brokerClient) (reconcile.Sizer, error) {
	switch cfg.Sizing.Policy {
	case store.SizingBudgetDollars:
		b, err := reconcile.NewBudget(decimal.NewFromFloat(cfg.Sizing.Amount), initializePrices(ctx, cfg, brk))
		if err != nil {
			return nil, err
		}
		b.CallTimeout = cfg.HTTPTimeout()
		return b, nil
	default:
		return reconcile.NewFixedShares(int64(cfg.Sizing.Amount))
	}
}

// initializeEngine wires the run pipeline and wraps it with observability.
func initializeEngine(ctx context.Context, cfg *store.Config, brk brokerClient) (*metrics.Recorder, interfaces.Engine, error) {
	sizer, err := initializeSizer(ctx, cfg, brk)
	if err != nil {
		return nil, nil, err
	}
	rec, err := reconcile.New(sizer)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(engine.Deps{
		Signals:     signals.NewCSVSource(cfg.CSVURL, cfg.HTTPTimeout()),
		Broker:      wrapBroker(ctx, cfg, brk),
		Reconciler:  rec,
		CallTimeout: cfg.HTTPTimeout(),
	})
	if err != nil {
		return nil, nil, err
	}

	recorder := metrics.New()
	return recorder, engineobs.Wrap(eng, recorder), nil
}

func pushMetrics(ctx context.Context, cfg *store.Config, recorder *metrics.Recorder) {
	if cfg.Metrics.PushgatewayURL == "" || recorder == nil {
		return
	}
	// The run context may already be cancelled; the push still gets its own window.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTPTimeout())
	defer cancel()
	if err := recorder.Push(pctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logger.Warn(ctx, "Failed to push metrics", "error", err)
	}
}

// summarizeJournal refreshes today's per-ticker journal summary.
func summarizeJournal(ctx context.Context) {
	summarizer := eodobs.Wrap(eod.NewSummarizer())
	if _, err := summarizer.SummarizeDay(context.WithoutCancel(ctx), time.Now()); err != nil {
		logger.Warn(ctx, "Failed to summarize trade journal", "error", err)
	}
}
