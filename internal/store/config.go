package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeLive   = "LIVE"
	ModeDryRun = "DRY_RUN"

	BrokerAlpaca  = "alpaca"
	BrokerZerodha = "zerodha"

	PriceSourceBroker = "broker"
	PriceSourceYahoo  = "yahoo"

	SizingFixedShares   = "fixed_shares"
	SizingBudgetDollars = "budget_dollars"

	DefaultCSVURL      = "https://raw.githubusercontent.com/nolknies/temp/main/stock_signals.csv"
	DefaultFixedShares = 10
	DefaultBudget      = 1000
)

// Secret is a credential that never prints its value.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s Secret) LogValue() slog.Value { return slog.StringValue(s.String()) }

func (s Secret) Reveal() string { return string(s) }

type Config struct {
	Mode               string `yaml:"mode"`
	Broker             string `yaml:"broker"`
	PriceSource        string `yaml:"price_source"`
	CSVURL             string `yaml:"csv_url"`
	Timezone           string `yaml:"timezone"`
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
	Sizing             struct {
		Policy string  `yaml:"policy"`
		Amount float64 `yaml:"amount"`
	} `yaml:"sizing"`
	Alpaca struct {
		TradingURL string `yaml:"trading_url"`
		DataURL    string `yaml:"data_url"`
		DataFeed   string `yaml:"data_feed"`
	} `yaml:"alpaca"`
	Zerodha struct {
		Exchange string `yaml:"exchange"`
	} `yaml:"zerodha"`
	Metrics struct {
		PushgatewayURL string `yaml:"pushgateway_url"`
		Job            string `yaml:"job"`
	} `yaml:"metrics"`

	// Credentials come from the environment only.
	APIKey    Secret `yaml:"-"`
	APISecret Secret `yaml:"-"`
}

func (c *Config) Validate() error {
	if c.Mode != ModeDryRun && c.Mode != ModeLive {
		return fmt.Errorf("invalid mode '%s': must be '%s' or '%s'", c.Mode, ModeDryRun, ModeLive)
	}
	if c.Broker != BrokerAlpaca && c.Broker != BrokerZerodha {
		return fmt.Errorf("invalid broker '%s': must be '%s' or '%s'", c.Broker, BrokerAlpaca, BrokerZerodha)
	}
	if c.PriceSource != PriceSourceBroker && c.PriceSource != PriceSourceYahoo {
		return fmt.Errorf("invalid price_source '%s': must be '%s' or '%s'", c.PriceSource, PriceSourceBroker, PriceSourceYahoo)
	}
	if strings.TrimSpace(c.CSVURL) == "" {
		return errors.New("csv_url cannot be empty")
	}
	switch c.Sizing.Policy {
	case SizingFixedShares:
		if c.Sizing.Amount < 1 || c.Sizing.Amount != float64(int64(c.Sizing.Amount)) {
			return fmt.Errorf("sizing.amount must be a positive whole share count for %s, got %v", SizingFixedShares, c.Sizing.Amount)
		}
	case SizingBudgetDollars:
		if c.Sizing.Amount <= 0 {
			return fmt.Errorf("sizing.amount must be positive for %s, got %v", SizingBudgetDollars, c.Sizing.Amount)
		}
	default:
		return fmt.Errorf("invalid sizing.policy '%s': must be '%s' or '%s'", c.Sizing.Policy, SizingFixedShares, SizingBudgetDollars)
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("http_timeout_seconds must be positive, got %d", c.HTTPTimeoutSeconds)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	if c.Mode == ModeLive && (c.APIKey == "" || c.APISecret == "") {
		return errors.New("API_KEY and API_SECRET are required in LIVE mode")
	}
	return nil
}

// Location returns the zone used to decide what "yesterday" means.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// LoadConfig reads path if it exists, applies environment overrides, then
// the given overrides (command-line flags), then defaults, and validates.
// A missing file is not an error.
func LoadConfig(path string, overrides ...func(*Config)) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(&c)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Mode, "MODE")
	setString(&c.Broker, "BROKER")
	setString(&c.PriceSource, "PRICE_SOURCE")
	setString(&c.CSVURL, "CSV_URL")
	setString(&c.Timezone, "TIMEZONE")
	setString(&c.Sizing.Policy, "SIZING_POLICY")
	setString(&c.Alpaca.TradingURL, "ALPACA_TRADING_URL")
	setString(&c.Alpaca.DataURL, "ALPACA_DATA_URL")
	setString(&c.Alpaca.DataFeed, "ALPACA_DATA_FEED")
	setString(&c.Zerodha.Exchange, "KITE_EXCHANGE")
	setString(&c.Metrics.PushgatewayURL, "PUSHGATEWAY_URL")

	if v := os.Getenv("SIZING_AMOUNT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid SIZING_AMOUNT %q: %w", v, err)
		}
		c.Sizing.Amount = f
	}
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS %q: %w", v, err)
		}
		c.HTTPTimeoutSeconds = n
	}

	c.Broker = strings.ToLower(c.Broker)
	c.Mode = strings.ToUpper(c.Mode)
	c.PriceSource = strings.ToLower(c.PriceSource)
	c.Sizing.Policy = strings.ToLower(c.Sizing.Policy)

	// Generic names win; broker-specific names are accepted as fallbacks.
	key, secret := firstEnv("API_KEY"), firstEnv("API_SECRET")
	switch c.Broker {
	case BrokerZerodha:
		if key == "" {
			key = firstEnv("KITE_API_KEY")
		}
		if secret == "" {
			secret = firstEnv("KITE_ACCESS_TOKEN")
		}
	default:
		if key == "" {
			key = firstEnv("ALPACA_API_KEY", "APCA_API_KEY_ID")
		}
		if secret == "" {
			secret = firstEnv("ALPACA_API_SECRET", "APCA_API_SECRET_KEY")
		}
	}
	c.APIKey, c.APISecret = Secret(key), Secret(secret)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeLive
	}
	if c.Broker == "" {
		c.Broker = BrokerAlpaca
	}
	if c.PriceSource == "" {
		c.PriceSource = PriceSourceBroker
	}
	if c.CSVURL == "" {
		c.CSVURL = DefaultCSVURL
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.HTTPTimeoutSeconds == 0 {
		c.HTTPTimeoutSeconds = 30
	}
	if c.Sizing.Policy == "" {
		c.Sizing.Policy = SizingFixedShares
	}
	if c.Sizing.Amount == 0 {
		if c.Sizing.Policy == SizingBudgetDollars {
			c.Sizing.Amount = DefaultBudget
		} else {
			c.Sizing.Amount = DefaultFixedShares
		}
	}
	if c.Alpaca.TradingURL == "" {
		c.Alpaca.TradingURL = "https://paper-api.alpaca.markets"
	}
	if c.Alpaca.DataURL == "" {
		c.Alpaca.DataURL = "https://data.alpaca.markets"
	}
	if c.Alpaca.DataFeed == "" {
		c.Alpaca.DataFeed = "iex"
	}
	if c.Zerodha.Exchange == "" {
		c.Zerodha.Exchange = "NSE"
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "signal_trader"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
