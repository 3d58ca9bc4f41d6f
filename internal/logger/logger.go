package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"signal-trader/internal/trace"

	"go.opentelemetry.io/otel/attribute"
)

var (
	// Global logger instance. Usable before Init so tests and early startup can log.
	globalLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	// Whether source locations are attached to records
	detailedLogging bool
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string // DEBUG, INFO, WARN, ERROR
	Format          string // json or text
	DetailedLogging bool   // Attach caller source to every record
}

// Init initializes the global logger from environment variables
func Init() error {
	return InitWithConfig(LoadConfigFromEnv(), os.Stdout)
}

// LoadConfigFromEnv loads logging configuration from environment variables
func LoadConfigFromEnv() LogConfig {
	return LogConfig{
		Level:           getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:          getEnvOrDefault("LOG_FORMAT", "json"),
		DetailedLogging: getEnvOrDefault("LOG_DETAILED", "false") == "true",
	}
}

// InitWithConfig initializes the logger writing to w
func InitWithConfig(config LogConfig, w io.Writer) error {
	detailedLogging = config.DetailedLogging

	opts := &slog.HandlerOptions{Level: parseLogLevel(config.Level)}

	var handler slog.Handler
	if strings.EqualFold(config.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return nil
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func Debug(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelDebug, msg, 2, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelInfo, msg, 2, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, 2, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelError, msg, 2, args...)
}

// ErrorWithErr logs err and records it on the active span.
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	trace.RecordError(ctx, err)
	logWithTrace(ctx, slog.LevelError, msg, 2, append([]any{"error", err}, args...)...)
}

// The *Skip variants are for middleware: skip extra frames so the recorded
// source points at the middleware's caller.

func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelDebug, msg, 2+skip, args...)
}

func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelInfo, msg, 2+skip, args...)
}

func WarnSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, 2+skip, args...)
}

func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	trace.RecordError(ctx, err)
	logWithTrace(ctx, slog.LevelError, msg, 2+skip, append([]any{"error", err}, args...)...)
}

func logWithTrace(ctx context.Context, level slog.Level, msg string, skip int, args ...any) {
	if !globalLogger.Enabled(ctx, level) {
		return
	}
	if traceID, spanID, ok := trace.GetTraceFields(ctx); ok {
		args = append([]any{"trace_id", traceID, "span_id", spanID}, args...)
	}

	if detailedLogging {
		if pc, file, line, ok := runtime.Caller(skip); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				args = append(args, "source", slog.GroupValue(
					slog.String("function", fn.Name()),
					slog.String("file", file),
					slog.Int("line", line),
				))
			}
		}
	}

	globalLogger.Log(ctx, level, msg, args...)
}

// Decision logs the reconciler's verdict for one ticker.
func Decision(ctx context.Context, ticker string, signal int, invested bool, action string, fields ...any) {
	trace.AddEvent(ctx, "reconcile_decision",
		attribute.String("ticker", ticker),
		attribute.Int("signal", signal),
		attribute.Bool("invested", invested),
		attribute.String("action", action),
	)

	allFields := append([]any{
		"type", "DECISION",
		"ticker", ticker,
		"signal", signal,
		"invested", invested,
		"action", action,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Reconcile decision", 2, allFields...)
}

// Trade logs an accepted order.
func Trade(ctx context.Context, ticker, side string, qty int64, orderID, status string, fields ...any) {
	trace.AddEvent(ctx, "order_submitted",
		attribute.String("ticker", ticker),
		attribute.String("side", side),
		attribute.Int64("quantity", qty),
		attribute.String("order_id", orderID),
	)

	allFields := append([]any{
		"type", "TRADE",
		"ticker", ticker,
		"side", side,
		"quantity", qty,
		"order_id", orderID,
		"status", status,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Order submitted", 2, allFields...)
}

// Skipped logs a ticker that was passed over without an order.
func Skipped(ctx context.Context, ticker, reason, detail string) {
	trace.AddEvent(ctx, "ticker_skipped",
		attribute.String("ticker", ticker),
		attribute.String("reason", reason),
	)
	logWithTrace(ctx, slog.LevelWarn, "Ticker skipped", 2,
		"type", "SKIP",
		"ticker", ticker,
		"reason", reason,
		"detail", detail,
	)
}

// OperationTimer measures an operation and logs its duration at debug level.
type OperationTimer struct {
	ctx       context.Context
	operation string
	start     time.Time
	fields    []any
}

func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	return &OperationTimer{ctx: ctx, operation: operation, start: time.Now(), fields: fields}
}

func (ot *OperationTimer) End(additionalFields ...any) {
	fields := append([]any{"operation", ot.operation, "duration_ms", time.Since(ot.start).Milliseconds()}, ot.fields...)
	logWithTrace(ot.ctx, slog.LevelDebug, "Operation completed", 2, append(fields, additionalFields...)...)
}

func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) {
	trace.RecordError(ot.ctx, err)
	fields := append([]any{"operation", ot.operation, "duration_ms", time.Since(ot.start).Milliseconds(), "error", err}, ot.fields...)
	logWithTrace(ot.ctx, slog.LevelError, "Operation failed", 2, append(fields, additionalFields...)...)
}
