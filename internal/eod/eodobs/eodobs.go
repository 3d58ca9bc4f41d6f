package eodobs

import (
	"context"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/logger"
	"signal-trader/internal/trace"
)

type observableSummarizer struct {
	summarizer interfaces.Summarizer
}

var _ interfaces.Summarizer = (*observableSummarizer)(nil)

func Wrap(summarizer interfaces.Summarizer) interfaces.Summarizer {
	return &observableSummarizer{
		summarizer: summarizer,
	}
}

func (s *observableSummarizer) SummarizeDay(ctx context.Context, t time.Time) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDay")
	defer span.End()

	day := t.Format("2006-01-02")
	csvPath, err := s.summarizer.SummarizeDay(ctx, t)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Journal summary failed", err, "date", day)
		return "", err
	}

	if csvPath == "" {
		logger.DebugSkip(ctx, 1, "No journal entries to summarize", "date", day)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "Journal summary written",
		"date", day,
		"csv_path", csvPath,
	)
	return csvPath, nil
}
