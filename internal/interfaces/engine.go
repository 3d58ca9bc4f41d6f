package interfaces

import (
	"context"
	"time"

	"signal-trader/internal/types"
)

type Engine interface {
	Run(ctx context.Context, target types.Date) (*types.RunReport, error)
}

// Summarizer rolls a day's trade journal up into a report file.
type Summarizer interface {
	SummarizeDay(ctx context.Context, t time.Time) (csvPath string, err error)
}
