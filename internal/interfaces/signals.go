package interfaces

import (
	"context"

	"signal-trader/internal/types"
)

type SignalSource interface {
	// Fetch retrieves every signal row the source currently publishes.
	Fetch(ctx context.Context) ([]types.SignalRow, error)
}
