package engine

import (
	"errors"
	"time"

	"signal-trader/internal/interfaces"
	"signal-trader/internal/reconcile"
)

// Deps are the collaborators a run needs.
type Deps struct {
	Signals     interfaces.SignalSource
	Broker      interfaces.Broker
	Reconciler  *reconcile.Reconciler
	CallTimeout time.Duration
}

func New(d Deps) (*Engine, error) {
	if d.Signals == nil || d.Broker == nil || d.Reconciler == nil {
		return nil, errors.New("engine requires a signal source, a broker and a reconciler")
	}
	return newEngine(d), nil
}
