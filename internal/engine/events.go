package engine

import (
	"time"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

// EventKind labels engine notifications.
type EventKind string

const (
	// EventSignal fires when a strategy signal is admitted and applied.
	EventSignal EventKind = "signal"
	// EventPosition fires on any position transition (open, close, flip).
	EventPosition EventKind = "position"
	// EventSkip fires when the gate or a frozen reconciler rejects a
	// signal; Reason carries the failing check.
	EventSkip EventKind = "skip"
	// EventFreeze fires when reconciliation failures freeze trading.
	EventFreeze EventKind = "freeze"
	// EventStop fires once when the engine shuts down.
	EventStop EventKind = "stop"
)

// Event is one engine notification.
type Event struct {
	Kind      EventKind
	Reason    string
	Direction signal.Direction
	Position  position.Position
	At        time.Time
}

// OnEvent registers an observer. Observers run synchronously on the engine
// loop in registration order; register before Run.
func (e *Engine) OnEvent(fn func(Event)) {
	e.observers = append(e.observers, fn)
}

func (e *Engine) emit(ev Event) {
	for _, fn := range e.observers {
		fn(ev)
	}
}
