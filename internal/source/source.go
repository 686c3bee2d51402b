package source

import (
	"encoding/json"
	"time"
)

// Sink receives one callback per entity state transition. Implementations
// must be safe for concurrent use.
type Sink interface {
	OnChange(entityID string, newState json.RawMessage, contextID string, ts time.Time)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(entityID string, newState json.RawMessage, contextID string, ts time.Time)

func (f SinkFunc) OnChange(entityID string, newState json.RawMessage, contextID string, ts time.Time) {
	f(entityID, newState, contextID, ts)
}
