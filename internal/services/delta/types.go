package deltasvc

import (
	"errors"
	"time"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/deltalog"
)

// Timeout bounds applied when Options leaves them zero.
const (
	DefaultTimeout = 45 * time.Second
	MinTimeout     = 5 * time.Second
	MaxTimeout     = 55 * time.Second
)

// DefaultMaxPerResponse caps events in one poll response.
const DefaultMaxPerResponse = 250

// ErrBadFilter reports an event filter expression that failed to compile.
var ErrBadFilter = errors.New("invalid event filter expression")

// PollRequest is one long-poll delta request.
type PollRequest struct {
	WatchID    string
	ConfigHash string
	// Since is the client cursor; zero means "from now" (the live path).
	Since uint64
	// SinceSupplied distinguishes an explicit cursor from an omitted one.
	SinceSupplied bool
	// Entities is the full replacement subscription set; nil means the
	// request did not carry one.
	Entities []string
	// Filter is an optional CEL expression narrowing delivered events.
	Filter string
	// Timeout is the requested long-poll duration; zero takes the default.
	Timeout time.Duration
}

// Outcome classifies a completed poll.
type Outcome int

const (
	// OutcomeEvents delivers one or more matched events.
	OutcomeEvents Outcome = iota
	// OutcomeTimeout means the deadline elapsed with no matches.
	OutcomeTimeout
	// OutcomeNeedEntities asks the watch to resupply its subscription list.
	OutcomeNeedEntities
	// OutcomeStale means the cursor references evicted or foreign history.
	OutcomeStale
)

// PollResult is the answer to one poll.
type PollResult struct {
	Outcome Outcome
	Events  []deltalog.Event
	// NextCursor is the cursor the watch should present next. Meaningful for
	// every outcome except OutcomeStale, where the watch must restart with
	// no cursor at all.
	NextCursor uint64
}
