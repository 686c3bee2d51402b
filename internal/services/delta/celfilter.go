package deltasvc

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/deltalog"
)

// eventFilter wraps a compiled CEL program evaluated against delivered
// events. When disabled, Eval always returns true.
type eventFilter struct {
	prog    cel.Program
	enabled bool
}

func newEventFilter(expr string) (eventFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return eventFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("entity_id", cel.StringType),
		cel.Variable("cursor", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		// Parsed new_state payload (map/list/values) for field filtering
		cel.Variable("state", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return eventFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return eventFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return eventFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return eventFilter{}, err
	}
	return eventFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against one event. Evaluation errors count
// as non-matches.
func (f eventFilter) Eval(ev deltalog.Event) bool {
	if !f.enabled {
		return true
	}
	var stateObj any
	_ = json.Unmarshal(ev.State, &stateObj)
	out, _, err := f.prog.Eval(map[string]any{
		"entity_id": ev.EntityID,
		"cursor":    int64(ev.Cursor),
		"ts_ms":     ev.Timestamp.UnixMilli(),
		"state":     stateObj,
		"now_ms":    time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// apply keeps the matching events, filtering in place.
func (f eventFilter) apply(events []deltalog.Event) []deltalog.Event {
	if !f.enabled || len(events) == 0 {
		return events
	}
	kept := events[:0]
	for _, ev := range events {
		if f.Eval(ev) {
			kept = append(kept, ev)
		}
	}
	return kept
}

// filterCache memoizes compiled programs per expression. Watch filters are
// few and stable; the cache is reset if it ever grows unreasonably.
type filterCache struct {
	mu    sync.Mutex
	progs map[string]eventFilter
}

const filterCacheMax = 128

func newFilterCache() *filterCache {
	return &filterCache{progs: make(map[string]eventFilter)}
}

func (c *filterCache) get(expr string) (eventFilter, error) {
	if strings.TrimSpace(expr) == "" {
		return eventFilter{enabled: false}, nil
	}
	c.mu.Lock()
	if f, ok := c.progs[expr]; ok {
		c.mu.Unlock()
		return f, nil
	}
	c.mu.Unlock()

	f, err := newEventFilter(expr)
	if err != nil {
		return eventFilter{}, err
	}

	c.mu.Lock()
	if len(c.progs) >= filterCacheMax {
		c.progs = make(map[string]eventFilter)
	}
	c.progs[expr] = f
	c.mu.Unlock()
	return f, nil
}
