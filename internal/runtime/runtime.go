package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/auth"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/camera"
	cfgpkg "github.com/NylonDiamond/wrist-assistant-hacs/internal/config"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/deltalog"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/metrics"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/notify"
	deltasvc "github.com/NylonDiamond/wrist-assistant-hacs/internal/services/delta"
	pairingsvc "github.com/NylonDiamond/wrist-assistant-hacs/internal/services/pairing"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/session"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/source"
	pebblestore "github.com/NylonDiamond/wrist-assistant-hacs/internal/storage/pebble"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
	Logger  logpkg.Logger
}

// Runtime wires storage, config, and service facades for a single-node
// instance.
type Runtime struct {
	db       *pebblestore.DB
	config   cfgpkg.Config
	logger   logpkg.Logger
	metrics  *metrics.Metrics
	log      *deltalog.Log
	sessions *session.Registry
	delta    *deltasvc.Service
	issuer   *auth.LocalIssuer
	verifier auth.Verifier
	pairing  *pairingsvc.Service
	tokens   *notify.TokenStore
	upstream *source.HomeAssistant
	hub      *source.REST
	streams  *camera.StreamCoordinator

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open initializes storage and builds the service graph.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}

	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync})
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	dlog := deltalog.New(cfg.Delta.BufferCapacity)
	sessions := session.NewRegistry(cfg.SessionTTL())

	delta := deltasvc.New(dlog, sessions, deltasvc.Options{
		MaxPerResponse: cfg.Delta.MaxEventsPerResponse,
		DefaultTimeout: time.Duration(cfg.Delta.DefaultTimeoutSeconds) * time.Second,
		MinTimeout:     time.Duration(cfg.Delta.MinTimeoutSeconds) * time.Second,
		MaxTimeout:     time.Duration(cfg.Delta.MaxTimeoutSeconds) * time.Second,
	}, logger.WithComponent("delta"), m)

	issuer := auth.NewLocalIssuer(db, logger.WithComponent("auth"))
	verifier := auth.NewLocalVerifier(db, cfg.Auth.StaticTokens)

	pairing, err := pairingsvc.New(db, issuer, pairingsvc.Options{
		CodeTTL:             cfg.PairingTTL(),
		DefaultLifespanDays: cfg.Pairing.DefaultLifespanDays,
		HomeAssistantURL:    cfg.HomeAssistantURL,
	}, logger.WithComponent("pairing"), m)
	if err != nil {
		db.Close()
		return nil, err
	}

	tokens, err := notify.NewTokenStore(db, logger.WithComponent("notify"))
	if err != nil {
		db.Close()
		return nil, err
	}

	rt := &Runtime{
		db:       db,
		config:   cfg,
		logger:   logger,
		metrics:  m,
		log:      dlog,
		sessions: sessions,
		delta:    delta,
		issuer:   issuer,
		verifier: verifier,
		pairing:  pairing,
		tokens:   tokens,
		streams:  camera.NewStreamCoordinator(),
	}

	if cfg.Upstream.URL != "" {
		rt.hub, err = source.NewREST(source.RESTOptions{
			URL:   cfg.Upstream.URL,
			Token: cfg.Upstream.Token,
		}, logger.WithComponent("source"))
		if err != nil {
			db.Close()
			return nil, err
		}
		sink := source.SinkFunc(func(entityID string, newState json.RawMessage, contextID string, ts time.Time) {
			rt.Ingest(entityID, newState, contextID, ts)
		})
		rt.upstream, err = source.NewHomeAssistant(sink, source.HomeAssistantOptions{
			URL:        cfg.Upstream.URL,
			Token:      cfg.Upstream.Token,
			MinBackoff: time.Duration(cfg.Upstream.ReconnectMinMs) * time.Millisecond,
			MaxBackoff: time.Duration(cfg.Upstream.ReconnectMaxMs) * time.Millisecond,
		}, logger.WithComponent("source"), m)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return rt, nil
}

// Start launches the background loops: the upstream subscriber, idle
// session pruning, and the pairing code sweep. Safe to skip in tests.
func (r *Runtime) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	if r.upstream != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.upstream.Run(ctx)
		}()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.pairing.RunSweeper(ctx, time.Minute)
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := r.sessions.Prune(); n > 0 {
					r.logger.Debug("pruned idle sessions", logpkg.Int("count", n))
				}
				r.metrics.ActiveSessions.Set(float64(r.sessions.Count()))
			}
		}
	}()
}

// Ingest appends one change event to the delta log and returns its cursor.
// It is the sink shared by the upstream subscriber and the ingest endpoint.
func (r *Runtime) Ingest(entityID string, newState json.RawMessage, contextID string, ts time.Time) uint64 {
	cursor := r.log.Append(entityID, newState, contextID, ts)
	r.metrics.EventsAppended.Inc()
	r.metrics.BufferUsed.Set(float64(r.log.Len()))
	return cursor
}

// Close stops background loops and closes storage. Safe to call twice.
func (r *Runtime) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
		r.streams.Shutdown()
		if r.db != nil {
			err = r.db.Close()
		}
	})
	return err
}

// CheckHealth performs a simple storage health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// Diagnostics is a point-in-time operational snapshot.
type Diagnostics struct {
	ActiveWatches     int            `json:"active_watches"`
	MonitoredEntities int            `json:"monitored_entities"`
	EventsPerMinute   int            `json:"events_per_minute"`
	BufferUsed        int            `json:"buffer_used"`
	BufferCapacity    int            `json:"buffer_capacity"`
	LowWater          uint64         `json:"low_water"`
	HighWater         uint64         `json:"high_water"`
	BlockedWaiters    int            `json:"blocked_waiters"`
	ActivePairings    int            `json:"active_pairings"`
	ActiveStreams     int            `json:"active_streams"`
	PushTokens        int            `json:"push_tokens"`
	Sessions          []session.Info `json:"sessions"`
}

// Diagnose assembles the diagnostics snapshot.
func (r *Runtime) Diagnose() Diagnostics {
	return Diagnostics{
		ActiveWatches:     r.sessions.Count(),
		MonitoredEntities: r.sessions.MonitoredEntities(),
		EventsPerMinute:   r.log.EventsPerMinute(time.Now()),
		BufferUsed:        r.log.Len(),
		BufferCapacity:    r.log.Cap(),
		LowWater:          r.log.LowWater(),
		HighWater:         r.log.HighWater(),
		BlockedWaiters:    r.log.WaiterCount(),
		ActivePairings:    r.pairing.ActiveCount(),
		ActiveStreams:     r.streams.Count(),
		PushTokens:        r.tokens.Count(),
		Sessions:          r.sessions.Snapshot(),
	}
}

// Accessors used by the transport layer.

func (r *Runtime) Config() cfgpkg.Config        { return r.config }
func (r *Runtime) Logger() logpkg.Logger        { return r.logger }
func (r *Runtime) Metrics() *metrics.Metrics    { return r.metrics }
func (r *Runtime) Log() *deltalog.Log           { return r.log }
func (r *Runtime) Sessions() *session.Registry  { return r.sessions }
func (r *Runtime) Delta() *deltasvc.Service     { return r.delta }
func (r *Runtime) Pairing() *pairingsvc.Service { return r.pairing }
func (r *Runtime) Tokens() *notify.TokenStore   { return r.tokens }
func (r *Runtime) Verifier() auth.Verifier      { return r.verifier }
func (r *Runtime) Issuer() auth.TokenIssuer     { return r.issuer }
func (r *Runtime) DB() *pebblestore.DB          { return r.db }

// Hub returns the upstream REST client, or nil when no upstream is
// configured.
func (r *Runtime) Hub() *source.REST { return r.hub }

// Streams returns the camera stream coordinator.
func (r *Runtime) Streams() *camera.StreamCoordinator { return r.streams }
