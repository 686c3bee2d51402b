package deltasvc

import (
	"context"
	"fmt"
	"time"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/deltalog"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/metrics"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/session"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

// Options tunes the coordinator. Zero values take the package defaults.
type Options struct {
	MaxPerResponse int
	DefaultTimeout time.Duration
	MinTimeout     time.Duration
	MaxTimeout     time.Duration
}

// Service coordinates long-poll delta requests over the shared log and
// session registry.
type Service struct {
	log      *deltalog.Log
	sessions *session.Registry
	logger   logpkg.Logger
	metrics  *metrics.Metrics
	filters  *filterCache
	opts     Options
}

// New returns a Service. logger and m may be nil (a default logger and no
// metrics are used).
func New(log *deltalog.Log, sessions *session.Registry, opts Options, logger logpkg.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("delta"))
	}
	if opts.MaxPerResponse <= 0 {
		opts.MaxPerResponse = DefaultMaxPerResponse
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	if opts.MinTimeout <= 0 {
		opts.MinTimeout = MinTimeout
	}
	if opts.MaxTimeout <= 0 {
		opts.MaxTimeout = MaxTimeout
	}
	return &Service{
		log:      log,
		sessions: sessions,
		logger:   logger,
		metrics:  m,
		filters:  newFilterCache(),
		opts:     opts,
	}
}

// Poll handles one long-poll request end to end. It returns an error only
// for invalid filters and cancelled contexts; protocol outcomes (stale,
// timeout, need_entities) are reported in the result.
func (s *Service) Poll(ctx context.Context, req PollRequest) (PollResult, error) {
	filter, err := s.filters.get(req.Filter)
	if err != nil {
		return PollResult{}, fmt.Errorf("%w: %v", ErrBadFilter, err)
	}

	view, needEntities := s.sessions.Resolve(req.WatchID, req.ConfigHash, req.Entities, req.Filter)
	if needEntities {
		s.count(metrics.PollResultNeedEntities)
		return PollResult{Outcome: OutcomeNeedEntities, NextCursor: s.log.HighWater()}, nil
	}
	if view.Filter != req.Filter {
		// A session resumed without restating its filter keeps the stored one.
		if filter, err = s.filters.get(view.Filter); err != nil {
			return PollResult{}, fmt.Errorf("%w: %v", ErrBadFilter, err)
		}
	}

	since := req.Since
	if !req.SinceSupplied {
		// Live path: deltas from now, no replay.
		since = s.log.HighWater()
	}

	deadline := time.Now().Add(s.clampTimeout(req.Timeout))
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		res := s.log.Query(since, view.Entities, s.opts.MaxPerResponse)
		if res.Stale {
			s.count(metrics.PollResultStale)
			s.logger.Debug("stale cursor",
				logpkg.Str("watch_id", req.WatchID),
				logpkg.Uint64("since", since),
				logpkg.Uint64("low_water", s.log.LowWater()))
			return PollResult{Outcome: OutcomeStale, NextCursor: res.Next}, nil
		}

		events := filter.apply(res.Events)
		if len(events) > 0 {
			return s.deliver(req.WatchID, events, res.Next), nil
		}

		// Nothing deliverable in this window; never hand it back again.
		since = res.Next

		w := s.log.Register(since, view.Entities)
		if s.metrics != nil {
			s.metrics.ActiveWaiters.Inc()
		}
		select {
		case <-w.Ready():
			s.log.Remove(w)
			if s.metrics != nil {
				s.metrics.ActiveWaiters.Dec()
			}
			// Re-run the query: more events may have accumulated since the wake.
		case <-timer.C:
			s.log.Remove(w)
			if s.metrics != nil {
				s.metrics.ActiveWaiters.Dec()
			}
			// An append racing the deadline can satisfy the waiter in the
			// same instant the timer fires. One last scan so that window is
			// delivered instead of skipped past.
			res := s.log.Query(since, view.Entities, s.opts.MaxPerResponse)
			if events := filter.apply(res.Events); len(events) > 0 {
				return s.deliver(req.WatchID, events, res.Next), nil
			}
			s.sessions.RecordCursor(req.WatchID, res.Next)
			s.count(metrics.PollResultTimeout)
			return PollResult{Outcome: OutcomeTimeout, NextCursor: res.Next}, nil
		case <-ctx.Done():
			// Client went away; release the waiter with no side effects.
			s.log.Remove(w)
			if s.metrics != nil {
				s.metrics.ActiveWaiters.Dec()
			}
			return PollResult{}, ctx.Err()
		}
	}
}

func (s *Service) deliver(watchID string, events []deltalog.Event, next uint64) PollResult {
	s.sessions.RecordCursor(watchID, next)
	s.count(metrics.PollResultEvents)
	if s.metrics != nil {
		s.metrics.EventsDelivered.Add(float64(len(events)))
	}
	return PollResult{Outcome: OutcomeEvents, Events: events, NextCursor: next}
}

func (s *Service) clampTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		requested = s.opts.DefaultTimeout
	}
	if requested < s.opts.MinTimeout {
		return s.opts.MinTimeout
	}
	if requested > s.opts.MaxTimeout {
		return s.opts.MaxTimeout
	}
	return requested
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.PollRequests.WithLabelValues(result).Inc()
	}
}
