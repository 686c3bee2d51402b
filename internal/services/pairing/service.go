package pairingsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/auth"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/metrics"
	pebblestore "github.com/NylonDiamond/wrist-assistant-hacs/internal/storage/pebble"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

const codeKeyPrefix = "pairing/code/"

type code struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Payload   Payload   `json:"payload"`

	// redeemed is the Created→Redeemed state bit. Only CompareAndSwap moves
	// it forward; a failed token issuance moves it back.
	redeemed atomic.Bool
}

type codeRecord struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Redeemed  bool      `json:"redeemed"`
	Payload   Payload   `json:"payload"`
}

// Options configures a pairing Service.
type Options struct {
	// CodeTTL is the redeemable window for new codes. Defaults to
	// DefaultCodeTTL.
	CodeTTL time.Duration
	// DefaultLifespanDays applies when a create request omits lifespan_days.
	DefaultLifespanDays int
	// HomeAssistantURL is embedded into every code's payload.
	HomeAssistantURL string
}

// Service manages the pairing code lifecycle.
type Service struct {
	mu    sync.RWMutex
	codes map[string]*code

	db      *pebblestore.DB
	issuer  auth.TokenIssuer
	logger  logpkg.Logger
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time
}

// New returns a Service. db may be nil for a purely in-memory store; when
// set, unredeemed codes survive a restart. logger and m may be nil.
func New(db *pebblestore.DB, issuer auth.TokenIssuer, opts Options, logger logpkg.Logger, m *metrics.Metrics) (*Service, error) {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("pairing"))
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = DefaultCodeTTL
	}
	if opts.DefaultLifespanDays <= 0 {
		opts.DefaultLifespanDays = auth.DefaultLifespanDays
	}
	s := &Service{
		codes:   make(map[string]*code),
		db:      db,
		issuer:  issuer,
		logger:  logger,
		metrics: m,
		opts:    opts,
		now:     time.Now,
	}
	if db != nil {
		if err := s.loadCodes(); err != nil {
			return nil, fmt.Errorf("load pairing codes: %w", err)
		}
	}
	return s, nil
}

func (s *Service) loadCodes() error {
	iter, err := s.db.PrefixIter([]byte(codeKeyPrefix))
	if err != nil {
		return err
	}
	defer iter.Close()

	now := s.now()
	for iter.First(); iter.Valid(); iter.Next() {
		var rec codeRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			s.logger.Warn("skipping corrupt pairing record",
				logpkg.Str("key", string(iter.Key())), logpkg.Err(err))
			continue
		}
		if now.After(rec.ExpiresAt) {
			continue
		}
		c := &code{Code: rec.Code, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt, Payload: rec.Payload}
		c.redeemed.Store(rec.Redeemed)
		s.codes[rec.Code] = c
	}
	return iter.Error()
}

// Create issues a new single-use pairing code.
func (s *Service) Create(ctx context.Context, localURL, remoteURL string, lifespanDays int) (CreateResult, error) {
	if lifespanDays <= 0 {
		lifespanDays = s.opts.DefaultLifespanDays
	}
	now := s.now()
	c := &code{
		Code:      uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.CodeTTL),
		Payload: Payload{
			HomeAssistantURL: s.opts.HomeAssistantURL,
			LocalURL:         localURL,
			RemoteURL:        remoteURL,
			LifespanDays:     lifespanDays,
		},
	}

	s.mu.Lock()
	s.codes[c.Code] = c
	s.mu.Unlock()

	if err := s.persist(ctx, c); err != nil {
		s.mu.Lock()
		delete(s.codes, c.Code)
		s.mu.Unlock()
		return CreateResult{}, err
	}

	if s.metrics != nil {
		s.metrics.PairingCreated.Inc()
	}
	s.logger.Info("pairing code created",
		logpkg.Str("code", c.Code[:8]),
		logpkg.Time("expires_at", c.ExpiresAt))

	return CreateResult{
		Code:         c.Code,
		URI:          pairingURI(c),
		ExpiresAt:    c.ExpiresAt,
		LifespanDays: lifespanDays,
		Payload:      c.Payload,
	}, nil
}

// Redeem exchanges an unexpired, unredeemed code for an access token.
// Exactly one of any set of concurrent calls for the same code succeeds.
func (s *Service) Redeem(ctx context.Context, codeStr string) (RedeemResult, error) {
	s.mu.RLock()
	c, ok := s.codes[codeStr]
	s.mu.RUnlock()
	if !ok {
		s.countRedeem(metrics.RedeemResultNotFound)
		return RedeemResult{}, ErrNotFound
	}

	if s.now().After(c.ExpiresAt) {
		s.drop(c.Code)
		s.countRedeem(metrics.RedeemResultExpired)
		return RedeemResult{}, ErrExpired
	}

	if !c.redeemed.CompareAndSwap(false, true) {
		s.countRedeem(metrics.RedeemResultAlreadyRedeemed)
		return RedeemResult{}, ErrAlreadyRedeemed
	}

	tok, err := s.issuer.Issue(ctx, c.Payload.LifespanDays)
	if err != nil {
		// Give the code back so the watch can retry.
		c.redeemed.Store(false)
		s.countRedeem(metrics.RedeemResultError)
		return RedeemResult{}, fmt.Errorf("issue token: %w", err)
	}

	if err := s.persist(ctx, c); err != nil {
		s.logger.Warn("persist redeemed code", logpkg.Err(err))
	}
	s.countRedeem(metrics.RedeemResultOK)
	s.logger.Info("pairing code redeemed", logpkg.Str("code", c.Code[:8]))

	return RedeemResult{
		AccessToken:      tok.AccessToken,
		TokenType:        tok.TokenType,
		AuthMode:         tok.AuthMode,
		ExpiresIn:        tok.ExpiresIn,
		HomeAssistantURL: c.Payload.HomeAssistantURL,
		LocalURL:         c.Payload.LocalURL,
		RemoteURL:        c.Payload.RemoteURL,
	}, nil
}

// Sweep drops expired codes. Correctness never depends on it; Redeem checks
// expiry itself. Returns the number removed.
func (s *Service) Sweep() int {
	now := s.now()
	s.mu.Lock()
	var expired []string
	for k, c := range s.codes {
		if now.After(c.ExpiresAt) {
			expired = append(expired, k)
			delete(s.codes, k)
		}
	}
	s.mu.Unlock()

	for _, k := range expired {
		s.deleteRecord(k)
	}
	if len(expired) > 0 {
		s.logger.Debug("swept expired pairing codes", logpkg.Int("count", len(expired)))
	}
	return len(expired)
}

// RunSweeper sweeps at the given interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

// ActiveCount reports how many codes are currently held, for diagnostics.
func (s *Service) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}

func (s *Service) drop(codeStr string) {
	s.mu.Lock()
	delete(s.codes, codeStr)
	s.mu.Unlock()
	s.deleteRecord(codeStr)
}

func (s *Service) persist(_ context.Context, c *code) error {
	if s.db == nil {
		return nil
	}
	rec, err := json.Marshal(codeRecord{
		Code:      c.Code,
		CreatedAt: c.CreatedAt,
		ExpiresAt: c.ExpiresAt,
		Redeemed:  c.redeemed.Load(),
		Payload:   c.Payload,
	})
	if err != nil {
		return err
	}
	return s.db.Set([]byte(codeKeyPrefix+c.Code), rec)
}

func (s *Service) deleteRecord(codeStr string) {
	if s.db == nil {
		return
	}
	if err := s.db.Delete([]byte(codeKeyPrefix + codeStr)); err != nil {
		s.logger.Warn("delete pairing record", logpkg.Err(err))
	}
}

func (s *Service) countRedeem(result string) {
	if s.metrics != nil {
		s.metrics.PairingRedemptions.WithLabelValues(result).Inc()
	}
}

func pairingURI(c *code) string {
	q := url.Values{}
	q.Set("code", c.Code)
	if c.Payload.LocalURL != "" {
		q.Set("local", c.Payload.LocalURL)
	}
	if c.Payload.RemoteURL != "" {
		q.Set("remote", c.Payload.RemoteURL)
	}
	return "wrist-assistant://pair?" + q.Encode()
}
