package notify

import (
	"encoding/json"
	"fmt"
	"sync"

	pebblestore "github.com/NylonDiamond/wrist-assistant-hacs/internal/storage/pebble"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

const tokenKeyPrefix = "notify/token/"

const (
	DefaultPlatform    = "watchos"
	DefaultEnvironment = "production"
)

// TokenEntry is the stored push token for one watch.
type TokenEntry struct {
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
	Environment string `json:"environment"`
}

// TokenStore is a pebble-backed watch_id → device token map with an
// in-memory read path.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]TokenEntry

	db     *pebblestore.DB
	logger logpkg.Logger
}

// NewTokenStore loads existing registrations from db. db may be nil for an
// in-memory store.
func NewTokenStore(db *pebblestore.DB, logger logpkg.Logger) (*TokenStore, error) {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("notify"))
	}
	s := &TokenStore{tokens: make(map[string]TokenEntry), db: db, logger: logger}
	if db != nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("load notification tokens: %w", err)
		}
	}
	return s, nil
}

func (s *TokenStore) load() error {
	iter, err := s.db.PrefixIter([]byte(tokenKeyPrefix))
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var entry TokenEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			s.logger.Warn("skipping corrupt token record",
				logpkg.Str("key", string(iter.Key())), logpkg.Err(err))
			continue
		}
		watchID := string(iter.Key()[len(tokenKeyPrefix):])
		s.tokens[watchID] = entry
	}
	if err := iter.Error(); err != nil {
		return err
	}
	s.logger.Debug("loaded notification tokens", logpkg.Int("count", len(s.tokens)))
	return nil
}

// Register stores or updates the token for a watch. Re-registering an
// identical token is a no-op.
func (s *TokenStore) Register(watchID, deviceToken, platform, environment string) error {
	if platform == "" {
		platform = DefaultPlatform
	}
	if environment == "" {
		environment = DefaultEnvironment
	}
	entry := TokenEntry{DeviceToken: deviceToken, Platform: platform, Environment: environment}

	s.mu.Lock()
	if existing, ok := s.tokens[watchID]; ok && existing == entry {
		s.mu.Unlock()
		return nil
	}
	s.tokens[watchID] = entry
	s.mu.Unlock()

	if err := s.persist(watchID, entry); err != nil {
		return err
	}
	s.logger.Info("registered push token",
		logpkg.Str("watch_id", watchID),
		logpkg.Str("platform", platform),
		logpkg.Str("environment", environment))
	return nil
}

// Token returns the device token for a watch, or "" when unknown.
func (s *TokenStore) Token(watchID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[watchID].DeviceToken
}

// Entry returns the full record for a watch.
func (s *TokenStore) Entry(watchID string) (TokenEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tokens[watchID]
	return e, ok
}

// All returns a copy of every registration.
func (s *TokenStore) All() map[string]TokenEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]TokenEntry, len(s.tokens))
	for k, v := range s.tokens {
		out[k] = v
	}
	return out
}

// Remove drops a watch's registration. Unknown IDs are a no-op.
func (s *TokenStore) Remove(watchID string) error {
	s.mu.Lock()
	_, ok := s.tokens[watchID]
	delete(s.tokens, watchID)
	s.mu.Unlock()
	if !ok || s.db == nil {
		return nil
	}
	return s.db.Delete([]byte(tokenKeyPrefix + watchID))
}

// Count reports the number of registered watches.
func (s *TokenStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

func (s *TokenStore) persist(watchID string, entry TokenEntry) error {
	if s.db == nil {
		return nil
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Set([]byte(tokenKeyPrefix+watchID), raw)
}
