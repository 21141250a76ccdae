// Package session holds the per-user mirror of last-known gateway reads:
// transaction lists by month and display preferences. The mirror is a
// best-effort fallback surface, never authoritative. It is populated on
// successful gateway reads and dropped wholesale on logout.
package session

import (
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/gateway"
)

type Store struct {
	mu   sync.Mutex
	keys map[string][]string // userID -> cache keys, for logout invalidation

	months   *cache.LRUCache[[]core.Transaction]
	settings *cache.LRUCache[gateway.Settings]
}

func NewStore(maxEntries int, ttl time.Duration) *Store {
	return &Store{
		keys:     make(map[string][]string),
		months:   cache.NewLRUCache[[]core.Transaction](maxEntries, ttl),
		settings: cache.NewLRUCache[gateway.Settings](maxEntries, ttl),
	}
}

func monthKey(userID string, m core.Month) string {
	return userID + "/" + m.String()
}

// PutMonth records the last-known transaction list for a user's month.
func (s *Store) PutMonth(userID string, m core.Month, txs []core.Transaction) {
	key := monthKey(userID, m)
	s.track(userID, key)
	s.months.Set(key, append([]core.Transaction(nil), txs...))
}

// Month returns the mirrored transaction list, if still present.
func (s *Store) Month(userID string, m core.Month) ([]core.Transaction, bool) {
	return s.months.Get(monthKey(userID, m))
}

// DropMonth evicts a single month mirror, used after a mutation so the next
// read refreshes from the gateway. The key is untracked too, so the per-user
// key list does not grow with every month ever mirrored.
func (s *Store) DropMonth(userID string, m core.Month) {
	key := monthKey(userID, m)
	s.untrack(userID, key)
	s.months.Delete(key)
}

// PutSettings records the last-known display preferences.
func (s *Store) PutSettings(userID string, prefs gateway.Settings) {
	s.track(userID, userID)
	s.settings.Set(userID, prefs)
}

// Settings returns the mirrored preferences, if still present.
func (s *Store) Settings(userID string) (gateway.Settings, bool) {
	return s.settings.Get(userID)
}

// Invalidate drops everything mirrored for a user. Called on logout.
func (s *Store) Invalidate(userID string) {
	s.mu.Lock()
	keys := s.keys[userID]
	delete(s.keys, userID)
	s.mu.Unlock()

	for _, key := range keys {
		s.months.Delete(key)
	}
	s.settings.Delete(userID)
}

// CleanExpired implements cache.Cleaner for the cache manager.
func (s *Store) CleanExpired() int {
	return s.months.CleanExpired() + s.settings.CleanExpired()
}

func (s *Store) track(userID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys[userID] {
		if k == key {
			return
		}
	}
	s.keys[userID] = append(s.keys[userID], key)
}

func (s *Store) untrack(userID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.keys[userID]
	for i, k := range keys {
		if k == key {
			s.keys[userID] = append(keys[:i], keys[i+1:]...)
			if len(s.keys[userID]) == 0 {
				delete(s.keys, userID)
			}
			return
		}
	}
}
