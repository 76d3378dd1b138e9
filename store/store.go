package store

import (
	"sync"
	"time"

	"github.com/weiwangfds/love-agent/internal/profile"
)

// Store provides durable access to session state, facts, and embeddings.
type Store struct {
	profile *profile.Profile
	driver  Driver

	sessionCache *sessionCache

	// Per-session serialization of state mutations.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:       driver,
		profile:      profile,
		sessionCache: newSessionCache(256, 30*time.Minute),
		locks:        make(map[string]*sync.Mutex),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// sessionLock returns the mutex serializing mutations for a session.
func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[sessionID] = mu
	}
	return mu
}
