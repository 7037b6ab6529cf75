// Package session keeps one bank controller per browser session.
package session

import (
	"log"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"gdbank/internal/domain/bank"
)

// Factory builds the controller of a new session.
type Factory func(sessionID string) *bank.Controller

// Store is a bounded, expiring map from session id to controller. The least
// recently used session is dropped once the bound is reached.
type Store struct {
	mu      sync.Mutex
	cache   *expirable.LRU[string, *bank.Controller]
	factory Factory
}

func NewStore(size int, ttl time.Duration, factory Factory) *Store {
	onEvict := func(id string, _ *bank.Controller) {
		log.Printf("Session %s evicted", id)
	}
	return &Store{
		cache:   expirable.NewLRU[string, *bank.Controller](size, onEvict, ttl),
		factory: factory,
	}
}

// Get returns the controller of id, creating it when absent. created
// reports whether the caller should mount it.
func (s *Store) Get(id string) (c *bank.Controller, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache.Get(id); ok {
		return c, false
	}
	c = s.factory(id)
	s.cache.Add(id, c)
	return c, true
}

// Peek returns the controller of id without creating it or touching its
// recency.
func (s *Store) Peek(id string) (*bank.Controller, bool) {
	return s.cache.Peek(id)
}

// Each calls fn for every live session.
func (s *Store) Each(fn func(id string, c *bank.Controller)) {
	for _, id := range s.cache.Keys() {
		if c, ok := s.cache.Peek(id); ok {
			fn(id, c)
		}
	}
}

func (s *Store) Len() int {
	return s.cache.Len()
}
