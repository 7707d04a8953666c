// Package session owns the credential lifecycle: the atomically updated
// token store, the scheduled refresher, the join flow, and conference
// transfers.
package session

import (
	"sync/atomic"

	"github.com/openvc/confclient/internal/domain"
)

// Store holds the current session credential. It is the only piece of
// state in the engine mutated from more than one task, so updates are
// compare-and-retry: a concurrent refresh and an external token-bearing
// response never silently lose each other's write.
type Store struct {
	current atomic.Pointer[domain.Token]
}

func NewStore(initial domain.Token) *Store {
	s := &Store{}
	s.current.Store(&initial)
	return s
}

func (s *Store) Get() domain.Token {
	return *s.current.Load()
}

// Update installs f(current), retrying on conflict until it sticks, and
// returns the installed token. f must be pure: it can run more than once.
func (s *Store) Update(f func(domain.Token) domain.Token) domain.Token {
	for {
		old := s.current.Load()
		next := f(*old)
		if s.current.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// TokenValue implements protocol.TokenSource.
func (s *Store) TokenValue() string {
	return s.current.Load().Value
}
