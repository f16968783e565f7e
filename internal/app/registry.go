package app

import (
	"context"
	"errors"
	"sync"
)

// ErrScopeNotFound means the scope is not one of the configured
// conversational variants.
var ErrScopeNotFound = errors.New("unknown conversational scope")

// ManagerSet hands out one SessionManager per configured scope, restoring a
// scope's history from the store the first time it is requested.
type ManagerSet struct {
	scopes  map[string]bool
	factory func(scope string) *SessionManager

	mu       sync.Mutex
	managers map[string]*SessionManager
}

func NewManagerSet(scopes []string, factory func(scope string) *SessionManager) *ManagerSet {
	allowed := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		allowed[s] = true
	}
	return &ManagerSet{
		scopes:   allowed,
		factory:  factory,
		managers: make(map[string]*SessionManager),
	}
}

// Get returns the manager for the scope, creating and restoring it on first
// use.
func (s *ManagerSet) Get(ctx context.Context, scope string) (*SessionManager, error) {
	if !s.scopes[scope] {
		return nil, ErrScopeNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	manager, ok := s.managers[scope]
	if !ok {
		manager = s.factory(scope)
		manager.Restore(ctx)
		s.managers[scope] = manager
	}
	return manager, nil
}

// Scopes lists the configured scope keys.
func (s *ManagerSet) Scopes() []string {
	keys := make([]string, 0, len(s.scopes))
	for k := range s.scopes {
		keys = append(keys, k)
	}
	return keys
}
