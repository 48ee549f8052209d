package session

import (
	"sync"
)

// State is the session lifecycle state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Invalidating
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Invalidating:
		return "invalidating"
	default:
		return "unauthenticated"
	}
}

// Manager owns the session state machine. Invalidation runs only through
// [Manager.BeginInvalidation], which admits exactly one caller per cycle,
// so double-invalidation cannot happen regardless of how many concurrent
// responses observe the same dead session.
type Manager struct {
	mu    sync.Mutex
	state State
}

// NewManager creates a manager in the Unauthenticated state.
func NewManager() *Manager {
	return &Manager{}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether a session is currently live.
func (m *Manager) Authenticated() bool {
	return m.State() == Authenticated
}

// BeginAuthentication transitions Unauthenticated → Authenticating.
// Returns false when the machine is in any other state.
func (m *Manager) BeginAuthentication() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Unauthenticated {
		return false
	}
	m.state = Authenticating
	return true
}

// CompleteAuthentication transitions Authenticating → Authenticated.
// Returns false when no authentication was in flight.
func (m *Manager) CompleteAuthentication() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticating {
		return false
	}
	m.state = Authenticated
	return true
}

// BeginInvalidation transitions into Invalidating and reports whether the
// caller won the transition. A false return means invalidation is already
// running (or the machine is already signed out) and the caller must do
// nothing.
func (m *Manager) BeginInvalidation() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case Invalidating, Unauthenticated:
		return false
	}
	m.state = Invalidating
	return true
}

// FinishInvalidation transitions Invalidating → Unauthenticated.
func (m *Manager) FinishInvalidation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Invalidating {
		m.state = Unauthenticated
	}
}
