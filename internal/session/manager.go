package session

import "sync"

// Manager keeps at most one live session per transport, rebinding it as the
// selected peer changes. This is the multi-peer dashboard pattern: switching
// patients tears the previous room down before the next one opens, never two
// rooms on one connection.
type Manager struct {
	mu      sync.Mutex
	base    Config
	current *Session
}

// NewManager builds a manager from a base config; PeerID is supplied per Bind.
func NewManager(base Config) *Manager {
	return &Manager{base: base}
}

// Bind opens a session for the peer, first closing any session bound to a
// different peer. Binding the already-bound peer returns the live session.
func (m *Manager) Bind(peerID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if m.current.Peer() == peerID && m.current.State() != Disconnected {
			return m.current, nil
		}
		_ = m.current.Close()
		m.current = nil
	}

	cfg := m.base
	cfg.PeerID = peerID
	s, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	m.current = s
	return s, nil
}

// Current returns the bound session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close tears down the bound session, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}
