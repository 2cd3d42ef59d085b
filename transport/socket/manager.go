package socket

import (
	"context"
	"sync"
)

// Manager owns the process's one connection. It is constructed explicitly
// at the application root and passed to whatever needs the socket; there is
// no ambient global lookup.
type Manager struct {
	opts Options

	mu   sync.Mutex
	conn *Conn
}

// NewManager returns a manager for the given endpoint. The Token field of
// opts is ignored; the credential is supplied per Connect.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts}
}

// Connect establishes the connection, or returns the live one if it
// already exists. An empty token is not an error: it yields a nil handle,
// which turns every dependent operation into a no-op.
func (m *Manager) Connect(ctx context.Context, token string) (*Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && !m.conn.Closed() {
		return m.conn, nil
	}
	if token == "" {
		return nil, nil
	}

	opts := m.opts
	opts.Token = token
	conn, err := Dial(ctx, opts)
	if err != nil {
		return nil, err
	}
	m.conn = conn
	return conn, nil
}

// Conn returns the live connection, or nil if there is none.
func (m *Manager) Conn() *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.conn.Closed() {
		return nil
	}
	return m.conn
}

// Disconnect tears down the connection and clears it, so a subsequent
// Connect dials fresh.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}
