package app

import (
	"errors"

	"chat_relay_service/internal/relay/domain"
)

// ErrDuplicateConnection a live connection id was registered twice. With
// transport-assigned ids this should be unreachable; it is treated as an
// invariant violation for that connection's path, not a recoverable error.
var ErrDuplicateConnection = errors.New("duplicate connection id")

// Connection one live transport session bound to a verified user.
// A user may hold several connections at once (multi-device).
type Connection struct {
	ID       string
	UserID   string
	Username string
	Sink     domain.EventSink
}

// ConnectionRegistry maps connection id to user and back. It holds no
// lock: it is owned and mutated only by the relay event loop.
type ConnectionRegistry struct {
	byConn map[string]*Connection
	byUser map[string]map[string]*Connection
}

// NewConnectionRegistry create an empty registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byConn: make(map[string]*Connection),
		byUser: make(map[string]map[string]*Connection),
	}
}

// Register add a live connection, fails on id reuse
func (r *ConnectionRegistry) Register(conn *Connection) error {
	if _, ok := r.byConn[conn.ID]; ok {
		return ErrDuplicateConnection
	}
	r.byConn[conn.ID] = conn

	conns, ok := r.byUser[conn.UserID]
	if !ok {
		conns = make(map[string]*Connection)
		r.byUser[conn.UserID] = conns
	}
	conns[conn.ID] = conn
	return nil
}

// Unregister remove a connection. Reports the removed connection and
// whether it was the user's last live one (the presence edge).
func (r *ConnectionRegistry) Unregister(connID string) (*Connection, bool, bool) {
	conn, ok := r.byConn[connID]
	if !ok {
		return nil, false, false
	}
	delete(r.byConn, connID)

	conns := r.byUser[conn.UserID]
	delete(conns, connID)
	last := len(conns) == 0
	if last {
		delete(r.byUser, conn.UserID)
	}
	return conn, last, true
}

// Get look up a live connection by id
func (r *ConnectionRegistry) Get(connID string) (*Connection, bool) {
	conn, ok := r.byConn[connID]
	return conn, ok
}

// ConnectionsOf every live connection of the user, used to reach all of
// a user's devices at once
func (r *ConnectionRegistry) ConnectionsOf(userID string) []*Connection {
	conns := r.byUser[userID]
	if len(conns) == 0 {
		return nil
	}
	out := make([]*Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}
