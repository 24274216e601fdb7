package app

// MembershipTable maps rooms to live connections and back. Entries exist
// only while the underlying connection is live; disconnect cleanup runs
// together with registry cleanup as one step on the relay loop, so
// MembersOf never returns stale connections.
type MembershipTable struct {
	byRoom map[string]map[string]struct{}
	byConn map[string]map[string]struct{}
}

// NewMembershipTable create an empty table
func NewMembershipTable() *MembershipTable {
	return &MembershipTable{
		byRoom: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join add the connection to the room. Idempotent; reports whether the
// membership is new.
func (m *MembershipTable) Join(roomID, connID string) bool {
	conns, ok := m.byRoom[roomID]
	if !ok {
		conns = make(map[string]struct{})
		m.byRoom[roomID] = conns
	}
	if _, ok := conns[connID]; ok {
		return false
	}
	conns[connID] = struct{}{}

	rooms, ok := m.byConn[connID]
	if !ok {
		rooms = make(map[string]struct{})
		m.byConn[connID] = rooms
	}
	rooms[roomID] = struct{}{}
	return true
}

// Leave remove the connection from the room. Removing a non-member is a
// no-op; reports whether anything was removed.
func (m *MembershipTable) Leave(roomID, connID string) bool {
	conns, ok := m.byRoom[roomID]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(m.byRoom, roomID)
	}

	rooms := m.byConn[connID]
	delete(rooms, roomID)
	if len(rooms) == 0 {
		delete(m.byConn, connID)
	}
	return true
}

// LeaveAll remove the connection from every room it joined, used on
// disconnect. Returns the rooms it was removed from so the caller can
// notify remaining members.
func (m *MembershipTable) LeaveAll(connID string) []string {
	rooms, ok := m.byConn[connID]
	if !ok {
		return nil
	}
	left := make([]string, 0, len(rooms))
	for roomID := range rooms {
		left = append(left, roomID)
		conns := m.byRoom[roomID]
		delete(conns, connID)
		if len(conns) == 0 {
			delete(m.byRoom, roomID)
		}
	}
	delete(m.byConn, connID)
	return left
}

// MembersOf live connection ids of the room
func (m *MembershipTable) MembersOf(roomID string) []string {
	conns := m.byRoom[roomID]
	if len(conns) == 0 {
		return nil
	}
	out := make([]string, 0, len(conns))
	for connID := range conns {
		out = append(out, connID)
	}
	return out
}

// RoomsOf rooms the connection currently belongs to
func (m *MembershipTable) RoomsOf(connID string) []string {
	rooms := m.byConn[connID]
	if len(rooms) == 0 {
		return nil
	}
	out := make([]string, 0, len(rooms))
	for roomID := range rooms {
		out = append(out, roomID)
	}
	return out
}

// IsMember whether the connection joined the room
func (m *MembershipTable) IsMember(roomID, connID string) bool {
	_, ok := m.byRoom[roomID][connID]
	return ok
}
