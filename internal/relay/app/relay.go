package app

import (
	"context"
	"time"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"
	"chat_relay_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const storeCallTimeout = 10 * time.Second

// Relay is the room-scoped event relay. It owns the connection registry,
// the membership table and the ephemeral typing state for the lifetime of
// the process, and routes every inbound event through a single event loop:
// per-connection FIFO order is preserved end to end and no handler ever
// observes a half-applied membership mutation.
//
// Persistence (message save, mark read, archive publish) is detached from
// fan-out: peers can receive a message before, or even if, the durable
// write fails.
type Relay struct {
	registry   *ConnectionRegistry
	membership *MembershipTable
	presence   *PresenceTracker
	typing     map[string]domain.TypingState

	msgStore repository.MessageStore
	archive  repository.MessageArchive

	tasks chan func()
}

// NewRelay create a relay. archive may be nil when no side channel is
// configured.
func NewRelay(msgStore repository.MessageStore, archive repository.MessageArchive, presence *PresenceTracker) *Relay {
	r := &Relay{
		registry:   NewConnectionRegistry(),
		membership: NewMembershipTable(),
		presence:   presence,
		typing:     make(map[string]domain.TypingState),
		msgStore:   msgStore,
		archive:    archive,
		tasks:      make(chan func(), 1024),
	}
	presence.out = r
	return r
}

// Run drains the event loop until ctx is done. All registry and
// membership mutation happens on this goroutine.
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case f := <-r.tasks:
			f()
		case <-ctx.Done():
			return
		}
	}
}

// do runs f on the loop and waits for it. Each gateway read goroutine
// submits its connection's events serially, so per-connection order
// survives the hop.
func (r *Relay) do(f func()) {
	done := make(chan struct{})
	r.tasks <- func() {
		defer close(done)
		f()
	}
	<-done
}

// schedule runs f on the loop without waiting. Only called from detached
// goroutines, never from the loop itself.
func (r *Relay) schedule(f func()) {
	r.tasks <- f
}

// Connect register a freshly authenticated connection and fire the
// presence online edge if it is the user's first.
func (r *Relay) Connect(conn *Connection) error {
	var err error
	r.do(func() {
		if regErr := r.registry.Register(conn); regErr != nil {
			// Invariant violation: fatal to this connection only.
			logger.Log.Error("connection register failed",
				zap.String("connID", conn.ID),
				zap.String("userID", conn.UserID),
				zap.Error(regErr),
			)
			err = regErr
			return
		}
		if len(r.registry.ConnectionsOf(conn.UserID)) == 1 {
			r.presence.Transition(conn.UserID, true, r.roomsOfUser(conn.UserID))
		}
	})
	return err
}

// Disconnect tear down a connection: leave every room, notify remaining
// members, unregister and fire the presence offline edge on the user's
// last connection. The gateway calls this exactly once per connection.
func (r *Relay) Disconnect(connID string) {
	r.do(func() {
		conn, ok := r.registry.Get(connID)
		if !ok {
			return
		}

		rooms := r.membership.LeaveAll(connID)
		for _, roomID := range rooms {
			delete(r.typing, typingKey(roomID, conn.UserID))
			r.fanToRoom(roomID, "", domain.Envelope{
				Event:   domain.RoomUpdate,
				Payload: domain.RoomNotice{RoomID: roomID, Members: r.liveMembers(roomID)},
			})
		}

		_, last, _ := r.registry.Unregister(connID)
		if last {
			r.presence.Transition(conn.UserID, false, rooms)
		}
	})
}

// JoinRoom add the connection to the room and tell the room about its
// new member. Joining twice is a no-op.
func (r *Relay) JoinRoom(connID, roomID string) {
	r.do(func() {
		if _, ok := r.registry.Get(connID); !ok {
			return
		}
		if !r.membership.Join(roomID, connID) {
			return
		}
		r.fanToRoom(roomID, "", domain.Envelope{
			Event:   domain.RoomUpdate,
			Payload: domain.RoomNotice{RoomID: roomID, Members: r.liveMembers(roomID)},
		})
	})
}

// LeaveRoom explicit removal, the mirror of JoinRoom
func (r *Relay) LeaveRoom(connID, roomID string) {
	r.do(func() {
		conn, ok := r.registry.Get(connID)
		if !ok {
			return
		}
		if !r.membership.Leave(roomID, connID) {
			return
		}
		delete(r.typing, typingKey(roomID, conn.UserID))
		r.fanToRoom(roomID, "", domain.Envelope{
			Event:   domain.RoomUpdate,
			Payload: domain.RoomNotice{RoomID: roomID, Members: r.liveMembers(roomID)},
		})
	})
}

// SendMessage relay a message to the other members of the room. Senders
// that never joined the room are dropped silently (membership here is a
// routing table, not an authorization boundary). The durable write and
// the archive publish run detached.
func (r *Relay) SendMessage(connID, roomID, content string) {
	r.do(func() {
		conn, ok := r.registry.Get(connID)
		if !ok {
			return
		}
		if !r.membership.IsMember(roomID, connID) {
			logger.Log.Debug("drop send_message from non-member",
				zap.String("connID", connID),
				zap.String("roomID", roomID),
			)
			return
		}

		msg := domain.ChatMessage{
			ID:        uuid.New().String(),
			RoomID:    roomID,
			SenderID:  conn.UserID,
			Content:   content,
			Timestamp: time.Now().Unix(),
		}

		r.fanToRoom(roomID, connID, domain.Envelope{
			Event:   domain.ReceiveMessage,
			Payload: msg,
		})

		r.persistMessage(connID, msg)
	})
}

// Typing relay a typing signal to the other members of the room. Same
// silent-drop policy as SendMessage; nothing is persisted.
func (r *Relay) Typing(connID, roomID string, isTyping bool) {
	r.do(func() {
		conn, ok := r.registry.Get(connID)
		if !ok {
			return
		}
		if !r.membership.IsMember(roomID, connID) {
			logger.Log.Debug("drop typing from non-member",
				zap.String("connID", connID),
				zap.String("roomID", roomID),
			)
			return
		}

		r.typing[typingKey(roomID, conn.UserID)] = domain.TypingState{
			IsTyping:      isTyping,
			LastUpdatedAt: time.Now().Unix(),
		}

		r.fanToRoom(roomID, connID, domain.Envelope{
			Event: domain.UserTyping,
			Payload: domain.TypingNotice{
				RoomID:   roomID,
				UserID:   conn.UserID,
				Username: conn.Username,
				IsTyping: isTyping,
			},
		})
	})
}

// MarkRead flag the room read for the connection's user. The store call
// is detached; the read receipt goes to the room's other members.
func (r *Relay) MarkRead(connID, roomID string) {
	r.do(func() {
		conn, ok := r.registry.Get(connID)
		if !ok {
			return
		}
		if !r.membership.IsMember(roomID, connID) {
			return
		}

		userID := conn.UserID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), storeCallTimeout)
			defer cancel()
			if err := r.msgStore.MarkRead(ctx, roomID, userID); err != nil {
				logger.Log.Errorf("mark read failed:", err,
					zap.String("roomID", roomID),
					zap.String("userID", userID),
				)
			}
		}()

		r.fanToRoom(roomID, connID, domain.Envelope{
			Event:   domain.ReadReceipt,
			Payload: domain.ReadNotice{RoomID: roomID, UserID: userID},
		})
	})
}

// persistMessage detached durable write plus archive publish. On store
// failure the sender gets a best-effort message_not_saved notice; fan-out
// already happened and is never rolled back.
func (r *Relay) persistMessage(connID string, msg domain.ChatMessage) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeCallTimeout)
		defer cancel()

		if err := r.msgStore.SaveMessage(ctx, &msg); err != nil {
			logger.Log.Errorf("save message failed:", err,
				zap.String("roomID", msg.RoomID),
				zap.String("messageID", msg.ID),
			)
			r.schedule(func() {
				// The sender may already be gone; that is fine.
				if conn, ok := r.registry.Get(connID); ok {
					r.send(conn, domain.Envelope{
						Event:   domain.MessageNotSaved,
						Payload: domain.SaveFailedNotice{RoomID: msg.RoomID, MessageID: msg.ID},
					})
				}
			})
		}

		if r.archive != nil {
			if err := r.archive.Publish(ctx, msg); err != nil {
				logger.Log.Errorf("archive publish failed:", err,
					zap.String("messageID", msg.ID),
				)
			}
		}
	}()
}

// fanToRoom deliver evt to every member connection of the room except
// excludeConnID. A failed sink is logged and skipped; the transport's own
// disconnect detection removes it, not this path.
func (r *Relay) fanToRoom(roomID, excludeConnID string, evt domain.Envelope) {
	for _, connID := range r.membership.MembersOf(roomID) {
		if connID == excludeConnID {
			continue
		}
		conn, ok := r.registry.Get(connID)
		if !ok {
			continue
		}
		r.send(conn, evt)
	}
}

// fanToRooms deliver evt once per connection across a set of rooms,
// skipping the excluded user's own devices
func (r *Relay) fanToRooms(rooms []string, excludeUser string, evt domain.Envelope) {
	seen := make(map[string]struct{})
	for _, roomID := range rooms {
		for _, connID := range r.membership.MembersOf(roomID) {
			if _, dup := seen[connID]; dup {
				continue
			}
			seen[connID] = struct{}{}

			conn, ok := r.registry.Get(connID)
			if !ok || conn.UserID == excludeUser {
				continue
			}
			r.send(conn, evt)
		}
	}
}

// fanToUsers deliver evt to every live connection of each listed user
func (r *Relay) fanToUsers(userIDs []string, evt domain.Envelope) {
	for _, userID := range userIDs {
		for _, conn := range r.registry.ConnectionsOf(userID) {
			r.send(conn, evt)
		}
	}
}

func (r *Relay) send(conn *Connection, evt domain.Envelope) {
	if err := conn.Sink.Send(evt); err != nil {
		logger.Log.Warn("fan-out to connection failed",
			zap.String("connID", conn.ID),
			zap.String("event", string(evt.Event)),
			zap.Error(err),
		)
	}
}

// liveMembers distinct user ids of the room's live connections
func (r *Relay) liveMembers(roomID string) []string {
	seen := make(map[string]struct{})
	var users []string
	for _, connID := range r.membership.MembersOf(roomID) {
		conn, ok := r.registry.Get(connID)
		if !ok {
			continue
		}
		if _, dup := seen[conn.UserID]; dup {
			continue
		}
		seen[conn.UserID] = struct{}{}
		users = append(users, conn.UserID)
	}
	return users
}

// roomsOfUser union of the rooms of every connection the user holds
func (r *Relay) roomsOfUser(userID string) []string {
	seen := make(map[string]struct{})
	var rooms []string
	for _, conn := range r.registry.ConnectionsOf(userID) {
		for _, roomID := range r.membership.RoomsOf(conn.ID) {
			if _, dup := seen[roomID]; dup {
				continue
			}
			seen[roomID] = struct{}{}
			rooms = append(rooms, roomID)
		}
	}
	return rooms
}

func typingKey(roomID, userID string) string {
	return roomID + "|" + userID
}
