package domain

// Action websocket request action
type Action string

const (
	// JoinRoom websocket action join_room
	JoinRoom Action = "join_room"
	// LeaveRoom websocket action leave_room
	LeaveRoom Action = "leave_room"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// Typing websocket action typing
	Typing Action = "typing"
	// MarkRead websocket action mark_read
	MarkRead Action = "mark_read"
)

// EventName outbound websocket event name
type EventName string

const (
	// ReceiveMessage a chat message relayed to room members
	ReceiveMessage EventName = "receive_message"
	// UserTyping a typing signal relayed to room members
	UserTyping EventName = "user_typing"
	// OnlineStatus a presence transition
	OnlineStatus EventName = "online_status"
	// RoomUpdate room membership changed
	RoomUpdate EventName = "room_update"
	// ReadReceipt a member marked the room read
	ReadReceipt EventName = "read_receipt"
	// MessageNotSaved best-effort notice that the durable write failed
	MessageNotSaved EventName = "message_not_saved"
	// ErrorEvent malformed request notice
	ErrorEvent EventName = "error"
)

// WSRequest websocket request. The gateway validates the shape before
// anything reaches the relay core.
type WSRequest struct {
	Action   string `json:"action"`
	RoomID   string `json:"room_id"`
	Content  string `json:"content"`
	IsTyping bool   `json:"is_typing"`
}

// Envelope websocket response, the only shape written back to clients
type Envelope struct {
	Event   EventName   `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventSink is the outbound half of a live connection. The relay only
// ever pushes envelopes through it; delivery is best-effort.
type EventSink interface {
	Send(evt Envelope) error
}

// TypingNotice payload for user_typing
type TypingNotice struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// OnlineNotice payload for online_status
type OnlineNotice struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

// RoomNotice payload for room_update, carries the live member user ids
type RoomNotice struct {
	RoomID  string   `json:"room_id"`
	Members []string `json:"members"`
}

// ReadNotice payload for read_receipt
type ReadNotice struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// SaveFailedNotice payload for message_not_saved
type SaveFailedNotice struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}
