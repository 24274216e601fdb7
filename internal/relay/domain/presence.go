package domain

// PresenceScope decides who hears about online/offline transitions
type PresenceScope string

const (
	//PresenceScopeRooms broadcast to the rooms the user belongs to
	PresenceScopeRooms PresenceScope = "rooms"
	//PresenceScopeContacts broadcast to every live connection of each contact
	PresenceScopeContacts PresenceScope = "contacts"
)

// TypingState ephemeral per (room, user), superseded by each new signal
type TypingState struct {
	IsTyping      bool
	LastUpdatedAt int64
}

// Session a live authenticated session, kept in redis with a TTL
type Session struct {
	Token        string `json:"token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	CreatedAt    int64  `json:"created_at"`
	LastActivity int64  `json:"last_activity"`
}
