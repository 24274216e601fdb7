package domain

// ChatMessage a message as it crosses the relay and as it is persisted
type ChatMessage struct {
	ID        string `bson:"id" json:"id"`
	RoomID    string `bson:"room_id" json:"room_id"`
	SenderID  string `bson:"sender_id" json:"sender_id"`
	Content   string `bson:"content" json:"content"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
	Read      bool   `bson:"read" json:"read"`
}

// RoomType definition chat room type
type RoomType string

const (
	//RoomTypePrivate definition chat room 1 on 1
	RoomTypePrivate RoomType = "private"
	//RoomTypeGroup definition chat room group
	RoomTypeGroup RoomType = "group"
)

// Room durable room record, owned by the external store
type Room struct {
	ID        string   `bson:"_id,omitempty" json:"id"`
	Name      string   `bson:"name,omitempty" json:"name"`
	RoomType  RoomType `bson:"room_type" json:"room_type"`
	Members   []string `bson:"members,omitempty" json:"members"`
	CreatedAt int64    `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt int64    `bson:"updated_at,omitempty" json:"updated_at"`
}
