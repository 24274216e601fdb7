package repository

import (
	"context"

	"chat_relay_service/internal/relay/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageStore durable message CRUD. The relay never blocks fan-out on
// these calls; a failed save is logged and the sender gets a best-effort
// notice.
type MessageStore interface {
	// SaveMessage insert one relayed message
	SaveMessage(ctx context.Context, msg *domain.ChatMessage) error
	// GetMessagesByRoom fetch a room's messages, ascending timestamp
	GetMessagesByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error)
	// MarkRead flag every message in the room not sent by the reader as read
	MarkRead(ctx context.Context, roomID, readerID string) error
}

type messageStore struct {
	coll *mongo.Collection
}

// NewMongoMessageStore create a MessageStore backed by the messages collection
func NewMongoMessageStore(db *mongo.Database) MessageStore {
	return &messageStore{
		coll: db.Collection("messages"),
	}
}

func (r *messageStore) SaveMessage(ctx context.Context, msg *domain.ChatMessage) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageStore) GetMessagesByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	filter := bson.M{"room_id": roomID}
	opts := options.Find()
	opts.SetSort(bson.M{"timestamp": 1})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var messages []domain.ChatMessage
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageStore) MarkRead(ctx context.Context, roomID, readerID string) error {
	filter := bson.M{
		"room_id":   roomID,
		"sender_id": bson.M{"$ne": readerID},
		"read":      false,
	}
	update := bson.M{"$set": bson.M{"read": true}}
	_, err := r.coll.UpdateMany(ctx, filter, update)
	return err
}
