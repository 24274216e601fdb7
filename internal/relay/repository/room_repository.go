package repository

import (
	"context"
	"errors"
	"time"

	"chat_relay_service/internal/relay/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrRoomNotFound room id does not exist in the store
var ErrRoomNotFound = errors.New("room not found")

// RoomStore durable room records and their participants
type RoomStore interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	FindByID(ctx context.Context, roomID string) (*domain.Room, error)
	// GetRoomsForUser rooms the user participates in
	GetRoomsForUser(ctx context.Context, userID string) ([]domain.Room, error)
	// AddMember idempotent append of a participant
	AddMember(ctx context.Context, roomID, userID string) error
}

type roomStore struct {
	coll *mongo.Collection
}

// NewMongoRoomStore create a RoomStore backed by the rooms collection
func NewMongoRoomStore(db *mongo.Database) RoomStore {
	return &roomStore{
		coll: db.Collection("rooms"),
	}
}

func (r *roomStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	room.CreatedAt = now
	room.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, room)
	return err
}

func (r *roomStore) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	filter := bson.M{"_id": roomID}
	var room domain.Room
	err := r.coll.FindOne(ctx, filter).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomStore) GetRoomsForUser(ctx context.Context, userID string) ([]domain.Room, error) {
	filter := bson.M{"members": userID}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	var rooms []domain.Room
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomStore) AddMember(ctx context.Context, roomID, userID string) error {
	filter := bson.M{"_id": roomID}
	update := bson.M{
		"$addToSet": bson.M{"members": userID},
		"$set":      bson.M{"updated_at": time.Now().Unix()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}
