package app

import (
	"context"
	"sync"

	"chat_relay_service/internal/relay/domain"

	"github.com/stretchr/testify/mock"
)

// recordSink collects every envelope fanned out to a connection
type recordSink struct {
	mu     sync.Mutex
	events []domain.Envelope
}

func (s *recordSink) Send(evt domain.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

// Events snapshot of everything received so far
func (s *recordSink) Events() []domain.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Envelope, len(s.events))
	copy(out, s.events)
	return out
}

// ByEvent received envelopes of one kind
func (s *recordSink) ByEvent(name domain.EventName) []domain.Envelope {
	var out []domain.Envelope
	for _, evt := range s.Events() {
		if evt.Event == name {
			out = append(out, evt)
		}
	}
	return out
}

// MockMessageStore Mock MessageStore
type MockMessageStore struct {
	mock.Mock
}

// SaveMessage mock save message
func (m *MockMessageStore) SaveMessage(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// GetMessagesByRoom mock fetch room history
func (m *MockMessageStore) GetMessagesByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock mark room read
func (m *MockMessageStore) MarkRead(ctx context.Context, roomID, readerID string) error {
	args := m.Called(ctx, roomID, readerID)
	return args.Error(0)
}

// MockRoomStore Mock RoomStore
type MockRoomStore struct {
	mock.Mock
}

// CreateRoom mock create room
func (m *MockRoomStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

// FindByID mock find room by id
func (m *MockRoomStore) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// GetRoomsForUser mock rooms of a user
func (m *MockRoomStore) GetRoomsForUser(ctx context.Context, userID string) ([]domain.Room, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// AddMember mock append participant
func (m *MockRoomStore) AddMember(ctx context.Context, roomID, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

// MockContactStore Mock ContactStore
type MockContactStore struct {
	mock.Mock
}

// FindContacts mock contact lookup
func (m *MockContactStore) FindContacts(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageArchive Mock MessageArchive
type MockMessageArchive struct {
	mock.Mock
}

// Publish mock archive publish
func (m *MockMessageArchive) Publish(ctx context.Context, msg domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
