package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"
	"chat_relay_service/pkg/middlewares"
	"chat_relay_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestAPI(t *testing.T, msgStore *MockMessageStore, roomStore *MockRoomStore) *fiber.App {
	t.Helper()
	api := NewHTTPHandler(msgStore, roomStore)

	r := fiber.New()
	r.Use(middlewares.JWTMiddleware())
	r.Get("/rooms", api.GetRooms)
	r.Post("/rooms", api.CreateRoom)
	r.Post("/rooms/:id/members", api.JoinRoom)
	r.Get("/rooms/:id/messages", api.GetRoomMessages)
	return r
}

func authToken(t *testing.T, userID, username string) string {
	t.Helper()
	tok, err := token.GenerateJWT(userID, username, "relay-test")
	assert.NoError(t, err)
	return tok
}

func TestGetRooms(t *testing.T) {
	msgStore := new(MockMessageStore)
	roomStore := new(MockRoomStore)
	roomStore.On("GetRoomsForUser", mock.Anything, "user-a").Return([]domain.Room{
		{ID: "room-1", Name: "general", RoomType: domain.RoomTypeGroup, Members: []string{"user-a", "user-b"}},
	}, nil)

	r := newTestAPI(t, msgStore, roomStore)
	req := httptest.NewRequest("GET", "/rooms?auth="+authToken(t, "user-a", "alice"), nil)

	resp, err := r.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Rooms []domain.Room `json:"rooms"`
	}
	raw, _ := io.ReadAll(resp.Body)
	assert.NoError(t, json.Unmarshal(raw, &body))
	assert.Len(t, body.Rooms, 1)
	assert.Equal(t, "general", body.Rooms[0].Name)
}

func TestGetRooms_MissingToken(t *testing.T) {
	r := newTestAPI(t, new(MockMessageStore), new(MockRoomStore))
	req := httptest.NewRequest("GET", "/rooms", nil)

	resp, err := r.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateRoom_CallerAlwaysMember(t *testing.T) {
	msgStore := new(MockMessageStore)
	roomStore := new(MockRoomStore)
	roomStore.On("CreateRoom", mock.Anything, mock.MatchedBy(func(room *domain.Room) bool {
		for _, m := range room.Members {
			if m == "user-a" {
				return true
			}
		}
		return false
	})).Return(nil)

	r := newTestAPI(t, msgStore, roomStore)
	payload, _ := json.Marshal(map[string]interface{}{
		"name":      "general",
		"room_type": "group",
		"members":   []string{"user-b"},
	})
	req := httptest.NewRequest("POST", "/rooms?auth="+authToken(t, "user-a", "alice"), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	roomStore.AssertExpectations(t)
}

func TestCreateRoom_RejectsUnknownRoomType(t *testing.T) {
	r := newTestAPI(t, new(MockMessageStore), new(MockRoomStore))
	payload, _ := json.Marshal(map[string]interface{}{
		"name":      "general",
		"room_type": "broadcast",
	})
	req := httptest.NewRequest("POST", "/rooms?auth="+authToken(t, "user-a", "alice"), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJoinRoomEndpoint(t *testing.T) {
	roomStore := new(MockRoomStore)
	roomStore.On("AddMember", mock.Anything, "room-1", "user-a").Return(nil)

	r := newTestAPI(t, new(MockMessageStore), roomStore)
	req := httptest.NewRequest("POST", "/rooms/room-1/members?auth="+authToken(t, "user-a", "alice"), nil)

	resp, err := r.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	roomStore.AssertExpectations(t)
}

func TestJoinRoomEndpoint_UnknownRoom(t *testing.T) {
	roomStore := new(MockRoomStore)
	roomStore.On("AddMember", mock.Anything, "missing", "user-a").Return(repository.ErrRoomNotFound)

	r := newTestAPI(t, new(MockMessageStore), roomStore)
	req := httptest.NewRequest("POST", "/rooms/missing/members?auth="+authToken(t, "user-a", "alice"), nil)

	resp, err := r.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetRoomMessages(t *testing.T) {
	msgStore := new(MockMessageStore)
	roomStore := new(MockRoomStore)
	roomStore.On("FindByID", mock.Anything, "room-1").Return(&domain.Room{
		ID: "room-1", Name: "general", RoomType: domain.RoomTypeGroup,
	}, nil)
	msgStore.On("GetMessagesByRoom", mock.Anything, "room-1").Return([]domain.ChatMessage{
		{ID: "m1", RoomID: "room-1", SenderID: "user-a", Content: "hi", Timestamp: 1},
		{ID: "m2", RoomID: "room-1", SenderID: "user-b", Content: "hello", Timestamp: 2},
	}, nil)

	r := newTestAPI(t, msgStore, roomStore)
	req := httptest.NewRequest("GET", "/rooms/room-1/messages?auth="+authToken(t, "user-a", "alice"), nil)

	resp, err := r.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	raw, _ := io.ReadAll(resp.Body)
	assert.NoError(t, json.Unmarshal(raw, &body))
	assert.Len(t, body.Messages, 2)
	assert.Equal(t, "hi", body.Messages[0].Content)
}
