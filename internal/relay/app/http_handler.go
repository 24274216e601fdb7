package app

import (
	"errors"
	"fmt"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"
	"chat_relay_service/pkg"
	errprocess "chat_relay_service/pkg/err"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HTTPHandler thin REST glue over the durable stores: room listing,
// creation and message history. The relay itself is not involved.
type HTTPHandler struct {
	msgStore  repository.MessageStore
	roomStore repository.RoomStore
}

// NewHTTPHandler create HTTPHandler
func NewHTTPHandler(msgStore repository.MessageStore, roomStore repository.RoomStore) *HTTPHandler {
	return &HTTPHandler{
		msgStore:  msgStore,
		roomStore: roomStore,
	}
}

// GetRooms list the rooms the authenticated user participates in
func (h *HTTPHandler) GetRooms(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)

	rooms, err := h.roomStore.GetRoomsForUser(c.Context(), userID)
	if err != nil {
		logger.Log.Errorf("get rooms failed:", err, zap.String("userID", userID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch rooms",
		})
	}
	return c.JSON(fiber.Map{"rooms": rooms})
}

type createRoomRequest struct {
	Name     string   `json:"name"`
	RoomType string   `json:"room_type"`
	Members  []string `json:"members"`
}

// CreateRoom create a durable room with the caller as first participant
func (h *HTTPHandler) CreateRoom(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)

	var req createRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed body",
		})
	}

	roomType := domain.RoomType(req.RoomType)
	if roomType != domain.RoomTypePrivate && roomType != domain.RoomTypeGroup {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "room_type must be private or group",
		})
	}

	members := req.Members
	if !pkg.Contains(members, userID) {
		members = append(members, userID)
	}

	room := domain.Room{
		Name:     req.Name,
		RoomType: roomType,
		Members:  members,
	}
	if err := h.roomStore.CreateRoom(c.Context(), &room); err != nil {
		logger.Log.Errorf("create room failed:", err, zap.String("userID", userID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create room",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// JoinRoom append the caller to a room's participants
func (h *HTTPHandler) JoinRoom(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	roomID := c.Params("id")

	if err := h.roomStore.AddMember(c.Context(), roomID, userID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "room not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": errprocess.Set(fmt.Sprintf("add member %s to room %s: %v", userID, roomID, err)).Error(),
		})
	}
	return c.JSON(fiber.Map{"room_id": roomID, "user_id": userID})
}

// GetRoomMessages message history of a room, ascending timestamp
func (h *HTTPHandler) GetRoomMessages(c *fiber.Ctx) error {
	roomID := c.Params("id")

	if _, err := h.roomStore.FindByID(c.Context(), roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "room not found",
			})
		}
		logger.Log.Errorf("find room failed:", err, zap.String("roomID", roomID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch room",
		})
	}

	messages, err := h.msgStore.GetMessagesByRoom(c.Context(), roomID)
	if err != nil {
		logger.Log.Errorf("get messages failed:", err, zap.String("roomID", roomID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch messages",
		})
	}
	return c.JSON(fiber.Map{"messages": messages})
}
