package router

import (
	"context"

	"chat_relay_service/internal/relay/app"
	"chat_relay_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes register the relay's routes. Health and swagger stay
// open; everything else sits behind the JWT middleware.
func RegisterRoutes(r *fiber.App, gateway *app.GatewayHandler, api *app.HTTPHandler) {
	r.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"message": "chat relay is running",
		})
	})
	r.Get("/swagger/*", swagger.HandlerDefault)

	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		gateway.HandleConnection(context.Background(), c)
	}))

	r.Get("/rooms", api.GetRooms)
	r.Post("/rooms", api.CreateRoom)
	r.Post("/rooms/:id/members", api.JoinRoom)
	r.Get("/rooms/:id/messages", api.GetRoomMessages)
}
