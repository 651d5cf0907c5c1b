package controller

import (
	interws "archelon-assistant-be/internal/websocket"

	"archelon-assistant-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type INotificationController interface {
	RegisterRoutes(r fiber.Router)
}

type notificationController struct {
	hub *interws.Hub
}

func NewNotificationController(hub *interws.Hub) INotificationController {
	return &notificationController{hub: hub}
}

func (c *notificationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ws")
	h.Use(serverutils.JwtMiddleware)

	h.Use("/notifications", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	h.Get("/notifications", websocket.New(func(conn *websocket.Conn) {
		userIdStr, _ := conn.Locals("user_id").(string)
		userId, err := uuid.Parse(userIdStr)
		if err != nil {
			conn.Close()
			return
		}
		interws.ServeWs(c.hub, conn, userId)
	}))
}
