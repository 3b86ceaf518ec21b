package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/classboard/board-stream/internal/auth"
	"github.com/classboard/board-stream/internal/config"
)

func NewServer(cfg *config.Config, jv *auth.Validator, h *Handlers, wsh *WSHandler, log *zap.Logger) *fiber.App {
	app := fiber.New()
	app.Use(logger.New())
	app.Use(newThrottle(cfg.RatePerMin, log).handler())

	authMW := func(c *fiber.Ctx) error {
		token := bearerToken(c.Get("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing auth"})
		}
		claims, err := jv.Validate(token)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}
		c.Locals("claims", claims)
		return c.Next()
	}

	api := app.Group("/v1", authMW)
	api.Get("/streams/:stream_key/messages", h.listStream)
	api.Post("/streams/:stream_key/messages", h.sendMessage)
	api.Patch("/messages/:msg_id", h.editMessage)
	api.Delete("/messages/:msg_id", h.deleteMessage)
	api.Post("/messages/:msg_id/pin", h.pinMessage(true))
	api.Post("/messages/:msg_id/unpin", h.pinMessage(false))
	api.Post("/messages/:msg_id/like", h.toggleLike)
	api.Post("/streams/:stream_key/clear", h.clearStream)
	api.Post("/streams/:stream_key/typing", h.setTyping)
	api.Post("/attachments", h.uploadAttachment)

	app.Use("/ws", authMW, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/streams/:stream_key", websocket.New(wsh.Handle))

	return app
}

func bearerToken(hdr string) string {
	const pref = "Bearer "
	if len(hdr) <= len(pref) || hdr[:len(pref)] != pref {
		return ""
	}
	return hdr[len(pref):]
}
