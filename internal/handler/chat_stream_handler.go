package handler

import (
	"context"
	"encoding/json"

	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/pkg/serverutils"
	"ai-docchat-be/internal/service"
	internalWS "ai-docchat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/lithammer/shortuuid/v3"
)

// Frame is the envelope for every message the stream endpoint emits.
// Types: "delta" (one response fragment), "complete" (the finished turn),
// "error", plus the event frames relayed from the hub.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ChatStreamHandler serves the websocket chat endpoint: the client sends
// SendChatRequest frames and receives the answer incrementally.
type ChatStreamHandler struct {
	service service.IChatService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewChatStreamHandler(service service.IChatService, hub *internalWS.Hub, log logger.ILogger) *ChatStreamHandler {
	return &ChatStreamHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

func (h *ChatStreamHandler) RegisterRoutes(r fiber.Router) {
	ws := r.Group("/chat/v1/ws")
	ws.Use(h.upgrade)
	ws.Get("", websocket.New(h.serve))
}

// upgrade resolves the session key before the protocol switch; Locals set
// here survive into the websocket handler.
func (h *ChatStreamHandler) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	key := ctx.Get(serverutils.SessionHeader)
	if key == "" {
		key = ctx.Query("session")
	}
	if key == "" {
		key = shortuuid.New()
	}
	ctx.Locals("session_key", key)
	return ctx.Next()
}

func (h *ChatStreamHandler) serve(c *websocket.Conn) {
	sessionKey, _ := c.Locals("session_key").(string)

	internalWS.ServeWs(h.hub, c, sessionKey, func(client *internalWS.Client, payload []byte) {
		var req dto.SendChatRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			client.SendJSON(Frame{Type: "error", Data: "malformed request"})
			return
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			client.SendJSON(Frame{Type: "error", Data: err.Error()})
			return
		}

		res, err := h.service.SendChat(context.Background(), sessionKey, &req, func(fragment string) {
			client.SendJSON(Frame{Type: "delta", Data: fragment})
		})
		if err != nil {
			h.logger.Warn("chat.stream", "turn failed", map[string]interface{}{
				"session": sessionKey,
				"error":   err.Error(),
			})
			client.SendJSON(Frame{Type: "error", Data: err.Error()})
			return
		}

		client.SendJSON(Frame{Type: "complete", Data: res})
	})
}
