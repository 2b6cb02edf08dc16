package controller

import (
	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/pkg/serverutils"
	"ai-docchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
	GetConversations(ctx *fiber.Ctx) error
	NewConversation(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	SelectConversation(ctx *fiber.Ctx) error
	UpdateTitle(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	GetThreshold(ctx *fiber.Ctx) error
	SetThreshold(ctx *fiber.Ctx) error
	GetRetrievalStatus(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.SessionMiddleware)
	h.Post("send", c.SendChat)
	h.Get("conversations", c.GetConversations)
	h.Post("conversations", c.NewConversation)
	h.Get("conversations/:id/history", c.GetHistory)
	h.Put("conversations/:id/select", c.SelectConversation)
	h.Put("conversations/:id/title", c.UpdateTitle)
	h.Post("refresh", c.Refresh)
	h.Get("retrieval/threshold", c.GetThreshold)
	h.Put("retrieval/threshold", c.SetThreshold)
	h.Get("retrieval/status", c.GetRetrievalStatus)
}

// SendChat runs a full turn and returns the complete answer. Incremental
// delivery goes over the websocket endpoint instead.
func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SendChat(ctx.Context(), serverutils.SessionKey(ctx), &req, nil)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *chatController) GetConversations(ctx *fiber.Ctx) error {
	res, err := c.chatService.GetConversations(ctx.Context(), serverutils.SessionKey(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversations", res))
}

func (c *chatController) NewConversation(ctx *fiber.Ctx) error {
	res, err := c.chatService.NewConversation(ctx.Context(), serverutils.SessionKey(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create conversation", res))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	res, err := c.chatService.GetHistory(ctx.Context(), serverutils.SessionKey(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *chatController) SelectConversation(ctx *fiber.Ctx) error {
	err := c.chatService.SelectConversation(ctx.Context(), serverutils.SessionKey(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success select conversation", nil))
}

func (c *chatController) UpdateTitle(ctx *fiber.Ctx) error {
	var req dto.UpdateTitleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	err := c.chatService.UpdateTitle(ctx.Context(), serverutils.SessionKey(ctx), ctx.Params("id"), req.Title)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success update title", nil))
}

func (c *chatController) Refresh(ctx *fiber.Ctx) error {
	if err := c.chatService.Refresh(ctx.Context(), serverutils.SessionKey(ctx)); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success refresh", nil))
}

func (c *chatController) GetThreshold(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get threshold", c.chatService.GetThreshold()))
}

func (c *chatController) SetThreshold(ctx *fiber.Ctx) error {
	var req dto.UpdateThresholdRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success set threshold", c.chatService.SetThreshold(req.Threshold)))
}

func (c *chatController) GetRetrievalStatus(ctx *fiber.Ctx) error {
	res, err := c.chatService.GetRetrievalStatus(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get retrieval status", res))
}
