package controller

import (
	"docchat-client/internal/dto"
	"docchat-client/internal/pkg/serverutils"
	"docchat-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	SetToken(ctx *fiber.Ctx) error
	GetState(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	SwitchContext(ctx *fiber.Ctx) error
	SendTurn(ctx *fiber.Ctx) error
	Export(ctx *fiber.Ctx) error
}

type chatbotController struct {
	service service.IChatbotService
}

func NewChatbotController(service service.IChatbotService) IChatbotController {
	return &chatbotController{service: service}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.TabMiddleware)
	h.Post("/token", c.SetToken)
	h.Get("/state", c.GetState)
	h.Post("/reset", c.Reset)
	h.Put("/context", c.SwitchContext)
	h.Post("/turn", c.SendTurn)
	h.Get("/export", c.Export)
}

func (c *chatbotController) SetToken(ctx *fiber.Ctx) error {
	var req dto.SetTokenRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.SetToken(ctx.UserContext(), serverutils.TabID(ctx), &req); err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Token stored", nil))
}

func (c *chatbotController) GetState(ctx *fiber.Ctx) error {
	res, err := c.service.GetState(ctx.UserContext(), serverutils.TabID(ctx))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversation", res))
}

func (c *chatbotController) Reset(ctx *fiber.Ctx) error {
	res, err := c.service.Reset(ctx.UserContext(), serverutils.TabID(ctx))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Conversation reset", res))
}

func (c *chatbotController) SwitchContext(ctx *fiber.Ctx) error {
	var req dto.SwitchContextRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SwitchContext(ctx.UserContext(), serverutils.TabID(ctx), &req)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Context updated", res))
}

// SendTurn answers 200 even when the turn failed: the failure is part of
// the transcript and reported in error_kind.
func (c *chatbotController) SendTurn(ctx *fiber.Ctx) error {
	var req dto.SendTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendTurn(ctx.UserContext(), serverutils.TabID(ctx), &req)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Turn completed", res))
}

// Export streams the transcript as a download, ?format=txt|json.
func (c *chatbotController) Export(ctx *fiber.Ctx) error {
	file, err := c.service.Export(ctx.UserContext(), serverutils.TabID(ctx), ctx.Query("format"))
	if err != nil {
		return toHTTPError(err)
	}

	ctx.Attachment(file.Filename)
	ctx.Set(fiber.HeaderContentType, file.ContentType)
	return ctx.Send(file.Body)
}
