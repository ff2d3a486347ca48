package controller

import (
	"docchat-client/internal/dto"
	"docchat-client/internal/pkg/serverutils"
	"docchat-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISavedSessionController interface {
	RegisterRoutes(r fiber.Router)
	Save(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Load(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type savedSessionController struct {
	service service.ISavedSessionService
}

func NewSavedSessionController(service service.ISavedSessionService) ISavedSessionController {
	return &savedSessionController{service: service}
}

func (c *savedSessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1/sessions")
	h.Use(serverutils.TabMiddleware)
	h.Get("", c.GetAll)
	h.Post("", c.Save)
	h.Post("/:id/load", c.Load)
	h.Delete("/:id", c.Delete)
}

func (c *savedSessionController) Save(ctx *fiber.Ctx) error {
	var req dto.SaveChatSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Save(ctx.UserContext(), serverutils.TabID(ctx), &req)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Chat session saved", res))
}

func (c *savedSessionController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext(), serverutils.TabID(ctx))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat sessions", res))
}

func (c *savedSessionController) Load(ctx *fiber.Ctx) error {
	res, err := c.service.Load(ctx.UserContext(), serverutils.TabID(ctx), ctx.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Chat session loaded", res))
}

// Delete requires ?confirm=true; without it nothing is sent to the backend.
func (c *savedSessionController) Delete(ctx *fiber.Ctx) error {
	confirmed := ctx.QueryBool("confirm", false)

	if err := c.service.Delete(ctx.UserContext(), serverutils.TabID(ctx), ctx.Params("id"), confirmed); err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Chat session deleted", nil))
}
