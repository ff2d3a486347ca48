package controller

import (
	"io"

	"docchat-client/internal/dto"
	"docchat-client/internal/pkg/serverutils"
	"docchat-client/internal/service"
	"docchat-client/pkg/backend"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Stage(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	service service.IDocumentService
}

func NewDocumentController(service service.IDocumentService) IDocumentController {
	return &documentController{service: service}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1/documents")
	h.Use(serverutils.TabMiddleware)
	h.Get("", c.GetAll)
	h.Post("", c.Stage)
	h.Post("/refresh", c.Refresh)
	h.Put("/:id/selection", c.Select)
	h.Delete("/:id", c.Delete)
}

// Stage reads the multipart "files" field and queues the files for the next
// document-search turn.
func (c *documentController) Stage(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Expected multipart form with files")
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "No files provided")
	}

	files := make([]backend.FileUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		files = append(files, backend.FileUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := c.service.Stage(ctx.UserContext(), serverutils.TabID(ctx), files)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Documents staged", res))
}

func (c *documentController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext(), serverutils.TabID(ctx))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get documents", res))
}

func (c *documentController) Refresh(ctx *fiber.Ctx) error {
	res, err := c.service.Refresh(ctx.UserContext(), serverutils.TabID(ctx))
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Documents refreshed", res))
}

func (c *documentController) Select(ctx *fiber.Ctx) error {
	var req dto.SelectDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.service.Select(ctx.UserContext(), serverutils.TabID(ctx), ctx.Params("id"), &req)
	if err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Selection updated", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.UserContext(), serverutils.TabID(ctx), ctx.Params("id")); err != nil {
		return toHTTPError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Document deleted", nil))
}
