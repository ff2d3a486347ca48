package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	TabIDHeader = "X-Tab-Id"
	tabIDLocal  = "tab_id"
)

// TabMiddleware requires every request to name its browser tab, either in
// the X-Tab-Id header or the tab_id query parameter.
func TabMiddleware(ctx *fiber.Ctx) error {
	tabID := strings.TrimSpace(ctx.Get(TabIDHeader))
	if tabID == "" {
		tabID = strings.TrimSpace(ctx.Query("tab_id"))
	}
	if tabID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, "Missing tab id"))
	}

	ctx.Locals(tabIDLocal, tabID)
	return ctx.Next()
}

func TabID(ctx *fiber.Ctx) string {
	tabID, _ := ctx.Locals(tabIDLocal).(string)
	return tabID
}
