package handler

import (
	"strings"

	"docchat-client/internal/pkg/logger"
	"docchat-client/internal/pkg/serverutils"
	internalWS "docchat-client/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type NotificationHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewNotificationHandler(hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		hub:    hub,
		logger: log,
	}
}

// ServeWs upgrades the request to a push-only socket for one tab. Browsers
// cannot set headers on a WebSocket handshake, so the tab id comes from the
// query string.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	tabID := strings.TrimSpace(c.Query("tab_id"))
	if tabID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Missing tab_id"))
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"tab_id": tabID})
			internalWS.ServeWs(h.hub, conn, tabID)
			h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"tab_id": tabID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the notification routes.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
