package handler

import (
	"auto-replier-be/internal/dto"
	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/internal/pkg/serverutils"
	"auto-replier-be/internal/service"
	internalWS "auto-replier-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// BusHandler exposes the message bus: a WebSocket for two-way traffic and a
// plain POST for clients that only send commands.
type BusHandler struct {
	coordinator service.ICoordinatorService
	hub         *internalWS.Hub
	jwtSecret   string
	logger      logger.ILogger
}

func NewBusHandler(coordinator service.ICoordinatorService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *BusHandler {
	return &BusHandler{
		coordinator: coordinator,
		hub:         hub,
		jwtSecret:   jwtSecret,
		logger:      log,
	}
}

func (h *BusHandler) RegisterRoutes(r fiber.Router) {
	auth := serverutils.BusAuthMiddleware(h.jwtSecret)
	r.Get("/ws", auth, h.ServeWs)
	r.Post("/v1/bus/commands", auth, h.PostCommand)
}

// ServeWs upgrades the request and runs the bus session.
func (h *BusHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("BusHandler", "Starting WebSocket session", map[string]interface{}{"remote": conn.RemoteAddr().String()})
		internalWS.ServeWs(h.hub, conn)
		h.logger.Info("BusHandler", "WebSocket session ended", map[string]interface{}{"remote": conn.RemoteAddr().String()})
	})(c)
}

// PostCommand dispatches any bus command. Results arrive as bus events.
func (h *BusHandler) PostCommand(c *fiber.Ctx) error {
	var req dto.BusCommandRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Type == "" {
		return fiber.NewError(fiber.StatusBadRequest, "type is required")
	}

	id := h.coordinator.Dispatch(c.UserContext(), req.Command)
	return c.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Command accepted", dto.CommandAcceptedResponse{
		Type:         req.Type,
		GenerationID: id,
	}))
}
