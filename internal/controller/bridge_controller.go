package controller

import (
	"bufio"
	"context"

	"auto-replier-be/internal/constant"
	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IBridgeController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Draft(ctx *fiber.Ctx) error
}

type bridgeController struct {
	service service.IBridgeService
	logger  logger.ILogger
}

func NewBridgeController(service service.IBridgeService, log logger.ILogger) IBridgeController {
	return &bridgeController{service: service, logger: log}
}

func (c *bridgeController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Health)
	r.Post("/draft", c.Draft)
}

func (c *bridgeController) Health(ctx *fiber.Ctx) error {
	return ctx.SendString("ok")
}

type bridgeDraftBody struct {
	Email      string `json:"email"`
	Style      string `json:"style"`
	Creativity string `json:"creativity"`
}

// Draft streams the reply as plain text chunks, flushed as they arrive.
func (c *bridgeController) Draft(ctx *fiber.Ctx) error {
	var body bridgeDraftBody
	// like the chat extension, any body is accepted; a bad one drafts from nothing
	_ = ctx.BodyParser(&body)

	// the body is written after the handler returns, so the upstream must not
	// share the request context
	stream, err := c.service.Open(context.WithoutCancel(ctx.UserContext()), service.BridgeRequest{
		Email:      body.Email,
		Style:      body.Style,
		Creativity: body.Creativity,
	})
	if err != nil {
		ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return ctx.Status(fiber.StatusBadGateway).SendString(constant.BridgeErrorPrefix + err.Error())
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		err := stream.Relay(func(delta string) error {
			if _, err := w.WriteString(delta); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			c.logger.Warn("BRIDGE", "Client went away mid-stream", map[string]interface{}{"error": err.Error()})
		}
	})
	return nil
}
