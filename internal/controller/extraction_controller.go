package controller

import (
	"auto-replier-be/internal/dto"
	"auto-replier-be/internal/pkg/serverutils"
	"auto-replier-be/internal/service"
	"auto-replier-be/pkg/events"

	"github.com/gofiber/fiber/v2"
)

type IExtractionController interface {
	RegisterRoutes(r fiber.Router)
	Submit(ctx *fiber.Ctx) error
	Last(ctx *fiber.Ctx) error
}

type extractionController struct {
	coordinator service.ICoordinatorService
	extractions service.IExtractionService
}

func NewExtractionController(coordinator service.ICoordinatorService, extractions service.IExtractionService) IExtractionController {
	return &extractionController{coordinator: coordinator, extractions: extractions}
}

func (c *extractionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1/extraction")
	h.Post("", c.Submit)
	h.Get("/last", c.Last)
}

// Submit relays a page extraction exactly as a pageEmailExtracted command.
func (c *extractionController) Submit(ctx *fiber.Ctx) error {
	var req dto.ExtractionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	c.coordinator.Dispatch(ctx.UserContext(), events.Command{
		Type:        events.CommandPageEmailExtracted,
		Body:        req.Body,
		SenderName:  req.SenderName,
		SenderEmail: req.SenderEmail,
		URL:         req.URL,
	})

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Extraction accepted", dto.CommandAcceptedResponse{
		Type: events.CommandPageEmailExtracted,
	}))
}

func (c *extractionController) Last(ctx *fiber.Ctx) error {
	e, ok := c.extractions.Last()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "No extraction available")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get last extraction", dto.ExtractionResponse{
		Body:        e.Body,
		SenderName:  e.SenderName,
		SenderEmail: e.SenderEmail,
		URL:         e.URL,
		ExtractedAt: e.ExtractedAt,
	}))
}
