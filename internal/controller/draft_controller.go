package controller

import (
	"auto-replier-be/internal/dto"
	"auto-replier-be/internal/pkg/serverutils"
	"auto-replier-be/internal/service"
	"auto-replier-be/pkg/events"

	"github.com/gofiber/fiber/v2"
)

type IDraftController interface {
	RegisterRoutes(r fiber.Router)
	Generate(ctx *fiber.Ctx) error
	ModelStatus(ctx *fiber.Ctx) error
}

type draftController struct {
	coordinator service.ICoordinatorService
}

func NewDraftController(coordinator service.ICoordinatorService) IDraftController {
	return &draftController{coordinator: coordinator}
}

func (c *draftController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1")
	h.Post("/draft", c.Generate)
	h.Get("/model/status", c.ModelStatus)
}

// Generate starts a generation. Partials and the terminal event are
// delivered on the bus under the returned generation id.
func (c *draftController) Generate(ctx *fiber.Ctx) error {
	var req dto.GenerateDraftRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	id := c.coordinator.Dispatch(ctx.UserContext(), events.Command{
		Type:       events.CommandGenerateDraft,
		EmailBody:  req.EmailBody,
		SenderName: req.SenderName,
		Style:      req.Style,
		Creativity: req.Creativity,
	})

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Draft generation started", dto.CommandAcceptedResponse{
		Type:         events.CommandGenerateDraft,
		GenerationID: id,
	}))
}

func (c *draftController) ModelStatus(ctx *fiber.Ctx) error {
	res := dto.ModelStatusResponse{Available: c.coordinator.RefreshAvailability(ctx.UserContext())}
	if res.Available {
		if cand, ok := c.coordinator.ActiveCandidate(ctx.UserContext()); ok {
			res.Candidate = cand.String()
		}
	}
	return ctx.JSON(serverutils.SuccessResponse("Success check model status", res))
}
