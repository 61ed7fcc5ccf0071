package controller

import (
	"errors"

	"auto-replier-be/internal/dto"
	"auto-replier-be/internal/pkg/serverutils"
	"auto-replier-be/internal/service"
	"auto-replier-be/pkg/gmail"

	"github.com/gofiber/fiber/v2"
)

type IMailController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
	ClearToken(ctx *fiber.Ctx) error
}

type mailController struct {
	service service.IMailService
}

func NewMailController(service service.IMailService) IMailController {
	return &mailController{service: service}
}

func (c *mailController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1/mail")
	h.Post("/send", c.Send)
	h.Delete("/token", c.ClearToken)
}

func (c *mailController) Send(ctx *fiber.Ctx) error {
	var req dto.SendMailRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	sent, err := c.service.Send(ctx.UserContext(), service.SendRequest{
		To:          req.To,
		Subject:     req.Subject,
		Body:        req.Body,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		return mailError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send mail", dto.SendMailResponse{
		MessageID: sent.ID,
		ThreadID:  sent.ThreadID,
	}))
}

func (c *mailController) ClearToken(ctx *fiber.Ctx) error {
	if err := c.service.ClearToken(ctx.UserContext()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear cached token", nil))
}

func mailError(err error) error {
	var apiErr *gmail.APIError
	switch {
	case errors.Is(err, gmail.ErrNoRecipient):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoToken):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.As(err, &apiErr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
