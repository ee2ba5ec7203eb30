package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ozcart/salewatch/config"
	"github.com/ozcart/salewatch/pkg/utils"
)

type Health struct{}

func InitRestHealth(app fiber.Router) Health {
	handler := Health{}
	app.Get("/health", handler.GetStatus)

	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Service is healthy",
		Results: map[string]any{
			"status":  "ok",
			"version": config.AppVersion,
		},
	})
}
