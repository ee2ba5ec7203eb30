package rest

import (
	"github.com/gofiber/fiber/v2"
	domainCatalog "github.com/ozcart/salewatch/domains/catalog"
	"github.com/ozcart/salewatch/pkg/utils"
	"github.com/ozcart/salewatch/validations"
)

type Check struct {
	Service domainCatalog.ISaleCheckUsecase
}

func InitRestCheck(app fiber.Router, service domainCatalog.ISaleCheckUsecase) Check {
	rest := Check{Service: service}
	app.Post("/check", rest.CheckItems)

	return rest
}

func (handler *Check) CheckItems(c *fiber.Ctx) error {
	var request domainCatalog.CheckItemsRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	err := validations.ValidateCheckItems(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	response, err := handler.Service.CheckItems(c.UserContext(), request.Items, request.Postcode)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Items checked",
		Results: response,
	})
}
