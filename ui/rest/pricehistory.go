package rest

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	domainPricestore "github.com/ozcart/salewatch/domains/pricestore"
	pkgError "github.com/ozcart/salewatch/pkg/error"
	"github.com/ozcart/salewatch/pkg/utils"
)

type PriceHistory struct {
	Repository domainPricestore.IPriceStoreRepository
}

func InitRestPriceHistory(app fiber.Router, repository domainPricestore.IPriceStoreRepository) PriceHistory {
	rest := PriceHistory{Repository: repository}
	app.Get("/price-history/:product", rest.GetHistory)

	return rest
}

func (handler *PriceHistory) GetHistory(c *fiber.Ctx) error {
	// Product names carry bracketed stockcode suffixes, so the path
	// segment arrives URL-encoded.
	product, err := url.QueryUnescape(c.Params("product"))
	if err != nil {
		panic(pkgError.ValidationError("malformed product parameter"))
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	records, err := handler.Repository.PriceHistory(c.UserContext(), product, limit)
	utils.PanicIfNeeded(err)

	if len(records) == 0 {
		panic(pkgError.NotFoundError("No price history for this product"))
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Price history retrieved",
		Results: records,
	})
}
