package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	domainCache "github.com/ozcart/salewatch/domains/cache"
	"github.com/ozcart/salewatch/pkg/degrade"
	pkgError "github.com/ozcart/salewatch/pkg/error"
	"github.com/ozcart/salewatch/pkg/priceworker"
	"github.com/ozcart/salewatch/pkg/ratelimit"
	"github.com/ozcart/salewatch/pkg/utils"
)

type Admin struct {
	Cache        domainCache.ISearchCache
	Orchestrator *degrade.Manager
	Limiter      *ratelimit.Limiter
	Pool         *priceworker.Pool
}

func InitRestAdmin(app fiber.Router, cache domainCache.ISearchCache, orchestrator *degrade.Manager, limiter *ratelimit.Limiter, pool *priceworker.Pool) Admin {
	rest := Admin{Cache: cache, Orchestrator: orchestrator, Limiter: limiter, Pool: pool}

	app.Get("/status/degradation", rest.DegradationStatus)

	group := app.Group("/admin")
	group.Get("/cache/stats", rest.CacheStats)
	group.Post("/cache/clear", rest.ClearCache)
	group.Get("/ratelimit/:client", rest.ClientStats)
	group.Post("/ratelimit/:client/block", rest.BlockClient)
	group.Post("/ratelimit/:client/unblock", rest.UnblockClient)
	group.Get("/workers/stats", rest.WorkerStats)

	return rest
}

func (handler *Admin) DegradationStatus(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Degradation status retrieved",
		Results: handler.Orchestrator.Summary(),
	})
}

func (handler *Admin) CacheStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Search cache stats retrieved",
		Results: handler.Cache.Stats(),
	})
}

func (handler *Admin) ClearCache(c *fiber.Ctx) error {
	handler.Cache.Clear()

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Search cache cleared successfully",
	})
}

func (handler *Admin) ClientStats(c *fiber.Ctx) error {
	client := c.Params("client")
	stats := handler.Limiter.Stats(client)
	if !stats.Exists {
		panic(pkgError.NotFoundError("Unknown rate limit client"))
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Client rate limit stats retrieved",
		Results: stats,
	})
}

type blockRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

func (handler *Admin) BlockClient(c *fiber.Ctx) error {
	client := c.Params("client")

	request := blockRequest{DurationSeconds: 300}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return c.Status(400).JSON(utils.ResponseData{
				Status:  400,
				Code:    "BAD_REQUEST",
				Message: err.Error(),
			})
		}
	}
	if request.DurationSeconds <= 0 {
		panic(pkgError.ValidationError("duration_seconds must be positive"))
	}

	handler.Limiter.Block(client, time.Duration(request.DurationSeconds)*time.Second)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Client blocked",
	})
}

func (handler *Admin) UnblockClient(c *fiber.Ctx) error {
	handler.Limiter.Unblock(c.Params("client"))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Client unblocked",
	})
}

func (handler *Admin) WorkerStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Worker pool stats retrieved",
		Results: handler.Pool.GetStats(),
	})
}
