package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	globalConfig "github.com/ozcart/salewatch/config"
	"github.com/ozcart/salewatch/ui/rest"
	"github.com/ozcart/salewatch/ui/rest/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the sale checker API over http",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	fiberConfig := fiber.Config{
		Network:               "tcp",
		AppName:               "Salewatch",
		DisableStartupMessage: false,
		ServerHeader:          "Hidden",
	}

	// Configure proxy settings if trusted proxies are specified
	if len(globalConfig.AppTrustedProxies) > 0 {
		fiberConfig.EnableTrustedProxyCheck = true
		fiberConfig.TrustedProxies = globalConfig.AppTrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedFor
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))
	app.Use(middleware.Recovery())
	app.Use(middleware.RateLimit(limiter))

	if globalConfig.AppDebug {
		app.Use(logger.New())
	}

	apiGroup := app.Group(globalConfig.AppBasePath + "/api")

	rest.InitRestHealth(apiGroup)
	rest.InitRestCheck(apiGroup, checkUsecase)
	rest.InitRestAdmin(apiGroup, searchCache, orchestrator, limiter, pricePool)
	if priceStore != nil {
		rest.InitRestPriceHistory(apiGroup, priceStore)
	}

	// 404 handler scoped to the API group
	apiGroup.All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "API endpoint not found",
			"path":  c.Path(),
		})
	})

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}

		StopApp()
	}()

	if err := app.Listen(":" + globalConfig.AppPort); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}
