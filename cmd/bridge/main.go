// Command bridge is the fallback draft endpoint: it accepts a raw email on
// POST /draft, builds its own prompt and streams the reply from the first
// local chat backend that answers.
package main

import (
	"context"
	"log"

	"auto-replier-be/internal/config"
	"auto-replier-be/internal/controller"
	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/internal/pkg/serverutils"
	"auto-replier-be/internal/service"
	"auto-replier-be/internal/tracer"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg := config.Load()

	shutdownTracer := tracer.InitTracer("auto-replier-bridge", cfg.App.OtelEnabled)
	defer shutdownTracer(context.Background())

	sysLogger := logger.NewZapLogger("bridge.log", cfg.IsProduction())
	defer sysLogger.Sync()

	candidates, err := cfg.Candidates()
	if err != nil {
		log.Fatalf("Failed to load candidates: %v", err)
	}

	bridge := service.NewBridgeService(service.BridgeServiceConfig{
		Candidates:  candidates,
		Model:       cfg.Model.Name,
		MaxDuration: cfg.Model.GenerateCeiling,
	}, sysLogger)

	app := fiber.New(fiber.Config{
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: cfg.IsProduction(),
	})
	app.Use(otelfiber.Middleware())
	app.Use(serverutils.ErrorHandlerMiddleware())
	controller.NewBridgeController(bridge, sysLogger).RegisterRoutes(app)

	sysLogger.Info("BRIDGE", "Bridge listening", map[string]interface{}{"port": cfg.Model.BridgePort})
	log.Fatal(app.Listen(":" + cfg.Model.BridgePort))
}
