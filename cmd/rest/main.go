package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"auto-replier-be/internal/bootstrap"
	"auto-replier-be/internal/config"
	"auto-replier-be/internal/server"
	"auto-replier-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer("auto-replier-daemon", cfg.App.OtelEnabled)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	if err := container.Start(ctx); err != nil {
		log.Fatalf("Failed to start background services: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		container.Logger.Info("MAIN", "Shutting down", nil)
		if err := srv.Shutdown(); err != nil {
			container.Logger.Error("MAIN", "Server shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		container.Logger.Error("MAIN", "Server stopped", map[string]interface{}{"error": err.Error()})
	}
	container.Close()
}
