package bootstrap

import (
	"context"
	"net/http"

	"auto-replier-be/internal/config"
	"auto-replier-be/internal/constant"
	"auto-replier-be/internal/controller"
	"auto-replier-be/internal/handler"
	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/internal/service"
	"auto-replier-be/internal/websocket"
	"auto-replier-be/pkg/draft"
	"auto-replier-be/pkg/events"
	"auto-replier-be/pkg/gmail"
	pktNats "auto-replier-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const commandsDurable = "auto-replier-daemon"

type Container struct {
	// Controllers
	DraftController      controller.IDraftController
	MailController       controller.IMailController
	ExtractionController controller.IExtractionController

	// Bus
	BusHandler   *handler.BusHandler
	WebSocketHub *websocket.Hub

	// Background services (started by Start)
	Coordinator service.ICoordinatorService
	Publisher   service.IPublisherService

	Logger logger.ILogger

	cfg        *config.Config
	candidates draft.Candidates
	pubSub     *gochannel.GoChannel
	natsPub    *pktNats.Publisher
	natsSub    *pktNats.Subscriber
	rdb        *redis.Client
	busLog     logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	busLogger := logger.NewIsolatedLogger(cfg.App.BusLogFilePath)

	// 2. Event bus
	pubSub := service.NewPubSub()

	var mirrors []service.EventMirror
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.Bus.NatsURL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.Bus.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect NATS publisher, mirror disabled", map[string]interface{}{"error": err.Error()})
		} else {
			mirrors = append(mirrors, natsPub)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.Bus.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect NATS subscriber, command intake disabled", map[string]interface{}{"error": err.Error()})
		}
	}
	publisher := service.NewPublisherService(constant.BusTopic, pubSub, sysLogger, mirrors...)

	// Redis
	var rdb *redis.Client
	if cfg.Bus.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.Bus.RedisURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.Bus.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
	}

	// 3. Services
	candidates, err := cfg.Candidates()
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Invalid candidates file, using defaults", map[string]interface{}{"error": err.Error()})
		candidates = draft.DefaultCandidates()
	}
	httpClient := &http.Client{}
	availability := draft.NewAvailability()

	prober := service.NewProberService(httpClient, cfg.Model.ProbeTimeout, sysLogger)
	drafts := service.NewDraftService(service.DraftServiceConfig{
		Candidates:  candidates,
		Model:       cfg.Model.Name,
		IdleTimeout: cfg.Model.GenerateTimeout,
		MaxDuration: cfg.Model.GenerateCeiling,
		Client:      httpClient,
	}, availability, sysLogger)

	extractions := service.NewExtractionService(0, sysLogger)
	tokens := service.NewTokenService(service.TokenConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RefreshToken: cfg.Google.RefreshToken,
	}, sysLogger)
	mail := service.NewMailService(gmail.NewClient(cfg.Google.GmailBaseURL, httpClient), tokens, extractions, sysLogger)

	coordinator := service.NewCoordinatorService(service.CoordinatorDeps{
		Candidates:   candidates,
		Availability: availability,
		Prober:       prober,
		Drafts:       drafts,
		Mail:         mail,
		Extractions:  extractions,
		Publisher:    publisher,
		Logger:       sysLogger,
	})
	// commands arriving over the socket go straight to the coordinator
	hub := websocket.NewHub(rdb, coordinator, busLogger)

	return &Container{
		DraftController:      controller.NewDraftController(coordinator),
		MailController:       controller.NewMailController(mail),
		ExtractionController: controller.NewExtractionController(coordinator, extractions),

		BusHandler:   handler.NewBusHandler(coordinator, hub, cfg.Bus.JWTSecret, busLogger),
		WebSocketHub: hub,

		Coordinator: coordinator,
		Publisher:   publisher,
		Logger:      sysLogger,

		cfg:        cfg,
		candidates: candidates,
		pubSub:     pubSub,
		natsPub:    natsPub,
		natsSub:    natsSub,
		rdb:        rdb,
		busLog:     busLogger,
	}
}

// Start launches the hub, the topic forwarder, the probe loop and NATS
// command intake. They stop when ctx ends.
func (c *Container) Start(ctx context.Context) error {
	feed, err := c.Publisher.Subscribe(ctx)
	if err != nil {
		return err
	}
	go c.WebSocketHub.Run(ctx)
	go c.WebSocketHub.Forward(ctx, feed)
	go c.Coordinator.RunProbeLoop(ctx, c.cfg.Model.ProbeInterval)

	if c.natsSub != nil {
		err := c.natsSub.SubscribeCommands(commandsDurable, func(ctx context.Context, cmd events.Command) error {
			c.Coordinator.Dispatch(ctx, cmd)
			return nil
		})
		if err != nil {
			c.Logger.Warn("BOOTSTRAP", "Failed to subscribe to NATS commands", map[string]interface{}{"error": err.Error()})
		}
	}

	c.Logger.Info("BOOTSTRAP", "Background services started", map[string]interface{}{
		"candidates": c.candidates.Len(),
		"nats":       c.natsPub != nil,
		"redis":      c.rdb != nil,
	})
	return nil
}

// Close waits for running commands and releases connections.
func (c *Container) Close() {
	c.Coordinator.Wait()
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.pubSub.Close()
	_ = c.busLog.Sync()
	_ = c.Logger.Sync()
}
