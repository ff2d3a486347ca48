package bootstrap

import (
	"context"
	"time"

	"docchat-client/internal/config"
	"docchat-client/internal/controller"
	"docchat-client/internal/handler"
	"docchat-client/internal/pkg/logger"
	"docchat-client/internal/repository/contract"
	"docchat-client/internal/repository/implementation"
	"docchat-client/internal/repository/memory"
	"docchat-client/internal/service"
	"docchat-client/internal/websocket"
	"docchat-client/pkg/backend"
	"docchat-client/pkg/events"
	"docchat-client/pkg/rag/classify"
	"docchat-client/pkg/rag/dispatch"
	"docchat-client/pkg/rag/message"

	pktNats "docchat-client/pkg/nats"

	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatbotController      controller.IChatbotController
	DocumentController     controller.IDocumentController
	SavedSessionController controller.ISavedSessionController

	// Services
	ChatbotService      service.IChatbotService
	DocumentService     service.IDocumentService
	SavedSessionService service.ISavedSessionService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
	NotificationService *service.NotificationService

	// Infrastructure
	Logger   logger.ILogger
	EventBus *events.Bus
	NatsPub  *pktNats.Publisher
	Redis    *redis.Client
	Backend  *backend.Client
	Registry *service.WorkspaceRegistry
}

// NewContainer wires every component. The REST server passes a console+file
// logger; the terminal client passes a file-only one.
func NewContainer(cfg *config.Config, sysLogger logger.ILogger) *Container {
	// 1. Core Facades
	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.ProbePath, cfg.Backend.Timeout)

	// 2. Event Bus
	bus := events.NewBus()

	// 3. Infrastructure
	// NATS (optional forwarding of client events)
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Container", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			natsPub = pub
		}
	}

	// Redis (optional: shared snapshots and cross-instance socket delivery)
	rdb := newRedisClient(cfg.App.RedisURL, sysLogger)

	// Conversation snapshot storage
	var repo contract.ConversationRepository
	if cfg.Store.Snapshot == "redis" && rdb != nil {
		repo = implementation.NewConversationRepository(rdb, cfg.Store.SnapshotTTL)
		sysLogger.Info("Container", "Using Redis conversation snapshots", nil)
	} else {
		repo = memory.NewConversationRepository(cfg.Store.SnapshotTTL)
		sysLogger.Info("Container", "Using in-memory conversation snapshots", nil)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 4. Domain Components
	factory := message.NewFactory(nil)
	classifier := classify.NewClassifier(sysLogger)
	dispatcher := dispatch.NewDispatcher(backendClient, cfg.Chat.Language)
	registry := service.NewWorkspaceRegistry(backendClient, repo, bus, factory, service.WorkspaceOptions{
		PollInterval:   cfg.Chat.PollInterval,
		PollTimeout:    cfg.Chat.PollTimeout,
		MaxUploadBytes: cfg.Chat.MaxUploadBytes,
		TitleMaxLength: cfg.Chat.TitleMaxLength,
		TTL:            cfg.Store.WorkspaceTTL,
	}, sysLogger)

	// 5. Services
	chatbotService := service.NewChatbotService(registry, dispatcher, classifier, factory, sysLogger)
	documentService := service.NewDocumentService(registry, classifier, sysLogger)
	savedSessionService := service.NewSavedSessionService(registry, classifier, sysLogger)
	notifService := service.NewNotificationService(bus, wsHub, wsLogger) // Hub implements NotificationDelivery

	// 6. Controllers
	return &Container{
		ChatbotController:      controller.NewChatbotController(chatbotService),
		DocumentController:     controller.NewDocumentController(documentService),
		SavedSessionController: controller.NewSavedSessionController(savedSessionService),

		ChatbotService:      chatbotService,
		DocumentService:     documentService,
		SavedSessionService: savedSessionService,

		NotificationHandler: handler.NewNotificationHandler(wsHub, wsLogger),
		WebSocketHub:        wsHub,
		NotificationService: notifService,

		Logger:   sysLogger,
		EventBus: bus,
		NatsPub:  natsPub,
		Redis:    rdb,
		Backend:  backendClient,
		Registry: registry,
	}
}

// Start launches the background workers: socket hub, notification relay
// and, when configured, NATS forwarding.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.NotificationService.Start(ctx); err != nil {
		return err
	}

	if c.NatsPub != nil {
		ch, err := c.EventBus.Subscribe(ctx)
		if err != nil {
			return err
		}
		go c.NatsPub.Forward(ctx, ch)
	}
	return nil
}

func (c *Container) Close() {
	if err := c.EventBus.Close(); err != nil {
		c.Logger.Warn("Container", "Failed to close event bus", map[string]interface{}{"error": err.Error()})
	}
	if c.NatsPub != nil {
		c.NatsPub.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	_ = c.Logger.Sync()
}

func newRedisClient(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Container", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Warn("Container", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return rdb
}
