package bootstrap

import (
	"context"
	"log"

	"archelon-assistant-be/internal/config"
	"archelon-assistant-be/internal/controller"
	"archelon-assistant-be/internal/pkg/logger"
	"archelon-assistant-be/internal/repository/memory"
	"archelon-assistant-be/internal/repository/unitofwork"
	"archelon-assistant-be/internal/service"
	"archelon-assistant-be/internal/websocket"
	"archelon-assistant-be/pkg/embedding"
	"archelon-assistant-be/pkg/llm/ollama"
	pktNats "archelon-assistant-be/pkg/nats"
	"archelon-assistant-be/pkg/rag/history"
	"archelon-assistant-be/pkg/rag/orchestrator"
	"archelon-assistant-be/pkg/rag/reformulate"
	"archelon-assistant-be/pkg/vectorstore"
	chromemstore "archelon-assistant-be/pkg/vectorstore/chromem"
	pgvectorstore "archelon-assistant-be/pkg/vectorstore/pgvector"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController      controller.ISessionController
	ChatController         controller.IChatController
	DocumentController     controller.IDocumentController
	NotificationController controller.INotificationController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	embeddingProvider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	llmProvider := ollama.NewProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.ChatModel)
	log.Printf("[INFO] Using LLM model: %s, embedding model: %s", cfg.Ai.ChatModel, cfg.Ai.EmbeddingModel)

	// Vector backend switch
	var store vectorstore.Store
	if cfg.Ai.VectorBackend == "pgvector" {
		store = pgvectorstore.New(db, embeddingProvider)
		log.Printf("[INFO] Using vector backend: PGVECTOR")
	} else {
		chromem, err := chromemstore.New(cfg.Ai.ChromemBasePath, embeddingProvider)
		if err != nil {
			log.Fatalf("[FATAL] Failed to open chromem store at %s: %v", cfg.Ai.ChromemBasePath, err)
		}
		store = chromem
		log.Printf("[INFO] Using vector backend: CHROMEM (%s)", cfg.Ai.ChromemBasePath)
	}

	// Session ownership cache
	ownership := memory.NewOwnershipCache()

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 4. RAG pipeline
	historyLoader := history.NewLoader(uowFactory, cfg.Chat.HistoryWindow)
	reformulator := reformulate.NewReformulator(llmProvider)
	orch := orchestrator.New(
		llmProvider,
		store,
		reformulator,
		historyLoader,
		sysLogger,
		cfg.Chat.RetrievalK,
	)

	// 5. Services
	sessionService := service.NewSessionService(uowFactory, store, ownership, natsPub, sysLogger)
	chatService := service.NewChatService(sessionService, orch, historyLoader)
	documentService := service.NewDocumentService(sessionService, store, pubSub, cfg.App.IngestTopicName)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.IngestTopicName,
		store,
		historyLoader,
		natsPub,
		sysLogger,
	)

	// Notification worker: event bus -> websocket
	if natsSub != nil {
		notifService := service.NewNotificationService(natsSub, wsHub, wsLogger)
		go notifService.Start()
	}

	// 6. Controllers
	return &Container{
		SessionController:      controller.NewSessionController(sessionService),
		ChatController:         controller.NewChatController(chatService),
		DocumentController:     controller.NewDocumentController(documentService),
		NotificationController: controller.NewNotificationController(wsHub),

		ConsumerService: consumerService,
		WebSocketHub:    wsHub,
	}
}
