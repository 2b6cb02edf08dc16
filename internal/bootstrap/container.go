package bootstrap

import (
	"context"
	"log"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/controller"
	"ai-docchat-be/internal/handler"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/implementation"
	"ai-docchat-be/internal/repository/keyvalue"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/internal/service"
	"ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/events"
	"ai-docchat-be/pkg/llm/factory"
	"ai-docchat-be/pkg/rag/gate"
	"ai-docchat-be/pkg/rag/search"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// WebSockets
	ChatStreamHandler *handler.ChatStreamHandler
	WebSocketHub      *websocket.Hub

	// Background
	EventBridge *handler.EventBridge
	EventBus    *events.Bus

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	bus := events.NewBus(nil)

	// 3. AI providers
	embeddingProvider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OpenAIAPIKey,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Repositories
	conversationRepo := implementation.NewConversationRepository(db)
	messageRepo := implementation.NewMessageRepository(db)
	chunkRepo := implementation.NewChunkRepository(db)

	// 5. Redis (session backend and websocket fanout)
	var rdb *redis.Client
	var sessionStore contract.SessionStore
	if cfg.Session.Backend == "redis" {
		opt, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.Session.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		sessionStore = keyvalue.NewSessionStore(rdb)
		log.Println("[INFO] Using Session Backend: REDIS")
	} else {
		sessionStore = memory.NewSessionStore()
		log.Println("[INFO] Using Session Backend: MEMORY")
	}

	// 6. Retrieval pipeline
	searcher := search.NewSearcher(embeddingProvider, chunkRepo)
	retrievalGate := gate.New(searcher, sysLogger, cfg.Rag.TopK, cfg.Rag.Threshold, gate.Bounds{
		Min:  cfg.Rag.ThresholdMin,
		Max:  cfg.Rag.ThresholdMax,
		Step: cfg.Rag.ThresholdStep,
	})

	// 7. Services
	chatService := service.NewChatService(
		sessionStore,
		conversationRepo,
		messageRepo,
		chunkRepo,
		llmProvider,
		retrievalGate,
		bus,
		sysLogger,
		cfg,
	)

	// 8. WebSocket hub
	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run()

	return &Container{
		ChatController:    controller.NewChatController(chatService),
		ChatStreamHandler: handler.NewChatStreamHandler(chatService, wsHub, sysLogger),
		WebSocketHub:      wsHub,
		EventBridge:       handler.NewEventBridge(bus, wsHub, sysLogger),
		EventBus:          bus,
		Logger:            sysLogger,
	}
}
