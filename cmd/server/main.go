package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/clipcast/api/internal/client"
	"github.com/clipcast/api/internal/config"
	"github.com/clipcast/api/internal/handler"
	"github.com/clipcast/api/internal/logging"
	"github.com/clipcast/api/internal/middleware"
	"github.com/clipcast/api/internal/pipeline"
	"github.com/clipcast/api/internal/service"
	"github.com/clipcast/api/internal/store"
	"github.com/clipcast/api/internal/worker"
	ws "github.com/clipcast/api/internal/websocket"
	"github.com/clipcast/api/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logging.New(cfg.Server.LogLevel)

	// Redis backs per-user rate limiting only; the API stays up without it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		slogger.Warn("redis not available, rate limiting disabled", "error", err)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	groqClient := client.NewGroqClient(&cfg.Groq)
	elevenLabsClient := client.NewElevenLabsClient(&cfg.ElevenLabs)
	scraperClient := client.NewScraperClient(&cfg.Scraper)
	r2Client, err := client.NewR2Client(&cfg.R2)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	validate := validator.New()

	hub := ws.NewHub(slogger)
	go hub.Run()

	signedURLTTL := time.Duration(cfg.R2.SignedURLTTLDays) * 24 * time.Hour
	pipe := pipeline.New(st, scraperClient, groqClient, elevenLabsClient,
		r2Client, signedURLTTL, hub, slogger)

	clipService := service.NewClipService(st, r2Client, slogger)
	conversationService := service.NewConversationService(st, groqClient, slogger)

	clipsHandler := handler.NewClipsHandler(clipService, validate)
	playbackHandler := handler.NewPlaybackHandler(clipService, validate)
	conversationsHandler := handler.NewConversationsHandler(conversationService, validate)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": time.Now().Unix()})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	clips := api.Group("/clips")
	clips.Post("/", rateLimiter.ClipsLimit(cfg.RateLimit.ClipsPerHour), clipsHandler.Create)
	clips.Get("/", clipsHandler.List)
	clips.Get("/:id", clipsHandler.Get)
	clips.Patch("/:id/favorite", clipsHandler.SetFavorite)
	clips.Delete("/:id", clipsHandler.Delete)
	clips.Post("/:id/retry", clipsHandler.Retry)
	clips.Get("/:id/progress", playbackHandler.GetProgress)
	clips.Put("/:id/progress", playbackHandler.UpdateProgress)

	conversations := api.Group("/conversations")
	conversations.Post("/", conversationsHandler.Create)
	conversations.Get("/", conversationsHandler.List)
	conversations.Get("/:id", conversationsHandler.Get)
	conversations.Patch("/:id", conversationsHandler.Rename)
	conversations.Delete("/:id", conversationsHandler.Delete)
	conversations.Get("/:id/messages", conversationsHandler.Messages)
	conversations.Post("/:id/messages",
		rateLimiter.MessagesLimit(cfg.RateLimit.MessagesPerMin),
		conversationsHandler.SendMessage)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/clips/:clipId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("clipId"))
	}))

	// Optionally run the dispatcher inside the API process. Deployments that
	// scale workers separately run cmd/worker instead.
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	if cfg.Worker.Enabled {
		dispatcher := worker.NewDispatcher(st, pipe,
			time.Duration(cfg.Worker.PollInterval)*time.Second,
			cfg.Worker.BatchSize, slogger)
		go dispatcher.Run(dispatcherCtx)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slogger.Info("shutting down server")
		stopDispatcher()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slogger.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slogger.Info("server starting", "addr", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code == fiber.StatusNotFound {
		return response.NotFound(c, "Resource not found")
	}
	return response.Error(c, code, response.CodeServiceError, err.Error(), nil)
}
