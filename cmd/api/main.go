package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/yourusername/teamquiz-api/internal/app"
	"github.com/yourusername/teamquiz-api/internal/config"
	"github.com/yourusername/teamquiz-api/internal/handler"
	"github.com/yourusername/teamquiz-api/internal/middleware"
	ws "github.com/yourusername/teamquiz-api/internal/websocket"
	"github.com/yourusername/teamquiz-api/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), cfg.Database.LogLevel)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db, database.DefaultMigrationsSource); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Redis не обязателен: без него работают локальный LRU и локальный rate limit
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled() {
		redisClient, err = database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Println("Successfully connected to Redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pubSubProvider ws.PubSubProvider = &ws.NoOpPubSub{}
	if cfg.WebSocket.Cluster.Enabled {
		redisProvider, errProv := ws.NewRedisPubSub(redisClient)
		if errProv != nil {
			log.Printf("Ошибка при создании Redis PubSub провайдера: %v. Кластеризация WS будет неактивна.", errProv)
		} else {
			pubSubProvider = redisProvider
		}
	}

	wsHub := ws.NewHub()
	go wsHub.Run(ctx)
	wsManager := ws.NewManager(wsHub, pubSubProvider, cfg.WebSocket.Cluster)
	if err := wsManager.Start(ctx); err != nil {
		log.Printf("Ошибка запуска кластерного режима WebSocket: %v", err)
	}

	services, err := app.NewServices(cfg, db, redisClient, wsManager)
	if err != nil {
		log.Printf("Failed to initialize services: %v", err)
		os.Exit(1)
	}

	teamHandler := handler.NewTeamHandler(services.Teams)
	questionHandler := handler.NewQuestionHandler(services.Questions, services.Progress, services.Teams)
	progressHandler := handler.NewProgressHandler(services.Progress, services.Teams)
	wsHandler := handler.NewWSHandler(wsHub, wsManager, cfg.Server.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(services.JWT)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	loginLimit := middleware.StrictAuthRateLimitConfig()
	loginLimit.MaxRequests, loginLimit.Window = cfg.RateLimit.LoginMax, cfg.RateLimit.LoginWindow
	answerLimit := middleware.DefaultAnswerRateLimitConfig()
	answerLimit.MaxRequests, answerLimit.Window = cfg.RateLimit.AnswerMax, cfg.RateLimit.AnswerWindow

	isProduction := gin.Mode() == gin.ReleaseMode
	router := gin.Default()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handler.IdempotencyKeyHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Idempotency-Replayed"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.POST("/auth/team/login", rateLimiter.Limit(loginLimit), teamHandler.Login)

		authed := api.Group("")
		authed.Use(authMiddleware.RequireTeam(false))
		{
			authed.GET("/team/me", teamHandler.Me)

			authed.GET("/banks/:bankId/questions",
				middleware.ExtractUUIDParam("bankId", "bankID"),
				questionHandler.GetQuestions)

			authed.PATCH("/progress", rateLimiter.LimitByTeam(answerLimit), progressHandler.UpdateProgress)

			members := authed.Group("/members/:memberId")
			members.Use(middleware.ExtractUUIDParam("memberId", "memberID"))
			{
				members.GET("/review-summary", progressHandler.GetReviewSummary)
				members.GET("/progress/export", progressHandler.ExportProgress)
			}
		}
	}

	// Браузер не выставляет заголовки при открытии WebSocket, токен передается в ?token=
	router.GET("/ws", authMiddleware.RequireTeam(true), wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Отправляем сигнал завершения для всех горутин
	cancel()

	if err := pubSubProvider.Close(); err != nil {
		log.Printf("Error closing PubSub provider: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
