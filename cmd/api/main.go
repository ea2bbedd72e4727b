package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"courseforge/internal/adapter"
	"courseforge/internal/adapter/llm"
	"courseforge/internal/cache"
	"courseforge/internal/config"
	"courseforge/internal/domain"
	"courseforge/internal/handler"
	"courseforge/internal/logger"
	"courseforge/internal/middleware"
	"courseforge/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get("User-Agent")),
		)

		return err
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	// Generation client (the LLM call adapter)
	genClient, err := llm.NewFromConfig(cfg.LLM, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create generation client", zap.Error(err))
	}

	// Redis-backed session result cache; optional
	var cacheAdapter domain.Cache
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		cacheAdapter = adapter.NewRedisCacheAdapter(redisClient)
		appLogger.Info("RedisCacheAdapter initialized")
	} else {
		appLogger.Warn("Redis cache is not configured. Session results will not be cached.")
	}
	resultTTL := cfg.ParseTTLStringOrDefault(cfg.CacheTTLs.CourseResult, time.Hour)
	resultCache := service.NewCourseResultCacheService(cacheAdapter, resultTTL)

	// Services and handlers
	courseService := service.NewCourseService(genClient, cfg, appLogger)
	courseHandler := handler.NewCourseHandler(courseService, resultCache)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  20 * time.Second,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept," + handler.SessionIDHeader, MaxAge: 300}))
	app.Use(recover.New())

	apiGroup := app.Group("/api")

	courseGroup := apiGroup.Group("/course")
	courseGroup.Post("/gap-analysis", courseHandler.AnalyzeGap)
	courseGroup.Post("/modules", courseHandler.GroupModules)
	courseGroup.Post("/content", courseHandler.GenerateContent)
	courseGroup.Post("/generate", courseHandler.GenerateCourse)
	courseGroup.Get("/result/:session_id", courseHandler.GetCachedResult)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", os.Getenv("ENV")))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
