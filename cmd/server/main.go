package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"chartlens/internal/analyzer"
	"chartlens/internal/bot"
	"chartlens/internal/cache"
	"chartlens/internal/config"
	"chartlens/internal/db"
	"chartlens/internal/handler"
	"chartlens/internal/intake"
	"chartlens/internal/job"
	"chartlens/internal/market"
	"chartlens/internal/provider"
	"chartlens/internal/repository"
	"chartlens/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "chartlens/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newCandleRepoFunc      = repository.NewCandleRepository
	newFinnhubProviderFunc = func(tracer trace.Tracer, apiKey string) market.Provider {
		return provider.NewFinnhubProvider(tracer, apiKey)
	}
	newEnricherFunc     = market.NewEnricher
	newImageStoreFunc   = intake.NewStore
	newOpenAIClientFunc = func(tracer trace.Tracer, apiKey string) analyzer.VisionCompleter {
		return analyzer.NewOpenAIClient(tracer, apiKey)
	}
	newAnalyzerFunc        = analyzer.New
	newMaintenanceFunc     = job.NewUploadMaintenance
	startMaintenanceFunc   = func(j *job.UploadMaintenance, ctx context.Context) { go j.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Chartlens API
// @version         1.0
// @description     AI-powered chart analysis for Telegram.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Candle mirror (optional, needs Postgres)
	candleRepo := newCandleRepoFunc(db.Pool, tracer)
	var mirror market.CandleMirror
	var candleReader handler.CandleReader
	var pruner job.CandlePruner
	if db.Pool != nil {
		if err := candleRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		mirror = candleRepo
		candleReader = candleRepo
		pruner = candleRepo
	}

	// Market enrichment (optional, needs Finnhub credentials)
	var enricher analyzer.ContextEnricher
	if cfg.FinnhubAPIKey != "" {
		finnhub := newFinnhubProviderFunc(tracer, cfg.FinnhubAPIKey)
		enricher = newEnricherFunc(tracer, finnhub, mirror, cache.Client, cfg.MarketLookbackDays)
	}

	// Image intake
	retention := time.Duration(cfg.ImageRetentionSecs) * time.Second
	store, err := newImageStoreFunc(tracer, cfg.UploadDir, cfg.MaxFileSize, retention)
	if err != nil {
		log.Fatalf("failed to initialize image store: %v", err)
	}

	// Analysis pipeline (demo mode without an API key)
	var completer analyzer.VisionCompleter
	if cfg.OpenAIAPIKey != "" {
		completer = newOpenAIClientFunc(tracer, cfg.OpenAIAPIKey)
	}
	chartAnalyzer := newAnalyzerFunc(tracer, enricher, completer, cfg.OpenAIModel, int64(cfg.OpenAIMaxTokens), cfg.OpenAITemperature)

	// Background maintenance (stopped by ctx cancel)
	maintenance := newMaintenanceFunc(tracer, cfg.UploadDir, retention, pruner)
	startMaintenanceFunc(maintenance, ctx)

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(store, chartAnalyzer)

	// Create handlers and routes
	h := newHandlerFunc(tracer, cfg, candleReader)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("chartlens"))
	r.Use(cors.Default())

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
