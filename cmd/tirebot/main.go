package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitiz/tirebot-go/internal/config"
	"github.com/bitiz/tirebot-go/internal/handler"
	"github.com/bitiz/tirebot-go/internal/infra/cache"
	"github.com/bitiz/tirebot-go/internal/infra/contextstore"
	"github.com/bitiz/tirebot-go/internal/infra/dealerapi"
	"github.com/bitiz/tirebot-go/internal/infra/gazetteer"
	"github.com/bitiz/tirebot-go/internal/infra/llm"
	"github.com/bitiz/tirebot-go/internal/infra/messagelog"
	"github.com/bitiz/tirebot-go/internal/infra/observability"
	"github.com/bitiz/tirebot-go/internal/infra/refdata"
	"github.com/bitiz/tirebot-go/internal/infra/resilience"
	"github.com/bitiz/tirebot-go/internal/port"
	"github.com/bitiz/tirebot-go/internal/service"
	"github.com/bitiz/tirebot-go/internal/settings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("llm_model", cfg.LLMModelName),
		zap.String("context_store", cfg.ContextStore),
		zap.Duration("context_idle_ttl", cfg.ContextIdleTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint, "tirebot")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Settings ---
	settingsProvider := settings.NewProvider(settings.Settings{
		LLMProvider:   cfg.LLMProvider,
		ModelName:     cfg.LLMModelName,
		APIKey:        cfg.LLMAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		SystemPrompt:  cfg.SystemPrompt,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
	})
	if err := settingsProvider.LoadOverrides(cfg.DomainOverridesPath, logger); err != nil {
		logger.Fatal("failed to load domain overrides", zap.Error(err))
	}

	// --- Reference data ---
	gaz, err := gazetteer.Load()
	if err != nil {
		logger.Fatal("failed to load gazetteer", zap.Error(err))
	}
	vehicles, err := refdata.Load()
	if err != nil {
		logger.Fatal("failed to load vehicle catalog", zap.Error(err))
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	dealerCB := resilience.NewCircuitBreaker("dealer-api")
	llmCB := resilience.NewCircuitBreaker("llm")

	// --- Clients ---
	// Search calls and generation calls get separate timeout budgets.
	searchHTTP := &http.Client{Timeout: cfg.SearchTimeout}
	generateHTTP := &http.Client{Timeout: cfg.GenerateTimeout}

	dealerClient := dealerapi.NewClient(searchHTTP, cfg.DealerAPIBaseURL, dealerCB, resilienceCfg)
	llmClient := llm.NewClient(generateHTTP, settingsProvider, llmCB, resilienceCfg)

	probeCtx, cancelProbe := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	if err := llmClient.TestConnection(probeCtx); err != nil {
		logger.Warn("generative backend unreachable at startup", zap.Error(err))
	}
	cancelProbe()

	// --- Context store ---
	var contexts port.ContextStore
	pingers := []handler.Pinger{}
	if cfg.ContextStore == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisStore := contextstore.NewRedis(rdb, cfg.ContextIdleTTL)
		contexts = redisStore
		pingers = append(pingers, handler.Pinger{Name: "redis", Ping: redisStore.Ping})
		logger.Info("using Redis context store", zap.String("addr", cfg.RedisAddr))
	} else {
		contexts = contextstore.NewMemory(cfg.ContextIdleTTL)
		logger.Info("using in-memory context store")
	}

	// --- Transcript store ---
	var msgLog port.MessageLog = messagelog.Noop{}
	if cfg.PostgresDSN != "" {
		db, err := messagelog.Open(cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to connect to Postgres", zap.Error(err))
		}
		defer db.Close()
		pg := messagelog.NewPostgres(db)
		initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		if err := pg.Init(initCtx); err != nil {
			logger.Fatal("failed to init transcript tables", zap.Error(err))
		}
		cancelInit()
		msgLog = pg
		pingers = append(pingers, handler.Pinger{Name: "postgres", Ping: pg.Ping})
		logger.Info("transcript store enabled")
	} else {
		logger.Info("transcript store disabled, no POSTGRES_DSN")
	}

	// --- Services ---
	classifyCache := cache.New[string](cfg.CacheTTL)
	canned := service.NewCannedResponder(llmClient, classifyCache, metrics, logger)
	rules := service.NewRuleDetector(gaz, vehicles, logger)
	extractor := service.NewIntentExtractor(llmClient, rules, metrics, logger)
	formatter := service.NewFormatter(vehicles)

	orchestrator := service.NewOrchestrator(
		canned,
		extractor,
		llmClient,
		dealerClient,
		dealerClient,
		contexts,
		msgLog,
		settingsProvider,
		formatter,
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(orchestrator, llmClient, pingers, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.GenerateTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
