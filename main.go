package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/adapters/datasource/postgres"
	"github.com/askdb-ai/askdb-engine/pkg/catalog"
	"github.com/askdb-ai/askdb-engine/pkg/config"
	"github.com/askdb-ai/askdb-engine/pkg/database"
	"github.com/askdb-ai/askdb-engine/pkg/handlers"
	"github.com/askdb-ai/askdb-engine/pkg/llm"
	"github.com/askdb-ai/askdb-engine/pkg/logging"
	"github.com/askdb-ai/askdb-engine/pkg/mcp"
	"github.com/askdb-ai/askdb-engine/pkg/mcp/tools"
	"github.com/askdb-ai/askdb-engine/pkg/middleware"
	"github.com/askdb-ai/askdb-engine/pkg/pipeline"
	"github.com/askdb-ai/askdb-engine/pkg/retry"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	startedAt := time.Now()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Database),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("answer_cache", cfg.Redis.Host != ""),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled))

	ctx := context.Background()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(cfg.Database.ConnectionString(), cfg.Database.MigrationsPath, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	adapter := postgres.NewAdapter(db.Pool, cfg.Catalog.Schema, logger)

	cat := catalog.NewCatalog(adapter, &cfg.Catalog, logger)
	if err := cat.Load(ctx); err != nil {
		logger.Fatal("Failed to load schema catalog", zap.Error(err))
	}

	apiKey := cfg.LLM.APIKey
	if cfg.LLM.Provider == "anthropic" && cfg.LLM.AnthropicAPIKey != "" {
		apiKey = cfg.LLM.AnthropicAPIKey
	}
	baseClient, err := llm.NewClient(&llm.Config{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		APIKey:   apiKey,
		Timeout:  cfg.LLM.Timeout(),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	llmClient := llm.NewResilientClient(baseClient, retry.DefaultConfig(), logger)

	cache := pipeline.NewAnswerCache(redisClient, cfg.Pipeline.CacheTTL(), logger)
	pipe := pipeline.NewPipeline(llmClient, adapter, adapter, cat, cache, &cfg.Pipeline, &cfg.LLM, logger)

	mux := http.NewServeMux()

	auth := middleware.NewAuth(&cfg.Auth, logger)

	handlers.NewAskHandler(pipe, logger).RegisterRoutes(mux, auth.RequireBearer)
	handlers.NewSchemaHandler(cat, logger).RegisterRoutes(mux, auth.RequireBearer)
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer("askdb-engine", cfg.Version, logger)
		tools.RegisterAskTool(mcpServer.MCP(), &tools.AskToolDeps{Pipeline: pipe, Logger: logger})
		tools.RegisterSchemaTool(mcpServer.MCP(), &tools.SchemaToolDeps{Catalog: cat, Logger: logger})
		tools.RegisterHealthTool(mcpServer.MCP(), &tools.HealthToolDeps{
			Version:   cfg.Version,
			StartedAt: startedAt,
			DB:        db,
			Logger:    logger,
		})
		mux.Handle(cfg.MCP.Path, middleware.MCPRequestLogger(logger)(mcpServer.NewStreamableHTTPServer()))
	}

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting askdb-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))

	if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
		err = http.ListenAndServeTLS(addr, cfg.TLSCertPath, cfg.TLSKeyPath, handler)
	} else {
		err = http.ListenAndServe(addr, handler)
	}
	if err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
