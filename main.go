package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/config"
	"github.com/nutriarab/nutriarab-engine/pkg/database"
	"github.com/nutriarab/nutriarab-engine/pkg/handlers"
	"github.com/nutriarab/nutriarab-engine/pkg/llm"
	"github.com/nutriarab/nutriarab-engine/pkg/logging"
	enginemcp "github.com/nutriarab/nutriarab-engine/pkg/mcp"
	"github.com/nutriarab/nutriarab-engine/pkg/middleware"
	"github.com/nutriarab/nutriarab-engine/pkg/repositories"
	"github.com/nutriarab/nutriarab-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio instead of HTTP")
	flag.Parse()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("database", cfg.Database.Host),
		zap.String("llm_model", cfg.AI.LLMModel),
		zap.String("embedding_model", cfg.AI.EmbeddingModel),
		zap.Bool("redis", cfg.Redis.Host != ""))

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeText(err.Error())))
	}
	defer db.Close()
	logger.Info("Connected to database",
		zap.String("dsn", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	locker, err := newSessionLocker(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	generator, err := llm.NewGenerator(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	embedder, err := llm.NewEmbedder(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	dishes := repositories.NewDishRepository(db)
	refFoods := repositories.NewReferenceFoodRepository(db)
	sessions := repositories.NewSessionRepository(db)
	missingRepo := repositories.NewMissingMatchRepository(db)

	calc := services.NewNutritionCalculator()
	breakdown := services.NewBreakdownService(generator, cfg.AI.RequestTimeout, logger)
	resolver := services.NewResolver(dishes, refFoods, embedder, breakdown, calc, cfg.Resolution, logger)
	missing := services.NewMissingMatchService(missingRepo, logger)
	chat := services.NewChatService(sessions, resolver, breakdown, missing, calc, locker, cfg.Session, logger)

	if *mcpMode {
		srv := enginemcp.NewServer("nutriarab-engine", cfg.Version, logger)
		enginemcp.RegisterAnalyzeFoodTool(srv.MCP(), chat, logger)
		enginemcp.RegisterListCountriesTool(srv.MCP(), dishes, logger)
		logger.Info("Serving MCP tools over stdio")
		if err := srv.ServeStdio(); err != nil {
			logger.Fatal("MCP server failed", zap.Error(err))
		}
		return
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(chat, logger).RegisterRoutes(mux)
	handlers.NewCountriesHandler(dishes, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting nutriarab-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-shutdownCtx.Done()
	logger.Info("Shutting down")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(timeoutCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// runMigrations opens a short-lived database/sql connection for the
// migration driver and closes it once migrations are applied.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}

func newSessionLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.SessionLocker, error) {
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient == nil {
		logger.Info("Redis not configured, using in-process session locks")
		return services.NewKeyedMutexLocker(), nil
	}
	return services.NewRedisLocker(redisClient, cfg.Redis.LockTTL, logger), nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
