package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/analysis"
	"building-lca/analyzer-backend/internal/catalog"
	"building-lca/analyzer-backend/internal/config"
	"building-lca/analyzer-backend/internal/matching"
	"building-lca/analyzer-backend/internal/results"
	"building-lca/analyzer-backend/internal/results/ws"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	flag.Parse()

	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	// ---------------- CATALOGS ----------------
	cache := catalog.NewCache(logger)
	source, err := activeSource(cfg, logger)
	if err != nil {
		logger.Fatal("invalid catalog configuration", zap.Error(err))
	}
	logger.Info("active catalog source", zap.String("source", source.Describe()))

	if source.Kind() == catalog.SourceOkobaudatAPI && cfg.Catalogs.RefreshSchedule != "" {
		refresher := catalog.NewRefresher(cache, cfg.Catalogs.RefreshSchedule, logger)
		if err := refresher.Start(); err != nil {
			logger.Fatal("failed to start catalog refresher", zap.Error(err))
		}
		defer refresher.Stop()
	}

	// ---------------- MATCHING ----------------
	matchingService := matching.NewService(cache, source, cfg.Matching, logger)
	matchingHandler := matching.NewHandler(matchingService, logger)

	// ---------------- ANALYSIS / RESULTS ----------------
	hub := ws.NewHub(logger)
	engine := analysis.NewEngine(logger)
	resultsService := results.NewService(engine, hub, logger)
	resultsHandler := results.NewHandler(resultsService, matchingService, logger)

	r := gin.Default()
	matchingHandler.RegisterRoutes(r)
	resultsHandler.RegisterRoutes(r)

	r.GET("/ws", func(c *gin.Context) {
		if err := hub.HandleConnection(c.Writer, c.Request); err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
		}
	})

	// ---------------- PING ----------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API alive!"})
	})

	addr := cfg.Server.GetServerAddr()
	logger.Info("server running", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// activeSource builds the CatalogSource selected by configuration.
func activeSource(cfg *config.Config, logger *zap.Logger) (catalog.CatalogSource, error) {
	switch cfg.Catalogs.ActiveSource {
	case catalog.SourceKBOB:
		if cfg.Catalogs.KBOBPath == "" {
			return nil, fmt.Errorf("KBOB source requires kbob_path")
		}
		return catalog.NewKBOBSource(cfg.Catalogs.KBOBPath, logger), nil
	case catalog.SourceOkobaudatCSV:
		if cfg.Catalogs.OkobaudatCSVPath == "" {
			return nil, fmt.Errorf("OKOBAUDAT CSV source requires okobaudat_csv_path")
		}
		return catalog.NewOkobaudatCSVSource(cfg.Catalogs.OkobaudatCSVPath, logger), nil
	case catalog.SourceOkobaudatAPI:
		return catalog.NewOkobaudatAPISource(cfg.Catalogs.OkobaudatAPI, logger), nil
	case catalog.SourceCustom:
		if cfg.Catalogs.CustomPath == "" {
			return nil, fmt.Errorf("custom source requires custom_path")
		}
		return catalog.NewCustomJSONSource(cfg.Catalogs.CustomPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalogs.ActiveSource)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if err := zapConfig.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zapConfig.Build()
}
