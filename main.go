package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"trade-viewer/internal/api"
	"trade-viewer/internal/cache"
	"trade-viewer/internal/config"
	"trade-viewer/internal/database"
	"trade-viewer/internal/logger"
	"trade-viewer/internal/refdata"
	"trade-viewer/internal/services/tradeapi"
)

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}

	cfg := config.Load()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tradeCache, closeCache := newCache(cfg, log)
	defer closeCache()

	opts := []tradeapi.Option{tradeapi.WithFetchTimeout(cfg.UpstreamTimeout)}
	if cfg.DatabaseURL != "" {
		db, err := database.Initialize(cfg.DatabaseURL, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		opts = append(opts, tradeapi.WithArchiver(database.NewSnapshotArchive(db)))
	}

	svc := tradeapi.NewService(
		tradeapi.NewClient(cfg.TradeAPIURL, cfg.UpstreamTimeout),
		tradeCache,
		cfg.TradeCacheTTL,
		tradeapi.Exclusions{Stations: cfg.ExcludeStationIDs, Commodities: cfg.ExcludeCommodityIDs},
		log,
		opts...,
	)

	log.WithFields(logger.Fields{
		"upstream":             cfg.TradeAPIURL,
		"cache":                cfg.CacheBackend,
		"ttl":                  cfg.TradeCacheTTL.String(),
		"excluded_stations":    len(cfg.ExcludeStationIDs),
		"excluded_commodities": len(cfg.ExcludeCommodityIDs),
	}).Info("trade service configured")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.StaticFile("/db/"+refdata.CommodityFile, filepath.Join(cfg.RefdataDir, refdata.CommodityFile))
	r.StaticFile("/db/"+refdata.StationFile, filepath.Join(cfg.RefdataDir, refdata.StationFile))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.Status(http.StatusNotFound)
	})

	limiter := rate.NewLimiter(rate.Limit(cfg.RevalidateRate), cfg.RevalidateBurst)
	api.SetupRoutes(r.Group("/api"), svc, loadReference(cfg.RefdataDir, log), limiter, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logger.Fields{"port": cfg.Port}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("Server stopped")
}

func newCache(cfg *config.Config, log *logger.Log) (cache.Cache, func()) {
	if cfg.CacheBackend != "redis" {
		return cache.NewMemory(), func() {}
	}
	rc, err := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.WithError(err).Warn("redis unavailable, using in-memory trade cache")
		return cache.NewMemory(), func() {}
	}
	return rc, func() { _ = rc.Close() }
}

// loadReference reads the name tables served under /db. Missing tables only
// empty the aggregated views; /api/trade keeps working.
func loadReference(dir string, log *logger.Log) api.Reference {
	var ref api.Reference
	var err error
	if ref.Commodities, err = refdata.LoadFile(dir, refdata.Commodities); err != nil {
		log.WithError(err).Warn("commodity names unavailable")
	}
	if ref.Stations, err = refdata.LoadFile(dir, refdata.Stations); err != nil {
		log.WithError(err).Warn("station names unavailable")
	}
	return ref
}

func requestLogger(log *logger.Log) gin.HandlerFunc {
	entry := log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry.WithFields(logger.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
