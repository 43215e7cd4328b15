package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/db"
	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/identity"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
	prod "github.com/MikeMC777/tienda-ecom/internal/product"
)

func main() {
	cfg := config.Load()
	log := logging.MustNewLogger("product-service", cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	cfg.Log(log)
	httpx.SetDebugErrors(cfg.DebugErrors)
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	shutdownTracing := metrics.SetupTracing("product-service", cfg.TraceSampleRatio, log)

	var repo prod.Repository
	if cfg.Store == config.StoreMemory {
		log.Warn("memory_store_enabled")
		repo = prod.NewMemRepo()
	} else {
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.PostgresDSN, log); err != nil {
				log.Fatal("migrations_failed", zap.Error(err))
			}
		}
		pool, err := db.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		repo = prod.NewPGRepo(pool)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(log), httpx.Metrics(m))
	registerRoutes(r, repo, identity.NewTokens(cfg.JWTSecret, cfg.JWTTTL))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              cfg.ProductSvcAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("product-service listening", zap.String("addr", cfg.ProductSvcAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http_server_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http_shutdown_failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing_shutdown_failed", zap.Error(err))
	}
	log.Info("shutdown_complete")
}
