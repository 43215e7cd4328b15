package main

import (
	"context"
	"errors"
	"net"
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
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/db"
	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/identity"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
	"github.com/MikeMC777/tienda-ecom/internal/user"
)

func main() {
	cfg := config.Load()
	log := logging.MustNewLogger("user-service", cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	cfg.Log(log)
	httpx.SetDebugErrors(cfg.DebugErrors)
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	shutdownTracing := metrics.SetupTracing("user-service", cfg.TraceSampleRatio, log)

	var repo user.Repository
	if cfg.Store == config.StoreMemory {
		log.Warn("memory_store_enabled")
		repo = user.NewMemRepo()
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
		repo = user.NewPGRepo(pool)
	}
	svc := user.NewService(repo, identity.NewTokens(cfg.JWTSecret, cfg.JWTTTL))

	// gRPC: health checks for the orchestrator
	lis, err := net.Listen("tcp", cfg.UserGRPCAddr)
	if err != nil {
		log.Fatal("grpc_listen_failed", zap.String("addr", cfg.UserGRPCAddr), zap.Error(err))
	}
	grpcServer := grpc.NewServer()
	hs := newHealthServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)
	go func() {
		log.Info("user-service grpc listening", zap.String("addr", cfg.UserGRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc_serve_failed", zap.Error(err))
		}
	}()

	// HTTP: register + login
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(log), httpx.Metrics(m))
	registerRoutes(r, svc)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              cfg.UserSvcAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("user-service listening", zap.String("addr", cfg.UserSvcAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http_server_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	hs.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http_shutdown_failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing_shutdown_failed", zap.Error(err))
	}
	log.Info("shutdown_complete")
}
