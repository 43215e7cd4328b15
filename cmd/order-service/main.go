// @title        Tienda order-service API
// @version      1.0
// @description  Cart, orders and eSewa payments.
// @BasePath     /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/MikeMC777/tienda-ecom/docs"
	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/db"
	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/identity"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
	"github.com/MikeMC777/tienda-ecom/internal/notify"
	"github.com/MikeMC777/tienda-ecom/internal/order"
	"github.com/MikeMC777/tienda-ecom/internal/payment"
	"github.com/MikeMC777/tienda-ecom/internal/product"
	"github.com/MikeMC777/tienda-ecom/internal/reconcile"
	"github.com/MikeMC777/tienda-ecom/internal/scheduler"
)

// catalogStore is a product repository that can also reserve stock.
type catalogStore interface {
	product.Repository
	product.Inventory
}

type stores struct {
	catalog catalogStore
	carts   cart.Repository
	orders  order.Repository
	close   func()
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("memory_store_enabled")
		return &stores{
			catalog: product.NewMemRepo(),
			carts:   cart.NewMemRepo(),
			orders:  order.NewMemRepo(),
			close:   func() {},
		}, nil
	}
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.PostgresDSN, log); err != nil {
			return nil, err
		}
	}
	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	return &stores{
		catalog: product.NewPGRepo(pool),
		carts:   cart.NewPGRepo(pool),
		orders:  order.NewPGRepo(pool),
		close:   pool.Close,
	}, nil
}

// withCartCache puts Redis in front of the cart store when REDIS_ADDR is set.
func withCartCache(ctx context.Context, cfg config.Config, repo cart.Repository, log *zap.Logger) (cart.Repository, func()) {
	if cfg.RedisAddr == "" {
		return repo, func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis_unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return cart.NewCachedRepository(repo, cart.NewRedisCache(client, cfg.CartCacheTTL)), func() { _ = client.Close() }
}

// receiptSender publishes to RabbitMQ when AMQP_URL is set and only logs otherwise.
func receiptSender(cfg config.Config, log *zap.Logger) (notify.Sender, func(), error) {
	if cfg.AMQPURL == "" {
		return notify.LogSender{Log: log}, func() {}, nil
	}
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	s, err := notify.NewAMQPSender(conn, cfg.ReceiptQueue)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return s, func() {
		_ = s.Close()
		_ = conn.Close()
	}, nil
}

func main() {
	cfg := config.Load()
	log := logging.MustNewLogger("order-service", cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	cfg.Log(log)
	httpx.SetDebugErrors(cfg.DebugErrors)
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	shutdownTracing := metrics.SetupTracing("order-service", cfg.TraceSampleRatio, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("store_open_failed", zap.Error(err))
	}
	defer st.close()

	cartRepo, closeCache := withCartCache(ctx, cfg, st.carts, log)
	defer closeCache()

	sender, closeSender, err := receiptSender(cfg, log)
	if err != nil {
		log.Fatal("amqp_open_failed", zap.Error(err))
	}
	defer closeSender()

	dispatcher := notify.NewDispatcher(sender, log, notify.WithMetrics(m))
	dispatcher.Start()

	carts := cart.NewManager(cartRepo, st.catalog, cart.WithMetrics(m))
	orders := order.NewService(st.orders, st.catalog, st.catalog, carts, order.WithMetrics(m))
	gateway := payment.NewGateway(cfg.Esewa, payment.WithMetrics(m))
	reconciler := reconcile.New(st.orders, st.catalog, carts, dispatcher, reconcile.WithMetrics(m))

	policy, err := order.PolicyByName(cfg.FulfillmentPolicy, cfg.OrderPendingLimit)
	if err != nil {
		log.Fatal("fulfillment_policy_invalid", zap.Error(err))
	}
	sched := scheduler.New(log, scheduler.WithMetrics(m))
	if err := sched.Register(cfg.CartPurgeCron, cart.NewPurgeJob(cartRepo, cfg.CartRetention)); err != nil {
		log.Fatal("job_register_failed", zap.Error(err))
	}
	if err := sched.Register(cfg.OrderPromoteCron, order.NewPromoteJob(st.orders, policy)); err != nil {
		log.Fatal("job_register_failed", zap.Error(err))
	}
	sched.Start()

	r := newRouter(deps{
		carts:      carts,
		orders:     orders,
		gateway:    gateway,
		reconciler: reconciler,
		tokens:     identity.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		esewa:      cfg.Esewa,
		metrics:    m,
		log:        log,
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.OrderSvcAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("order-service listening", zap.String("addr", cfg.OrderSvcAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http_server_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown_started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http_shutdown_failed", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("scheduler_stop_failed", zap.Error(err))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error("dispatcher_stop_failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing_shutdown_failed", zap.Error(err))
	}
	log.Info("shutdown_complete")
}
