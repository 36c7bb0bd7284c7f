package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tablebite-backend/api/routes"
	"github.com/angelmondragon/tablebite-backend/internal/auth"
	"github.com/angelmondragon/tablebite-backend/internal/cart"
	"github.com/angelmondragon/tablebite-backend/internal/catalog"
	"github.com/angelmondragon/tablebite-backend/internal/checkout"
	"github.com/angelmondragon/tablebite-backend/internal/loyalty"
	"github.com/angelmondragon/tablebite-backend/internal/orders"
	"github.com/angelmondragon/tablebite-backend/internal/rewards"
	"github.com/angelmondragon/tablebite-backend/internal/users"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	pkgcheckout "github.com/angelmondragon/tablebite-backend/pkg/checkout"
	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/angelmondragon/tablebite-backend/pkg/metrics"
	"github.com/angelmondragon/tablebite-backend/pkg/migrate"
	"github.com/angelmondragon/tablebite-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.EnsureSchema(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}
	visitors, err := session.NewVisitorStore(redisClient, cfg.Session)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	commerceMetrics := metrics.NewCommerceMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	deps, err := buildServices(cfg, logg, dbClient, sessionManager, visitors, commerceMetrics)
	if err != nil {
		return err
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.Sessions = sessionManager
	deps.Visitors = visitors
	deps.HTTPMetrics = httpMetrics
	deps.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	deps.CORSOrigins = cfg.App.CORSOrigins

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	sessionManager *session.Manager,
	visitors *session.VisitorStore,
	commerceMetrics *metrics.CommerceMetrics,
) (routes.Dependencies, error) {
	var deps routes.Dependencies
	conn := dbClient.DB()

	program := loyalty.NewProgram(cfg.Loyalty, nil)
	pricing, err := pkgcheckout.NewPricing(cfg.Loyalty)
	if err != nil {
		return deps, err
	}

	catalogRepo := catalog.NewRepository(conn)
	if deps.Catalog, err = catalog.NewService(catalogRepo); err != nil {
		return deps, err
	}

	cartRepo := cart.NewRepository(conn)
	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Menu:     catalogRepo,
		Tx:       dbClient,
		Visitors: visitors,
		Metrics:  commerceMetrics,
		Logger:   logg,
	})
	if err != nil {
		return deps, err
	}
	deps.Cart = cartService

	ordersRepo := orders.NewRepository(conn)
	if deps.Orders, err = orders.NewService(ordersRepo, dbClient, logg); err != nil {
		return deps, err
	}

	if deps.Loyalty, err = loyalty.NewService(dbClient, program, logg); err != nil {
		return deps, err
	}

	if deps.Rewards, err = rewards.NewService(rewards.ServiceParams{
		Tx:        dbClient,
		Program:   program,
		Pricing:   pricing,
		StagedTTL: cfg.Loyalty.StagedTTL,
		Metrics:   commerceMetrics,
		Logger:    logg,
	}); err != nil {
		return deps, err
	}

	if deps.Checkout, err = checkout.NewService(checkout.ServiceParams{
		Tx:      dbClient,
		Carts:   cartRepo,
		Orders:  ordersRepo,
		Merger:  cartService,
		Program: program,
		Pricing: pricing,
		Metrics: commerceMetrics,
		Logger:  logg,
	}); err != nil {
		return deps, err
	}

	if deps.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessionManager,
		CartMerger:     cartService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return deps, err
	}

	if deps.Register, err = auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	}); err != nil {
		return deps, err
	}
	return deps, nil
}
