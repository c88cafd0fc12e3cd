package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/revibe-app/revibe-backend/api/routes"
	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/auth"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/categories"
	"github.com/revibe-app/revibe-backend/internal/conversations"
	"github.com/revibe-app/revibe-backend/internal/disputes"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/internal/listings"
	"github.com/revibe-app/revibe-backend/internal/orders"
	"github.com/revibe-app/revibe-backend/internal/profiles"
	"github.com/revibe-app/revibe-backend/internal/refunds"
	"github.com/revibe-app/revibe-backend/internal/returns"
	"github.com/revibe-app/revibe-backend/internal/setup"
	"github.com/revibe-app/revibe-backend/internal/storage"
	"github.com/revibe-app/revibe-backend/internal/users"
	"github.com/revibe-app/revibe-backend/internal/verification"
	"github.com/revibe-app/revibe-backend/pkg/auth/session"
	"github.com/revibe-app/revibe-backend/pkg/config"
	"github.com/revibe-app/revibe-backend/pkg/db"
	"github.com/revibe-app/revibe-backend/pkg/fees"
	"github.com/revibe-app/revibe-backend/pkg/logger"
	"github.com/revibe-app/revibe-backend/pkg/metrics"
	"github.com/revibe-app/revibe-backend/pkg/migrate"
	"github.com/revibe-app/revibe-backend/pkg/redis"
	"github.com/revibe-app/revibe-backend/pkg/storage/gcs"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.Storage, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	accessMetrics := metrics.NewAccessMetrics(registry)
	hookMetrics := metrics.NewHookMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	policies := authz.BuildRegistry(accessMetrics)

	feeCalc, err := fees.NewCalculator(cfg.Fees.PlatformRate)
	if err != nil {
		logg.Error(context.Background(), "failed to build fee calculator", err)
		os.Exit(1)
	}

	engine, err := hooks.NewDefaultEngine(hooks.DefaultEngineParams{
		Logger:  logg,
		Metrics: hookMetrics,
		Fees:    feeCalc,
		Orders:  cfg.Orders,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build hook engine", err)
		os.Exit(1)
	}

	recorder, err := audit.NewRecorder(policies, dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create audit recorder", err)
		os.Exit(1)
	}
	auditReader, err := audit.NewReader(policies, dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create audit reader", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	profileRepo := profiles.NewRepository(dbClient.DB())
	categoryRepo := categories.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		ProfileRepo:    profileRepo,
		SessionManager: sessionManager,
		Events:         recorder,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		Hooks:          engine,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.ServiceParams{
		Repo:     userRepo,
		TxRunner: dbClient,
		Registry: policies,
		Trail:    recorder,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	profileService, err := profiles.NewService(profiles.ServiceParams{
		Repo:     profileRepo,
		TxRunner: dbClient,
		Registry: policies,
		Hooks:    engine,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create profiles service", err)
		os.Exit(1)
	}

	categoryService, err := categories.NewService(categories.ServiceParams{
		Repo:     categoryRepo,
		Registry: policies,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create categories service", err)
		os.Exit(1)
	}

	setupService, err := setup.NewService(setup.ServiceParams{
		Repo:     setup.NewRepository(dbClient.DB()),
		Profiles: profileRepo,
		TxRunner: dbClient,
		Registry: policies,
		Hooks:    engine,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create setup service", err)
		os.Exit(1)
	}

	listingService, err := listings.NewService(listings.ServiceParams{
		Repo:       listings.NewRepository(dbClient.DB()),
		Categories: categoryRepo,
		TxRunner:   dbClient,
		Registry:   policies,
		Hooks:      engine,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listings service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Listings: orders.NewListingGate(),
		TxRunner: dbClient,
		Registry: policies,
		Hooks:    engine,
		Trail:    recorder,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	disputeService, err := disputes.NewService(disputes.ServiceParams{
		Repo:     disputes.NewRepository(dbClient.DB()),
		TxRunner: dbClient,
		Registry: policies,
		Hooks:    engine,
		Trail:    recorder,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create disputes service", err)
		os.Exit(1)
	}

	returnService, err := returns.NewService(returns.ServiceParams{
		Repo:     returns.NewRepository(dbClient.DB()),
		TxRunner: dbClient,
		Registry: policies,
		Hooks:    engine,
		Trail:    recorder,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}

	refundService, err := refunds.NewService(refunds.ServiceParams{
		Repo:     refunds.NewRepository(dbClient.DB()),
		Orders:   orderService,
		TxRunner: dbClient,
		Registry: policies,
		Hooks:    engine,
		Trail:    recorder,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	conversationService, err := conversations.NewService(conversations.ServiceParams{
		Repo:     conversations.NewRepository(dbClient.DB()),
		TxRunner: dbClient,
		Registry: policies,
		Hooks:    engine,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create conversations service", err)
		os.Exit(1)
	}

	verificationService, err := verification.NewService(verification.ServiceParams{
		Repo:     verification.NewRepository(dbClient.DB()),
		TxRunner: dbClient,
		Registry: policies,
		Hooks:    engine,
		Trail:    recorder,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}

	storageService, err := storage.NewService(storage.ServiceParams{
		Repo:        storage.NewRepository(dbClient.DB()),
		TxRunner:    dbClient,
		Registry:    policies,
		Signer:      gcsClient,
		Logger:      logg,
		UploadTTL:   cfg.Storage.UploadURLExpiry,
		DownloadTTL: cfg.Storage.DownloadURLExpiry,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create storage service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			gcsClient,
			metricsHandler,
			sessionManager,
			authService,
			registerService,
			userService,
			profileService,
			categoryService,
			setupService,
			listingService,
			orderService,
			disputeService,
			returnService,
			refundService,
			conversationService,
			verificationService,
			storageService,
			auditReader,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
