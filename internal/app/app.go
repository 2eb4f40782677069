package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/donaldmo/pandopot-api/internal/adapter/email"
	mongoadapter "github.com/donaldmo/pandopot-api/internal/adapter/mongo"
	natsadapter "github.com/donaldmo/pandopot-api/internal/adapter/nats"
	"github.com/donaldmo/pandopot-api/internal/adapter/payment"
	redisadapter "github.com/donaldmo/pandopot-api/internal/adapter/redis"
	"github.com/donaldmo/pandopot-api/internal/adapter/secrets"
	"github.com/donaldmo/pandopot-api/internal/adapter/storage"
	"github.com/donaldmo/pandopot-api/internal/app/config"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/platform/metrics"
	"github.com/donaldmo/pandopot-api/internal/platform/tracer"
	grpcserver "github.com/donaldmo/pandopot-api/internal/port/grpc"
	"github.com/donaldmo/pandopot-api/internal/port/rest"
	"github.com/donaldmo/pandopot-api/internal/service"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	cfg            *config.Config
	log            logger.Logger
	httpServer     *http.Server
	grpcServer     *grpcserver.Server
	notifier       service.Notifier
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	natsConn       *nats.Conn
	secretClient   *secretmanager.Client
	tracerProvider *sdktrace.TracerProvider
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	appLogger, err := logger.NewZapLogger(logger.ZapLoggerConfig{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		TimeFormat:  cfg.Logger.TimeFormat,
		ServiceName: cfg.ServiceName,
		Env:         cfg.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s, GRPC Port: %s", cfg.Env, cfg.HTTPServer.Port, cfg.GRPCServer.Port)

	a := &App{cfg: cfg, log: appLogger}

	a.tracerProvider, err = tracer.InitTracer(ctx, cfg.Tracing, cfg.ServiceName, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics = metrics.New("pandopot")
	}

	appLogger.Info("Initializing MongoDB client...")
	a.mongoClient, err = mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		appLogger.Errorf("Failed to initialize MongoDB client: %v", err)
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	db := a.mongoClient.Database(cfg.MongoDB.Database)
	if err := mongoadapter.EnsureIndexes(ctx, db); err != nil {
		a.closeStores(ctx)
		return nil, fmt.Errorf("failed to ensure MongoDB indexes: %w", err)
	}
	appLogger.Info("MongoDB client initialized successfully")

	appLogger.Info("Initializing Redis client...")
	a.redisClient, err = redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		a.closeStores(ctx)
		appLogger.Errorf("Failed to initialize Redis client: %v", err)
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Redis client initialized successfully")

	var publisher service.EventPublisher = natsadapter.NoopPublisher{}
	if cfg.NATS.URL != "" {
		a.natsConn, err = natsadapter.NewConnection(cfg.NATS, appLogger)
		if err != nil {
			appLogger.Warnf("NATS unavailable, domain events will be dropped: %v", err)
		} else if pub, err := natsadapter.NewNATSPublisher(a.natsConn); err == nil {
			publisher = pub
		}
	}

	secretStore, err := a.newSecretStore(ctx)
	if err != nil {
		a.closeStores(ctx)
		return nil, err
	}

	sender, err := newEmailSender(cfg, appLogger)
	if err != nil {
		a.closeStores(ctx)
		return nil, err
	}

	var archive service.ReceiptArchiver
	if cfg.Storage.Enabled {
		receipts, err := storage.NewReceiptArchive(ctx, cfg.Storage, appLogger)
		if err != nil {
			a.closeStores(ctx)
			return nil, fmt.Errorf("failed to initialize receipt archive: %w", err)
		}
		archive = receipts
	}

	userRepo := mongoadapter.NewUserRepository(db)
	productRepo := mongoadapter.NewProductRepository(db)
	marketRepo := mongoadapter.NewMarketRepository(db)
	orderRepo := mongoadapter.NewOrderRepository(db)
	subscriptionRepo := mongoadapter.NewSubscriptionRepository(db)
	catalogRepo := mongoadapter.NewCatalogRepository(db)
	productCache := redisadapter.NewProductCacheRepository(a.redisClient)
	idempotencyStore := redisadapter.NewIdempotencyRepository(a.redisClient)
	gateway := payment.NewYocoGateway(cfg.Payment, &http.Client{}, appLogger)

	a.notifier = service.NewNotificationService(sender, archive, appMetrics, appLogger, service.NotificationServiceConfig{
		ContactEmail: cfg.Notifier.ContactEmail,
		SendTimeout:  cfg.Notifier.SendTimeout,
	})
	catalogService := service.NewCatalogService(catalogRepo, productRepo, marketRepo, appLogger)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, publisher, appMetrics, appLogger, service.SubscriptionServiceConfig{
		ReservationTTL: cfg.Subscription.ReservationTTL,
	})
	cartService := service.NewCartService(userRepo, productRepo, appLogger)
	listingService := service.NewListingService(productRepo, marketRepo, userRepo, catalogService, subscriptionService, productCache, publisher, appLogger, service.ListingServiceConfig{
		ProductCacheTTL: cfg.ProductCache.TTL,
	})
	boostService := service.NewBoostService(productRepo, userRepo, gateway, secretStore, a.notifier, productCache, publisher, appMetrics, appLogger, service.BoostServiceConfig{
		Currency:          cfg.Payment.Currency,
		PlatformAccountID: cfg.Payment.PlatformAccountID,
		DisplayLimit:      cfg.Boost.DisplayLimit,
	})
	orderService := service.NewOrderService(orderRepo, productRepo, userRepo, cartService, gateway, secretStore, idempotencyStore, a.notifier, publisher, appMetrics, appLogger, service.OrderServiceConfig{
		Currency:       cfg.Payment.Currency,
		IdempotencyTTL: cfg.Checkout.IdempotencyTTL,
	})
	searchService := service.NewSearchService(productRepo, marketRepo, appLogger)
	appLogger.Info("Services initialized")

	handler := rest.NewHandler(rest.Services{
		Listings:      listingService,
		Carts:         cartService,
		Orders:        orderService,
		Boosts:        boostService,
		Search:        searchService,
		Catalog:       catalogService,
		Subscriptions: subscriptionService,
		Notifier:      a.notifier,
	}, appLogger)
	router := rest.NewRouter(handler, rest.RouterConfig{
		JWTSecret:   cfg.Auth.JWTSecret,
		AdminRole:   cfg.Auth.AdminRole,
		MetricsPath: cfg.Metrics.Path,
	}, appMetrics, appLogger)

	a.httpServer = &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	a.grpcServer = grpcserver.NewServer(appLogger, cfg.GRPCServer,
		grpcserver.Probe{Name: "mongodb", Check: mongoadapter.Ping(a.mongoClient)},
		grpcserver.Probe{Name: "redis", Check: redisadapter.Ping(a.redisClient)},
	)
	appLogger.Info("HTTP and gRPC server instances created")

	return a, nil
}

func (a *App) newSecretStore(ctx context.Context) (secrets.Store, error) {
	switch a.cfg.Secrets.Provider {
	case "gcp":
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create secret manager client: %w", err)
		}
		store, err := secrets.NewSecretManagerStore(client, a.cfg.Secrets.GCPProject, a.cfg.Secrets.NamePrefix, a.log)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to initialize secret store: %w", err)
		}
		a.secretClient = client
		a.log.Infof("Payment keys resolved from Secret Manager project %s", a.cfg.Secrets.GCPProject)
		return store, nil
	case "static", "":
		a.log.Warnf("Payment keys resolved from static configuration (%d accounts)", len(a.cfg.Secrets.Static))
		return secrets.NewStaticStore(a.cfg.Secrets.Static), nil
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", a.cfg.Secrets.Provider)
	}
}

// newEmailSender returns a nil sender when mail is disabled.
func newEmailSender(cfg *config.Config, log logger.Logger) (service.EmailSender, error) {
	switch cfg.Notifier.Provider {
	case "smtp":
		sender, err := email.NewSMTPSender(cfg.SMTP, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SMTP sender: %w", err)
		}
		return sender, nil
	case "sendgrid":
		sender, err := email.NewSendGridSender(cfg.SendGrid, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SendGrid sender: %w", err)
		}
		return sender, nil
	case "none", "":
		log.Warn("Email notifications are disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown notifier provider %q", cfg.Notifier.Provider)
	}
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	go func() {
		a.log.Infof("HTTP server is starting on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	go func() {
		if err := a.grpcServer.Start(); err != nil {
			a.log.Fatalf("Failed to start gRPC server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.TimeoutGraceful+5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	} else {
		a.log.Info("HTTP server stopped successfully")
	}
	if err := a.grpcServer.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during gRPC server graceful shutdown: %v", err)
	}

	a.log.Info("Waiting for pending notifications...")
	a.notifier.Wait()

	a.closeStores(shutdownCtx)

	if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("Error shutting down tracer provider: %v", err)
	}

	a.log.Info("Application shut down successfully")
	_ = a.log.Sync()
}

func (a *App) closeStores(ctx context.Context) {
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.log.Errorf("Error draining NATS connection: %v", err)
		}
	}
	if a.secretClient != nil {
		if err := a.secretClient.Close(); err != nil {
			a.log.Errorf("Error closing secret manager client: %v", err)
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}
}
