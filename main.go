package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/Vaibhavugile/doenew/availability"
	apperrors "github.com/Vaibhavugile/doenew/common/errors"
	"github.com/Vaibhavugile/doenew/common/logger"
	"github.com/Vaibhavugile/doenew/common/middleware"
	"github.com/Vaibhavugile/doenew/controllers"
	"github.com/Vaibhavugile/doenew/database"
	"github.com/Vaibhavugile/doenew/kafka"
	awspkg "github.com/Vaibhavugile/doenew/pkg/aws"
	pkgdynamo "github.com/Vaibhavugile/doenew/pkg/dynamodb"
	"github.com/Vaibhavugile/doenew/pkg/otelx"
	"github.com/Vaibhavugile/doenew/providers"
	"github.com/Vaibhavugile/doenew/repository"
	"github.com/Vaibhavugile/doenew/routes"
	servicepkg "github.com/Vaibhavugile/doenew/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rental-service",
		Short:         "Rental availability, courier serviceability and booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional outside local development
			_ = godotenv.Load()
		},
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Initialize(getEnv("ENVIRONMENT", "development"))
			defer log.Sync() //nolint:errcheck

			cfg, err := LoadConfig(cmd.Context(), log)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.ConnectPostgres(cfg.DB, log)
			if err != nil {
				return err
			}
			return database.Migrate(cmd.Context(), db, log)
		},
	}
}

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rental HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, migrateUp)
		},
	}
	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}

func serve(ctx context.Context, migrateUp bool) error {
	env := getEnv("ENVIRONMENT", "development")
	bootLog := logger.Initialize(env)

	cfg, err := LoadConfig(ctx, bootLog)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// AWS clients
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)
	if awsErr != nil {
		return fmt.Errorf("load AWS config: %w", awsErr)
	}

	var cwWriter io.Writer
	if cfg.CloudWatchLogs {
		cw, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.LogGroup, serviceName, true)
		if err != nil {
			bootLog.Warn("CloudWatch logs unavailable, logging to stdout only", zap.Error(err))
		} else if cw.IsEnabled() {
			cwWriter = cw
		}
	}
	log := logger.InitializeWithWriter(cfg.Environment, cwWriter)
	defer log.Sync() //nolint:errcheck

	shutdownTracing, err := otelx.Setup(ctx, otelx.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}

	db, err := database.ConnectPostgres(cfg.DB, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close() //nolint:errcheck
	}
	if migrateUp {
		if err := database.Migrate(ctx, db, log); err != nil {
			return err
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close() //nolint:errcheck
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ddb := pkgdynamo.NewClientFromConfig(awsCfg)
	if err := pkgdynamo.CheckTable(ctx, ddb, cfg.ProductsTable); err != nil {
		log.Warn("Products table check failed", zap.Error(err))
	}

	var snsClient awspkg.SNSPublisher
	if cfg.RentalSNSTopicARN != "" {
		snsClient = awspkg.NewSNSClient(awsCfg)
	}

	var events servicepkg.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer producer.Close() //nolint:errcheck
		events = producer
	}

	metrics := awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.MetricsEnabled)
	clock := availability.SystemClock{Location: cfg.BusinessTZ}

	// DI chain
	courier := providers.NewShiprocketProvider(cfg.Shiprocket, providers.NewRedisTokenCache(rdb), log)
	catalog := repository.NewDynamoProductCatalog(ddb, cfg.ProductsTable)
	quotes := repository.NewRedisQuoteStore(rdb, cfg.QuoteTTL)
	idem := repository.NewRedisIdempotencyStore(rdb)
	reservations := repository.NewGormReservationRepository(db)

	serviceabilityService := servicepkg.NewServiceabilityService(
		courier,
		catalog,
		quotes,
		cfg.Policy,
		servicepkg.ServiceabilityConfig{
			PickupPincode:   cfg.PickupPincode,
			DefaultWeightKg: cfg.DefaultWeightKg,
			QuoteTTL:        cfg.QuoteTTL,
		},
		clock,
		metrics,
		log,
	)
	availabilityService := servicepkg.NewAvailabilityService(reservations, catalog, quotes, cfg.Policy, clock, log)
	bookingService := servicepkg.NewBookingService(
		reservations,
		catalog,
		quotes,
		idem,
		cfg.Policy,
		clock,
		snsClient,
		events,
		servicepkg.BookingConfig{
			SNSTopicArn:    cfg.RentalSNSTopicARN,
			IdempotencyTTL: cfg.IdempotencyTTL,
		},
		metrics,
		log,
	)
	rentalController := controllers.NewRentalController(serviceabilityService, availabilityService, bookingService)

	if err := controllers.RegisterValidators(); err != nil {
		return err
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		logger.RequestID(),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(cfg.AllowedOrigins),
		middleware.MetricsMiddleware(metrics, serviceName),
		middleware.Timeout(cfg.RequestTimeout),
		gin.Recovery(),
		apperrors.ErrorMiddleware(),
	)

	limiter := middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	routes.RegisterRentalRoutes(r, rentalController, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelx.Handler(r, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.Info("Rental service started",
		zap.String("port", cfg.Port),
		zap.String("mode", string(cfg.Policy.Mode)),
	)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	log.Info("Shutting down rental service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	log.Info("Server exited cleanly")
	return nil
}
