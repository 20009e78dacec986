package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	"github.com/Vaibhavugile/doenew/common/middleware"
	"github.com/Vaibhavugile/doenew/database"
	awspkg "github.com/Vaibhavugile/doenew/pkg/aws"
	"github.com/Vaibhavugile/doenew/providers"
	servicepkg "github.com/Vaibhavugile/doenew/services"
	"go.uber.org/zap"
)

const (
	serviceName = "rental-service"

	dbSecretName      = "rental/DB_CREDENTIALS"
	courierSecretName = "rental/COURIER_CREDENTIALS"
)

// Config holds all configuration for the rental service.
type Config struct {
	Port        string
	Environment string

	DB database.Config

	RedisURL       string
	QuoteTTL       time.Duration
	IdempotencyTTL time.Duration

	ProductsTable string

	KafkaBrokers []string
	KafkaTopic   string

	RentalSNSTopicARN string

	UseSecrets       bool
	CloudWatchLogs   bool
	LogGroup         string
	MetricsEnabled   bool
	MetricsNamespace string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64

	Policy          availability.Policy
	BusinessTZ      *time.Location
	PickupPincode   string
	DefaultWeightKg float64
	Shiprocket      providers.ShiprocketConfig

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// envReader parses typed env vars and keeps the first error.
type envReader struct {
	err error
}

func (r *envReader) fail(key, val string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s=%q: %w", key, val, err)
	}
}

func (r *envReader) int(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return n
}

func (r *envReader) float(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return f
}

func (r *envReader) bool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return b
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.fail(key, val, err)
		return fallback
	}
	return d
}

// LoadConfig reads configuration from environment variables with optional
// Secrets Manager override.
func LoadConfig(ctx context.Context, logger *zap.Logger) (*Config, error) {
	env := &envReader{}

	cfg := &Config{
		Port:        getEnv("PORT", "8095"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DB: database.Config{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),
		},
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		QuoteTTL:          env.duration("QUOTE_TTL", 30*time.Minute),
		IdempotencyTTL:    env.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		ProductsTable:     getEnv("PRODUCTS_TABLE", "products"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        getEnv("KAFKA_RENTAL_TOPIC", "rental-events"),
		RentalSNSTopicARN: os.Getenv("RENTAL_SNS_TOPIC_ARN"),
		UseSecrets:        env.bool("AWS_USE_SECRETS", false),
		CloudWatchLogs:    env.bool("CLOUDWATCH_LOGS_ENABLED", false),
		LogGroup:          getEnv("CLOUDWATCH_LOG_GROUP", "/ecommerce/rental-service"),
		MetricsEnabled:    env.bool("CLOUDWATCH_METRICS_ENABLED", false),
		MetricsNamespace:  getEnv("CLOUDWATCH_METRICS_NAMESPACE", "Rentals"),
		OTelEnabled:       env.bool("OTEL_ENABLED", false),
		OTelEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelSampleRatio:   env.float("OTEL_SAMPLE_RATIO", 1.0),
		PickupPincode:     getEnv("PICKUP_PINCODE", ""),
		DefaultWeightKg:   env.float("DEFAULT_WEIGHT_KG", 0.5),
		Shiprocket: providers.ShiprocketConfig{
			BaseURL:  getEnv("SHIPROCKET_BASE_URL", providers.DefaultShiprocketBaseURL),
			Email:    os.Getenv("SHIPROCKET_EMAIL"),
			Password: os.Getenv("SHIPROCKET_PASSWORD"),
			Timeout:  env.duration("SHIPROCKET_TIMEOUT", 15*time.Second),
		},
		RateLimitRPS:   env.float("SERVICEABILITY_RATE_LIMIT_RPS", 2),
		RateLimitBurst: env.int("SERVICEABILITY_RATE_LIMIT_BURST", 5),
		AllowedOrigins: middleware.ParseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RequestTimeout: env.duration("REQUEST_TIMEOUT", 30*time.Second),
	}

	mode, err := availability.ParseMode(getEnv("RENTAL_MODE", string(availability.ModeSingleDay)))
	if err != nil {
		return nil, err
	}
	policy := availability.DefaultPolicy(mode)
	policy.MinRentalDays = env.int("MIN_RENTAL_DAYS", policy.MinRentalDays)
	policy.MaxRentalDays = env.int("MAX_RENTAL_DAYS", policy.MaxRentalDays)
	policy.StandardRentalDays = env.int("STANDARD_RENTAL_DAYS", policy.StandardRentalDays)
	policy.PrepDays = env.int("PREP_DAYS", policy.PrepDays)
	policy.PickupDays = env.int("PICKUP_DAYS", policy.PickupDays)
	policy.LeadUsageBuffer = env.int("LEAD_USAGE_BUFFER_DAYS", policy.LeadUsageBuffer)
	policy.PostBookingExtraDays = env.int("POST_BOOKING_EXTRA_DAYS", policy.PostBookingExtraDays)
	policy.PostBookingIncludesReverse = env.bool("POST_BOOKING_INCLUDES_REVERSE", policy.PostBookingIncludesReverse)
	policy.SecurityDeposit = env.float("SECURITY_DEPOSIT", policy.SecurityDeposit)
	policy.PassThroughDelivery = env.bool("PASS_THROUGH_DELIVERY_CHARGE", policy.PassThroughDelivery)
	cfg.Policy = policy

	if env.err != nil {
		return nil, env.err
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("rental policy: %w", err)
	}

	tz := getEnv("BUSINESS_TIMEZONE", "Asia/Kolkata")
	if cfg.BusinessTZ, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", tz, err)
	}

	// Override credentials from Secrets Manager when running on AWS
	if cfg.UseSecrets {
		if awsCfg, err := awspkg.LoadAWSConfig(ctx); err != nil {
			logger.Warn("AWS config unavailable, using environment credentials", zap.Error(err))
		} else {
			applySecrets(ctx, cfg, awspkg.NewSecretsClient(awsCfg), logger)
		}
	}

	if cfg.DB.User == "" || cfg.DB.Password == "" || cfg.DB.Name == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	if err := servicepkg.ValidatePincode(cfg.PickupPincode); err != nil {
		return nil, fmt.Errorf("PICKUP_PINCODE %q: %w", cfg.PickupPincode, err)
	}
	return cfg, nil
}

type secretMapReader interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

func applySecrets(ctx context.Context, cfg *Config, sm secretMapReader, logger *zap.Logger) {
	if m, err := sm.GetSecretMap(ctx, dbSecretName); err != nil {
		logger.Warn("DB secret unavailable", zap.String("secret", dbSecretName), zap.Error(err))
	} else {
		override(&cfg.DB.User, m["POSTGRES_USER"])
		override(&cfg.DB.Password, m["POSTGRES_PASSWORD"])
		override(&cfg.DB.Name, m["POSTGRES_DB"])
		override(&cfg.DB.Host, m["POSTGRES_HOST"])
		override(&cfg.DB.Port, m["POSTGRES_PORT"])
	}

	if m, err := sm.GetSecretMap(ctx, courierSecretName); err != nil {
		logger.Warn("Courier secret unavailable", zap.String("secret", courierSecretName), zap.Error(err))
	} else {
		override(&cfg.Shiprocket.Email, m["SHIPROCKET_EMAIL"])
		override(&cfg.Shiprocket.Password, m["SHIPROCKET_PASSWORD"])
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
