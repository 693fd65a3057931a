package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // BOOKING_TIMEZONE must resolve in minimal containers

	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Booking       BookingConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Events        EventsConfig
	Mail          MailConfig
	DeadLetter    StorageConfig
	Payment       PaymentConfig
	Outbox        OutboxConfig
	Realtime      RealtimeConfig
	EventTriggers EventTriggerFunctionsConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	BaseURL        string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int32
	MinConns       int32
	CACertPath     string
	TLSServerName  string
	MigrationsPath string
	WorkOffline    bool
	// OfflineSeedFile is a JSON file loaded into the in-memory store in offline mode
	OfflineSeedFile string
}

type AuthConfig struct {
	JWTSecret        string
	JWTIssuer        string
	CookieName       string
	InternalAPIToken string // guards /api/metrics
}

type BookingConfig struct {
	MinDurationMinutes    int
	MinFragmentMinutes    int
	LocationBufferMinutes int
	RateVirtual           int
	RateInPerson          int
	Currency              string
	Timezone              string
	LockTTLSeconds        int
	MaxCalendarRangeDays  int
}

// Location resolves the booking timezone; slot dates and times are wall-clock in it
func (b BookingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

type CacheConfig struct {
	CalendarTTLSeconds   int
	DisableCalendarCache bool
}

type RedisConfig struct {
	URL       string // empty disables the per-slot lock
	KeyPrefix string
}

type EventsConfig struct {
	Broker        string // none | kafka | rabbitmq
	KafkaBrokers  []string
	KafkaTopic    string
	RabbitMQURL   string
	RabbitMQQueue string
}

type MailConfig struct {
	APIURL string // empty logs emails instead of sending
	APIKey string
	From   string
}

type StorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
	Prefix          string
}

type PaymentConfig struct {
	Provider        string // stub | stripe
	StripeSecretKey string
}

type OutboxConfig struct {
	PollIntervalSeconds int
	BatchSize           int
	MaxAttempts         int
	LeaseSeconds        int
}

type RealtimeConfig struct {
	Enabled bool
	Channel string
}

type EventTriggerFunctionsConfig struct {
	SessionCreatedTriggerURL   string
	SessionCancelledTriggerURL string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "8081")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("BASE_URL", "https://mentorium.app")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "https://mentorium.app,https://www.mentorium.app")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_PATH", "migrations")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "alloy:4318") // OTLP over HTTP
	v.SetDefault("O11Y_BE_SERVICE_NAME", "mentorium-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "mentorium")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "mentorium-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines,mutex,block")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Auth defaults
	v.SetDefault("JWT_ISSUER", "mentorium-api")
	v.SetDefault("AUTH_COOKIE_NAME", "mentorium_session")

	// Booking defaults
	v.SetDefault("BOOKING_MIN_DURATION_MINUTES", 60)
	v.SetDefault("BOOKING_MIN_FRAGMENT_MINUTES", 60)
	v.SetDefault("LOCATION_BUFFER_MINUTES", 30)
	v.SetDefault("PRICE_RATE_VIRTUAL", 430)
	v.SetDefault("PRICE_RATE_IN_PERSON", 630)
	v.SetDefault("PRICE_CURRENCY", "MXN")
	v.SetDefault("BOOKING_TIMEZONE", "America/Mexico_City")
	v.SetDefault("BOOKING_LOCK_TTL_SECONDS", 30)
	v.SetDefault("CALENDAR_MAX_RANGE_DAYS", 62)
	v.SetDefault("CALENDAR_CACHE_TTL", 60) // seconds
	v.SetDefault("DISABLE_CALENDAR_CACHE", false)

	// Side effects
	v.SetDefault("REDIS_KEY_PREFIX", "mentorium:")
	v.SetDefault("EVENTS_BROKER", "none")
	v.SetDefault("KAFKA_TOPIC", "mentorium.sessions")
	v.SetDefault("RABBITMQ_QUEUE", "mentorium.sessions")
	v.SetDefault("MAIL_FROM", "Mentorium <no-reply@mentorium.app>")
	v.SetDefault("DEAD_LETTER_PREFIX", "outbox-dead-letters/")
	v.SetDefault("PAYMENT_PROVIDER", "stub")
	v.SetDefault("OUTBOX_POLL_INTERVAL_SECONDS", 5)
	v.SetDefault("OUTBOX_BATCH_SIZE", 20)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", 8)
	v.SetDefault("OUTBOX_LEASE_SECONDS", 60)
	v.SetDefault("REALTIME_ENABLED", true)
	v.SetDefault("REALTIME_CHANNEL", "availability_changes")

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			BaseURL:        v.GetString("BASE_URL"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxConns:        v.GetInt32("DB_MAX_CONNS"),
			MinConns:        v.GetInt32("DB_MIN_CONNS"),
			CACertPath:      v.GetString("DB_CA_CERT_PATH"),
			TLSServerName:   v.GetString("DB_TLS_SERVER_NAME"),
			MigrationsPath:  v.GetString("MIGRATIONS_PATH"),
			WorkOffline:     v.GetBool("DB_WORK_OFFLINE"),
			OfflineSeedFile: v.GetString("OFFLINE_SEED_FILE"),
		},
		Auth: AuthConfig{
			JWTSecret:        v.GetString("JWT_SECRET"),
			JWTIssuer:        v.GetString("JWT_ISSUER"),
			CookieName:       v.GetString("AUTH_COOKIE_NAME"),
			InternalAPIToken: v.GetString("INTERNAL_API_TOKEN"),
		},
		Booking: BookingConfig{
			MinDurationMinutes:    v.GetInt("BOOKING_MIN_DURATION_MINUTES"),
			MinFragmentMinutes:    v.GetInt("BOOKING_MIN_FRAGMENT_MINUTES"),
			LocationBufferMinutes: v.GetInt("LOCATION_BUFFER_MINUTES"),
			RateVirtual:           v.GetInt("PRICE_RATE_VIRTUAL"),
			RateInPerson:          v.GetInt("PRICE_RATE_IN_PERSON"),
			Currency:              v.GetString("PRICE_CURRENCY"),
			Timezone:              v.GetString("BOOKING_TIMEZONE"),
			LockTTLSeconds:        v.GetInt("BOOKING_LOCK_TTL_SECONDS"),
			MaxCalendarRangeDays:  v.GetInt("CALENDAR_MAX_RANGE_DAYS"),
		},
		Cache: CacheConfig{
			CalendarTTLSeconds:   v.GetInt("CALENDAR_CACHE_TTL"),
			DisableCalendarCache: v.GetBool("DISABLE_CALENDAR_CACHE"),
		},
		Redis: RedisConfig{
			URL:       v.GetString("REDIS_URL"),
			KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		},
		Events: EventsConfig{
			Broker:        strings.ToLower(v.GetString("EVENTS_BROKER")),
			KafkaBrokers:  splitList(v.GetString("KAFKA_BROKERS")),
			KafkaTopic:    v.GetString("KAFKA_TOPIC"),
			RabbitMQURL:   v.GetString("RABBITMQ_URL"),
			RabbitMQQueue: v.GetString("RABBITMQ_QUEUE"),
		},
		Mail: MailConfig{
			APIURL: v.GetString("MAIL_API_URL"),
			APIKey: v.GetString("MAIL_API_KEY"),
			From:   v.GetString("MAIL_FROM"),
		},
		DeadLetter: StorageConfig{
			AccessKeyID:     v.GetString("DEAD_LETTER_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("DEAD_LETTER_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("DEAD_LETTER_BUCKET_NAME"),
			Endpoint:        v.GetString("DEAD_LETTER_ENDPOINT"),
			Region:          v.GetString("DEAD_LETTER_REGION"),
			Prefix:          v.GetString("DEAD_LETTER_PREFIX"),
		},
		Payment: PaymentConfig{
			Provider:        strings.ToLower(v.GetString("PAYMENT_PROVIDER")),
			StripeSecretKey: v.GetString("STRIPE_SECRET_KEY"),
		},
		Outbox: OutboxConfig{
			PollIntervalSeconds: v.GetInt("OUTBOX_POLL_INTERVAL_SECONDS"),
			BatchSize:           v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxAttempts:         v.GetInt("OUTBOX_MAX_ATTEMPTS"),
			LeaseSeconds:        v.GetInt("OUTBOX_LEASE_SECONDS"),
		},
		Realtime: RealtimeConfig{
			Enabled: v.GetBool("REALTIME_ENABLED"),
			Channel: v.GetString("REALTIME_CHANNEL"),
		},
		EventTriggers: EventTriggerFunctionsConfig{
			SessionCreatedTriggerURL:   v.GetString("SESSION_CREATED_TRIGGER_URL"),
			SessionCancelledTriggerURL: v.GetString("SESSION_CANCELLED_TRIGGER_URL"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList parses a comma-separated list, dropping blanks
func splitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	// Database configuration
	if !c.Database.WorkOffline && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when not in offline mode")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	// Server configuration
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	if err := c.Booking.validate(); err != nil {
		return err
	}

	switch c.Events.Broker {
	case "", "none":
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BROKER=kafka")
		}
	case "rabbitmq":
		if c.Events.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when EVENTS_BROKER=rabbitmq")
		}
	default:
		return fmt.Errorf("EVENTS_BROKER must be one of none, kafka, rabbitmq")
	}

	switch c.Payment.Provider {
	case "", "stub":
	case "stripe":
		if c.Payment.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER=stripe")
		}
	default:
		return fmt.Errorf("PAYMENT_PROVIDER must be stub or stripe")
	}

	if c.Outbox.MaxAttempts < 1 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be at least 1")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

func (b BookingConfig) validate() error {
	if b.MinDurationMinutes < 1 {
		return fmt.Errorf("BOOKING_MIN_DURATION_MINUTES must be positive")
	}
	if b.MinFragmentMinutes < 1 {
		return fmt.Errorf("BOOKING_MIN_FRAGMENT_MINUTES must be positive")
	}
	if b.LocationBufferMinutes < 0 {
		return fmt.Errorf("LOCATION_BUFFER_MINUTES cannot be negative")
	}
	if b.RateVirtual < 0 || b.RateInPerson < 0 {
		return fmt.Errorf("price rates cannot be negative")
	}
	if b.Currency == "" {
		return fmt.Errorf("PRICE_CURRENCY is required")
	}
	if _, err := b.Location(); err != nil {
		return fmt.Errorf("BOOKING_TIMEZONE is invalid: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
