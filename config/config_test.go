package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name: "development environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "development"},
			},
			expected: true,
		},
		{
			name: "debug gin mode",
			config: &Config{
				Server: ServerConfig{GinMode: "debug"},
			},
			expected: true,
		},
		{
			name: "release mode",
			config: &Config{
				Server: ServerConfig{GinMode: "release", AppEnv: "production"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	assert.True(t, (&Config{Server: ServerConfig{AppEnv: "production"}}).IsProduction())
	assert.False(t, (&Config{Server: ServerConfig{AppEnv: "staging"}}).IsProduction())
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8081",
			BaseURL:        "https://mentorium.app",
			AllowedOrigins: []string{"https://mentorium.app"},
		},
		Database: DatabaseConfig{WorkOffline: true},
		Auth:     AuthConfig{JWTSecret: "secret"},
		Booking: BookingConfig{
			MinDurationMinutes:    60,
			MinFragmentMinutes:    60,
			LocationBufferMinutes: 30,
			RateVirtual:           430,
			RateInPerson:          630,
			Currency:              "MXN",
			Timezone:              "UTC",
		},
		Events:  EventsConfig{Broker: "none"},
		Payment: PaymentConfig{Provider: "stub"},
		Outbox:  OutboxConfig{MaxAttempts: 8},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid offline config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid online config",
			mutate: func(c *Config) {
				c.Database.WorkOffline = false
				c.Database.URL = "postgres://localhost/mentorium"
			},
		},
		{
			name:     "missing database url",
			mutate:   func(c *Config) { c.Database.WorkOffline = false },
			errorMsg: "DATABASE_URL is required",
		},
		{
			name:     "missing jwt secret",
			mutate:   func(c *Config) { c.Auth.JWTSecret = "" },
			errorMsg: "JWT_SECRET is required",
		},
		{
			name:     "kafka without brokers",
			mutate:   func(c *Config) { c.Events.Broker = "kafka" },
			errorMsg: "KAFKA_BROKERS is required",
		},
		{
			name:     "rabbitmq without url",
			mutate:   func(c *Config) { c.Events.Broker = "rabbitmq" },
			errorMsg: "RABBITMQ_URL is required",
		},
		{
			name:     "unknown broker",
			mutate:   func(c *Config) { c.Events.Broker = "nats" },
			errorMsg: "EVENTS_BROKER must be one of",
		},
		{
			name:     "stripe without key",
			mutate:   func(c *Config) { c.Payment.Provider = "stripe" },
			errorMsg: "STRIPE_SECRET_KEY is required",
		},
		{
			name:     "invalid timezone",
			mutate:   func(c *Config) { c.Booking.Timezone = "Mars/Olympus" },
			errorMsg: "BOOKING_TIMEZONE is invalid",
		},
		{
			name:     "zero minimum duration",
			mutate:   func(c *Config) { c.Booking.MinDurationMinutes = 0 },
			errorMsg: "BOOKING_MIN_DURATION_MINUTES must be positive",
		},
		{
			name: "profiling without endpoint",
			mutate: func(c *Config) {
				c.Profiling.Enabled = true
			},
			errorMsg: "O11Y_PROFILING_ENDPOINT is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(t.TempDir())

	os.Clearenv()
	os.Setenv("DB_WORK_OFFLINE", "true")
	os.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "production", cfg.Server.AppEnv)
	assert.Equal(t, []string{"https://mentorium.app", "https://www.mentorium.app"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)

	assert.Equal(t, 60, cfg.Booking.MinDurationMinutes)
	assert.Equal(t, 60, cfg.Booking.MinFragmentMinutes)
	assert.Equal(t, 30, cfg.Booking.LocationBufferMinutes)
	assert.Equal(t, 430, cfg.Booking.RateVirtual)
	assert.Equal(t, 630, cfg.Booking.RateInPerson)
	assert.Equal(t, "MXN", cfg.Booking.Currency)

	assert.Equal(t, "none", cfg.Events.Broker)
	assert.Equal(t, "stub", cfg.Payment.Provider)
	assert.Equal(t, 8, cfg.Outbox.MaxAttempts)
	assert.Equal(t, "availability_changes", cfg.Realtime.Channel)
	assert.True(t, cfg.Realtime.Enabled)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(t.TempDir())

	os.Clearenv()
	os.Setenv("PORT", "9000")
	os.Setenv("APP_ENV", "development")
	os.Setenv("DATABASE_URL", "postgres://localhost/mentorium")
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("PRICE_RATE_VIRTUAL", "500")
	os.Setenv("EVENTS_BROKER", "Kafka")
	os.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	os.Setenv("PAYMENT_PROVIDER", "stripe")
	os.Setenv("STRIPE_SECRET_KEY", "sk_test_123")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.Database.WorkOffline)
	assert.Equal(t, 500, cfg.Booking.RateVirtual)
	assert.Equal(t, "kafka", cfg.Events.Broker)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, "stripe", cfg.Payment.Provider)
}

func TestLoad_ValidationFailure(t *testing.T) {
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(t.TempDir())

	os.Clearenv()
	// neither DATABASE_URL nor offline mode

	cfg, err := Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}
