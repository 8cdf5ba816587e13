// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "dev-secret-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	DBHost                  string `mapstructure:"DB_HOST"`
	DBPort                  string `mapstructure:"DB_PORT"`
	DBUser                  string `mapstructure:"DB_USER"`
	DBPassword              string `mapstructure:"DB_PASSWORD"`
	DBName                  string `mapstructure:"DB_NAME"`
	DBSSLMode               string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns          int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns          int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMin    int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBConnMaxIdleTimeSec    int    `mapstructure:"DB_CONN_MAX_IDLE_SECONDS"`
	DBQueryTimeoutSeconds   int    `mapstructure:"DB_QUERY_TIMEOUT_SECONDS"`
	DBSchemaMode            string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDrops bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret              string  `mapstructure:"JWT_SECRET"`
	ClerkSecretKey         string  `mapstructure:"CLERK_SECRET_KEY"`
	ClerkAPIURL            string  `mapstructure:"CLERK_API_URL"`
	ClerkJWTPublicKey      string  `mapstructure:"CLERK_JWT_PUBLIC_KEY"`
	ClerkAuthorizedParties string  `mapstructure:"CLERK_AUTHORIZED_PARTIES"`
	ClerkOrgID             string  `mapstructure:"CLERK_ORG_ID"`
	ClerkWebhookSecret     string  `mapstructure:"CLERK_WEBHOOK_SECRET"`
	ClerkAPIRPS            float64 `mapstructure:"CLERK_API_RPS"`
	ClerkAPIBurst          int     `mapstructure:"CLERK_API_BURST"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	SeedUsersFile string `mapstructure:"SEED_USERS_FILE"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// the base file is optional; APP_ENV may come from it or from the environment
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to merge config.%s.yml: %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	SetDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.DBSchemaMode = strings.ToLower(strings.TrimSpace(config.DBSchemaMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults registers development defaults on the global viper instance.
func SetDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	viper.SetDefault("FEATURE_FLAGS", "")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "prosphere")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 20)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	viper.SetDefault("DB_CONN_MAX_IDLE_SECONDS", 10)
	viper.SetDefault("DB_QUERY_TIMEOUT_SECONDS", 30)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("CLERK_API_URL", "")
	viper.SetDefault("CLERK_API_RPS", 10.0)
	viper.SetDefault("CLERK_API_BURST", 20)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	viper.SetDefault("SEED_USERS_FILE", "seed/users.yml")
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsLocal reports whether the config targets a local (development or test) environment.
func (c *Config) IsLocal() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "test"
}

// AuthorizedParties returns the parsed CLERK_AUTHORIZED_PARTIES list.
func (c *Config) AuthorizedParties() []string {
	if strings.TrimSpace(c.ClerkAuthorizedParties) == "" {
		return nil
	}
	var parties []string
	for _, p := range strings.Split(c.ClerkAuthorizedParties, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parties = append(parties, p)
		}
	}
	return parties
}

// QueryTimeout is the per-request database deadline.
func (c *Config) QueryTimeout() time.Duration {
	if c.DBQueryTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.DBQueryTimeoutSeconds) * time.Second
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" && c.ClerkJWTPublicKey == "" {
		return errors.New("either JWT_SECRET or CLERK_JWT_PUBLIC_KEY is required")
	}
	switch c.DBSchemaMode {
	case "", "hybrid", "sql", "auto":
	default:
		return fmt.Errorf("DB_SCHEMA_MODE must be one of hybrid, sql, auto (got %q)", c.DBSchemaMode)
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
	}

	if c.IsProduction() {
		if c.ClerkJWTPublicKey == "" {
			if c.JWTSecret == defaultJWTSecret {
				return errors.New("JWT_SECRET must be changed from the default value in production")
			}
			if len(c.JWTSecret) < 32 {
				return errors.New("JWT_SECRET must be at least 32 characters in production")
			}
		}
		if c.ClerkSecretKey == "" {
			return errors.New("CLERK_SECRET_KEY is required in production")
		}
		if c.ClerkWebhookSecret == "" {
			return errors.New("CLERK_WEBHOOK_SECRET is required in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSchemaMode == "auto" {
			return errors.New("DB_SCHEMA_MODE=auto is not allowed in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable SSL in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if c.ClerkJWTPublicKey == "" && len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
