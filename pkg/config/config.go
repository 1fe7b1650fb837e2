package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Supabase  SupabaseConfig
	Redis     RedisConfig
	Places    PlacesConfig
	Secondary SecondaryConfig
	Cache     CacheConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver selects the clinic gateway: postgres, supabase or memory.
	Driver      string
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	AutoMigrate bool
}

// SupabaseConfig holds the hosted store credentials
type SupabaseConfig struct {
	URL        string
	ServiceKey string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PlacesConfig holds the primary places provider configuration.
// An empty APIKey means the primary source is not configured.
type PlacesConfig struct {
	APIKey        string
	PlacesURL     string
	GeocodeURL    string
	DirectionsURL string
	RegionCode    string
	LanguageCode  string
	Timeout       time.Duration
	MaxRetries    int
}

// SecondaryConfig holds the local place service configuration.
// An empty Port means the secondary source is not configured.
type SecondaryConfig struct {
	Host    string
	Port    string
	Timeout time.Duration
}

// CacheConfig tunes the nearby fast path
type CacheConfig struct {
	MinCachedResults int
	RadiusKmDefault  float64
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8001),
			Env:  getEnv("APP_ENV", "development"),

			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:      strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			Database:    getEnv("DB_NAME", "clinicfinder"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Supabase: SupabaseConfig{
			URL:        getEnv("SUPABASE_URL", ""),
			ServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", getEnv("SUPABASE_ANON_KEY", "")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Places: PlacesConfig{
			APIKey:        getEnv("GOOGLE_MAPS_API_KEY", ""),
			PlacesURL:     getEnv("GOOGLE_PLACES_URL", "https://places.googleapis.com/v1/places"),
			GeocodeURL:    getEnv("GOOGLE_GEOCODE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
			DirectionsURL: getEnv("GOOGLE_DIRECTIONS_URL", "https://maps.googleapis.com/maps/api/directions/json"),
			RegionCode:    getEnv("PLACES_REGION_CODE", "KE"),
			LanguageCode:  getEnv("PLACES_LANGUAGE_CODE", "en"),
			Timeout:       getEnvAsDuration("PLACES_TIMEOUT", 8*time.Second),
			MaxRetries:    getEnvAsInt("PLACES_MAX_RETRIES", 2),
		},
		Secondary: SecondaryConfig{
			Host:    getEnv("MICROSERVICE_HOST", "localhost"),
			Port:    getEnv("MICROSERVICE_PORT", ""),
			Timeout: getEnvAsDuration("MICROSERVICE_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			MinCachedResults: getEnvAsInt("CACHE_MIN_RESULTS", 5),
			RadiusKmDefault:  getEnvAsFloat("CACHE_DEFAULT_RADIUS_KM", 5),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "clinicfinder"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	switch cfg.Database.Driver {
	case "postgres", "memory":
	case "supabase":
		if cfg.Supabase.URL == "" || cfg.Supabase.ServiceKey == "" {
			return nil, fmt.Errorf("DB_DRIVER=supabase requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Database.Driver)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether the secondary source has an endpoint
func (c *SecondaryConfig) Enabled() bool {
	return strings.TrimSpace(c.Port) != ""
}

// BaseURL returns the secondary source root, or "" when unconfigured
func (c *SecondaryConfig) BaseURL() string {
	if !c.Enabled() {
		return ""
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%s", host, strings.TrimSpace(c.Port))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
