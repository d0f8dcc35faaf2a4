package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	JWT       JWTConfig
	Policy    PolicyConfig
	ImgBB     ImgBBConfig
	Textbelt  TextbeltConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
	ResetTTL time.Duration
	Issuer   string
}

type PolicyConfig struct {
	// AdminEmails is the allow-list of addresses granted the admin role at
	// registration or profile-bootstrap time.
	AdminEmails []string
}

type ImgBBConfig struct {
	APIKey   string
	Endpoint string
}

type TextbeltConfig struct {
	APIKey   string
	Endpoint string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	// Auth endpoints only; the rest of the API is unthrottled.
	AuthRequestsPerMinute float64
	AuthBurst             int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("API_PORT", "8080"),
			ShutdownTimeout: getEnvDuration("API_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "medibook"),
			ConnectTimeout: getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			TokenTTL: getEnvDuration("JWT_TOKEN_TTL", 24*time.Hour),
			ResetTTL: getEnvDuration("JWT_RESET_TTL", 30*time.Minute),
			Issuer:   getEnv("JWT_ISSUER", "medibook-api"),
		},
		Policy: PolicyConfig{
			AdminEmails: getEnvSlice("ADMIN_EMAILS", []string{"admin@test.com"}),
		},
		ImgBB: ImgBBConfig{
			APIKey:   getEnv("IMGBB_API_KEY", ""),
			Endpoint: getEnv("IMGBB_UPLOAD_URL", "https://api.imgbb.com/1/upload"),
		},
		Textbelt: TextbeltConfig{
			APIKey:   getEnv("TEXTBELT_API_KEY", ""),
			Endpoint: getEnv("TEXTBELT_URL", "https://textbelt.com/text"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		RateLimit: RateLimitConfig{
			AuthRequestsPerMinute: getEnvFloat("RATE_LIMIT_AUTH_RPM", 10),
			AuthBurst:             getEnvInt("RATE_LIMIT_AUTH_BURST", 5),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}
	if cfg.Mongo.URI == "" {
		errs = append(errs, "MONGO_URI is required")
	}
	if len(cfg.Policy.AdminEmails) == 0 {
		errs = append(errs, "ADMIN_EMAILS must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
