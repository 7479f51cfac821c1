package config

import (
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
}

type ServerConfig struct {
	Port        string
	Development bool
	// CORS origins, comma-separated. Empty disables CORS.
	AllowedOrigins string
}

type DatabaseConfig struct {
	// URL of the Postgres instance. Empty runs the in-memory store.
	URL string
}

type RedisConfig struct {
	// URL of Redis for the background mutation worker. Empty dispatches
	// mutation events synchronously in-process.
	URL string
}

type JWTConfig struct {
	PublicKeyPath string
	Issuer        string
	Audience      string
}

type RateLimitConfig struct {
	// Rate per IP ("100-M" = 100/min). Empty disables.
	PerIP string
	// Rate per authenticated user ("300-M"). Empty disables.
	PerUser string
}

type WebhookConfig struct {
	// URL receiving mutation event notifications. Empty disables.
	URL       string
	AuthToken string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		viper.SetConfigFile(p)
		_ = viper.ReadInConfig()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvOrDefault("PORT", "8080"),
			Development:    viper.GetBool("DEVELOPMENT"),
			AllowedOrigins: viper.GetString("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL: viper.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("REDIS_URL"),
		},
		JWT: JWTConfig{
			PublicKeyPath: viper.GetString("JWT_PUBLIC_KEY_PATH"),
			Issuer:        getEnvOrDefault("JWT_ISSUER", "teamflow"),
			Audience:      getEnvOrDefault("JWT_AUDIENCE", "teamflow"),
		},
		RateLimit: RateLimitConfig{
			PerIP:   viper.GetString("RATE_LIMIT_PER_IP"),
			PerUser: viper.GetString("RATE_LIMIT_PER_USER"),
		},
		Webhook: WebhookConfig{
			URL:       viper.GetString("WEBHOOK_URL"),
			AuthToken: viper.GetString("WEBHOOK_AUTH_TOKEN"),
		},
	}
	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
