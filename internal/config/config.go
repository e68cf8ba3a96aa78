package config

import (
	"os"
)

type Config struct {
	Env        string
	HTTPAddr   string
	SessionKey string
	PublicURL  string
	ClientURL  string
	UploadDir  string
	MLService  string
	Timezone   string
	Database   DatabaseConfig
	Redis      RedisConfig
	SMTP       SMTPConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type SMTPConfig struct {
	Host string
	Port string
	From string
}

func Load() *Config {
	return &Config{
		Env:        getEnv("ENV", "development"),
		HTTPAddr:   normalizeAddr(getEnv("HTTP_ADDR", ":8080")),
		SessionKey: getEnv("SESSION_KEY", "secret"),
		PublicURL:  getEnv("PUBLIC_URL", "http://localhost:8080"),
		ClientURL:  getEnv("CLIENT_URL", "gearshed://"),
		UploadDir:  getEnv("UPLOAD_DIR", "uploads"),
		MLService:  getEnv("ML_SERVICE_URL", ""),
		Timezone:   getEnv("TIMEZONE", "Asia/Manila"),
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "postgres"),
			Password: getEnv("DATABASE_PASSWORD", "postgres"),
			Name:     getEnv("DATABASE_NAME", "gearshed"),
			SSLMode:  getEnv("DATABASE_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		SMTP: SMTPConfig{
			Host: getEnv("SMTP_HOST", "localhost"),
			Port: getEnv("SMTP_PORT", "1025"),
			From: getEnv("SMTP_FROM", "noreply@gearshed.test"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func normalizeAddr(addr string) string {
	if addr == "" {
		return addr
	}

	if addr[0] == ':' || addr[0] == '[' {
		return addr
	}

	for _, r := range addr {
		if r < '0' || r > '9' {
			return addr
		}
	}

	return ":" + addr
}
