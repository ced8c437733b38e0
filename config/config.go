package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config collects every knob the server needs at startup. It is built once in
// main and handed to the components that need it; nothing reads env vars after
// Load returns.
type Config struct {
	Addr string
	Dev  bool

	LogLevel  string
	LogFormat string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	JWTSecret    []byte
	JWTTTL       time.Duration
	CookieName   string
	CookieTTL    time.Duration
	CookieSecure bool

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	PaymentKey           string
	PaymentWebhookSecret string
	PublicBaseURL        string

	UploadDir string
}

// Load reads .env if present, then assembles the config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// fine in production, env comes from the process
	}

	cfg := &Config{
		Addr:                 getenv("PORT", ":8080"),
		Dev:                  os.Getenv("APP_ENV") != "production",
		LogLevel:             getenv("LOG_LEVEL", "INFO"),
		LogFormat:            getenv("LOG_FORMAT", "text"),
		MongoURI:             getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:              getenv("MONGO_DB", "wayfare"),
		RedisAddr:            getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		JWTSecret:            []byte(os.Getenv("JWT_SECRET")),
		JWTTTL:               getdur("JWT_TTL_HOURS", 12*time.Hour),
		CookieName:           getenv("COOKIE_NAME", "jwt"),
		CookieTTL:            getdur("COOKIE_TTL_HOURS", 24*time.Hour),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getenv("SMTP_PORT", "587"),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPass:             os.Getenv("SMTP_PASS"),
		MailFrom:             getenv("MAIL_FROM", "Wayfare <noreply@wayfare.local>"),
		PaymentKey:           os.Getenv("PAYMENT_SECRET_KEY"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		PublicBaseURL:        getenv("PUBLIC_BASE_URL", "http://localhost:8080"),
		UploadDir:            getenv("UPLOAD_DIR", "./static/img"),
	}

	if cfg.Addr[0] != ':' {
		cfg.Addr = ":" + cfg.Addr
	}
	cfg.CookieSecure = !cfg.Dev

	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getdur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			return time.Duration(h) * time.Hour
		}
	}
	return fallback
}
