package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config - every environment variable the server reads
type Config struct {
	// Server
	Port          string `env:"PORT" envDefault:"8080"`
	Environment   string `env:"GO_ENV" envDefault:"development"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	AppURL        string `env:"APP_URL" envDefault:"http://localhost:3000"`

	// Redis
	RedisHost          string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort          string `env:"REDIS_PORT" envDefault:"6379"`
	RedisUsername      string `env:"REDIS_USERNAME"`
	RedisPassword      string `env:"REDIS_PASSWORD"`
	RedisUseTLS        bool   `env:"REDIS_USE_TLS" envDefault:"true"`
	RedisTLSSkipVerify bool   `env:"REDIS_TLS_SKIP_VERIFY"`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`

	// Supabase
	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY"`
	SupabaseJWTSecret  string `env:"SUPABASE_JWT_SECRET"`
	VideoBucket        string `env:"SUPABASE_VIDEO_BUCKET" envDefault:"videos"`
	ImageBucket        string `env:"SUPABASE_IMAGE_BUCKET" envDefault:"product-images"`

	// Direct Postgres connection for the quota counter (optional, RPC fallback otherwise)
	DatabaseURL string `env:"DATABASE_URL"`

	// KIE video provider
	KieAPIKey        string `env:"KIE_API_KEY"`
	KieBaseURL       string `env:"KIE_BASE_URL" envDefault:"https://api.kie.ai"`
	KieModel         string `env:"KIE_MODEL" envDefault:"veo3_fast"`
	KieCallbackToken string `env:"KIE_CALLBACK_TOKEN"`

	// Gemini
	GeminiAPIKeys []string `env:"GEMINI_API_KEYS" envSeparator:","`
	GeminiModel   string   `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`

	// Stripe
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	StripePriceStarter  string `env:"STRIPE_PRICE_STARTER"`
	StripePricePro      string `env:"STRIPE_PRICE_PRO"`
	StripePriceBusiness string `env:"STRIPE_PRICE_BUSINESS"`

	// SMTP (invitations)
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"ReelCraft <no-reply@reelcraft.app>"`

	// Google OAuth (Drive sync)
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT"`
	LogOutput     string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogPath       string `env:"LOG_PATH" envDefault:"./logs"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"7"`
	LogCompress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

var globalConfig *Config

// LoadConfig - load .env (if present) and parse environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	log.Printf("   Supabase: %s", cfg.SupabaseURL)
	log.Printf("   KIE: %s (model: %s)", cfg.KieBaseURL, cfg.KieModel)
	log.Printf("   Callback: %s", cfg.PublicBaseURL)

	return cfg, nil
}

// GetConfig - return the loaded config
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

func (c *Config) validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.KieAPIKey == "" {
		return fmt.Errorf("KIE_API_KEY is required")
	}
	if c.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required (provider callbacks)")
	}
	if _, err := url.ParseRequestURI(c.PublicBaseURL); err != nil {
		return fmt.Errorf("PUBLIC_BASE_URL is invalid: %w", err)
	}
	return nil
}

// GetRedisAddr - host:port for the redis client
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// IsProduction - GO_ENV=production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// CallbackURL - provider webhook target, with the shared token when configured
func (c *Config) CallbackURL() string {
	callback := strings.TrimRight(c.PublicBaseURL, "/") + "/api/webhooks/kie"
	if c.KieCallbackToken != "" {
		callback += "?token=" + url.QueryEscape(c.KieCallbackToken)
	}
	return callback
}
