package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL   string `yaml:"databaseURL"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	ContentAPIURL     string `yaml:"contentAPIURL"`
	ContentAPIToken   string `yaml:"contentAPIToken"`
	CatalogTTLSeconds int    `yaml:"catalogTTLSeconds"`

	PaymentAPIURL    string `yaml:"paymentAPIURL"`
	PaymentSecretKey string `yaml:"paymentSecretKey"`
	WebhookSecret    string `yaml:"webhookSecret"`

	SessionTokenSecret string `yaml:"sessionTokenSecret"`
	JWTIssuer          string `yaml:"jwtIssuer"`
	JWTAudience        string `yaml:"jwtAudience"`
	JWTLeewaySeconds   int    `yaml:"jwtLeewaySeconds"`

	BaseURL         string `yaml:"baseURL"`
	WebURL          string `yaml:"webURL"`
	LoginURL        string `yaml:"loginURL"`
	DefaultCurrency string `yaml:"defaultCurrency"`

	CheckoutRateLimitPerMinute int   `yaml:"checkoutRateLimitPerMinute"`
	GenerateRateLimitPerMinute int   `yaml:"generateRateLimitPerMinute"`
	WebhookRateLimitPerMinute  int   `yaml:"webhookRateLimitPerMinute"`
	MaxUploadBytes             int64 `yaml:"maxUploadBytes"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("LEXRELAY_CONTENT_API_URL"); v != "" {
		cfg.ContentAPIURL = v
	}
	if v := os.Getenv("LEXRELAY_CONTENT_API_TOKEN"); v != "" {
		cfg.ContentAPIToken = v
	}
	if v := os.Getenv("LEXRELAY_CATALOG_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CatalogTTLSeconds = n
		}
	}
	if v := os.Getenv("LEXRELAY_PAYMENT_API_URL"); v != "" {
		cfg.PaymentAPIURL = v
	}
	if v := os.Getenv("LEXRELAY_PAYMENT_SECRET_KEY"); v != "" {
		cfg.PaymentSecretKey = v
	}
	if v := os.Getenv("LEXRELAY_WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("LEXRELAY_SESSION_TOKEN_SECRET"); v != "" {
		cfg.SessionTokenSecret = v
	}
	if v := os.Getenv("LEXRELAY_JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("LEXRELAY_JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("LEXRELAY_JWT_LEEWAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.JWTLeewaySeconds = n
		}
	}
	if v := os.Getenv("LEXRELAY_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("LEXRELAY_WEB_URL"); v != "" {
		cfg.WebURL = v
	}
	if v := os.Getenv("LEXRELAY_LOGIN_URL"); v != "" {
		cfg.LoginURL = v
	}
	if v := os.Getenv("LEXRELAY_DEFAULT_CURRENCY"); v != "" {
		cfg.DefaultCurrency = v
	}
	if v := os.Getenv("LEXRELAY_CHECKOUT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CheckoutRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("LEXRELAY_GENERATE_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GenerateRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("LEXRELAY_WEBHOOK_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WebhookRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("LEXRELAY_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
		return errors.New("config: minio endpoint, access key, secret key, and bucket are required")
	}
	if cfg.ContentAPIURL == "" {
		return errors.New("config: contentAPIURL is required (set in config.yaml or LEXRELAY_CONTENT_API_URL)")
	}
	if cfg.PaymentAPIURL == "" {
		return errors.New("config: paymentAPIURL is required (set in config.yaml or LEXRELAY_PAYMENT_API_URL)")
	}
	if cfg.PaymentSecretKey == "" {
		return errors.New("config: paymentSecretKey is required (set LEXRELAY_PAYMENT_SECRET_KEY)")
	}
	if cfg.WebhookSecret == "" {
		return errors.New("config: webhookSecret is required (set LEXRELAY_WEBHOOK_SECRET)")
	}
	if cfg.SessionTokenSecret == "" {
		return errors.New("config: sessionTokenSecret is required (set LEXRELAY_SESSION_TOKEN_SECRET)")
	}
	if cfg.BaseURL == "" {
		return errors.New("config: baseURL is required (set in config.yaml or LEXRELAY_BASE_URL)")
	}
	if cfg.CatalogTTLSeconds < 0 {
		return errors.New("config: catalogTTLSeconds must be >= 0")
	}
	if cfg.JWTLeewaySeconds < 0 {
		return errors.New("config: jwtLeewaySeconds must be >= 0")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must be >= 0")
	}
	return nil
}
