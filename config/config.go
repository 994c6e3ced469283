package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the development-only signing key used when JWT_SECRET is unset.
const DefaultJWTSecret = "change-me-in-production"

// ErrDefaultJWTSecret rejects a production deploy still signing tokens with DefaultJWTSecret.
var ErrDefaultJWTSecret = errors.New("JWT_SECRET must be set in production")

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Admin        AdminConfig
	AWS          AWSConfig
	Mail         MailConfig
	GreenInvoice GreenInvoiceConfig
	Cardcom      CardcomConfig
	Coupons      CouponsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	Env                string // "production" disables test fallbacks
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	FrontendURL        string
	BackendURL         string
	StaticDir          string // built SPA (index.html + assets)
	ImagesDir          string // local /images directory; empty disables
}

// IsProduction reports whether APP_ENV/NODE_ENV is production.
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Env, "production")
}

// DatabaseConfig holds the managed Postgres connection string. Empty URL keeps all
// stores in memory and disables product routes.
type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

// RedisConfig holds Redis connection settings. Empty Addr sends notifications inline.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AdminConfig holds the single admin account.
type AdminConfig struct {
	Username string
	Password string
}

// AWSConfig holds credentials and the product images bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ImagesBucket    string
	ImagesPrefix    string
}

// MailConfig for the transactional mail API.
type MailConfig struct {
	APIKey        string
	APIURL        string
	FromAddress   string
	MerchantEmail string
}

// GreenInvoiceConfig for the invoicing / payment form provider.
type GreenInvoiceConfig struct {
	APIKeyID     string
	APIKeySecret string
	BaseURL      string
	TestFallback bool // synthetic invoices when credentials are missing outside production
}

// Configured reports whether API credentials are present.
func (g GreenInvoiceConfig) Configured() bool {
	return g.APIKeyID != "" && g.APIKeySecret != ""
}

// CardcomConfig for the low-profile hosted payment page.
type CardcomConfig struct {
	TerminalNumber string
	Username       string
	BaseURL        string
	Language       string
}

// CouponsConfig controls coupon seeding.
type CouponsConfig struct {
	SeedFile string // YAML list of coupons; empty uses the built-in seeds
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "3001"),
			Env:                getEnv("APP_ENV", getEnv("NODE_ENV", "development")),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 60),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
			BackendURL:         strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:3001"), "/"),
			StaticDir:          getEnv("STATIC_DIR", "dist"),
			ImagesDir:          getEnv("IMAGES_DIR", "public/images"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 5)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", DefaultJWTSecret),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 12),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", "hamikdash2024"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ImagesBucket:    getEnv("AWS_S3_IMAGES_BUCKET", "images"),
			ImagesPrefix:    getEnv("AWS_S3_IMAGES_PREFIX", "products"),
		},
		Mail: MailConfig{
			APIKey:        getEnv("MAIL_API_KEY", ""),
			APIURL:        strings.TrimRight(getEnv("MAIL_API_URL", "https://api.resend.com"), "/"),
			FromAddress:   getEnv("MAIL_FROM", "orders@example.com"),
			MerchantEmail: getEnv("MERCHANT_EMAIL", ""),
		},
		GreenInvoice: GreenInvoiceConfig{
			APIKeyID:     getEnv("GREENINVOICE_API_KEY_ID", ""),
			APIKeySecret: getEnv("GREENINVOICE_API_KEY_SECRET", ""),
			BaseURL:      strings.TrimRight(getEnv("GREENINVOICE_BASE_URL", "https://api.greeninvoice.co.il/api/v1"), "/"),
			TestFallback: getEnvBool("GREENINVOICE_TEST_FALLBACK", false),
		},
		Cardcom: CardcomConfig{
			TerminalNumber: getEnv("CARDCOM_TERMINAL_NUMBER", ""),
			Username:       getEnv("CARDCOM_USERNAME", ""),
			BaseURL:        getEnv("CARDCOM_BASE_URL", "https://secure.cardcom.solutions/Interface/LowProfile.aspx"),
			Language:       getEnv("CARDCOM_LANGUAGE", "he"),
		},
		Coupons: CouponsConfig{
			SeedFile: getEnv("COUPONS_SEED_FILE", ""),
		},
	}
	return cfg, nil
}

// Validate reports settings the HTTP server must not start with.
func (c *Config) Validate() error {
	if c.Server.IsProduction() && c.JWT.UsesDefaultSecret() {
		return ErrDefaultJWTSecret
	}
	return nil
}

// UsesDefaultSecret reports whether tokens are signed with DefaultJWTSecret.
func (j JWTConfig) UsesDefaultSecret() bool {
	return j.Secret == DefaultJWTSecret
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
