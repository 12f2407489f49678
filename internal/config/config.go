package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectRetries     int
	ConnectRetryDelay  time.Duration
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PresignTTL time.Duration
}

// RedisConfig holds the realtime bus connection. An empty Addr selects the in-process bus.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds access token settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
}

// ChallengeConfig holds the verification code policy shared by every code flow.
type ChallengeConfig struct {
	CodeTTL      time.Duration
	MaxAttempts  int
	MaxResends   int
	ResendWindow time.Duration
}

// MailConfig holds SMTP settings. An empty Host selects the logging sender.
type MailConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	FromName      string
	UseTLS        bool
	RetryAttempts int
	RetryDelay    time.Duration
}

// PushConfig holds Firebase Cloud Messaging settings.
type PushConfig struct {
	Enabled         bool
	CredentialsFile string
	ProjectID       string
}

// CompanyConfig is printed on generated invoices.
type CompanyConfig struct {
	Name          string
	Address       string
	SIRET         string
	Email         string
	Phone         string
	VATRateBP     int // basis points, 2000 = 20%
	InvoicePrefix string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppEnv    string
	AppHost   string
	Port      string
	PublicURL string
	Timezone  string
	LogLevel  string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Challenge ChallengeConfig
	Mail      MailConfig
	Push      PushConfig
	Company   CompanyConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppEnv:    getEnv("APP_ENV", "production"),
		AppHost:   getEnv("APP_HOST", "localhost:8080"),
		Port:      getEnv("PORT", "8080"),
		PublicURL: getEnv("PUBLIC_URL", "http://localhost:3000"),
		Timezone:  getEnv("TZ_LOCATION", "Europe/Paris"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectRetries:     getEnvInt("DB_CONNECT_RETRIES", 5),
			ConnectRetryDelay:  getEnvDuration("DB_CONNECT_RETRY_DELAY", 2*time.Second),
		},
		MinIO: MinIOConfig{
			Endpoint:   getEnv("MINIO_ENDPOINT", ""),
			AccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:  getEnv("MINIO_SECRET_KEY", ""),
			Bucket:     getEnv("MINIO_BUCKET", ""),
			UseSSL:     getEnvBool("MINIO_USE_SSL", false),
			PresignTTL: getEnvDuration("MINIO_PRESIGN_TTL", 15*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 24*time.Hour),
			Issuer:    getEnv("JWT_ISSUER", "llouest"),
		},
		Challenge: ChallengeConfig{
			CodeTTL:      getEnvDuration("CODE_TTL", 10*time.Minute),
			MaxAttempts:  getEnvInt("CODE_MAX_ATTEMPTS", 5),
			MaxResends:   getEnvInt("CODE_MAX_RESENDS", 3),
			ResendWindow: getEnvDuration("CODE_RESEND_WINDOW", 10*time.Minute),
		},
		Mail: MailConfig{
			Host:          getEnv("SMTP_HOST", ""),
			Port:          getEnvInt("SMTP_PORT", 587),
			Username:      getEnv("SMTP_USER", ""),
			Password:      getEnv("SMTP_PASSWORD", ""),
			From:          getEnv("MAIL_FROM", "no-reply@llouestservices.fr"),
			FromName:      getEnv("MAIL_FROM_NAME", "L&L Ouest Services"),
			UseTLS:        getEnvBool("SMTP_TLS", true),
			RetryAttempts: getEnvInt("MAIL_RETRY_ATTEMPTS", 3),
			RetryDelay:    getEnvDuration("MAIL_RETRY_DELAY", 2*time.Second),
		},
		Push: PushConfig{
			Enabled:         getEnvBool("FCM_ENABLED", false),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Company: CompanyConfig{
			Name:          getEnv("COMPANY_NAME", "L&L Ouest Services"),
			Address:       getEnv("COMPANY_ADDRESS", ""),
			SIRET:         getEnv("COMPANY_SIRET", ""),
			Email:         getEnv("COMPANY_EMAIL", "contact@llouestservices.fr"),
			Phone:         getEnv("COMPANY_PHONE", ""),
			VATRateBP:     getEnvInt("COMPANY_VAT_RATE_BP", 2000),
			InvoicePrefix: getEnv("INVOICE_PREFIX", "FAC"),
		},
	}
}

// IsDevelopment reports whether the app runs with developer-friendly defaults.
func (c *AppConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
