package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     string
	BaseURL  string
	Database DatabaseConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	OTP      OTPConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Firebase FirebaseConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type RedisConfig struct {
	URL string // empty disables rate limiting and pub/sub
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppName  string
}

// Configured reports whether enough is set to attempt delivery.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Port != 0 && s.From != ""
}

type OTPConfig struct {
	// DevMode echoes issued codes in the response body. Never enable in production.
	DevMode      bool
	SingleUse    bool
	Freshness    time.Duration
	Cooldown     time.Duration
	Window       time.Duration
	MaxPerWindow int
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type StorageConfig struct {
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	Bucket       string
	UploadDir    string
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

// Load reads the environment, optionally seeded from a .env file.
func Load() (*Config, error) {
	// .env is optional: containers inject variables directly.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	cfg := &Config{
		Env:     getEnv("APP_ENV", "production"),
		Port:    getEnv("PORT", "8080"),
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "rescuelink"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("EMAIL_FROM"),
			AppName:  getEnv("APP_NAME", "RescueLink"),
		},
		OTP: OTPConfig{
			DevMode:      getEnvAsBool("OTP_DEV_MODE", false),
			SingleUse:    getEnvAsBool("OTP_SINGLE_USE", true),
			Freshness:    5 * time.Minute,
			Cooldown:     getEnvAsDuration("OTP_COOLDOWN", 30*time.Second),
			Window:       getEnvAsDuration("OTP_WINDOW", 15*time.Minute),
			MaxPerWindow: getEnvAsInt("OTP_MAX_PER_WINDOW", 5),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    getEnvAsDuration("JWT_TTL", 7*24*time.Hour),
		},
		Storage: StorageConfig{
			AWSRegion:    os.Getenv("AWS_REGION"),
			AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Bucket:       os.Getenv("AWS_S3_BUCKET"),
			UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if !c.OTP.DevMode && !c.SMTP.Configured() {
		errs = append(errs, errors.New("SMTP_HOST, SMTP_PORT and EMAIL_FROM are required unless OTP_DEV_MODE is set"))
	}
	if c.OTP.MaxPerWindow < 1 {
		errs = append(errs, errors.New("OTP_MAX_PER_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
