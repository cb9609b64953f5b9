package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type Config struct {
	Port        string
	GinMode     string
	Database    database.Config
	JWTSecret   string
	FrontendURL string
	CORSOrigin  string
	Midtrans    services.MidtransConfig
	Mail        services.MailConfig
	SMS         services.SMSConfig
	// OTPRatePerMinute caps OTP and login requests per client IP.
	OTPRatePerMinute int
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Warn("Warning: .env file not found")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),
		Database: database.Config{
			Driver: getEnv("DB_DRIVER", database.DriverMySQL),
			DSN:    os.Getenv("DB_DSN"),
			Debug:  os.Getenv("DB_DEBUG") == "true",
		},
		JWTSecret:   os.Getenv("JWT_SECRET"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		CORSOrigin:  os.Getenv("CORS_ORIGIN"),
		Midtrans: services.MidtransConfig{
			ServerKey:    os.Getenv("MIDTRANS_SERVER_KEY"),
			ClientKey:    os.Getenv("MIDTRANS_CLIENT_KEY"),
			IsProduction: os.Getenv("MIDTRANS_ENV") == "production",
		},
		Mail: services.MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			Sender:   os.Getenv("SMTP_SENDER"),
		},
		SMS: services.SMSConfig{
			AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber:  os.Getenv("TWILIO_FROM_NUMBER"),
			CountryCode: getEnv("SMS_COUNTRY_CODE", "+91"),
		},
		OTPRatePerMinute: getEnvInt("OTP_RATE_PER_MINUTE", 5),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if cfg.Database.DSN == "" {
		if cfg.Database.Driver != database.DriverSQLite {
			return nil, errors.New("DB_DSN is not set")
		}
		cfg.Database.DSN = "table-order.db"
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}
