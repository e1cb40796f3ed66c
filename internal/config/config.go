// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration.  Required values are enforced at
// load time; optional integrations are disabled when their variables are
// empty.
type Config struct {
	Env    string // APP_ENV
	Port   string // APP_PORT
	AppURL string // APP_URL, public URL of the web client

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	TOTPPeriod     uint // seconds a login code stays valid

	BasePrice uint64
	UnitPrice uint64

	Stripe  StripeConfig
	Storage StorageConfig
	Mail    MailConfig
	AMQPURL string // empty disables the broker; ready events are mailed inline
}

type StripeConfig struct {
	Key     string // STRIPE_KEY; empty disables card payments
	PriceID string // PHOTO_PRICING_ID, charged once per photo
}

func (s StripeConfig) Enabled() bool { return s.Key != "" && s.PriceID != "" }

type StorageConfig struct {
	Driver string // "s3" or "supabase"
	PutTTL time.Duration
	GetTTL time.Duration

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

type MailConfig struct {
	Relay    string // SMTP_RELAY; empty logs mail instead of sending it
	Port     int
	Username string
	Password string
	From     string
}

// Load reads the environment.  A missing required variable stops the
// process with a fatal log line.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		AppURL: must("APP_URL"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		TOTPPeriod:     uint(envInt("TOTP_DURATION", 3600)),

		BasePrice: mustUint("PHOTO_BASE_PRICE"),
		UnitPrice: mustUint("PHOTO_UNIT_PRICE"),

		Stripe: StripeConfig{
			Key:     os.Getenv("STRIPE_KEY"),
			PriceID: os.Getenv("PHOTO_PRICING_ID"),
		},
		Storage: StorageConfig{
			Driver:         envStr("STORAGE_DRIVER", "s3"),
			PutTTL:         envDur("STORAGE_PUT_TTL", 5*time.Minute),
			GetTTL:         envDur("STORAGE_GET_TTL", 7*24*time.Hour),
			S3Endpoint:     envStr("S3_ENDPOINT", "localhost:9000"),
			S3Region:       os.Getenv("S3_REGION"),
			S3Bucket:       envStr("S3_BUCKET", "portrait-booth"),
			S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
			S3UseSSL:       envBool("S3_USE_SSL", true),
			SupabaseURL:    os.Getenv("SUPABASE_URL"),
			SupabaseKey:    os.Getenv("SUPABASE_SERVICE_KEY"),
			SupabaseBucket: envStr("SUPABASE_BUCKET", "portrait-booth"),
		},
		Mail: MailConfig{
			Relay:    os.Getenv("SMTP_RELAY"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envStr("SMTP_FROM_EMAIL", "no-reply@portrait-booth.local"),
		},
		AMQPURL: amqpURL(),
	}
}

func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func mustUint(key string) uint64 {
	s := must(key)
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		log.Fatalf("invalid unsigned int for %s: %q", key, s)
	}
	return n
}
