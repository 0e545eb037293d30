package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Durations use Go duration syntax ("72h", "5m").
type Config struct {
	Env     string // application environment (e.g. "dev", "prod")
	Port    string // HTTP port to listen on
	LogFile string // path of the rotated JSON log file

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret string // secret used to verify access tokens

	StripeSecretKey string        // gateway API key
	Currency        string        // ISO currency for charges, lower case
	AccessWindow    time.Duration // collaboration length from payment time
	PaymentTimeout  time.Duration // upper bound for one gateway round trip

	RequestExpiry time.Duration // accepted-unpaid requests older than this are released; 0 disables
	SweepInterval time.Duration // how often the sweeper runs

	AMQPURL string // broker for notifications; empty disables publishing
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// Load reads an optional .env file and then the process environment.  All
// missing or malformed required variables are reported together.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env file is fine; real env wins anyway

	var l loader
	cfg := Config{
		Env:     l.must("APP_ENV"),
		Port:    l.must("APP_PORT"),
		LogFile: envStr("LOG_FILE", "logs/booking-core.log"),

		DBUser: l.must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: l.must("DB_HOST"),
		DBPort: l.must("DB_PORT"),
		DBName: l.must("DB_NAME"),

		JWTSecret: l.must("JWT_SECRET"),

		StripeSecretKey: l.must("STRIPE_SECRET_KEY"),
		Currency:        envStr("PAYMENT_CURRENCY", "inr"),
		AccessWindow:    l.dur("ACCESS_WINDOW", 30*24*time.Hour),
		PaymentTimeout:  l.dur("PAYMENT_TIMEOUT", 20*time.Second),

		RequestExpiry: l.dur("REQUEST_EXPIRY", 72*time.Hour),
		SweepInterval: l.dur("SWEEP_INTERVAL", 5*time.Minute),

		AMQPURL: envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
	}
	if cfg.AccessWindow <= 0 {
		l.errs = append(l.errs, errors.New("ACCESS_WINDOW must be positive"))
	}
	if cfg.PaymentTimeout <= 0 {
		l.errs = append(l.errs, errors.New("PAYMENT_TIMEOUT must be positive"))
	}
	if cfg.SweepInterval <= 0 {
		l.errs = append(l.errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if err := errors.Join(l.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loader collects errors while reading variables so that every problem is
// reported at once instead of failing on the first one.
type loader struct{ errs []error }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// dur parses an optional duration, recording an error when it is malformed
// rather than silently falling back.
func (l *loader) dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid duration for %s: %q", key, v))
		return def
	}
	return d
}
