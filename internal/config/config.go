// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "CLASSBOOK_"

// Config is the full process configuration.
type Config struct {
	Env           string `env:"ENV" envDefault:"development"`
	Addr          string `env:"ADDR" envDefault:":8080"`
	DBPath        string `env:"DB_PATH" envDefault:"classbook.db"`
	JWTSecret     string `env:"JWT_SECRET"`
	SlowQueryMs   int    `env:"SLOW_QUERY_MS" envDefault:"50"`
	SlowRequestMs int    `env:"SLOW_REQUEST_MS" envDefault:"200"`
	OtelEndpoint  string `env:"OTEL_ENDPOINT"`
	PerfRingSize  int    `env:"PERF_RING_SIZE" envDefault:"10000"`

	Redis      RedisConfig      `envPrefix:"REDIS_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
	AMQP       AMQPConfig       `envPrefix:"AMQP_"`
	Email      EmailConfig      `envPrefix:"EMAIL_"`
	Attendance AttendanceConfig `envPrefix:"ATTENDANCE_"`
	Worker     WorkerConfig     `envPrefix:"WORKER_"`
}

// RedisConfig locates the shared rate limit store. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// RateLimitConfig sizes the per-client token bucket.
type RateLimitConfig struct {
	Enabled        bool          `env:"ENABLED" envDefault:"true"`
	Capacity       int           `env:"CAPACITY" envDefault:"60"`
	RefillTokens   int           `env:"REFILL_TOKENS" envDefault:"1"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"1s"`
	TTL            time.Duration `env:"TTL" envDefault:"10m"`
	Prefix         string        `env:"PREFIX" envDefault:"classbook:rl"`
}

// AMQPConfig configures notification publishing. An empty URL disables it.
type AMQPConfig struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"classbook.notifications"`
}

// EmailConfig configures email delivery. An empty ResendKey selects the no-op sender.
type EmailConfig struct {
	ResendKey string `env:"RESEND_KEY"`
	From      string `env:"FROM" envDefault:"Classbook <noreply@classbook.local>"`
}

// AttendanceConfig bounds when attendance may be marked.
type AttendanceConfig struct {
	Early time.Duration `env:"EARLY" envDefault:"30m"`
	Late  time.Duration `env:"LATE" envDefault:"24h"`
}

// WorkerConfig schedules the background jobs.
type WorkerConfig struct {
	OutboxInterval         time.Duration `env:"OUTBOX_INTERVAL" envDefault:"1m"`
	PromotionSweepInterval time.Duration `env:"PROMOTION_SWEEP_INTERVAL" envDefault:"5m"`
	ScheduleInterval       time.Duration `env:"SCHEDULE_INTERVAL" envDefault:"24h"`
	ScheduleHorizonWeeks   int           `env:"SCHEDULE_HORIZON_WEEKS" envDefault:"4"`
	ScheduleTimezone       string        `env:"SCHEDULE_TIMEZONE" envDefault:"UTC"`
	OutboxRetention        time.Duration `env:"OUTBOX_RETENTION" envDefault:"168h"`
	JobTimeout             time.Duration `env:"JOB_TIMEOUT" envDefault:"2m"`
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validation errors
var (
	ErrMissingJWTSecret    = errors.New("CLASSBOOK_JWT_SECRET is required in production")
	ErrNonPositiveInterval = errors.New("worker intervals must be positive")
	ErrInvalidRateLimit    = errors.New("rate limit capacity and refill must be positive")
	ErrInvalidHorizon      = errors.New("schedule horizon must be at least one week")
)

// Validate checks cross-field constraints.
// PRE: c was produced by Load
// POST: Returns nil if the configuration is usable
func (c Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	w := c.Worker
	if w.OutboxInterval <= 0 || w.PromotionSweepInterval <= 0 || w.ScheduleInterval <= 0 || w.JobTimeout <= 0 {
		return ErrNonPositiveInterval
	}
	if w.ScheduleHorizonWeeks < 1 {
		return ErrInvalidHorizon
	}
	if _, err := time.LoadLocation(w.ScheduleTimezone); err != nil {
		return fmt.Errorf("schedule timezone: %w", err)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity <= 0 || c.RateLimit.RefillTokens <= 0 || c.RateLimit.RefillInterval <= 0) {
		return ErrInvalidRateLimit
	}
	return nil
}

// Load reads an optional .env file, then parses the environment.
// PRE: none
// POST: Returns a validated Config or the first error
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
