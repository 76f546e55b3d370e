// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults used when neither a flag nor an environment variable is set.
const (
	DefaultPort              = 8080
	DefaultDatabaseType      = "postgres"
	DefaultRedisURL          = "redis://localhost:6379/0"
	DefaultVoterTTL          = 7 * 24 * time.Hour
	DefaultSurveyCacheTTL    = 300 * time.Second
	DefaultAnalyticsCacheTTL = 60 * time.Second
	DefaultMaxResponses      = 100
	DefaultSurveyLifetime    = 3 * 24 * time.Hour
	DefaultMaxQuestions      = 3
	DefaultKVTimeout         = 300 * time.Millisecond
	DefaultDBTimeout         = 5 * time.Second
	DefaultRateLimit         = 10
	DefaultRateLimitWindow   = time.Minute
	DefaultSweepInterval     = time.Hour
	DefaultLogLevel          = "info"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	RedisURL     string

	JWTSecret  string
	IPHashSalt string

	VoterTTL          time.Duration
	SurveyCacheTTL    time.Duration
	AnalyticsCacheTTL time.Duration
	MaxResponses      int
	SurveyLifetime    time.Duration
	MaxQuestions      int

	KVTimeout time.Duration
	DBTimeout time.Duration

	RateLimit       int
	RateLimitWindow time.Duration

	SweepInterval time.Duration
	LogLevel      string
}

// LoadDotEnv loads environment files, ignoring ones that don't exist.
// Variables already present in the environment are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ParseFlags validates flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("flash-survey", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (postgres or sqlite)")
	fs.StringVar(&cfg.RedisURL, "r", "", "Redis URL")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Admin JWT secret (prefer env)")
	fs.StringVar(&cfg.IPHashSalt, "ip-salt", "", "Voter IP hash salt (prefer env)")

	// Tuning
	fs.DurationVar(&cfg.VoterTTL, "voter-ttl", 0, "How long a voter stays admitted")
	fs.DurationVar(&cfg.SurveyCacheTTL, "survey-cache-ttl", 0, "Survey view cache TTL")
	fs.DurationVar(&cfg.AnalyticsCacheTTL, "analytics-cache-ttl", 0, "Analytics view cache TTL")
	fs.IntVar(&cfg.MaxResponses, "max-responses", 0, "Default max responses per survey")
	fs.DurationVar(&cfg.SurveyLifetime, "survey-lifetime", 0, "Default survey lifetime")
	fs.IntVar(&cfg.MaxQuestions, "max-questions", 0, "Max questions per survey")
	fs.DurationVar(&cfg.KVTimeout, "kv-timeout", 0, "Timeout for each Redis call")
	fs.DurationVar(&cfg.DBTimeout, "db-timeout", 0, "Timeout for each database call")
	fs.IntVar(&cfg.RateLimit, "rate-limit", 0, "Submissions allowed per IP per window")
	fs.DurationVar(&cfg.RateLimitWindow, "rate-limit-window", 0, "Rate limit window")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", 0, "Closed survey sweep interval (0 disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envOr("DATABASE_TYPE", DefaultDatabaseType)
	}
	if cfg.DatabaseType != "postgres" && cfg.DatabaseType != "sqlite" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = envOr("REDIS_URL", DefaultRedisURL)
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = os.Getenv("IP_HASH_SALT")
	}
	if cfg.IPHashSalt == "" {
		return Config{}, errors.New("IP_HASH_SALT required")
	}

	durations := []struct {
		dst  *time.Duration
		flag string
		env  string
		def  time.Duration
	}{
		{&cfg.VoterTTL, "voter-ttl", "VOTER_TTL", DefaultVoterTTL},
		{&cfg.SurveyCacheTTL, "survey-cache-ttl", "SURVEY_CACHE_TTL", DefaultSurveyCacheTTL},
		{&cfg.AnalyticsCacheTTL, "analytics-cache-ttl", "ANALYTICS_CACHE_TTL", DefaultAnalyticsCacheTTL},
		{&cfg.SurveyLifetime, "survey-lifetime", "SURVEY_LIFETIME", DefaultSurveyLifetime},
		{&cfg.KVTimeout, "kv-timeout", "KV_TIMEOUT", DefaultKVTimeout},
		{&cfg.DBTimeout, "db-timeout", "DB_TIMEOUT", DefaultDBTimeout},
		{&cfg.RateLimitWindow, "rate-limit-window", "RATE_LIMIT_WINDOW", DefaultRateLimitWindow},
		{&cfg.SweepInterval, "sweep-interval", "SWEEP_INTERVAL", DefaultSweepInterval},
	}
	for _, d := range durations {
		if set[d.flag] {
			continue
		}
		v, err := envDuration(d.env, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	ints := []struct {
		dst  *int
		flag string
		env  string
		def  int
	}{
		{&cfg.MaxResponses, "max-responses", "VOTE_LIMIT_PER_SURVEY", DefaultMaxResponses},
		{&cfg.MaxQuestions, "max-questions", "MAX_QUESTIONS", DefaultMaxQuestions},
		{&cfg.RateLimit, "rate-limit", "RATE_LIMIT", DefaultRateLimit},
	}
	for _, i := range ints {
		if set[i.flag] {
			continue
		}
		v, err := envInt(i.env, i.def)
		if err != nil {
			return Config{}, err
		}
		*i.dst = v
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = envOr("LOG_LEVEL", DefaultLogLevel)
	}

	if cfg.MaxResponses <= 0 {
		return Config{}, errors.New("max responses must be positive")
	}
	if cfg.MaxQuestions <= 0 {
		return Config{}, errors.New("max questions must be positive")
	}
	if cfg.VoterTTL <= 0 || cfg.SurveyLifetime <= 0 {
		return Config{}, errors.New("voter TTL and survey lifetime must be positive")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare integers are seconds
		secs, convErr := strconv.Atoi(v)
		if convErr != nil {
			return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
		}
		d = time.Duration(secs) * time.Second
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return n, nil
}
