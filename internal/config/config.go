package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env         string
	ServiceName string
	Port        string
	MetricsPort string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	AllowedOrigins []string

	// Wallet settlement
	AutoCreateWallet   bool
	DefaultCredits     int64
	DefaultSymbolCount int
	MinSymbolCount     int
	MaxSymbolCount     int
	JackpotMultiplier  float64
	PairMultiplier     float64

	SpinWindow      time.Duration
	SpinWindowLimit int
	SpinCooldown    time.Duration

	// Score submission
	ScoreWindow          time.Duration
	ScoreWindowLimit     int
	RequireScoreIdentity bool
	ScoreStore           string // "redis" or "postgres"
	PostgresDSN          string

	KafkaBrokers     string
	KafkaTopicRounds string
	KafkaTopicPay    string

	// Payments
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceID       string
	StripeCreditAmount  int64
	SiteURL             string
	SuccessURL          string
	CancelURL           string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("ENV", "local"),
		ServiceName: getEnv("SERVICE_NAME", "slots-api"),
		Port:        getEnv("PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9095"),

		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "gyanburu"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		ScoreStore:  strings.ToLower(getEnv("SCORE_STORE", "redis")),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		KafkaBrokers:     getEnv("KAFKA_BROKERS", ""),
		KafkaTopicRounds: getEnv("KAFKA_TOPIC_ROUNDS", "slots.rounds.settled"),
		KafkaTopicPay:    getEnv("KAFKA_TOPIC_PAYMENTS", "slots.payments.credited"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceID:       getEnv("STRIPE_PRICE_ID", ""),
		SiteURL:             strings.TrimRight(getEnv("SITE_URL", ""), "/"),
	}

	cfg.SuccessURL = getEnv("STRIPE_SUCCESS_URL", cfg.SiteURL+"/success.html")
	cfg.CancelURL = getEnv("STRIPE_CANCEL_URL", cfg.SiteURL+"/slot_machine.html")

	var errs []error
	p := parser{errs: &errs}

	cfg.RedisDB = p.int("REDIS_DB", 0)
	cfg.JWTTTL = p.duration("JWT_TTL", 24*time.Hour)

	cfg.AutoCreateWallet = p.bool("AUTO_CREATE_WALLET", true)
	cfg.DefaultCredits = p.int64("DEFAULT_CREDITS", 100)
	cfg.DefaultSymbolCount = p.int("SYMBOL_COUNT", 12)
	cfg.MinSymbolCount = p.int("MIN_SYMBOL_COUNT", 7)
	cfg.MaxSymbolCount = p.int("MAX_SYMBOL_COUNT", 32)
	cfg.JackpotMultiplier = p.float("JACKPOT_MULTIPLIER", 10)
	cfg.PairMultiplier = p.float("PAIR_MULTIPLIER", 2)

	cfg.SpinWindow = p.duration("SPIN_WINDOW", time.Minute)
	cfg.SpinWindowLimit = p.int("SPIN_WINDOW_LIMIT", 30)
	cfg.SpinCooldown = p.duration("SPIN_COOLDOWN", 800*time.Millisecond)

	cfg.ScoreWindow = p.duration("SCORE_WINDOW", time.Minute)
	cfg.ScoreWindowLimit = p.int("SCORE_WINDOW_LIMIT", 20)
	cfg.RequireScoreIdentity = p.bool("REQUIRE_SCORE_IDENTITY", false)

	cfg.StripeCreditAmount = p.int64("STRIPE_CREDIT_AMOUNT", 1000)

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c *Config) validate() error {
	var errs []error
	if c.IsProduction() && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.IsProduction() && c.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required in production"))
	}
	if c.MinSymbolCount < 2 || c.MinSymbolCount > c.MaxSymbolCount {
		errs = append(errs, fmt.Errorf("symbol count bounds [%d, %d] are invalid", c.MinSymbolCount, c.MaxSymbolCount))
	}
	if c.DefaultCredits < 0 {
		errs = append(errs, errors.New("DEFAULT_CREDITS must not be negative"))
	}
	if c.StripeCreditAmount <= 0 {
		errs = append(errs, errors.New("STRIPE_CREDIT_AMOUNT must be positive"))
	}
	if c.SpinWindowLimit <= 0 || c.ScoreWindowLimit <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	switch c.ScoreStore {
	case "redis":
	case "postgres":
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when SCORE_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SCORE_STORE %q", c.ScoreStore))
	}
	return errors.Join(errs...)
}

// getEnv returns the variable or def when unset.
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type parser struct {
	errs *[]error
}

func (p parser) fail(key string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
}

func (p parser) int(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p parser) int64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p parser) float(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return f
}

func (p parser) bool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}
