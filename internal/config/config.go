// Package config loads monitor settings from the environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

const (
	DefaultInterval      = 30 * time.Second
	DefaultCheckTimeout  = 20 * time.Second
	DefaultNotifyTimeout = 10 * time.Second
	DefaultRetailerRPS   = 2.0
	DefaultRetailerBurst = 2
	DefaultExchange      = "restock"
	DefaultRedisChannel  = "restock"

	// Intervals below this risk upstream throttling.
	MinSaneInterval = 30 * time.Second
)

var (
	ErrNoWebhook  = errors.New("DISCORD_WEBHOOK is not set")
	ErrNoProducts = errors.New("no products configured")
)

// LogFormat selects how status lines are written.
type LogFormat string

const (
	LogText LogFormat = "text"
	LogJSON LogFormat = "json"
)

// Config is the full process configuration. It is read once at startup.
type Config struct {
	Webhook       string
	Interval      time.Duration
	CheckTimeout  time.Duration
	NotifyTimeout time.Duration
	Products      []stock.Product

	Proxies        []string
	RetailerRPS    float64
	RetailerBurst  int
	MaxConcurrency int
	LogFormat      LogFormat

	StatusAddr   string
	AlertJournal string
	AMQPURL      string
	AMQPExchange string
	RedisAddr    string
	RedisChannel string

	// Warnings are non-fatal findings for the operator.
	Warnings []string
}

// FromEnv loads from the process environment.
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}

// Load reads every setting through getenv. Malformed values are errors; missing
// preconditions are left to Validate.
func Load(getenv func(string) string) (Config, error) {
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }

	cfg := Config{
		Webhook:       get("DISCORD_WEBHOOK"),
		Interval:      DefaultInterval,
		CheckTimeout:  DefaultCheckTimeout,
		NotifyTimeout: DefaultNotifyTimeout,
		RetailerRPS:   DefaultRetailerRPS,
		RetailerBurst: DefaultRetailerBurst,
		LogFormat:     LogText,
		StatusAddr:    get("STATUS_ADDR"),
		AlertJournal:  get("ALERT_JOURNAL"),
		AMQPURL:       get("AMQP_URL"),
		AMQPExchange:  DefaultExchange,
		RedisAddr:     get("REDIS_ADDR"),
		RedisChannel:  DefaultRedisChannel,
	}

	var err error
	if v := get("CHECK_INTERVAL"); v != "" {
		if cfg.Interval, err = ParseDuration(v); err != nil {
			return Config{}, invalid("CHECK_INTERVAL", err)
		}
	}
	if v := get("CHECK_TIMEOUT"); v != "" {
		if cfg.CheckTimeout, err = ParseDuration(v); err != nil {
			return Config{}, invalid("CHECK_TIMEOUT", err)
		}
	}
	if v := get("NOTIFY_TIMEOUT"); v != "" {
		if cfg.NotifyTimeout, err = ParseDuration(v); err != nil {
			return Config{}, invalid("NOTIFY_TIMEOUT", err)
		}
	}
	if v := get("RETAILER_RPS"); v != "" {
		cfg.RetailerRPS, err = strconv.ParseFloat(v, 64)
		if err != nil || cfg.RetailerRPS < 0 {
			return Config{}, invalid("RETAILER_RPS", fmt.Errorf("want a non-negative number, got %q", v))
		}
	}
	if v := get("RETAILER_BURST"); v != "" {
		cfg.RetailerBurst, err = strconv.Atoi(v)
		if err != nil || cfg.RetailerBurst < 0 {
			return Config{}, invalid("RETAILER_BURST", fmt.Errorf("want a non-negative integer, got %q", v))
		}
	}
	if cfg.MaxConcurrency, err = WorkerCount(get("MAX_CONCURRENCY")); err != nil {
		return Config{}, invalid("MAX_CONCURRENCY", err)
	}
	switch v := LogFormat(strings.ToLower(get("LOG_FORMAT"))); v {
	case "":
	case LogText, LogJSON:
		cfg.LogFormat = v
	default:
		return Config{}, invalid("LOG_FORMAT", fmt.Errorf("want text or json, got %q", v))
	}
	if v := get("AMQP_EXCHANGE"); v != "" {
		cfg.AMQPExchange = v
	}
	if v := get("REDIS_CHANNEL"); v != "" {
		cfg.RedisChannel = v
	}
	cfg.Proxies = splitList(get("PROXIES"))

	if raw := get("PRODUCTS"); raw != "" {
		if cfg.Products, err = ParseProducts([]byte(raw), FormatJSON); err != nil {
			return Config{}, invalid("PRODUCTS", err)
		}
	} else if path := get("PRODUCTS_FILE"); path != "" {
		if cfg.Products, err = LoadProductsFile(path); err != nil {
			return Config{}, invalid("PRODUCTS_FILE", err)
		}
	}

	cfg.applyWarnings()
	return cfg, nil
}

func (c *Config) applyWarnings() {
	if c.Interval < MinSaneInterval {
		c.Warnings = append(c.Warnings, fmt.Sprintf(
			"check interval %s is below %s; retailers may throttle or block requests", c.Interval, MinSaneInterval))
	}
	if c.CheckTimeout >= c.Interval {
		clamped := c.Interval * 3 / 4
		c.Warnings = append(c.Warnings, fmt.Sprintf(
			"check timeout %s is not below the interval; using %s", c.CheckTimeout, clamped))
		c.CheckTimeout = clamped
	}
}

// Validate checks the startup preconditions.
func (c Config) Validate() error {
	if c.Webhook == "" {
		return errs.New("config", errs.CodeConfig, errs.WithCause(ErrNoWebhook))
	}
	if len(c.Products) == 0 {
		return errs.New("config", errs.CodeConfig, errs.WithCause(ErrNoProducts))
	}
	return nil
}

const maxDurationMillis = int64(math.MaxInt64 / int64(time.Millisecond))

// ParseDuration accepts a millisecond count ("30000") or a Go duration ("45s"). It must be positive.
func ParseDuration(v string) (time.Duration, error) {
	var d time.Duration
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		if ms > maxDurationMillis {
			return 0, fmt.Errorf("too large, got %q", v)
		}
		d = time.Duration(ms) * time.Millisecond
	} else if d, err = time.ParseDuration(v); err != nil {
		return 0, fmt.Errorf("want milliseconds or a duration, got %q", v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %q", v)
	}
	return d, nil
}

// WorkerCount resolves MAX_CONCURRENCY. Empty or "auto" sizes by logical CPUs.
func WorkerCount(v string) (int, error) {
	if v != "" && v != "auto" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("want a positive integer or auto, got %q", v)
		}
		return n, nil
	}
	// Checks are I/O bound, so oversubscribe.
	cores, err := cpu.Counts(true)
	if err != nil || cores < 1 {
		cores = 1
	}
	n := cores * 8
	if n < 8 {
		n = 8
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func invalid(name string, err error) error {
	return errs.New("config", errs.CodeConfig, errs.WithMessage(name), errs.WithCause(err))
}
