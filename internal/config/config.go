// Package config loads settings from defaults, a YAML file, a .env file and the environment,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SPLITBILL_"

type Config struct {
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
	Session       SessionConfig       `mapstructure:"session" yaml:"session"`
	Redis         RedisConfig         `mapstructure:"redis" yaml:"redis"`
	HTTP          HTTPConfig          `mapstructure:"http" yaml:"http"`
	Discord       DiscordConfig       `mapstructure:"discord" yaml:"discord"`
	Receipt       ReceiptConfig       `mapstructure:"receipt" yaml:"receipt"`
	Invoice       InvoiceConfig       `mapstructure:"invoice" yaml:"invoice"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators" yaml:"collaborators"`
	MaxInputSize  int                 `mapstructure:"max_input_size" yaml:"max_input_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	LockTTL       time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	// EncryptionKey (base64, 32 bytes) seals stored sessions with AES-256-GCM.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	// PreviousKeys is a comma-separated list of retired keys still accepted for reading.
	PreviousKeys string `mapstructure:"previous_keys" yaml:"previous_keys"`
}

// RedisConfig enables the Redis store and locker when URL is set.
type RedisConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type DiscordConfig struct {
	Token         string `mapstructure:"token" yaml:"token"`
	CommandPrefix string `mapstructure:"command_prefix" yaml:"command_prefix"`
}

// ReceiptConfig enables receipt lookup when Token is set.
type ReceiptConfig struct {
	Token           string        `mapstructure:"token" yaml:"token"`
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint"`
	BreakerFailures uint32        `mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout" yaml:"breaker_timeout"`
}

// InvoiceConfig enables pay buttons when WebhookURL is set, or when LogOnly is true.
type InvoiceConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Token      string `mapstructure:"token" yaml:"token"`
	Currency   string `mapstructure:"currency" yaml:"currency"`
	LogOnly    bool   `mapstructure:"log_only" yaml:"log_only"`
}

type CollaboratorsConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Defaults returns the built-in settings as a nested map.
func Defaults() map[string]any {
	return map[string]any{
		"log": map[string]any{"level": "info", "format": "text"},
		"session": map[string]any{
			"idle_timeout":   "30m",
			"sweep_interval": "1m",
			"lock_ttl":       "30s",
		},
		"redis":   map[string]any{"prefix": "splitbill:session:"},
		"http":    map[string]any{"addr": ":8080"},
		"discord": map[string]any{"command_prefix": "!"},
		"receipt": map[string]any{
			"breaker_failures": 5,
			"breaker_timeout":  "30s",
		},
		"invoice":        map[string]any{"currency": "RUB"},
		"collaborators":  map[string]any{"timeout": "15s"},
		"max_input_size": 4096,
	}
}

// envKeys maps environment variables (without EnvPrefix) onto config paths.
var envKeys = map[string]string{
	"LOG_LEVEL":                "log.level",
	"LOG_FORMAT":               "log.format",
	"SESSION_IDLE_TIMEOUT":     "session.idle_timeout",
	"SESSION_SWEEP_INTERVAL":   "session.sweep_interval",
	"SESSION_LOCK_TTL":         "session.lock_ttl",
	"SESSION_ENCRYPTION_KEY":   "session.encryption_key",
	"SESSION_PREVIOUS_KEYS":    "session.previous_keys",
	"REDIS_URL":                "redis.url",
	"REDIS_PREFIX":             "redis.prefix",
	"HTTP_ADDR":                "http.addr",
	"DISCORD_TOKEN":            "discord.token",
	"DISCORD_COMMAND_PREFIX":   "discord.command_prefix",
	"RECEIPT_TOKEN":            "receipt.token",
	"RECEIPT_ENDPOINT":         "receipt.endpoint",
	"RECEIPT_BREAKER_FAILURES": "receipt.breaker_failures",
	"RECEIPT_BREAKER_TIMEOUT":  "receipt.breaker_timeout",
	"INVOICE_WEBHOOK_URL":      "invoice.webhook_url",
	"INVOICE_TOKEN":            "invoice.token",
	"INVOICE_CURRENCY":         "invoice.currency",
	"INVOICE_LOG_ONLY":         "invoice.log_only",
	"COLLABORATORS_TIMEOUT":    "collaborators.timeout",
	"MAX_INPUT_SIZE":           "max_input_size",
}

// EnvVars lists every supported environment variable.
func EnvVars() []string {
	out := make([]string, 0, len(envKeys))
	for k := range envKeys {
		out = append(out, EnvPrefix+k)
	}
	sort.Strings(out)
	return out
}

// Load builds the configuration. An empty file or dotenv path skips that layer;
// a dotenv path that does not exist is ignored, a missing config file is an error.
func Load(file, dotenv string) (*Config, error) {
	raw := Defaults()

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		var fromFile map[string]any
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		merge(raw, fromFile)
	}

	vars := map[string]string{}
	if dotenv != "" {
		fromDotenv, err := godotenv.Read(dotenv)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", dotenv, err)
		}
		for k, v := range fromDotenv {
			vars[k] = v
		}
	}
	for suffix := range envKeys {
		if v, ok := os.LookupEnv(EnvPrefix + suffix); ok {
			vars[EnvPrefix+suffix] = v
		}
	}
	for k, v := range vars {
		path, ok := envKeys[strings.TrimPrefix(k, EnvPrefix)]
		if !ok || !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		set(raw, path, v)
	}

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, errors.New("session.idle_timeout must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("session.sweep_interval must be positive"))
	}
	if c.Session.LockTTL <= 0 {
		errs = append(errs, errors.New("session.lock_ttl must be positive"))
	}
	if c.Collaborators.Timeout <= 0 {
		errs = append(errs, errors.New("collaborators.timeout must be positive"))
	}
	if c.MaxInputSize <= 0 {
		errs = append(errs, errors.New("max_input_size must be positive"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

func set(m map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	for _, p := range parts[:len(parts)-1] {
		sub, ok := m[p].(map[string]any)
		if !ok {
			sub = map[string]any{}
			m[p] = sub
		}
		m = sub
	}
	m[parts[len(parts)-1]] = v
}
