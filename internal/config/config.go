package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         int
	MasterSecret string
	GinMode      string
	TLSCertFile  string
	TLSKeyFile   string
	TokenExpiry  time.Duration

	APIBaseURL string
	APIVersion string
	APITimeout time.Duration

	StateFile string

	AnalyticsURL    string
	AnalyticsAPIKey string

	LogLevel      string
	CookieHashKey []byte
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// fileEnv serves keys from a YAML document whose top-level keys are the
// lower-cased variable names (port, master_secret, ...).
type fileEnv map[string]string

func (f fileEnv) Getenv(key string) string { return f[strings.ToLower(key)] }

// layered prefers the process environment over the config file.
type layered struct {
	env  Env
	file Env
}

func (l layered) Getenv(key string) string {
	if v := l.env.Getenv(key); v != "" {
		return v
	}
	return l.file.Getenv(key)
}

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func loadFile(path string) (fileEnv, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE: %w", err)
	}
	out := make(fileEnv, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func positiveSeconds(env Env, key string, def time.Duration) (time.Duration, error) {
	raw := env.Getenv(key)
	if raw == "" {
		return def, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return time.Duration(seconds) * time.Second, nil
}

func LoadConfigFromEnv(env Env) (Config, error) {
	if path := env.Getenv("CONFIG_FILE"); path != "" {
		file, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		env = layered{env: env, file: file}
	}

	cfg := Config{
		Port:       3000,
		GinMode:    "release",
		APIBaseURL: "http://127.0.0.1:8083",
		APIVersion: "0.4",
		LogLevel:   "info",
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.MasterSecret = env.Getenv("MASTER_SECRET")
	if cfg.MasterSecret == "" {
		return Config{}, fmt.Errorf("MASTER_SECRET is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	var err error
	if cfg.TokenExpiry, err = positiveSeconds(env, "TOKEN_EXPIRY_SECONDS", 7*24*time.Hour); err != nil {
		return Config{}, err
	}

	if raw := env.Getenv("API_BASE_URL"); raw != "" {
		cfg.APIBaseURL = raw
	}
	if raw := env.Getenv("API_VERSION"); raw != "" {
		cfg.APIVersion = raw
	}
	if cfg.APITimeout, err = positiveSeconds(env, "API_TIMEOUT_SECONDS", 15*time.Second); err != nil {
		return Config{}, err
	}

	cfg.StateFile = env.Getenv("STATE_FILE")
	cfg.AnalyticsURL = env.Getenv("ANALYTICS_URL")
	cfg.AnalyticsAPIKey = env.Getenv("ANALYTICS_API_KEY")

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}

	if raw := env.Getenv("COOKIE_HASH_KEY"); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) < 32 {
			return Config{}, fmt.Errorf("invalid COOKIE_HASH_KEY: expected at least 32 hex-encoded bytes")
		}
		cfg.CookieHashKey = key
	}

	return cfg, nil
}
