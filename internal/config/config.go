package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARTICLEUI_"

type Config struct {
	Addr     string        `yaml:"addr"`
	DiagAddr string        `yaml:"diag_addr"`
	LogLevel string        `yaml:"log_level"`
	Backend  BackendConfig `yaml:"backend"`
	UI       UIConfig      `yaml:"ui"`
	Session  SessionConfig `yaml:"session"`
	Redis    RedisConfig   `yaml:"redis"`
	Fixtures FixtureConfig `yaml:"fixtures"`
}

type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type UIConfig struct {
	PageSize    int    `yaml:"page_size"`
	DefaultUser string `yaml:"default_user"`
	TimeLayout  string `yaml:"time_layout"`
	TimeZone    string `yaml:"time_zone"`
}

type SessionConfig struct {
	LoginPath    string        `yaml:"login_path"`
	SkipPrefixes []string      `yaml:"skip_prefixes"`
	TTL          time.Duration `yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// FixtureConfig starts the in-memory backend on Addr when set.
type FixtureConfig struct {
	Addr    string `yaml:"addr"`
	SignKey string `yaml:"sign_key"`
}

// Location resolves TimeZone, falling back to the local zone.
func (u UIConfig) Location() *time.Location {
	if u.TimeZone == "" {
		return time.Local
	}

	loc, err := time.LoadLocation(u.TimeZone)
	if err != nil {
		return time.Local
	}

	return loc
}

// Load reads .env, then the YAML file at path (skipped when path is empty),
// then ARTICLEUI_* overrides, then fills defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.Addr = GetEnv(EnvPrefix+"ADDR", c.Addr)
	c.DiagAddr = GetEnv(EnvPrefix+"DIAG_ADDR", c.DiagAddr)
	c.LogLevel = GetEnv(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.Backend.URL = GetEnv(EnvPrefix+"BACKEND_URL", c.Backend.URL)
	c.UI.DefaultUser = GetEnv(EnvPrefix+"DEFAULT_USER", c.UI.DefaultUser)
	c.UI.TimeLayout = GetEnv(EnvPrefix+"TIME_LAYOUT", c.UI.TimeLayout)
	c.UI.TimeZone = GetEnv(EnvPrefix+"TIME_ZONE", c.UI.TimeZone)
	c.Session.LoginPath = GetEnv(EnvPrefix+"LOGIN_PATH", c.Session.LoginPath)
	c.Redis.Addr = GetEnv(EnvPrefix+"REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = GetEnv(EnvPrefix+"REDIS_PASSWORD", c.Redis.Password)
	c.Redis.Prefix = GetEnv(EnvPrefix+"REDIS_PREFIX", c.Redis.Prefix)
	c.Fixtures.Addr = GetEnv(EnvPrefix+"FIXTURES_ADDR", c.Fixtures.Addr)
	c.Fixtures.SignKey = GetEnv(EnvPrefix+"SIGN_KEY", c.Fixtures.SignKey)

	if v := os.Getenv(EnvPrefix + "SKIP_PREFIXES"); v != "" {
		c.Session.SkipPrefixes = splitList(v)
	}

	var err error
	if c.UI.PageSize, err = getEnvInt(EnvPrefix+"PAGE_SIZE", c.UI.PageSize); err != nil {
		return err
	}
	if c.Redis.DB, err = getEnvInt(EnvPrefix+"REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.Backend.Timeout, err = getEnvDuration(EnvPrefix+"BACKEND_TIMEOUT", c.Backend.Timeout); err != nil {
		return err
	}
	if c.Session.TTL, err = getEnvDuration(EnvPrefix+"SESSION_TTL", c.Session.TTL); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3333"
	}
	if c.DiagAddr == "" {
		c.DiagAddr = ":9999"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Backend.URL == "" {
		c.Backend.URL = "http://localhost:3334"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.UI.PageSize <= 0 {
		c.UI.PageSize = 10
	}
	if c.UI.DefaultUser == "" {
		c.UI.DefaultUser = "user"
	}
	if c.UI.TimeLayout == "" {
		c.UI.TimeLayout = "2006-01-02 15:04:05"
	}
	if c.Session.LoginPath == "" {
		c.Session.LoginPath = "/users/to_login"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "articleui:"
	}
	if c.Fixtures.SignKey == "" {
		c.Fixtures.SignKey = "articleui-dev"
	}
}

// GetEnv returns the variable named key, or fallback when it is unset or empty.
func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}

func GetEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(GetEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}

	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
