// Package config loads the server configuration.
//
// 読み込み順（後勝ち）:
//  1. 構造体のデフォルト値
//  2. YAMLファイル（CONFIG_PATH もしくは ./config.yaml）
//  3. 環境変数（.env があれば先に読み込む）
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	DB        DBConfig        `koanf:"db"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Assistant AssistantConfig `koanf:"assistant"`
	Identity  IdentityConfig  `koanf:"identity"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	Env             string        `koanf:"env"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DBConfig selects and configures the entry/user store.
type DBConfig struct {
	Driver         string        `koanf:"driver"` // postgres | sqlite
	Host           string        `koanf:"host"`
	Port           string        `koanf:"port"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name"`
	SSLMode        string        `koanf:"sslmode"`
	SQLitePath     string        `koanf:"sqlite_path"`
	RunMigrations  bool          `koanf:"run_migrations"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type RedisConfig struct {
	Host     string        `koanf:"host"`
	Port     string        `koanf:"port"`
	Password string        `koanf:"password"`
	EntryTTL time.Duration `koanf:"entry_ttl"`
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret     string        `koanf:"secret"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
}

// AssistantConfig configures the generative model behind prompts and reflections.
// Without an APIKey the client falls back to Vertex AI credentials from the
// environment; if neither is available every response is fallback text.
type AssistantConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type IdentityConfig struct {
	MaxAge        time.Duration `koanf:"max_age"`
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json | text
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			Env:             "development",
			ShutdownTimeout: 10 * time.Second,
		},
		DB: DBConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           "5432",
			User:           "lumina",
			Name:           "lumina",
			SSLMode:        "disable",
			SQLitePath:     "lumina.db",
			ConnectTimeout: 60 * time.Second,
		},
		Redis: RedisConfig{
			Port:     "6379",
			EntryTTL: 5 * time.Minute,
		},
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Assistant: AssistantConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 15 * time.Second,
		},
		Identity: IdentityConfig{
			PurgeInterval: time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var defaultConfigPaths = []string{"config.yaml", "/etc/lumina/config.yaml"}

// envMappings maps flat environment variable names to koanf paths.
// Names not listed are read as LUMINA_<SECTION>_<KEY>.
var envMappings = map[string]string{
	"port":                   "server.port",
	"app_env":                "server.env",
	"cors_origins":           "server.cors_origins",
	"shutdown_timeout":       "server.shutdown_timeout",
	"db_driver":              "db.driver",
	"db_host":                "db.host",
	"db_port":                "db.port",
	"db_user":                "db.user",
	"db_password":            "db.password",
	"db_name":                "db.name",
	"db_sslmode":             "db.sslmode",
	"db_sqlite_path":         "db.sqlite_path",
	"db_connect_timeout":     "db.connect_timeout",
	"run_migrations":         "db.run_migrations",
	"redis_host":             "redis.host",
	"redis_port":             "redis.port",
	"redis_password":         "redis.password",
	"redis_entry_ttl":        "redis.entry_ttl",
	"jwt_secret":             "jwt.secret",
	"jwt_access_ttl":         "jwt.access_ttl",
	"jwt_refresh_ttl":        "jwt.refresh_ttl",
	"gemini_api_key":         "assistant.api_key",
	"gemini_model":           "assistant.model",
	"gemini_base_url":        "assistant.base_url",
	"assistant_timeout":      "assistant.timeout",
	"identity_max_age":       "identity.max_age",
	"session_purge_interval": "identity.purge_interval",
	"log_level":              "log.level",
	"log_format":             "log.format",
}

// envTransformFunc maps an environment variable name to a koanf path.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if path, ok := envMappings[key]; ok {
		return path
	}
	// LUMINA_<SECTION>_<KEY> の形式
	if rest, ok := strings.CutPrefix(key, "lumina_"); ok {
		if section, field, ok := strings.Cut(rest, "_"); ok {
			return section + "." + field
		}
	}
	// 無関係な環境変数は無視する
	return ""
}

// Load reads the configuration. A missing .env or YAML file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := configPath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
		slog.Info("loaded config file", "path", path)
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := splitCommaList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitCommaList turns "a, b" from the environment into a string slice.
func splitCommaList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.Name == "" {
			errs = append(errs, errors.New("db.host and db.name are required for postgres"))
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			errs = append(errs, errors.New("db.sqlite_path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("db.driver must be postgres or sqlite, got %q", c.DB.Driver))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("jwt ttl values must be positive"))
	}
	if c.Assistant.Timeout <= 0 {
		errs = append(errs, errors.New("assistant.timeout must be positive"))
	}
	if c.Identity.MaxAge < 0 {
		errs = append(errs, errors.New("identity.max_age must not be negative"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
