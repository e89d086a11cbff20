// Package config loads CLI settings from an optional YAML file and
// FORMBLOCKS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMBLOCKS_"

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Sandbox    SandboxConfig    `yaml:"sandbox"`
	Validation ValidationConfig `yaml:"validation"`
	Store      StoreConfig      `yaml:"store"`
	Render     RenderConfig     `yaml:"render"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type SandboxConfig struct {
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxCallStack int           `yaml:"max_call_stack" validate:"gte=0"`
}

type ValidationConfig struct {
	StrictPatterns bool `yaml:"strict_patterns"`
}

type StoreConfig struct {
	Kind  string      `yaml:"kind" validate:"oneof=memory file redis"`
	Path  string      `yaml:"path" validate:"required_if=Kind file"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"required,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Key      string `yaml:"key" validate:"required"`
}

type RenderConfig struct {
	Renderer string `yaml:"renderer" validate:"oneof=vanilla tui"`
	Engine   string `yaml:"engine" validate:"oneof=pongo2 go-template"`
	Theme    string `yaml:"theme"`
	Variant  string `yaml:"variant"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Sandbox: SandboxConfig{Timeout: 250 * time.Millisecond, MaxCallStack: 256},
		Store: StoreConfig{
			Kind:  "file",
			Path:  "formblocks.json",
			Redis: RedisConfig{Addr: "localhost:6379", Key: "formblocks:schema"},
		},
		Render: RenderConfig{Renderer: "vanilla", Engine: "pongo2"},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if lookup != nil {
		if err := applyEnv(&cfg, lookup); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every failing field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("config: invalid settings: %s", strings.Join(msgs, "; "))
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("STORE_KIND", &cfg.Store.Kind)
	str("STORE_PATH", &cfg.Store.Path)
	str("REDIS_ADDR", &cfg.Store.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Store.Redis.Password)
	str("REDIS_KEY", &cfg.Store.Redis.Key)
	str("RENDERER", &cfg.Render.Renderer)
	str("TEMPLATE_ENGINE", &cfg.Render.Engine)
	str("THEME", &cfg.Render.Theme)
	str("THEME_VARIANT", &cfg.Render.Variant)

	if v, ok := lookup(EnvPrefix + "SANDBOX_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sSANDBOX_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Sandbox.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "SANDBOX_MAX_CALL_STACK"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sSANDBOX_MAX_CALL_STACK: %w", EnvPrefix, err)
		}
		cfg.Sandbox.MaxCallStack = n
	}
	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sREDIS_DB: %w", EnvPrefix, err)
		}
		cfg.Store.Redis.DB = n
	}
	if v, ok := lookup(EnvPrefix + "STRICT_PATTERNS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sSTRICT_PATTERNS: %w", EnvPrefix, err)
		}
		cfg.Validation.StrictPatterns = b
	}
	return nil
}
