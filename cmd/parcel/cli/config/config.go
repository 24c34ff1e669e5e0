package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "PARCEL"

// DefaultTimeout bounds the external compress and uncompress tools.
const DefaultTimeout = 5 * time.Minute

// Progress modes.
const (
	ProgressAuto  = "auto"
	ProgressTTY   = "tty"
	ProgressPlain = "plain"
)

// Config represents the parcel CLI configuration.
// Use mapstructure tags for Viper unmarshaling.
type Config struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Progress string        `mapstructure:"progress"`
	Log      LogConfig     `mapstructure:"log"`
	Unpack   UnpackConfig  `mapstructure:"unpack"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is empty to disable logging, or one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// UnpackConfig holds unpack defaults.
type UnpackConfig struct {
	DeleteSource bool `mapstructure:"delete-source"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Timeout:  DefaultTimeout,
		Progress: ProgressAuto,
	}
}

// Map returns c in the shape of the config file.
func (c Config) Map() map[string]any {
	return map[string]any{
		"timeout":  c.Timeout.String(),
		"progress": c.Progress,
		"log": map[string]any{
			"level": c.Log.Level,
		},
		"unpack": map[string]any{
			"delete-source": c.Unpack.DeleteSource,
		},
	}
}

// Setup registers defaults and environment bindings on v.
func Setup(v *viper.Viper) {
	for key, value := range flatten("", Default().Map()) {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	switch c.Progress {
	case ProgressAuto, ProgressTTY, ProgressPlain:
	default:
		return fmt.Errorf("invalid progress mode %q: want auto, tty or plain", c.Progress)
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
		}
	}
	return nil
}

// flatten turns nested maps into dotted keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for k, v := range flatten(key, nested) {
				out[k] = v
			}
			continue
		}
		out[key] = value
	}
	return out
}
