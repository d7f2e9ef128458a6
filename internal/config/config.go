// Package config loads pbctl settings from an optional YAML file and
// PUSHBULLET_* environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix is the prefix of environment variables read by Load.
// PUSHBULLET_API_TOKEN sets api.token.
const EnvPrefix = "PUSHBULLET_"

// Config is the full pbctl configuration.
type Config struct {
	Env       string    `koanf:"env" validate:"oneof=development staging production test"`
	API       API       `koanf:"api"`
	Log       Log       `koanf:"log"`
	Telemetry Telemetry `koanf:"telemetry"`
}

// API configures the Pushbullet client.
type API struct {
	Token   string        `koanf:"token" validate:"required"`
	URL     string        `koanf:"url" validate:"omitempty,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`

	// Retries applies to reads only. Pushes and other writes are never retried.
	Retries uint64 `koanf:"retries" validate:"lte=10"`

	// Breaker fails calls fast after repeated server errors instead of
	// sending them. Off by default.
	Breaker bool `koanf:"breaker"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty"`
}

// Telemetry configures OTLP export of traces and metrics.
type Telemetry struct {
	Enabled  bool    `koanf:"enabled"`
	Endpoint string  `koanf:"endpoint" validate:"required_if=Enabled true"`
	Insecure bool    `koanf:"insecure"`
	Sampling float64 `koanf:"sampling" validate:"gte=0,lte=1"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env: "development",
		API: API{
			Timeout: 10 * time.Second,
		},
		Log: Log{
			Level: "info",
		},
		Telemetry: Telemetry{
			Endpoint: "localhost:4317",
			Insecure: true,
			Sampling: 1,
		},
	}
}

// Load reads the YAML file at path, when path is non-empty, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s failed", path)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config failed")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// envKey maps PUSHBULLET_API_TOKEN to api.token. Keys are single words per
// level, so every underscore is a level separator.
func envKey(k, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	if key == "" {
		return "", nil
	}
	return strings.ReplaceAll(key, "_", "."), v
}
