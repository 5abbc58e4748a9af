// Package config loads settings from an optional YAML file, NIHONGO_*
// environment variables, and command-line flags, in rising precedence.
package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

// Config is the process-wide configuration. The database path is the
// only state the core reads; everything else belongs to the outer
// surfaces.
type Config struct {
	DBPath   string `koanf:"db_path" validate:"required"`
	Language string `koanf:"language" validate:"oneof=vi en"`

	FSRS FSRSConfig `koanf:"fsrs"`
	Chat ChatConfig `koanf:"chat"`
}

// FSRSConfig overrides the scheduler defaults.
type FSRSConfig struct {
	DesiredRetention float64 `koanf:"desired_retention" validate:"gt=0,lte=1"`
	MaximumInterval  int     `koanf:"maximum_interval" validate:"gt=0"`
	EnableFuzzing    bool    `koanf:"enable_fuzzing"`
}

// ChatConfig configures the assistant's OpenAI-compatible endpoint.
type ChatConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

// Default is the configuration before any source is applied.
func Default() Config {
	return Config{
		DBPath:   "./data/japanese.db",
		Language: "vi",
		FSRS: FSRSConfig{
			DesiredRetention: 0.9,
			MaximumInterval:  36500,
			EnableFuzzing:    true,
		},
		Chat: ChatConfig{Model: "gpt-4o-mini"},
	}
}

// Load merges the file at path (skipped when absent), the environment,
// and flags over the defaults, then validates the result.
func Load(path string, flags *flag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, errors.Wrapf(err, "load config %s", path)
			}
		}
	}

	err := k.Load(env.Provider("NIHONGO_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "NIHONGO_")), "__", ".")
	}), nil)
	if err != nil {
		return Config{}, errors.Wrap(err, "load environment")
	}

	if flags != nil {
		// Only explicitly set flags override; defaults must not mask
		// file or environment values.
		p := posflag.ProviderWithFlag(flags, ".", k, func(f *flag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return Config{}, errors.Wrap(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "validate config")
	}
	return cfg, nil
}
