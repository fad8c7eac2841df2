package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "SCHOLARDASH_"
	envConfig  = envPrefix + "CONFIG"
	envFile    = ".env"
	keyDelim   = "."
	envNesting = "__"
)

// Load builds a Config by layering defaults, an optional .env file, an
// optional YAML file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env in the working directory, never overriding variables already set
//  3. file (YAML) if SCHOLARDASH_CONFIG is set
//  4. env (prefix SCHOLARDASH_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	base := New()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, WrapKind(ErrLoadConfig, envFile, err)
	}

	k := koanf.New(keyDelim)

	// Tier sets are decoded as whole map values, so seed them first to let a
	// file or env var override a single bound.
	for name, bands := range base.Tiers {
		prefix := "tiers." + name + "."
		_ = k.Set(prefix+"label", bands.Label)
		_ = k.Set(prefix+"tier1_min", bands.Tier1Min)
		_ = k.Set(prefix+"tier2_min", bands.Tier2Min)
	}

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, WrapKind(ErrLoadConfig, path, err)
		}
	}

	// SCHOLARDASH_ANALYSIS__EXAMS__MIN_GROUP_SIZE -> analysis.exams.min_group_size
	// List keys take a comma-separated value: SCHOLARDASH_DATA_DIRS=data/,/srv/data/
	envProvider := env.ProviderWithValue(envPrefix, keyDelim, func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(key, envPrefix)
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, envNesting, keyDelim)
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, WrapKind(ErrLoadConfig, "env", err)
	}

	cfg := *base
	if k.Exists("data_dirs") {
		cfg.DataDirs = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, WrapKind(ErrLoadConfig, "unmarshal", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var listKeys = map[string]struct{}{ //nolint:gochecknoglobals // fixed key set
	"data_dirs": {},
}

// splitList splits a comma-separated env value, dropping blank items.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // validator caches struct metadata

// Validate checks struct constraints and the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return WrapKind(ErrInvalidConfig, "validate", err)
	}
	if cfg.Auth.Enabled() && cfg.Auth.SessionSecret == "" {
		return WrapKind(ErrInvalidConfig, "auth", errors.New("session_secret is required when a password is set"))
	}
	return nil
}
