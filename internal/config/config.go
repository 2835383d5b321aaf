// Package config loads accumulog runtime configuration.
//
// Sources are layered in order: schema defaults, an optional user CUE file,
// ACCUMULOG_* environment variables. The CLI applies flags last. Every layer
// is validated against the same closed CUE schema.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/caarlos0/env/v11"
)

//go:embed schema.cue
var schemaCUE string

// Config is the resolved runtime configuration.
type Config struct {
	DB              string `json:"db"                env:"ACCUMULOG_DB"`
	MaxPayloadBytes int    `json:"max_payload_bytes" env:"ACCUMULOG_MAX_PAYLOAD_BYTES"`
	LogLevel        string `json:"log_level"         env:"ACCUMULOG_LOG_LEVEL"`
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		// The embedded schema is fixed; only the environment can fail here.
		return Config{DB: "accumulog.db", LogLevel: "info"}
	}
	return cfg
}

// Load resolves configuration from the schema, the CUE file at path (skipped
// when path is empty) and the environment.
func Load(path string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := def
	if path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		user := ctx.CompileBytes(src, cue.Filename(path))
		if err := user.Err(); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %s", path, details(err))
		}
		value = def.Unify(user)
	}

	var cfg Config
	if err := decode(value, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %s", sourceName(path), details(err))
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	// Re-check the environment layer against the schema.
	if err := decode(def.Unify(ctx.Encode(cfg)), &cfg); err != nil {
		return Config{}, fmt.Errorf("config environment: %s", details(err))
	}

	return cfg, nil
}

// decode validates v as concrete and decodes it into cfg.
func decode(v cue.Value, cfg *Config) error {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return v.Decode(cfg)
}

// details flattens a CUE error list into one line per error.
func details(err error) string {
	return cueerrors.Details(err, nil)
}

func sourceName(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
