package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "CAREERPATH_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CAREERPATH_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "gemini.base_url", typ: kString, env: "CAREERPATH_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "gemini.model", typ: kString, env: "CAREERPATH_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "gemini.api_key", typ: kString, env: "CAREERPATH_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.timeout", typ: kDuration, env: "CAREERPATH_GEMINI_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Gemini.Timeout },
	},
	{
		key: "roadmap.schema_validation", typ: kBool, env: "CAREERPATH_ROADMAP_SCHEMA_VALIDATION",
		apply:   func(cfg *Config, v any) { cfg.Roadmap.SchemaValidation = v.(bool) },
		extract: func(cfg Config) any { return cfg.Roadmap.SchemaValidation },
	},
	{
		key: "roadmap.max_concurrent", typ: kInt, env: "CAREERPATH_ROADMAP_MAX_CONCURRENT",
		apply:   func(cfg *Config, v any) { cfg.Roadmap.MaxConcurrent = v.(int) },
		extract: func(cfg Config) any { return cfg.Roadmap.MaxConcurrent },
	},
	{
		key: "log.level", typ: kString, env: "CAREERPATH_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parse converts a raw string into the key's value type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kDuration:
		d, err := time.ParseDuration(raw)
		if err == nil && d <= 0 {
			err = fmt.Errorf("duration must be positive")
		}
		return d, err
	default:
		return raw, nil
	}
}

func (s keySpec) typeName() string {
	switch s.typ {
	case kInt:
		return "integer"
	case kBool:
		return "bool"
	case kDuration:
		return "duration"
	default:
		return "string"
	}
}

// applyRaw parses raw for this key and applies it, or warns and keeps the
// current value. source names where raw came from.
func (s keySpec) applyRaw(cfg *Config, raw, source string) {
	v, err := s.parse(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from %s=%q: %v. Using default value.\n", s.typeName(), source, raw, err)
		return
	}
	s.apply(cfg, v)
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.Get(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if ok && raw != "" {
			s.applyRaw(cfg, raw, "config key "+s.key)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		if raw := os.Getenv(s.env); raw != "" {
			s.applyRaw(cfg, raw, "env var "+s.env)
		}
	}
}
