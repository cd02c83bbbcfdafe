package config

import (
	"fmt"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all config key/value pairs from the current config.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// SetKey writes a config key to the platform backend.
func SetKey(key, value string) error {
	return setKeyWith(newPlatformBackend(), key, value)
}

func setKeyWith(b Backend, key, value string) error {
	s, err := lookupSpec(key)
	if err != nil {
		return err
	}
	if _, err := s.parse(value); err != nil {
		return fmt.Errorf("invalid %s value for %s: %w", s.typeName(), key, err)
	}
	return b.Set(key, value)
}

// UnsetKey removes a config key from the platform backend so its default
// applies again.
func UnsetKey(key string) error {
	return unsetKeyWith(newPlatformBackend(), key)
}

func unsetKeyWith(b Backend, key string) error {
	if _, err := lookupSpec(key); err != nil {
		return err
	}
	return b.Unset(key)
}

// Location names where the platform backend keeps settings.
func Location() string {
	return newPlatformBackend().Location()
}

// lookupSpec finds a settable key.
func lookupSpec(key string) (keySpec, error) {
	for _, s := range specs {
		if s.key != key {
			continue
		}
		if s.secret {
			return keySpec{}, fmt.Errorf("cannot set secret %q via config; use `config set-key` or environment variable %s", key, s.env)
		}
		return s, nil
	}
	return keySpec{}, fmt.Errorf("unknown config key: %q", key)
}

// SetAPIKey stores the Gemini API key in the platform secret store.
func SetAPIKey(value string) error {
	if value == "" {
		return fmt.Errorf("API key must not be empty")
	}
	return secretSet(keychainAccount, value)
}

// ValidKeys returns the list of valid non-secret config key names.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
