//go:build !darwin

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// xdgPath resolves elem under the careerpath directory of an XDG base
// directory, falling back to home/fallback when env is unset.
func xdgPath(env, fallback string, elem ...string) string {
	dir := os.Getenv(env)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(append([]string{appName + "-data"}, elem...)...)
		}
		dir = filepath.Join(home, fallback)
	}
	return filepath.Join(append([]string{dir, appName}, elem...)...)
}

// DefaultDataDir is where a persistent database lives when none is configured.
func DefaultDataDir() string {
	return xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func apiKeyHint() string {
	return " or run `careerpath config set-key` (stored in " + secretsFilePath() + ")"
}

func newPlatformBackend() Backend {
	return newFileBackend(xdgPath("XDG_CONFIG_HOME", ".config", "config.json"))
}

// fileBackend keeps settings in a flat JSON object. Numbers and booleans
// written by hand are read back in their text form.
type fileBackend struct {
	path   string
	values map[string]any
}

func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, values: make(map[string]any)}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", path, err)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&b.values); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config file %s: %v. Using default values.\n", path, err)
			b.values = make(map[string]any)
		}
	}
	return b
}

func (b *fileBackend) Location() string { return b.path }

func (b *fileBackend) Get(key string) (string, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return "", false, nil
	}
	switch v := v.(type) {
	case string:
		return v, true, nil
	case json.Number:
		return v.String(), true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	default:
		return "", true, fmt.Errorf("%s in %s holds a %T, want a scalar", key, b.path, v)
	}
}

func (b *fileBackend) Set(key, raw string) error {
	b.values[key] = raw
	return writeJSONFile(b.path, b.values)
}

func (b *fileBackend) Unset(key string) error {
	if _, ok := b.values[key]; !ok {
		return nil
	}
	delete(b.values, key)
	return writeJSONFile(b.path, b.values)
}

// writeJSONFile replaces path with the indented JSON encoding of v, readable
// only by the owner. The file is swapped in by rename.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
