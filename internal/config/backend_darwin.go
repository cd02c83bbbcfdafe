//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const defaultsDomain = "com.careerpath.app"

// DefaultDataDir is where a persistent database lives when none is configured.
func DefaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", appName)
	}
	return appName + "-data"
}

func apiKeyHint() string {
	return " or run `careerpath config set-key` (stored in the login Keychain as " + appName + "/" + keychainAccount + ")"
}

func newPlatformBackend() Backend {
	return defaultsBackend{domain: defaultsDomain}
}

// defaultsBackend keeps settings in UserDefaults through the defaults CLI.
type defaultsBackend struct {
	domain string
}

func (b defaultsBackend) Location() string { return "UserDefaults domain " + b.domain }

// run executes a defaults subcommand. Exit status 1 means the key is absent.
func (b defaultsBackend) run(args ...string) (string, bool, error) {
	out, err := exec.Command("defaults", append([]string{args[0], b.domain}, args[1:]...)...).CombinedOutput()
	s := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults %s %s: %w, output: %s", args[0], args[1], err, s)
	}
	return s, true, nil
}

func (b defaultsBackend) Get(key string) (string, bool, error) {
	return b.run("read", key)
}

func (b defaultsBackend) Set(key, raw string) error {
	_, _, err := b.run("write", key, "-string", raw)
	return err
}

func (b defaultsBackend) Unset(key string) error {
	_, _, err := b.run("delete", key)
	return err
}
