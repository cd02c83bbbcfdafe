//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	return xdgPath("XDG_DATA_HOME", filepath.Join(".local", "share"), "secrets.json")
}

// readSecrets loads the secrets file, a JSON object keyed by account.
func readSecrets() (map[string]string, error) {
	secrets := make(map[string]string)
	data, err := os.ReadFile(secretsFilePath())
	if errors.Is(err, fs.ErrNotExist) {
		return secrets, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", secretsFilePath(), err)
	}
	return secrets, nil
}

func secretGet(account string) (string, error) {
	secrets, err := readSecrets()
	if err != nil {
		return "", err
	}
	v, ok := secrets[account]
	if !ok {
		return "", fmt.Errorf("no %s in %s", account, secretsFilePath())
	}
	return v, nil
}

func secretSet(account, value string) error {
	secrets, err := readSecrets()
	if err != nil {
		return err
	}
	secrets[account] = value
	return writeJSONFile(secretsFilePath(), secrets)
}
