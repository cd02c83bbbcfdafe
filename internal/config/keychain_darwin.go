//go:build darwin

package config

import (
	"fmt"
	"os/exec"
	"strings"
)

func secretGet(account string) (string, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", appName, "-a", account, "-w").Output()
	if err != nil {
		return "", fmt.Errorf("reading keychain item %s: %w", account, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func secretSet(account, value string) error {
	out, err := exec.Command("security", "add-generic-password", "-U", "-s", appName, "-a", account, "-w", value).CombinedOutput()
	if err != nil {
		return fmt.Errorf("writing keychain item: %w, output: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
