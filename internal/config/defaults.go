package config

import (
	"os"
	"path/filepath"

	"zip-resizer/internal/domain"
)

// SettingsPath returns the per-user settings location.
func SettingsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".zip-resizer", "settings.json"), nil
}

// DefaultSettings returns baseline local configuration for first launch.
// Outputs go next to each input and no option limits are set.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Options:  domain.RawOptions{Quality: "80"},
		LogLevel: "info",
	}
}
