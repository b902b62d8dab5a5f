// conf/utils.go filesystem helpers for locating the per-user application directory
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/varity-app/lablr/internal/errors"
)

const (
	osWindows = "windows"
)

// GetDefaultConfigPaths returns a list of default configuration paths for the current operating system.
// It determines paths based on standard conventions for storing application configuration files.
// If a config.yaml file is found in any of the paths, it returns that path as the default.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	// Fetch the directory of the executable.
	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	// Fetch the user's home directory.
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	// Define default paths based on the operating system.
	switch runtime.GOOS {
	case osWindows:
		// For Windows, use the executable directory and the AppData Roaming directory.
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "lablr"),
		}
	default:
		// For Linux and macOS, use a hidden directory in the home directory and a system-wide configuration directory.
		configPaths = []string{
			filepath.Join(homeDir, ".config", "lablr"),
			"/etc/lablr",
		}
	}

	// Check if config.yaml exists in any of the paths
	for _, path := range configPaths {
		configFile := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFile); err == nil {
			// Config file found, return this path as the only default path
			return []string{path}, nil
		}
	}

	// If no config.yaml is found, return all paths
	return configPaths, nil
}

// GetAppDataPath resolves a path under the per-user application directory,
// creating the directory if it does not exist. Relative paths are resolved
// against the first default config path.
func GetAppDataPath(relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return relPath, nil
	}

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	if len(configPaths) == 0 {
		return "", errors.Newf("no config paths found").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-app-data-path").
			Build()
	}

	absPath := filepath.Join(configPaths[0], relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o750); err != nil {
		return "", errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-app-data-directory").
			Context("path", filepath.Dir(absPath)).
			Build()
	}

	return absPath, nil
}
