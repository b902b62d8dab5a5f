// config.go: settings structures and configuration loading for lablr
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/varity-app/lablr/internal/errors"
)

// RotationType defines the log rotation strategy
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // Path to the log file
	Rotation RotationType // Type of log rotation
	MaxSize  int64        // Max size in bytes for RotationSize
}

// MainSettings contains general application settings
type MainSettings struct {
	Name string    // Name of the running node
	Log  LogConfig // Main application log
}

// WebServerSettings contains HTTP server settings
type WebServerSettings struct {
	Debug   bool      // true to enable debug logging of API requests
	Enabled bool      // true to enable the web server
	Port    string    // Port for the web server
	Log     LogConfig // API request log
}

// SQLiteSettings contains the SQLite database settings
type SQLiteSettings struct {
	Enabled bool   // true to use SQLite
	Path    string // Path to the SQLite database, relative paths resolve under the config dir
}

// MySQLSettings contains the MySQL database settings
type MySQLSettings struct {
	Enabled  bool   // true to use MySQL
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL host
	Port     string // MySQL port
}

// OutputSettings selects the backing store
type OutputSettings struct {
	SQLite SQLiteSettings // SQLite database settings
	MySQL  MySQLSettings  // MySQL database settings
}

// Settings is the root configuration object
type Settings struct {
	Debug bool // true to enable debug mode

	Version   string // Version number, set at build time
	BuildDate string // Build date, set at build time

	Main      MainSettings
	WebServer WebServerSettings
	Output    OutputSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	// Initialize viper and read config
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Unmarshal the config into settings
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Get OS specific config paths
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	// Read configuration file
	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	// Create directories for config file
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-config-directory").
			Context("path", filepath.Dir(configPath)).
			Build()
	}

	// Write default config file
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "write-default-config").
			Context("path", configPath).
			Build()
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig returns the default configuration as a YAML string.
func getDefaultConfig() string {
	return `# lablr configuration

debug: false

main:
  name: lablr
  log:
    enabled: true
    path: lablr.log
    rotation: daily
    maxsize: 1048576

webserver:
  enabled: true
  port: "8080"
  debug: false
  log:
    enabled: true
    path: webui.log

output:
  sqlite:
    enabled: true
    path: lablr.db
  mysql:
    enabled: false
    username: lablr
    password: secret
    database: lablr
    host: localhost
    port: "3306"
`
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading them if they have
// not been loaded yet. Panics if loading fails, as the application cannot
// run without configuration.
func Setting() *Settings {
	settingsMutex.RLock()
	loaded := settingsInstance != nil
	settingsMutex.RUnlock()

	if !loaded {
		if _, err := Load(); err != nil {
			panic(fmt.Errorf("error loading settings: %w", err))
		}
	}
	return GetSettings()
}
