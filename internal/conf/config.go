// config.go: settings struct for the visit monitor and functions to load
// and save them through viper.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// SheetsSettings contains settings for the spreadsheet backend.
type SheetsSettings struct {
	SpreadsheetName string // document title to open
	WorksheetName   string // worksheet (tab) holding form responses
	CredentialsFile string // path to a service account key file, tried first
	CredentialsJSON string // service account key blob, fallback source
	Timeout         int    // fetch timeout in seconds
	CacheTTL        int    // record set reuse window in minutes
	AllowPartial    bool   // skip malformed rows instead of failing the load
}

// DashboardSettings contains settings for the web dashboard.
type DashboardSettings struct {
	Host          string // host address to bind to
	Port          string // port to listen on
	RecentLimit   int    // default number of rows in the recent visits table
	QueryCacheTTL int    // aggregation response cache TTL in seconds
}

// LogSettings contains settings for application logging.
type LogSettings struct {
	Enabled bool   // true to enable file logging
	Path    string // directory for service log files
}

// Settings is the root configuration for the application.
type Settings struct {
	Debug     bool              // true to enable debug level logging
	Log       LogSettings       // logging settings
	Sheets    SheetsSettings    // spreadsheet backend settings
	Dashboard DashboardSettings // web dashboard settings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a
// Settings instance and stores it as the package singleton.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the loaded settings instance, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper initializes viper with default values and reads the
// configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Environment overrides, e.g. VISITMON_SHEETS_CREDENTIALSJSON for the
	// secret-store credential blob.
	viper.SetEnvPrefix("visitmon")
	viper.SetEnvKeyReplacer(newEnvKeyReplacer())
	viper.AutomaticEnv()

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file yet, write one with the defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the config search paths: the platform user
// config directory first, then the working directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(userConfigDir, "visitmon"))
	}
	paths = append(paths, ".")
	return paths, nil
}

// createDefaultConfig writes a default config.yaml to the first config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configDir := configPaths[0]
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory %s: %w", configDir, err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file %s: %w", configPath, err)
	}

	return viper.ReadInConfig()
}

// ValidateSettings checks that loaded settings are usable.
func ValidateSettings(settings *Settings) error {
	if settings.Sheets.SpreadsheetName == "" {
		return fmt.Errorf("sheets.spreadsheetname must not be empty")
	}
	if settings.Sheets.WorksheetName == "" {
		return fmt.Errorf("sheets.worksheetname must not be empty")
	}
	if settings.Sheets.CacheTTL < 0 {
		return fmt.Errorf("sheets.cachettl must not be negative, got %d", settings.Sheets.CacheTTL)
	}
	if settings.Sheets.Timeout <= 0 {
		return fmt.Errorf("sheets.timeout must be positive, got %d", settings.Sheets.Timeout)
	}
	if settings.Dashboard.Port == "" {
		return fmt.Errorf("dashboard.port must not be empty")
	}
	if settings.Dashboard.RecentLimit <= 0 {
		return fmt.Errorf("dashboard.recentlimit must be positive, got %d", settings.Dashboard.RecentLimit)
	}
	return nil
}
