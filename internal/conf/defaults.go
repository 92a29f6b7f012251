package conf

import (
	"strings"

	"github.com/spf13/viper"
)

// setDefaultConfig sets the default values for each configuration
// parameter. These are the documented defaults; all of them can be
// overridden in config.yaml or through VISITMON_* environment variables.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("log.enabled", true)
	viper.SetDefault("log.path", "logs")

	viper.SetDefault("sheets.spreadsheetname", "visit form - data")
	viper.SetDefault("sheets.worksheetname", "responses")
	viper.SetDefault("sheets.credentialsfile", "sheet_access.json")
	viper.SetDefault("sheets.credentialsjson", "")
	viper.SetDefault("sheets.timeout", 30)
	viper.SetDefault("sheets.cachettl", 10)
	viper.SetDefault("sheets.allowpartial", false)

	viper.SetDefault("dashboard.host", "")
	viper.SetDefault("dashboard.port", "8080")
	viper.SetDefault("dashboard.recentlimit", 50)
	viper.SetDefault("dashboard.querycachettl", 60)
}

// newEnvKeyReplacer maps viper config keys to environment variable form,
// e.g. sheets.credentialsjson -> SHEETS_CREDENTIALSJSON.
func newEnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}
