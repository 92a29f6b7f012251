package conf

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestSettings(t *testing.T) *Settings {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaultConfig()

	settings := &Settings{}
	require.NoError(t, viper.Unmarshal(settings))
	return settings
}

func TestDefaultsMatchDocumentedValues(t *testing.T) {
	settings := defaultTestSettings(t)

	assert.Equal(t, "visit form - data", settings.Sheets.SpreadsheetName)
	assert.Equal(t, "responses", settings.Sheets.WorksheetName)
	assert.Equal(t, "sheet_access.json", settings.Sheets.CredentialsFile)
	assert.Empty(t, settings.Sheets.CredentialsJSON)
	assert.Equal(t, 10, settings.Sheets.CacheTTL)
	assert.False(t, settings.Sheets.AllowPartial)
	assert.Equal(t, "8080", settings.Dashboard.Port)
	assert.Equal(t, 50, settings.Dashboard.RecentLimit)
}

func TestValidateSettingsDefaultsPass(t *testing.T) {
	settings := defaultTestSettings(t)
	assert.NoError(t, ValidateSettings(settings))
}

func TestValidateSettingsRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"empty spreadsheet name", func(s *Settings) { s.Sheets.SpreadsheetName = "" }},
		{"empty worksheet name", func(s *Settings) { s.Sheets.WorksheetName = "" }},
		{"negative cache ttl", func(s *Settings) { s.Sheets.CacheTTL = -1 }},
		{"zero timeout", func(s *Settings) { s.Sheets.Timeout = 0 }},
		{"empty port", func(s *Settings) { s.Dashboard.Port = "" }},
		{"zero recent limit", func(s *Settings) { s.Dashboard.RecentLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := defaultTestSettings(t)
			tt.mutate(settings)
			assert.Error(t, ValidateSettings(settings))
		})
	}
}

func TestEnvOverrideCredentialsBlob(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("VISITMON_SHEETS_CREDENTIALSJSON", `{"type":"service_account"}`)

	viper.SetEnvPrefix("visitmon")
	viper.SetEnvKeyReplacer(newEnvKeyReplacer())
	viper.AutomaticEnv()
	setDefaultConfig()

	settings := &Settings{}
	require.NoError(t, viper.Unmarshal(settings))
	assert.JSONEq(t, `{"type":"service_account"}`, settings.Sheets.CredentialsJSON)
}
