// Package sheets provides a client for reading dealer visit form responses
// from the Google Sheets backend.
package sheets

import (
	"time"

	drive "google.golang.org/api/drive/v3"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Scopes requested for both credential sources. The form sheet lives on
// Drive, so both the Sheets and Drive scopes are needed to open a document
// by title.
var Scopes = []string{
	sheetsapi.SpreadsheetsScope,
	drive.DriveScope,
}

// Row is one worksheet data row keyed by header cell text.
type Row map[string]string

// Config holds configuration for the sheets client
type Config struct {
	CredentialsFile string        // service account key file, tried first
	CredentialsJSON string        // service account key blob, fallback
	SpreadsheetName string        // document title to open
	WorksheetName   string        // worksheet holding form responses
	Timeout         time.Duration // per fetch timeout
}

// DefaultConfig returns a Config with the documented defaults
func DefaultConfig() Config {
	return Config{
		CredentialsFile: "sheet_access.json",
		SpreadsheetName: "visit form - data",
		WorksheetName:   "responses",
		Timeout:         30 * time.Second,
	}
}
