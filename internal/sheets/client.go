package sheets

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/autovisor/visitmon/internal/errors"
	"github.com/autovisor/visitmon/internal/logging"
)

// Package-level logger specific to the sheets service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "sheets.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "sheets", serviceLevelVar)
	if err != nil {
		// Fallback: log error to standard log and disable service logging
		log.Printf("FATAL: Failed to initialize sheets file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "sheets")
		closeLogger = func() error { return nil }
	}
}

// Client reads form response rows from the spreadsheet backend
type Client struct {
	config  Config
	sheets  *sheetsapi.Service
	drive   *drive.Service
	sheetID string // resolved spreadsheet ID, cached after first lookup
}

// NewClient creates a new sheets client. With no extra options it resolves
// service account credentials per the configured sources; options are
// passed straight through to the Google API clients, which lets tests
// supply their own HTTP transport.
func NewClient(ctx context.Context, config Config, opts ...option.ClientOption) (*Client, error) {
	if config.SpreadsheetName == "" {
		return nil, errors.Newf("spreadsheet name is required").
			Category(errors.CategoryConfiguration).
			Component("sheets").
			Build()
	}
	if config.WorksheetName == "" {
		return nil, errors.Newf("worksheet name is required").
			Category(errors.CategoryConfiguration).
			Component("sheets").
			Build()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	if len(opts) == 0 {
		ts, err := credentialTokenSource(ctx, &config)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{option.WithTokenSource(ts)}
	}

	sheetsSvc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("creating sheets service: %w", err)).
			Category(errors.CategorySheetsFetch).
			Component("sheets").
			Build()
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("creating drive service: %w", err)).
			Category(errors.CategorySheetsFetch).
			Component("sheets").
			Build()
	}

	logger.Info("sheets client initialized",
		"spreadsheet", config.SpreadsheetName,
		"worksheet", config.WorksheetName,
		"timeout", config.Timeout)

	return &Client{
		config: config,
		sheets: sheetsSvc,
		drive:  driveSvc,
	}, nil
}

// Close cleans up client resources
func (c *Client) Close() {
	logger.Info("closing sheets client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing sheets logger: %v", err)
		}
	}
}

// credentialTokenSource resolves service account credentials. The key file
// is tried first; on any failure the configured JSON blob is used instead.
// Exactly one of the two sources must yield usable credentials.
func credentialTokenSource(ctx context.Context, config *Config) (oauth2.TokenSource, error) {
	var fileErr error
	if config.CredentialsFile != "" {
		data, err := os.ReadFile(config.CredentialsFile)
		if err == nil {
			jwtConfig, jwtErr := google.JWTConfigFromJSON(data, Scopes...)
			if jwtErr == nil {
				logger.Debug("using service account key file", "path", config.CredentialsFile)
				return jwtConfig.TokenSource(ctx), nil
			}
			fileErr = jwtErr
		} else {
			fileErr = err
		}
	}

	if config.CredentialsJSON != "" {
		jwtConfig, err := google.JWTConfigFromJSON([]byte(config.CredentialsJSON), Scopes...)
		if err != nil {
			return nil, errors.New(fmt.Errorf("parsing credential blob: %w", err)).
				Category(errors.CategoryCredentials).
				Component("sheets").
				Build()
		}
		logger.Debug("using service account credential blob")
		return jwtConfig.TokenSource(ctx), nil
	}

	if fileErr != nil {
		return nil, errors.New(fmt.Errorf("no usable credential source: %w", fileErr)).
			Category(errors.CategoryCredentials).
			Component("sheets").
			Context("credentials_file", config.CredentialsFile).
			Build()
	}
	return nil, errors.Newf("no credential source configured").
		Category(errors.CategoryCredentials).
		Component("sheets").
		Build()
}

// FetchRows retrieves all data rows of the configured worksheet as header
// keyed records, the way the form backend presents them.
func (c *Client) FetchRows(ctx context.Context) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	spreadsheetID, err := c.resolveSpreadsheetID(ctx)
	if err != nil {
		return nil, err
	}

	// Quote the worksheet name so titles with spaces form a valid A1 range.
	readRange := fmt.Sprintf("'%s'", strings.ReplaceAll(c.config.WorksheetName, "'", "''"))
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 400 {
			return nil, errors.New(fmt.Errorf("worksheet %q not found: %w", c.config.WorksheetName, err)).
				Category(errors.CategoryNotFound).
				Component("sheets").
				Context("spreadsheet_id", spreadsheetID).
				Build()
		}
		return nil, errors.New(fmt.Errorf("reading worksheet %q: %w", c.config.WorksheetName, err)).
			Category(errors.CategorySheetsFetch).
			Component("sheets").
			Build()
	}

	rows := valuesToRows(resp.Values)
	logger.Debug("worksheet fetched",
		"spreadsheet_id", spreadsheetID,
		"rows", len(rows))
	return rows, nil
}

// resolveSpreadsheetID looks up the spreadsheet by document title via the
// Drive API. The ID is cached for the client's lifetime; document renames
// require a new client.
func (c *Client) resolveSpreadsheetID(ctx context.Context) (string, error) {
	if c.sheetID != "" {
		return c.sheetID, nil
	}

	query := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false",
		strings.ReplaceAll(c.config.SpreadsheetName, "'", "\\'"))
	list, err := c.drive.Files.List().Q(query).Fields("files(id, name)").PageSize(2).Context(ctx).Do()
	if err != nil {
		return "", errors.New(fmt.Errorf("looking up spreadsheet %q: %w", c.config.SpreadsheetName, err)).
			Category(errors.CategorySheetsFetch).
			Component("sheets").
			Build()
	}
	if len(list.Files) == 0 {
		return "", errors.Newf("spreadsheet %q not found", c.config.SpreadsheetName).
			Category(errors.CategoryNotFound).
			Component("sheets").
			Build()
	}
	if len(list.Files) > 1 {
		logger.Warn("multiple spreadsheets match title, using first",
			"title", c.config.SpreadsheetName,
			"id", list.Files[0].Id)
	}

	c.sheetID = list.Files[0].Id
	return c.sheetID, nil
}

// valuesToRows converts a values matrix as returned by the Sheets API into
// one Row per data row, keyed by the header row cell text. Cells beyond
// the header width are dropped, short rows leave the missing columns
// empty.
func valuesToRows(values [][]any) []Row {
	if len(values) == 0 {
		return nil
	}
	headers := toStrings(values[0])

	rows := make([]Row, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		cells := toStrings(values[i])
		row := make(Row, len(headers))
		for col, header := range headers {
			if header == "" {
				continue
			}
			row[header] = safeGet(cells, col)
		}
		rows = append(rows, row)
	}
	return rows
}

func toStrings(cells []any) []string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = formatCell(cell)
	}
	return out
}

func safeGet(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// formatCell renders one API cell value as text. The API returns formatted
// strings for most cells but numbers and booleans can come back typed.
func formatCell(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
