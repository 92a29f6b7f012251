package visit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autovisor/visitmon/internal/errors"
	"github.com/autovisor/visitmon/internal/sheets"
)

func TestNormalizeColumns(t *testing.T) {
	t.Parallel()

	raw := sheets.Row{
		"submitted_datetime": "2024-01-01 10:00:00",
		"dealer":             "Dealer A",
		"dealer code":        "A1",
		"buy now":            "Yes",
		"Hatla2ee link":      "https://example.com/h",
		"dubizzle link":      "https://example.com/d",
		"showroom capacity":  "25",
		"purpose":            "follow up",
	}

	normalized := NormalizeColumns(raw)

	// Renamed keys replace the spaced source names
	assert.Equal(t, "A1", normalized["dealer_code"])
	assert.Equal(t, "Yes", normalized["buy_now"])
	assert.Equal(t, "https://example.com/h", normalized["hatla2ee_link"])
	assert.Equal(t, "https://example.com/d", normalized["dubizzle_link"])
	assert.Equal(t, "25", normalized["showroom_capacity"])
	for _, spaced := range []string{"dealer code", "buy now", "Hatla2ee link", "dubizzle link", "showroom capacity"} {
		assert.NotContains(t, normalized, spaced)
	}

	// Other columns pass through, and the row size is preserved
	assert.Equal(t, "Dealer A", normalized["dealer"])
	assert.Equal(t, "follow up", normalized["purpose"])
	assert.Len(t, normalized, len(raw))

	// Idempotent: normalizing twice yields the same row
	assert.Equal(t, normalized, NormalizeColumns(normalized))
}

func TestParseYesNoTrichotomy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  OptionalBool
	}{
		{"Yes", OptionalBool{Value: true, Valid: true}},
		{"No", OptionalBool{Value: false, Valid: true}},
		{"", OptionalBool{}},
		{"yes", OptionalBool{}},
		{"Maybe", OptionalBool{}},
		{"TRUE", OptionalBool{}},
	}

	for _, tt := range tests {
		t.Run("input "+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseYesNo(tt.input))
		})
	}
}

func TestSplitIssues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"noise", "pricing"}, splitIssues("noise, pricing"))
	assert.Equal(t, []string{"noise"}, splitIssues("noise"))
	assert.Nil(t, splitIssues(""))
}

func TestParseRecord(t *testing.T) {
	t.Parallel()

	row := NormalizeColumns(sheets.Row{
		"submitted_datetime": "2024-01-05 09:30:00",
		"dealer":             "Dealer A",
		"dealer code":        "A1",
		"showroom":           "Yes",
		"swift":              "No",
		"lending":            "",
		"buy now":            "Unknown",
		"issues":             "noise, pricing",
		"purpose":            "intro visit",
	})

	record, err := ParseRecord(row)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), record.SubmittedAt)
	assert.Equal(t, "Dealer A", record.Dealer)
	assert.Equal(t, "A1", record.DealerCode)
	assert.True(t, record.Showroom.True())
	assert.Equal(t, OptionalBool{Value: false, Valid: true}, record.Swift)
	assert.False(t, record.Lending.Valid)
	assert.False(t, record.BuyNow.Valid)
	assert.Equal(t, []string{"noise", "pricing"}, record.Issues)
	assert.Equal(t, "noise, pricing", record.IssuesRaw)
	assert.Equal(t, "intro visit", record.Purpose)
}

func TestParseRecordTimestampLayouts(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"2024-01-05 09:30:00",
		"2024-01-05T09:30:00",
		"2024-01-05T09:30:00Z",
		"1/5/2024 09:30:00",
		"2024-01-05",
	} {
		t.Run(raw, func(t *testing.T) {
			record, err := ParseRecord(sheets.Row{"submitted_datetime": raw})
			require.NoError(t, err)
			assert.Equal(t, 2024, record.SubmittedAt.Year())
			assert.Equal(t, time.January, record.SubmittedAt.Month())
			assert.Equal(t, 5, record.SubmittedAt.Day())
		})
	}
}

func TestParseRecordBadTimestamp(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "yesterday", "2024-13-40 99:00:00"} {
		_, err := ParseRecord(sheets.Row{"submitted_datetime": raw})
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategorySchema))
	}
}

func TestParseRowsStrict(t *testing.T) {
	t.Parallel()

	rows := []sheets.Row{
		{"submitted_datetime": "2024-01-01 10:00:00", "dealer": "Dealer A"},
		{"submitted_datetime": "not a date", "dealer": "Dealer B"},
	}

	records, skipped, err := ParseRows(rows, false)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Zero(t, skipped)
	assert.Contains(t, err.Error(), "row 2")
}

func TestParseRowsAllowPartial(t *testing.T) {
	t.Parallel()

	rows := []sheets.Row{
		{"submitted_datetime": "2024-01-01 10:00:00", "dealer": "Dealer A"},
		{"submitted_datetime": "not a date", "dealer": "Dealer B"},
		{"submitted_datetime": "2024-01-03 10:00:00", "dealer": "Dealer C"},
	}

	records, skipped, err := ParseRows(rows, true)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "Dealer A", records[0].Dealer)
	assert.Equal(t, "Dealer C", records[1].Dealer)
}
