// Package visit defines the dealer visit record model and turns raw
// worksheet rows into a normalized, immutable record set.
package visit

import (
	"fmt"
	"strings"
	"time"

	"github.com/autovisor/visitmon/internal/errors"
	"github.com/autovisor/visitmon/internal/sheets"
)

// columnRenames maps the human readable source column names to the
// internal snake_case scheme. All other columns pass through unchanged.
var columnRenames = map[string]string{
	"buy now":           "buy_now",
	"dealer code":       "dealer_code",
	"Hatla2ee link":     "hatla2ee_link",
	"dubizzle link":     "dubizzle_link",
	"showroom capacity": "showroom_capacity",
}

// issueDelimiter separates tags in the raw issues field.
const issueDelimiter = ", "

// timestampLayouts are the accepted submitted_datetime formats, tried in
// order. The form backend writes the first; the rest cover manual edits.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006 15:04:05",
	"2006-01-02",
}

// OptionalBool is a boolean cell that may be missing. The source encodes
// these columns as literal "Yes"/"No"; anything else leaves the value
// unset rather than guessing.
type OptionalBool struct {
	Value bool
	Valid bool
}

// True reports whether the value is set and true.
func (b OptionalBool) True() bool {
	return b.Valid && b.Value
}

// ParseYesNo maps "Yes" to true, "No" to false and everything else to an
// unset value.
func ParseYesNo(s string) OptionalBool {
	switch s {
	case "Yes":
		return OptionalBool{Value: true, Valid: true}
	case "No":
		return OptionalBool{Value: false, Valid: true}
	default:
		return OptionalBool{}
	}
}

// Record is one dealer visit submission.
type Record struct {
	SubmittedAt      time.Time
	Dealer           string
	DealerCode       string
	Showroom         OptionalBool
	Swift            OptionalBool
	Lending          OptionalBool
	BuyNow           OptionalBool
	IssuesRaw        string
	Issues           []string // nil when the issues field was empty or absent
	Purpose          string
	Problems         string
	Positives        string
	Requests         string
	Hatla2eeLink     string
	DubizzleLink     string
	ShowroomCapacity string
}

// RecordSet is the normalized collection of visit records after loading.
// It is never mutated after construction; filtering and aggregation
// always derive new views.
type RecordSet []Record

// NormalizeColumns applies the column rename table to a raw row. The
// operation is idempotent and total: renamed keys replace their source
// names, everything else passes through.
func NormalizeColumns(row sheets.Row) sheets.Row {
	out := make(sheets.Row, len(row))
	for key, value := range row {
		if renamed, ok := columnRenames[key]; ok {
			key = renamed
		}
		out[key] = value
	}
	return out
}

// ParseRecord builds a Record from a column-normalized row. An absent or
// unparseable submitted_datetime is a schema error; everything else
// degrades to the documented missing markers.
func ParseRecord(row sheets.Row) (Record, error) {
	submittedAt, err := parseTimestamp(row["submitted_datetime"])
	if err != nil {
		return Record{}, err
	}

	return Record{
		SubmittedAt:      submittedAt,
		Dealer:           row["dealer"],
		DealerCode:       row["dealer_code"],
		Showroom:         ParseYesNo(row["showroom"]),
		Swift:            ParseYesNo(row["swift"]),
		Lending:          ParseYesNo(row["lending"]),
		BuyNow:           ParseYesNo(row["buy_now"]),
		IssuesRaw:        row["issues"],
		Issues:           splitIssues(row["issues"]),
		Purpose:          row["purpose"],
		Problems:         row["problems"],
		Positives:        row["positives"],
		Requests:         row["requests"],
		Hatla2eeLink:     row["hatla2ee_link"],
		DubizzleLink:     row["dubizzle_link"],
		ShowroomCapacity: row["showroom_capacity"],
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.Newf("submitted_datetime is missing").
			Category(errors.CategorySchema).
			Component("visit").
			Build()
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.New(fmt.Errorf("unparseable submitted_datetime %q", raw)).
		Category(errors.CategorySchema).
		Component("visit").
		Build()
}

// splitIssues derives the ordered tag list from the raw issues field. An
// empty field yields nil, the explicit no-issues marker, so downstream
// code can distinguish absent from present-but-empty tags.
func splitIssues(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, issueDelimiter)
}

// ParseRows normalizes and parses a fetched row set. In strict mode the
// first malformed row fails the whole load. With allowPartial set the
// malformed rows are dropped and their count returned.
func ParseRows(rows []sheets.Row, allowPartial bool) (RecordSet, int, error) {
	records := make(RecordSet, 0, len(rows))
	skipped := 0
	for i, raw := range rows {
		record, err := ParseRecord(NormalizeColumns(raw))
		if err != nil {
			if allowPartial {
				skipped++
				continue
			}
			return nil, 0, errors.New(fmt.Errorf("row %d: %w", i+1, err)).
				Category(errors.CategorySchema).
				Component("visit").
				Context("row", i+1).
				Build()
		}
		records = append(records, record)
	}
	return records, skipped, nil
}
