// Package analytics derives filtered views and summary aggregates from a
// visit record set. Every operation here is a pure function of its
// inputs; the record set is never mutated.
package analytics

import (
	"sort"
	"time"

	"github.com/autovisor/visitmon/internal/visit"
)

// Filter selects records by calendar date interval and dealer subset.
// A zero Start or End leaves that bound open; an empty dealer list means
// no dealer filtering.
type Filter struct {
	Start   time.Time
	End     time.Time
	Dealers []string
}

// Apply returns the subsequence of records matching the filter, in the
// original encounter order. Start after End matches nothing.
func (f Filter) Apply(records visit.RecordSet) visit.RecordSet {
	dealerSet := make(map[string]struct{}, len(f.Dealers))
	for _, dealer := range f.Dealers {
		dealerSet[dealer] = struct{}{}
	}

	out := make(visit.RecordSet, 0, len(records))
	for _, record := range records {
		date := toDate(record.SubmittedAt)
		if !f.Start.IsZero() && date.Before(toDate(f.Start)) {
			continue
		}
		if !f.End.IsZero() && date.After(toDate(f.End)) {
			continue
		}
		if len(dealerSet) > 0 {
			if _, ok := dealerSet[record.Dealer]; !ok {
				continue
			}
		}
		out = append(out, record)
	}
	return out
}

func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Summary holds the headline metrics for a filtered set.
type Summary struct {
	TotalVisits   int `json:"total_visits"`
	UniqueDealers int `json:"unique_dealers"`
}

// Summarize computes the headline metrics. An empty set yields zeros.
func Summarize(records visit.RecordSet) Summary {
	dealers := make(map[string]struct{}, len(records))
	for _, record := range records {
		dealers[record.Dealer] = struct{}{}
	}
	return Summary{
		TotalVisits:   len(records),
		UniqueDealers: len(dealers),
	}
}

// DealerVisits is one row of the dealer summary table.
type DealerVisits struct {
	Dealer     string `json:"dealer"`
	Visits     int    `json:"visits"`
	DealerCode string `json:"dealer_code"` // from the dealer's first record
}

// DealerSummary aggregates visits per dealer, sorted by visit count
// descending. Ties keep first-seen order; the dealer code is taken from
// the dealer's first record in encounter order.
func DealerSummary(records visit.RecordSet) []DealerVisits {
	index := make(map[string]int, len(records))
	out := make([]DealerVisits, 0, len(records))
	for _, record := range records {
		i, ok := index[record.Dealer]
		if !ok {
			index[record.Dealer] = len(out)
			out = append(out, DealerVisits{
				Dealer:     record.Dealer,
				DealerCode: record.DealerCode,
			})
			i = len(out) - 1
		}
		out[i].Visits++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Visits > out[j].Visits
	})
	return out
}

// IssueCount is the occurrence count of one issue tag.
type IssueCount struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// IssueFrequency counts issue tags across the set, ordered by count
// descending with ties in first-seen order. Records without an issues
// list contribute nothing.
func IssueFrequency(records visit.RecordSet) []IssueCount {
	index := make(map[string]int)
	out := make([]IssueCount, 0)
	for _, record := range records {
		for _, issue := range record.Issues {
			i, ok := index[issue]
			if !ok {
				index[issue] = len(out)
				out = append(out, IssueCount{Issue: issue})
				i = len(out) - 1
			}
			out[i].Count++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// FeaturePercentage is the yes-share of one boolean feature column.
// Missing values are excluded from both numerator and denominator;
// Samples carries the denominator so zero-sample results are
// distinguishable from a genuine 0%.
type FeaturePercentage struct {
	Feature string  `json:"feature"`
	Percent float64 `json:"percent"`
	Samples int     `json:"samples"`
}

// featureColumns fixes the display order of the four boolean features.
var featureColumns = []struct {
	name string
	get  func(*visit.Record) visit.OptionalBool
}{
	{"Showroom", func(r *visit.Record) visit.OptionalBool { return r.Showroom }},
	{"Swift", func(r *visit.Record) visit.OptionalBool { return r.Swift }},
	{"Lending", func(r *visit.Record) visit.OptionalBool { return r.Lending }},
	{"Buy Now", func(r *visit.Record) visit.OptionalBool { return r.BuyNow }},
}

// YesPercentages computes the yes-share of each boolean feature over the
// set. A feature with no set values reports 0 percent and 0 samples.
func YesPercentages(records visit.RecordSet) []FeaturePercentage {
	out := make([]FeaturePercentage, 0, len(featureColumns))
	for _, col := range featureColumns {
		yes, valid := 0, 0
		for i := range records {
			b := col.get(&records[i])
			if !b.Valid {
				continue
			}
			valid++
			if b.Value {
				yes++
			}
		}
		pct := 0.0
		if valid > 0 {
			pct = float64(yes) / float64(valid) * 100
		}
		out = append(out, FeaturePercentage{
			Feature: col.name,
			Percent: pct,
			Samples: valid,
		})
	}
	return out
}

// RecentVisits returns up to limit records ordered newest first. A
// non-positive limit returns the whole set. The input is copied before
// sorting.
func RecentVisits(records visit.RecordSet, limit int) visit.RecordSet {
	out := make(visit.RecordSet, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// FilterOptions carries the values needed to populate the dashboard
// filter controls.
type FilterOptions struct {
	Dealers []string  `json:"dealers"`
	MinDate time.Time `json:"min_date"`
	MaxDate time.Time `json:"max_date"`
}

// Options lists the distinct dealer names in sorted order and the
// submission date bounds of the whole record set.
func Options(records visit.RecordSet) FilterOptions {
	seen := make(map[string]struct{}, len(records))
	opts := FilterOptions{Dealers: []string{}}
	for i, record := range records {
		if _, ok := seen[record.Dealer]; !ok {
			seen[record.Dealer] = struct{}{}
			opts.Dealers = append(opts.Dealers, record.Dealer)
		}
		if i == 0 || record.SubmittedAt.Before(opts.MinDate) {
			opts.MinDate = record.SubmittedAt
		}
		if i == 0 || record.SubmittedAt.After(opts.MaxDate) {
			opts.MaxDate = record.SubmittedAt
		}
	}
	sort.Strings(opts.Dealers)
	return opts
}
