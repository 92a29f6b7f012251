package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/autovisor/visitmon/internal/analytics"
	"github.com/autovisor/visitmon/internal/visit"
)

// GetSummary handles GET /api/v1/summary.
// Headline metrics for the active filter: total visits, unique dealers.
func (c *Controller) GetSummary(ctx echo.Context) error {
	filter, err := parseFilter(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid filter parameters", http.StatusBadRequest)
	}
	return c.respondCached(ctx, cacheKey("summary", filter), func(records visit.RecordSet) any {
		return analytics.Summarize(filter.Apply(records))
	})
}

// DealerSummaryPage is one page of the dealer summary table.
type DealerSummaryPage struct {
	Dealers []analytics.DealerVisits `json:"dealers"`
	Total   int                      `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}

// GetDealerSummary handles GET /api/v1/dealers/summary.
// Per dealer visit counts sorted by count descending, paged.
func (c *Controller) GetDealerSummary(ctx echo.Context) error {
	filter, err := parseFilter(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid filter parameters", http.StatusBadRequest)
	}
	limit, offset := parsePaging(ctx, c.Settings.Dashboard.RecentLimit)

	key := cacheKey("dealers", filter, itoa(limit), itoa(offset))
	return c.respondCached(ctx, key, func(records visit.RecordSet) any {
		summary := analytics.DealerSummary(filter.Apply(records))
		return DealerSummaryPage{
			Dealers: page(summary, limit, offset),
			Total:   len(summary),
			Limit:   limit,
			Offset:  offset,
		}
	})
}

// GetIssueFrequency handles GET /api/v1/issues/frequency.
// Issue tag counts across the filtered set, most common first.
func (c *Controller) GetIssueFrequency(ctx echo.Context) error {
	filter, err := parseFilter(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid filter parameters", http.StatusBadRequest)
	}
	return c.respondCached(ctx, cacheKey("issues", filter), func(records visit.RecordSet) any {
		return analytics.IssueFrequency(filter.Apply(records))
	})
}

// GetYesPercentages handles GET /api/v1/metrics/yes.
// Yes-share of the four boolean feature columns over the filtered set.
func (c *Controller) GetYesPercentages(ctx echo.Context) error {
	filter, err := parseFilter(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid filter parameters", http.StatusBadRequest)
	}
	return c.respondCached(ctx, cacheKey("metrics", filter), func(records visit.RecordSet) any {
		return analytics.YesPercentages(filter.Apply(records))
	})
}

// VisitDetail is one row of the recent visits table.
type VisitDetail struct {
	SubmittedAt time.Time `json:"submitted_at"`
	Dealer      string    `json:"dealer"`
	DealerCode  string    `json:"dealer_code"`
	Purpose     string    `json:"purpose"`
	Problems    string    `json:"problems"`
	Positives   string    `json:"positives"`
	Requests    string    `json:"requests"`
}

// VisitDetailPage is one page of the recent visits table.
type VisitDetailPage struct {
	Visits []VisitDetail `json:"visits"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// GetRecentVisits handles GET /api/v1/visits/recent.
// Filtered visit details newest first, paged.
func (c *Controller) GetRecentVisits(ctx echo.Context) error {
	filter, err := parseFilter(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid filter parameters", http.StatusBadRequest)
	}
	limit, offset := parsePaging(ctx, c.Settings.Dashboard.RecentLimit)

	key := cacheKey("recent", filter, itoa(limit), itoa(offset))
	return c.respondCached(ctx, key, func(records visit.RecordSet) any {
		filtered := filter.Apply(records)
		recent := analytics.RecentVisits(filtered, 0)
		pageRecords := page(recent, limit, offset)

		details := make([]VisitDetail, 0, len(pageRecords))
		for _, record := range pageRecords {
			details = append(details, VisitDetail{
				SubmittedAt: record.SubmittedAt,
				Dealer:      record.Dealer,
				DealerCode:  record.DealerCode,
				Purpose:     record.Purpose,
				Problems:    record.Problems,
				Positives:   record.Positives,
				Requests:    record.Requests,
			})
		}
		return VisitDetailPage{
			Visits: details,
			Total:  len(filtered),
			Limit:  limit,
			Offset: offset,
		}
	})
}

// GetFilterOptions handles GET /api/v1/filters/options.
// Distinct dealer names and the submission date bounds of the whole
// record set, for populating the filter controls. Not filter dependent.
func (c *Controller) GetFilterOptions(ctx echo.Context) error {
	return c.respondCached(ctx, "options", func(records visit.RecordSet) any {
		return analytics.Options(records)
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
