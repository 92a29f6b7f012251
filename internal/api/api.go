// Package api provides the JSON API behind the visit dashboard.
package api

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/autovisor/visitmon/internal/analytics"
	"github.com/autovisor/visitmon/internal/conf"
	"github.com/autovisor/visitmon/internal/errors"
	"github.com/autovisor/visitmon/internal/logging"
	"github.com/autovisor/visitmon/internal/observability"
	"github.com/autovisor/visitmon/internal/visit"
)

const dateLayout = "2006-01-02"

// Controller manages the API routes and handlers
type Controller struct {
	Group    *echo.Group
	Settings *conf.Settings
	Loader   *visit.Service

	queryCache *cache.Cache // cached aggregation responses
	metrics    *observability.Metrics

	apiLogger      *slog.Logger
	apiLevelVar    *slog.LevelVar
	apiLoggerClose func() error
}

// New creates the API controller and registers its routes on e.
func New(e *echo.Echo, loader *visit.Service, settings *conf.Settings, metrics *observability.Metrics) *Controller {
	queryTTL := time.Duration(settings.Dashboard.QueryCacheTTL) * time.Second
	if queryTTL <= 0 {
		queryTTL = time.Minute
	}

	c := &Controller{
		Settings:   settings,
		Loader:     loader,
		queryCache: cache.New(queryTTL, queryTTL*2),
		metrics:    metrics,
	}

	c.apiLevelVar = new(slog.LevelVar)
	if settings.Debug {
		c.apiLevelVar.Set(slog.LevelDebug)
	} else {
		c.apiLevelVar.Set(slog.LevelInfo)
	}

	var err error
	logFilePath := filepath.Join(settings.Log.Path, "api.log")
	c.apiLogger, c.apiLoggerClose, err = logging.NewFileLogger(logFilePath, "api", c.apiLevelVar)
	if err != nil {
		log.Printf("Failed to initialize API file logger at %s: %v. API logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: c.apiLevelVar})
		c.apiLogger = slog.New(fbHandler).With("service", "api")
		c.apiLoggerClose = func() error { return nil }
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

// Close releases controller resources.
func (c *Controller) Close() {
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			log.Printf("Error closing API logger: %v", err)
		}
	}
}

func (c *Controller) initRoutes() {
	c.Group.GET("/summary", c.GetSummary)
	c.Group.GET("/dealers/summary", c.GetDealerSummary)
	c.Group.GET("/issues/frequency", c.GetIssueFrequency)
	c.Group.GET("/metrics/yes", c.GetYesPercentages)
	c.Group.GET("/visits/recent", c.GetRecentVisits)
	c.Group.GET("/filters/options", c.GetFilterOptions)
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HandleError logs err and sends a JSON error envelope with the given
// status.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	c.apiLogger.Error(message,
		"error", err,
		"path", ctx.Request().URL.Path,
		"code", code)
	return ctx.JSON(code, ErrorResponse{
		Error:   err.Error(),
		Message: message,
		Code:    code,
	})
}

// parseFilter reads the common filter query parameters: start and end as
// YYYY-MM-DD calendar dates, dealers as a comma separated name list.
func parseFilter(ctx echo.Context) (analytics.Filter, error) {
	var f analytics.Filter

	if raw := ctx.QueryParam("start"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.New(fmt.Errorf("invalid start date %q: %w", raw, err)).
				Category(errors.CategoryValidation).
				Component("api").
				Build()
		}
		f.Start = t
	}
	if raw := ctx.QueryParam("end"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.New(fmt.Errorf("invalid end date %q: %w", raw, err)).
				Category(errors.CategoryValidation).
				Component("api").
				Build()
		}
		f.End = t
	}
	if raw := ctx.QueryParam("dealers"); raw != "" {
		for _, dealer := range strings.Split(raw, ",") {
			if dealer = strings.TrimSpace(dealer); dealer != "" {
				f.Dealers = append(f.Dealers, dealer)
			}
		}
	}
	return f, nil
}

// parsePaging reads limit and offset with a default limit.
func parsePaging(ctx echo.Context, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if raw := ctx.QueryParam("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// cacheKey builds a canonical cache key from the route and filter
// parameters, so identical queries share one cached response.
func cacheKey(route string, f analytics.Filter, extra ...string) string {
	dealers := append([]string(nil), f.Dealers...)
	sort.Strings(dealers)
	parts := []string{
		route,
		f.Start.Format(dateLayout),
		f.End.Format(dateLayout),
		strings.Join(dealers, "|"),
	}
	parts = append(parts, extra...)
	return strings.Join(parts, ";")
}

// respondCached serves a previously computed payload for key, or computes
// it with build, caches it and sends it. Loader failures surface as a
// visible error with empty data rather than a hard HTTP failure, so the
// dashboard still renders.
func (c *Controller) respondCached(ctx echo.Context, key string, build func(visit.RecordSet) any) error {
	if cached, found := c.queryCache.Get(key); found {
		if c.metrics != nil {
			c.metrics.HTTP.RecordQueryCacheHit()
		}
		c.apiLogger.Debug("query cache hit", "key", key)
		return ctx.JSON(http.StatusOK, cached)
	}

	records, loadErr := c.Loader.Load(ctx.Request().Context())
	payload := envelope{Data: build(records)}
	if loadErr != nil {
		// Empty record set, visible error message, no caching
		payload.Error = loadErr.Error()
		c.apiLogger.Error("record set load failed", "error", loadErr)
		return ctx.JSON(http.StatusOK, payload)
	}

	c.queryCache.Set(key, payload, cache.DefaultExpiration)
	return ctx.JSON(http.StatusOK, payload)
}

// envelope wraps every aggregation response. Error is set when the
// record set could not be loaded and Data was computed over an empty
// set.
type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}
