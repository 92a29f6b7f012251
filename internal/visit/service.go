package visit

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/autovisor/visitmon/internal/errors"
	"github.com/autovisor/visitmon/internal/logging"
	"github.com/autovisor/visitmon/internal/observability/metrics"
	"github.com/autovisor/visitmon/internal/sheets"
)

// Package-level logger specific to the visit loader
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "visit.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "visit", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize visit file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "visit")
		closeLogger = func() error { return nil }
	}
}

// DefaultTTL is the record set reuse window.
const DefaultTTL = 10 * time.Minute

// RowSource fetches raw worksheet rows. *sheets.Client implements it.
type RowSource interface {
	FetchRows(ctx context.Context) ([]sheets.Row, error)
}

// Service loads the visit record set and memoizes it for a wall-clock TTL.
// The cache holds one value keyed by nothing: every caller inside the
// window sees the same record set regardless of filter state.
type Service struct {
	source       RowSource
	ttl          time.Duration
	now          func() time.Time
	allowPartial bool
	metrics      *metrics.LoaderMetrics

	mu        sync.Mutex
	cached    RecordSet
	fetchedAt time.Time
	haveCache bool
}

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithTTL sets the record set reuse window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock overrides the wall clock, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithAllowPartial makes the loader skip malformed rows instead of
// failing the whole load.
func WithAllowPartial(allow bool) Option {
	return func(s *Service) {
		s.allowPartial = allow
	}
}

// WithMetrics attaches loader metrics.
func WithMetrics(m *metrics.LoaderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a record set loader over the given row source.
func NewService(source RowSource, opts ...Option) *Service {
	s := &Service{
		source: source,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the visit record set, serving the memoized copy while it
// is fresh. On failure it returns a nil set and the error; no partial
// state is ever exposed.
func (s *Service) Load(ctx context.Context) (RecordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.haveCache && s.now().Sub(s.fetchedAt) < s.ttl {
		if s.metrics != nil {
			s.metrics.RecordCacheHit()
		}
		logger.Debug("record set served from cache",
			"records", len(s.cached),
			"age", s.now().Sub(s.fetchedAt).String())
		return s.cached, nil
	}

	start := s.now()
	records, skipped, err := s.fetch(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLoad("error")
			var enhanced *errors.EnhancedError
			if errors.As(err, &enhanced) {
				s.metrics.RecordLoadError(string(enhanced.Category))
			} else {
				s.metrics.RecordLoadError("unknown")
			}
		}
		logger.Error("record set load failed", "error", err)
		return nil, err
	}

	s.cached = records
	s.fetchedAt = s.now()
	s.haveCache = true

	if s.metrics != nil {
		s.metrics.RecordLoad("success")
		s.metrics.RecordLoadDuration(s.now().Sub(start).Seconds())
		s.metrics.SetRecordsLoaded(len(records))
		if skipped > 0 {
			s.metrics.RecordRowsSkipped(skipped)
		}
	}
	logger.Info("record set loaded",
		"records", len(records),
		"skipped_rows", skipped,
		"ttl", s.ttl.String())
	return records, nil
}

// Invalidate drops the memoized record set so the next Load refetches.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haveCache = false
	s.cached = nil
}

func (s *Service) fetch(ctx context.Context) (RecordSet, int, error) {
	rows, err := s.source.FetchRows(ctx)
	if err != nil {
		return nil, 0, err
	}
	records, skipped, err := ParseRows(rows, s.allowPartial)
	if err != nil {
		return nil, 0, err
	}
	if skipped > 0 {
		logger.Warn("malformed rows skipped", "count", skipped)
	}
	return records, skipped, nil
}

// Close releases the service log file.
func Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing visit logger: %v", err)
		}
	}
}
