// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
	"github.com/ericfisherdev/nextslot/internal/domain/port/driven"
)

// Defaults observed in the deployed functions.
const (
	DefaultWindowDays = 30
	DefaultMaxDates   = 3
	DefaultRequestGap = 2 * time.Second
)

// AvailabilityService fans out slot queries over a service catalog and folds
// the answers into display-ready results. A failing query never affects its
// siblings; only fatal errors (configuration, authentication) abort a run.
type AvailabilityService struct {
	slots       driven.SlotSource
	windowDays  int
	maxDates    int
	gap         time.Duration
	parallelism int
	now         func() time.Time
	logger      *slog.Logger
}

// AvailabilityOption configures an AvailabilityService.
type AvailabilityOption func(*AvailabilityService)

// WithWindowDays sets how many days past today a run looks ahead.
func WithWindowDays(days int) AvailabilityOption {
	return func(s *AvailabilityService) { s.windowDays = days }
}

// WithMaxDates caps how many matching dates each result displays.
func WithMaxDates(n int) AvailabilityOption {
	return func(s *AvailabilityService) { s.maxDates = n }
}

// WithRequestGap sets the idle time between consecutive sequential queries,
// or the dispatch spacing in parallel mode. Zero disables pacing.
func WithRequestGap(gap time.Duration) AvailabilityOption {
	return func(s *AvailabilityService) { s.gap = gap }
}

// WithParallelism bounds concurrent queries. Values below 2 run the catalog
// sequentially.
func WithParallelism(n int) AvailabilityOption {
	return func(s *AvailabilityService) { s.parallelism = n }
}

// WithNow replaces time.Now for window computation and report timestamps.
func WithNow(now func() time.Time) AvailabilityOption {
	return func(s *AvailabilityService) { s.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) AvailabilityOption {
	return func(s *AvailabilityService) { s.logger = logger }
}

// NewAvailabilityService creates an AvailabilityService reading from slots.
func NewAvailabilityService(slots driven.SlotSource, opts ...AvailabilityOption) *AvailabilityService {
	s := &AvailabilityService{
		slots:      slots,
		windowDays: DefaultWindowDays,
		maxDates:   DefaultMaxDates,
		gap:        DefaultRequestGap,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Window returns [today, today + windowDays].
func (s *AvailabilityService) Window() model.DateWindow {
	return model.NewDateWindow(s.now(), s.windowDays)
}

// WindowFrom returns [start, start + windowDays].
func (s *AvailabilityService) WindowFrom(start time.Time) model.DateWindow {
	return model.NewDateWindow(start, s.windowDays)
}

// QueryAvailability runs one query per catalog entry over window. The report
// lists results in catalog order. Per-query failures are recorded on their
// result; the returned error is non-nil only for fatal errors or cancellation.
func (s *AvailabilityService) QueryAvailability(ctx context.Context, catalog []model.ServiceQuery, window model.DateWindow) (model.AvailabilityReport, error) {
	start := time.Now()
	results := make([]model.AvailabilityResult, len(catalog))

	var err error
	if s.parallelism > 1 {
		err = s.queryParallel(ctx, catalog, window, results)
	} else {
		err = s.querySequential(ctx, catalog, window, results)
	}
	if err != nil {
		return model.AvailabilityReport{}, err
	}

	report := model.AvailabilityReport{
		Results:     results,
		Window:      window,
		GeneratedAt: s.now(),
	}

	s.logger.Info("availability run complete",
		"services", report.Total(),
		"successful", report.Successful(),
		"date_from", window.FromString(),
		"date_to", window.ToString(),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return report, nil
}

// querySequential issues one query at a time and leaves the configured gap
// idle between the end of one query and the start of the next, however long
// the previous query spent in retries.
func (s *AvailabilityService) querySequential(ctx context.Context, catalog []model.ServiceQuery, window model.DateWindow, results []model.AvailabilityResult) error {
	for i, q := range catalog {
		if i > 0 {
			if err := waitGap(ctx, s.gap); err != nil {
				return fmt.Errorf("pacing availability queries: %w", err)
			}
		}

		res, err := s.queryOne(ctx, q, window)
		if err != nil {
			return err
		}
		results[i] = res
	}
	return nil
}

// queryParallel runs up to parallelism queries at once. Dispatch is still
// paced so the upstream never sees a burst. A fatal error cancels the
// remaining queries.
func (s *AvailabilityService) queryParallel(ctx context.Context, catalog []model.ServiceQuery, window model.DateWindow, results []model.AvailabilityResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	pacer := s.newPacer()

	var waitErr error
	for i, q := range catalog {
		if err := pacer.Wait(gctx); err != nil {
			waitErr = fmt.Errorf("pacing availability queries: %w", err)
			break
		}

		g.Go(func() error {
			res, err := s.queryOne(gctx, q, window)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return waitErr
}

// queryOne fetches and shapes the result for a single catalog entry.
func (s *AvailabilityService) queryOne(ctx context.Context, q model.ServiceQuery, window model.DateWindow) (res model.AvailabilityResult, err error) {
	res = model.AvailabilityResult{
		ServiceID:     q.ServiceID,
		ProviderID:    q.ProviderID,
		DisplayName:   q.DisplayName,
		MatchingDates: []model.DateEntry{},
	}

	defer func() {
		if v := recover(); v != nil {
			s.logger.Error("panic in availability query",
				"service_id", q.ServiceID,
				"provider_id", q.ProviderID,
				"panic", v,
			)
			res.MatchingDates = []model.DateEntry{}
			res.HasAvailability = false
			res.Error = "internal error"
			err = nil
		}
	}()

	days, err := s.slots.FetchSlots(ctx, q.ServiceID, q.ProviderID, window)
	if err != nil {
		if model.IsFatal(err) {
			return res, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}

		s.logger.Error("availability query failed",
			"service_id", q.ServiceID,
			"provider_id", q.ProviderID,
			"service", q.DisplayName,
			"error", err,
		)
		res.Error = model.PublicMessage(err)
		return res, nil
	}

	matches := MatchingDates(days, q.Weekday)
	res.HasAvailability = len(matches) > 0
	res.MatchingDates = truncateDates(matches, s.maxDates)

	s.logger.Debug("availability query complete",
		"service_id", q.ServiceID,
		"provider_id", q.ProviderID,
		"days", len(days),
		"matches", len(matches),
	)

	return res, nil
}

// LookupSlots finds the earliest day in window with an available slot for a
// single service/provider pair. All errors are returned to the caller.
func (s *AvailabilityService) LookupSlots(ctx context.Context, serviceID, providerID int, window model.DateWindow) (model.SlotLookup, error) {
	days, err := s.slots.FetchSlots(ctx, serviceID, providerID, window)
	if err != nil {
		return model.SlotLookup{}, err
	}

	lookup := model.SlotLookup{
		ServiceID:      serviceID,
		ProviderID:     providerID,
		AvailableSlots: []model.SlotRecord{},
		CheckedDates:   window.Dates(),
	}

	if day, ok := firstAvailableDay(days); ok {
		d, _ := day.ParseDate()
		lookup.NextAvailableDate = d.Format(model.DateLayout)
		lookup.AvailableSlots = day.AvailableSlots()
	}

	return lookup, nil
}

// newPacer builds a limiter spacing parallel dispatches by gap. The first
// dispatch is never delayed.
func (s *AvailabilityService) newPacer() *rate.Limiter {
	if s.gap <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(s.gap), 1)
}

// waitGap blocks for d or until ctx is done.
func waitGap(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
