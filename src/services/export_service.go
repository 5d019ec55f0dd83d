// src/services/export_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xdubnickas/trading212-tracker/src/config"
	"github.com/xdubnickas/trading212-tracker/src/logger"
	"github.com/xdubnickas/trading212-tracker/src/models"
	"github.com/xdubnickas/trading212-tracker/src/t212"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

// Per-year outcome statuses of an export run.
const (
	YearStatusCovered  = "covered"  // a usable export already existed
	YearStatusExported = "exported" // a new export job was created this run
	YearStatusFailed   = "failed"   // the export request failed for this year
)

// ExportPolicy holds the tunable retry/backoff behavior of an export run.
// The export endpoint is rate limited to roughly one request per 30 seconds,
// so the defaults are deliberately conservative.
type ExportPolicy struct {
	// MaxRateLimitRetries is how many extra attempts a single year gets
	// after a 429 before the year is recorded as failed.
	MaxRateLimitRetries int
	// InitialBackoff is the wait before the first 429 retry; it doubles per
	// attempt up to BackoffCap.
	InitialBackoff time.Duration
	BackoffCap     time.Duration
	// InterRequestDelay is the pause between submissions of consecutive
	// years. It doubles (up to InterRequestCap) every time a year exhausts
	// its rate limit retries, and never decreases within a run.
	InterRequestDelay time.Duration
	InterRequestCap   time.Duration
	// StaleAfter is how old the current year's export may be before it is
	// flagged outdated.
	StaleAfter time.Duration
}

// PolicyFromConfig builds the export policy from the loaded configuration.
func PolicyFromConfig() ExportPolicy {
	return ExportPolicy{
		MaxRateLimitRetries: config.Cfg.ExportMaxRateLimitRetries,
		InitialBackoff:      config.Cfg.ExportInitialBackoff,
		BackoffCap:          config.Cfg.ExportBackoffCap,
		InterRequestDelay:   config.Cfg.ExportInterRequestDelay,
		InterRequestCap:     config.Cfg.ExportInterRequestCap,
		StaleAfter:          config.Cfg.ExportStaleAfter,
	}
}

// YearOutcome is the result of coverage analysis and submission for one year.
type YearOutcome struct {
	Year     int       `json:"year"`
	Status   string    `json:"status"`
	ReportID int64     `json:"reportId,omitempty"`
	TimeFrom time.Time `json:"timeFrom,omitempty"`
	TimeTo   time.Time `json:"timeTo,omitempty"`
	// Outdated marks a pre-existing current-year export older than the
	// freshness threshold. The current year is re-exported either way.
	Outdated bool   `json:"outdated,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CoverageResult is the full outcome of one export run: one entry per year
// in ascending order, plus the report IDs of all usable exports (pre-existing
// and newly created).
type CoverageResult struct {
	Years      []YearOutcome `json:"years"`
	ReportIDs  []int64       `json:"reportIds"`
	FinalDelay time.Duration `json:"finalDelayMs"`
}

// ExportProgress is a structured progress event emitted during a run, so
// the presentation layer can show per-year status and wait messaging without
// the orchestrator knowing anything about rendering.
type ExportProgress struct {
	Stage   string        `json:"stage"` // "listing", "requesting", "backoff", "waiting", "year-done"
	Year    int           `json:"year,omitempty"`
	Attempt int           `json:"attempt,omitempty"`
	Wait    time.Duration `json:"wait,omitempty"`
	Message string        `json:"message,omitempty"`
}

// ExportService guarantees that every year in [startYear, currentYear] has a
// finished, non-outdated export, requesting new exports only where needed.
type ExportService struct {
	client t212.Client
	policy ExportPolicy

	// OnProgress, when set, receives progress events during a run.
	OnProgress func(ExportProgress)
	// Now and Sleep are injectable for tests; Sleep must honor ctx.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	running map[string]bool
}

// NewExportService creates the export orchestrator.
func NewExportService(client t212.Client, policy ExportPolicy) *ExportService {
	return &ExportService{
		client:  client,
		policy:  policy,
		Now:     time.Now,
		Sleep:   sleepContext,
		running: make(map[string]bool),
	}
}

// EnsureCoverage runs the coverage/export state machine for the year range
// [startYear, current year]. Individual year failures are recorded in the
// result and do not abort the run; authentication failures and a failed
// exports listing do, since neither can be worked around.
func (s *ExportService) EnsureCoverage(ctx context.Context, apiKey string, startYear int) (*CoverageResult, error) {
	credKey := utils.HashCredential(apiKey)
	if err := s.acquireRun(credKey); err != nil {
		return nil, err
	}
	defer s.releaseRun(credKey)

	now := s.Now().UTC()
	currentYear := now.Year()
	if startYear <= 0 {
		startYear = currentYear
	}
	if startYear > currentYear {
		return nil, fmt.Errorf("start year %d is in the future", startYear)
	}

	logger.L.Info("Export run starting", "credential", credKey, "startYear", startYear, "currentYear", currentYear)

	// Step 1: coverage analysis. Without the listing we cannot tell which
	// years are covered, and guessing would mean re-exporting everything.
	s.emit(ExportProgress{Stage: "listing", Message: "checking existing exports"})
	descriptors, err := s.client.ListExports(ctx, apiKey)
	if err != nil {
		var authErr *t212.AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		return nil, fmt.Errorf("cannot determine export coverage: %w", err)
	}
	covered, currentYearDesc := s.analyzeCoverage(descriptors, now)

	// Step 2: gap computation. The current year is always re-exported.
	var toExport []int
	for year := startYear; year <= currentYear; year++ {
		if _, ok := covered[year]; ok && year != currentYear {
			continue
		}
		toExport = append(toExport, year)
	}
	logger.L.Info("Coverage analyzed",
		"existingExports", len(descriptors), "coveredYears", len(covered), "yearsToExport", len(toExport))

	// Step 3: sequential submission, ascending, with run-scoped backoff.
	result := &CoverageResult{}
	baseDelay := s.policy.InterRequestDelay
	pending := len(toExport)
	for year := startYear; year <= currentYear; year++ {
		if descriptor, ok := covered[year]; ok && year != currentYear {
			result.Years = append(result.Years, YearOutcome{
				Year:     year,
				Status:   YearStatusCovered,
				ReportID: descriptor.ReportID,
				TimeFrom: descriptor.TimeFrom,
				TimeTo:   descriptor.TimeTo,
			})
			result.ReportIDs = append(result.ReportIDs, descriptor.ReportID)
			continue
		}

		outcome, err := s.submitYear(ctx, apiKey, year, now, &baseDelay)
		if err != nil {
			return nil, err
		}
		if year == currentYear && currentYearDesc != nil {
			outcome.Outdated = now.Sub(currentYearDesc.TimeTo) > s.policy.StaleAfter
		}
		result.Years = append(result.Years, outcome)
		if outcome.Status == YearStatusExported {
			result.ReportIDs = append(result.ReportIDs, outcome.ReportID)
		}
		s.emit(ExportProgress{Stage: "year-done", Year: year, Message: outcome.Status})

		// Pace consecutive submissions to stay under the remote rate limit.
		pending--
		if pending > 0 {
			s.emit(ExportProgress{Stage: "waiting", Year: year, Wait: baseDelay})
			if err := s.Sleep(ctx, baseDelay); err != nil {
				return nil, err
			}
		}
	}
	result.FinalDelay = baseDelay

	logger.L.Info("Export run finished",
		"credential", credKey, "years", len(result.Years), "reports", len(result.ReportIDs))
	return result, nil
}

// analyzeCoverage maps finished full-calendar-year descriptors to their
// year, keeping the one with the later TimeTo when a year has duplicates.
// The current year is excluded from the map (it is never "covered"); its
// freshest descriptor is returned separately for the outdated check.
func (s *ExportService) analyzeCoverage(descriptors []models.ExportDescriptor, now time.Time) (map[int]models.ExportDescriptor, *models.ExportDescriptor) {
	covered := make(map[int]models.ExportDescriptor)
	for _, descriptor := range descriptors {
		if !descriptor.IsFinished() {
			continue
		}
		year, ok := models.IsFullCalendarYearRange(descriptor.TimeFrom, descriptor.TimeTo, now)
		if !ok {
			// Custom or partial export; not part of the yearly model.
			continue
		}
		if existing, dup := covered[year]; dup && !descriptor.TimeTo.After(existing.TimeTo) {
			continue
		}
		covered[year] = descriptor
	}
	if descriptor, ok := covered[now.Year()]; ok {
		delete(covered, now.Year())
		return covered, &descriptor
	}
	return covered, nil
}

// submitYear requests one year's export, retrying rate limits with
// exponential backoff. A non-nil error is returned only for conditions that
// abort the whole run (auth failure, cancelled context); everything else is
// reported through the outcome.
func (s *ExportService) submitYear(ctx context.Context, apiKey string, year int, now time.Time, baseDelay *time.Duration) (YearOutcome, error) {
	req := models.NewYearExportRequest(year, now)
	for attempt := 0; ; attempt++ {
		s.emit(ExportProgress{Stage: "requesting", Year: year, Attempt: attempt})
		reportID, err := s.client.RequestExport(ctx, apiKey, req)
		if err == nil {
			logger.L.Info("Year export requested", "year", year, "reportId", reportID)
			return YearOutcome{
				Year:     year,
				Status:   YearStatusExported,
				ReportID: reportID,
				TimeFrom: req.TimeFrom,
				TimeTo:   req.TimeTo,
			}, nil
		}

		var authErr *t212.AuthError
		if errors.As(err, &authErr) {
			// A bad key fails every remaining year too; abort immediately.
			return YearOutcome{}, err
		}

		var rateErr *t212.RateLimitError
		if errors.As(err, &rateErr) {
			if attempt < s.policy.MaxRateLimitRetries {
				wait := backoffDelay(s.policy.InitialBackoff, s.policy.BackoffCap, attempt)
				logger.L.Warn("Rate limited, backing off", "year", year, "attempt", attempt+1, "wait", wait)
				s.emit(ExportProgress{Stage: "backoff", Year: year, Attempt: attempt + 1, Wait: wait})
				if sleepErr := s.Sleep(ctx, wait); sleepErr != nil {
					return YearOutcome{}, sleepErr
				}
				continue
			}
			// Retries exhausted: escalate the run's pacing and move on.
			// The escalation is monotonic within the run.
			*baseDelay = capDuration(*baseDelay*2, s.policy.InterRequestCap)
			logger.L.Warn("Rate limit retries exhausted", "year", year, "newBaseDelay", *baseDelay)
			return YearOutcome{Year: year, Status: YearStatusFailed, Error: err.Error()}, nil
		}

		// Transport or server failure: one bad year does not abort the batch.
		logger.L.Error("Year export failed", "year", year, "error", err)
		return YearOutcome{Year: year, Status: YearStatusFailed, Error: err.Error()}, nil
	}
}

func (s *ExportService) acquireRun(credKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[credKey] {
		return ErrRunInProgress
	}
	s.running[credKey] = true
	return nil
}

func (s *ExportService) releaseRun(credKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, credKey)
}

func (s *ExportService) emit(event ExportProgress) {
	if s.OnProgress != nil {
		s.OnProgress(event)
	}
}

// backoffDelay is initial*2^attempt capped at max.
func backoffDelay(initial, max time.Duration, attempt int) time.Duration {
	delay := initial
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return capDuration(delay, max)
}

func capDuration(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}

// sleepContext waits for the duration or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
