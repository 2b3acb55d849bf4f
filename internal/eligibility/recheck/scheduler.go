// Package recheck periodically re-evaluates eligibility for
// applications whose outcome is still undetermined.
package recheck

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"benefit-gateway/internal/application"
	benefit "benefit-gateway/internal/benefit/models"
	"benefit-gateway/internal/eligibility"
	"benefit-gateway/internal/platform/metrics"
	"benefit-gateway/pkg/audit"
)

// BenefitSource resolves the rules an application is checked against.
type BenefitSource interface {
	GetByID(ctx context.Context, documentID, authToken string) (*benefit.BenefitRecord, error)
}

// Scheduler drives the recheck loop. One failed application never stops
// the batch; it is logged, counted and skipped.
type Scheduler struct {
	apps     application.Store
	benefits BenefitSource

	interval  time.Duration
	staleness time.Duration
	batchSize int

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher audit.Publisher
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

func New(apps application.Store, benefits BenefitSource, interval, staleness time.Duration, batchSize int, opts ...Option) *Scheduler {
	s := &Scheduler{
		apps:      apps,
		benefits:  benefits,
		interval:  interval,
		staleness: staleness,
		batchSize: batchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled, processing one batch per tick.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce processes a single batch of recheck candidates.
func (s *Scheduler) RunOnce(ctx context.Context) {
	candidates, err := s.apps.ListRecheckCandidates(ctx, s.staleness, s.batchSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "list recheck candidates failed", "error", err)
		return
	}
	if len(candidates) == 0 {
		return
	}
	s.logger.InfoContext(ctx, "rechecking eligibility", "count", len(candidates))

	for i := range candidates {
		if ctx.Err() != nil {
			return
		}
		if err := s.checkOne(ctx, &candidates[i]); err != nil {
			s.logger.WarnContext(ctx, "eligibility recheck failed",
				"application_id", candidates[i].ID,
				"benefit_id", candidates[i].BenefitID,
				"error", err,
			)
			s.count("error")
		}
	}
}

func (s *Scheduler) checkOne(ctx context.Context, app *application.Application) error {
	b, err := s.benefits.GetByID(ctx, app.BenefitID, "")
	if err != nil {
		return err
	}

	result := eligibility.EvaluateOne(app.CustomerID, app.ApplicationData, b.Eligibility, true)
	status := application.EligibilityIneligible
	if len(result.EligibleUsers) > 0 {
		status = application.EligibilityEligible
	}

	resultMap, err := toMap(result)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if _, err := s.apps.Update(ctx, app.ID, application.Patch{
		EligibilityStatus:    &status,
		EligibilityResult:    resultMap,
		EligibilityCheckedAt: &now,
	}); err != nil {
		return err
	}

	s.count(status)
	audit.LogAudit(ctx, s.logger, s.publisher, audit.Event{
		Action:        audit.EventEligibilityChecked,
		ApplicationID: app.ID,
		BenefitID:     app.BenefitID,
		TransactionID: app.TransactionID,
		BapID:         app.BapID,
		Detail:        map[string]any{"status": status},
	})
	return nil
}

func (s *Scheduler) count(outcome string) {
	if s.metrics != nil {
		s.metrics.RecheckProcessed.WithLabelValues(outcome).Inc()
	}
}

func toMap(result eligibility.Result) (map[string]any, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
