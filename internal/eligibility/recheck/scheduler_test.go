package recheck

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefit-gateway/internal/application"
	benefit "benefit-gateway/internal/benefit/models"
	dErrors "benefit-gateway/pkg/domain-errors"
)

type stubBenefits struct {
	byID map[string]benefit.BenefitRecord
}

func (s *stubBenefits) GetByID(_ context.Context, id, _ string) (*benefit.BenefitRecord, error) {
	b, ok := s.byID[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "benefit not found")
	}
	return &b, nil
}

func incomeRule(limit int) benefit.EligibilityRule {
	return benefit.EligibilityRule{
		Type:     "userProfile",
		Evidence: "annualIncome",
		Criteria: benefit.RuleCriteria{Name: "annualIncome", Condition: "lte", ConditionValues: limit},
	}
}

func seedApp(t *testing.T, apps application.Store, benefitID string, data map[string]any) *application.Application {
	t.Helper()
	now := time.Now().UTC()
	app := &application.Application{
		ID:                uuid.NewString(),
		BenefitID:         benefitID,
		CustomerID:        uuid.NewString(),
		BapID:             "bap.example.org",
		Status:            application.StatusPending,
		ApplicationData:   data,
		EligibilityStatus: application.EligibilityUnknown,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, apps.Create(context.Background(), app))
	return app
}

func TestRunOnceSettlesEligibility(t *testing.T) {
	apps := application.NewMemoryStore()
	benefits := &stubBenefits{byID: map[string]benefit.BenefitRecord{
		"doc-1": {DocumentID: "doc-1", Eligibility: []benefit.EligibilityRule{incomeRule(250000)}},
	}}

	eligibleApp := seedApp(t, apps, "doc-1", map[string]any{"annualIncome": 100000.0})
	ineligibleApp := seedApp(t, apps, "doc-1", map[string]any{"annualIncome": 400000.0})

	s := New(apps, benefits, time.Minute, 24*time.Hour, 10)
	s.RunOnce(context.Background())

	got, err := apps.FindByID(context.Background(), eligibleApp.ID)
	require.NoError(t, err)
	assert.Equal(t, application.EligibilityEligible, got.EligibilityStatus)
	assert.NotNil(t, got.EligibilityCheckedAt)
	assert.NotNil(t, got.EligibilityResult)

	got, err = apps.FindByID(context.Background(), ineligibleApp.ID)
	require.NoError(t, err)
	assert.Equal(t, application.EligibilityIneligible, got.EligibilityStatus)
}

func TestRunOnceZeroRulesMeansIneligible(t *testing.T) {
	apps := application.NewMemoryStore()
	benefits := &stubBenefits{byID: map[string]benefit.BenefitRecord{
		"doc-bare": {DocumentID: "doc-bare"},
	}}
	app := seedApp(t, apps, "doc-bare", map[string]any{"annualIncome": 100000.0})

	New(apps, benefits, time.Minute, 24*time.Hour, 10).RunOnce(context.Background())

	got, err := apps.FindByID(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.EligibilityIneligible, got.EligibilityStatus)
}

func TestRunOnceSkipsSettledApplications(t *testing.T) {
	apps := application.NewMemoryStore()
	benefits := &stubBenefits{byID: map[string]benefit.BenefitRecord{
		"doc-1": {DocumentID: "doc-1", Eligibility: []benefit.EligibilityRule{incomeRule(250000)}},
	}}

	settled := seedApp(t, apps, "doc-1", map[string]any{"annualIncome": 400000.0})
	status := application.EligibilityEligible
	_, err := apps.Update(context.Background(), settled.ID, application.Patch{EligibilityStatus: &status})
	require.NoError(t, err)

	New(apps, benefits, time.Minute, 24*time.Hour, 10).RunOnce(context.Background())

	got, err := apps.FindByID(context.Background(), settled.ID)
	require.NoError(t, err)
	assert.Equal(t, application.EligibilityEligible, got.EligibilityStatus,
		"a settled status is never re-derived")
}

func TestRunOnceFailureIsolation(t *testing.T) {
	apps := application.NewMemoryStore()
	benefits := &stubBenefits{byID: map[string]benefit.BenefitRecord{
		"doc-ok": {DocumentID: "doc-ok", Eligibility: []benefit.EligibilityRule{incomeRule(250000)}},
	}}

	broken := seedApp(t, apps, "doc-gone", map[string]any{"annualIncome": 100000.0})
	healthy := seedApp(t, apps, "doc-ok", map[string]any{"annualIncome": 100000.0})

	New(apps, benefits, time.Minute, 24*time.Hour, 10).RunOnce(context.Background())

	got, err := apps.FindByID(context.Background(), healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, application.EligibilityEligible, got.EligibilityStatus,
		"one broken candidate must not stop the batch")

	got, err = apps.FindByID(context.Background(), broken.ID)
	require.NoError(t, err)
	assert.Equal(t, application.EligibilityUnknown, got.EligibilityStatus)
	assert.Nil(t, got.EligibilityCheckedAt)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	apps := application.NewMemoryStore()
	s := New(apps, &stubBenefits{}, 10*time.Millisecond, 24*time.Hour, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
