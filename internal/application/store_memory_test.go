package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "benefit-gateway/pkg/domain-errors"
)

func newTestApplication(benefitID string) *Application {
	now := time.Now().UTC()
	return &Application{
		ID:                uuid.NewString(),
		BenefitID:         benefitID,
		CustomerID:        uuid.NewString(),
		BapID:             "bap.example.org",
		TransactionID:     uuid.NewString(),
		Status:            StatusPending,
		ApplicationData:   map[string]any{"firstName": "Asha"},
		EligibilityStatus: EligibilityUnknown,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	app := newTestApplication("ben-1")
	require.NoError(t, store.Create(ctx, app))

	got, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
	assert.Equal(t, StatusPending, got.Status)

	assert.Error(t, store.Create(ctx, app), "duplicate id must conflict")

	_, err = store.FindByID(ctx, "missing")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestMemoryStoreFindByOrderID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	app := newTestApplication("ben-1")
	app.OrderID = "TLEXP_ABC123_1700000000000"
	require.NoError(t, store.Create(ctx, app))

	got, err := store.Find(ctx, Filter{OrderID: app.OrderID})
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	_, err = store.Find(ctx, Filter{OrderID: "unknown"})
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestMemoryStoreUpdateAppliesPatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	app := newTestApplication("ben-1")
	require.NoError(t, store.Create(ctx, app))

	status := StatusApproved
	remark := "verified"
	got, err := store.Update(ctx, app.ID, Patch{Status: &status, Remark: &remark})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, "verified", got.Remark)
	assert.Equal(t, map[string]any{"firstName": "Asha"}, got.ApplicationData, "untouched fields survive")
}

func TestMemoryStoreCountByBenefit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, status := range []string{StatusPending, StatusPending, StatusApproved, StatusRejected} {
		app := newTestApplication("ben-1")
		app.Status = status
		require.NoError(t, store.Create(ctx, app))
	}
	other := newTestApplication("ben-2")
	require.NoError(t, store.Create(ctx, other))

	counts, err := store.CountByBenefit(ctx, "ben-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCounts{Total: 4, Pending: 2, Approved: 1, Rejected: 1}, counts)
}

func TestMemoryStoreRecheckCandidates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	fresh := time.Now().UTC()
	stale := fresh.Add(-48 * time.Hour)

	unknown := newTestApplication("ben-1")
	require.NoError(t, store.Create(ctx, unknown))

	checkedRecently := newTestApplication("ben-1")
	checkedRecently.EligibilityCheckedAt = &fresh
	require.NoError(t, store.Create(ctx, checkedRecently))

	checkedLongAgo := newTestApplication("ben-1")
	checkedLongAgo.EligibilityCheckedAt = &stale
	require.NoError(t, store.Create(ctx, checkedLongAgo))

	settled := newTestApplication("ben-1")
	settled.EligibilityStatus = EligibilityEligible
	require.NoError(t, store.Create(ctx, settled))

	withResult := newTestApplication("ben-1")
	withResult.EligibilityResult = map[string]any{"eligibleUsers": []any{}}
	require.NoError(t, store.Create(ctx, withResult))

	got, err := store.ListRecheckCandidates(ctx, 24*time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	assert.Contains(t, ids, unknown.ID)
	assert.Contains(t, ids, checkedLongAgo.ID)
}

func TestMemoryStoreRecheckCandidatesLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, newTestApplication("ben-1")))
	}
	got, err := store.ListRecheckCandidates(ctx, 24*time.Hour, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestMemoryStoreMutationIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	app := newTestApplication("ben-1")
	require.NoError(t, store.Create(ctx, app))

	got, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	got.ApplicationData["firstName"] = "changed"

	again, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", again.ApplicationData["firstName"])
}
