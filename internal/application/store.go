package application

import (
	"context"
	"time"
)

// StatusCounts aggregates applications for one benefit by status.
type StatusCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Store persists applications and their attachment records.
type Store interface {
	Create(ctx context.Context, app *Application) error
	FindByID(ctx context.Context, id string) (*Application, error)
	// Find returns the single application matching the filter, or a
	// not-found error.
	Find(ctx context.Context, f Filter) (*Application, error)
	Update(ctx context.Context, id string, patch Patch) (*Application, error)
	ListByBenefit(ctx context.Context, benefitID string) ([]Application, error)
	CountByBenefit(ctx context.Context, benefitID string) (StatusCounts, error)
	// ListRecheckCandidates returns applications whose eligibility is
	// still undetermined and whose last check is absent or older than
	// staleness, capped at limit.
	ListRecheckCandidates(ctx context.Context, staleness time.Duration, limit int) ([]Application, error)

	CreateFile(ctx context.Context, f *File) error
	ListFiles(ctx context.Context, applicationID string) ([]File, error)
}
