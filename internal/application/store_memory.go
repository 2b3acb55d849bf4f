package application

import (
	"context"
	"sort"
	"sync"
	"time"

	dErrors "benefit-gateway/pkg/domain-errors"
)

// MemoryStore keeps applications in process memory. Used by tests and
// local development; production wires the postgres store.
type MemoryStore struct {
	mu    sync.RWMutex
	apps  map[string]Application
	files map[string][]File
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		apps:  make(map[string]Application),
		files: make(map[string][]File),
	}
}

func (s *MemoryStore) Create(_ context.Context, app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "application already exists")
	}
	s.apps[app.ID] = cloneApp(*app)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	app = cloneApp(app)
	return &app, nil
}

func (s *MemoryStore) Find(_ context.Context, f Filter) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.apps {
		if f.OrderID != "" && app.OrderID != f.OrderID {
			continue
		}
		if f.BenefitID != "" && app.BenefitID != f.BenefitID {
			continue
		}
		app = cloneApp(app)
		return &app, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
}

func (s *MemoryStore) Update(_ context.Context, id string, patch Patch) (*Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if patch.Status != nil {
		app.Status = *patch.Status
	}
	if patch.OrderID != nil {
		app.OrderID = *patch.OrderID
	}
	if patch.Remark != nil {
		app.Remark = *patch.Remark
	}
	if patch.ApplicationData != nil {
		app.ApplicationData = patch.ApplicationData
	}
	if patch.EligibilityStatus != nil {
		app.EligibilityStatus = *patch.EligibilityStatus
	}
	if patch.EligibilityResult != nil {
		app.EligibilityResult = patch.EligibilityResult
	}
	if patch.EligibilityCheckedAt != nil {
		app.EligibilityCheckedAt = patch.EligibilityCheckedAt
	}
	app.UpdatedAt = time.Now().UTC()
	s.apps[id] = cloneApp(app)
	app = cloneApp(app)
	return &app, nil
}

func (s *MemoryStore) ListByBenefit(_ context.Context, benefitID string) ([]Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Application
	for _, app := range s.apps {
		if app.BenefitID == benefitID {
			out = append(out, cloneApp(app))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountByBenefit(_ context.Context, benefitID string) (StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts StatusCounts
	for _, app := range s.apps {
		if app.BenefitID != benefitID {
			continue
		}
		counts.Total++
		switch app.Status {
		case StatusPending:
			counts.Pending++
		case StatusApproved:
			counts.Approved++
		case StatusRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}

func (s *MemoryStore) ListRecheckCandidates(_ context.Context, staleness time.Duration, limit int) ([]Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().UTC().Add(-staleness)

	var out []Application
	for _, app := range s.apps {
		if app.EligibilityStatus == EligibilityEligible || app.EligibilityStatus == EligibilityIneligible {
			continue
		}
		if app.EligibilityResult != nil {
			continue
		}
		if app.EligibilityCheckedAt != nil && app.EligibilityCheckedAt.After(cutoff) {
			continue
		}
		out = append(out, cloneApp(app))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CreateFile(_ context.Context, f *File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.ApplicationID] = append(s.files[f.ApplicationID], *f)
	return nil
}

func (s *MemoryStore) ListFiles(_ context.Context, applicationID string) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]File{}, s.files[applicationID]...), nil
}

func cloneApp(app Application) Application {
	if app.ApplicationData != nil {
		data := make(map[string]any, len(app.ApplicationData))
		for k, v := range app.ApplicationData {
			data[k] = v
		}
		app.ApplicationData = data
	}
	if app.EligibilityResult != nil {
		res := make(map[string]any, len(app.EligibilityResult))
		for k, v := range app.EligibilityResult {
			res[k] = v
		}
		app.EligibilityResult = res
	}
	return app
}
