// Package service implements the provider-console benefit operations:
// scoped search with application-count enrichment and single-benefit
// lookup.
package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"benefit-gateway/internal/application"
	"benefit-gateway/internal/benefit/access"
	benefit "benefit-gateway/internal/benefit/models"
	"benefit-gateway/internal/benefit/provider"
	"benefit-gateway/internal/identity"
	dErrors "benefit-gateway/pkg/domain-errors"
)

// BenefitWithCounts is a console search row: the benefit plus how many
// applications it has received by status.
type BenefitWithCounts struct {
	benefit.BenefitRecord
	ApplicationCounts application.StatusCounts `json:"applicationCounts"`
}

// SearchResponse is one console search page.
type SearchResponse struct {
	Benefits []BenefitWithCounts `json:"benefits"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

type Service struct {
	provider *provider.Client
	apps     application.Store
	users    identity.Store
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(providerClient *provider.Client, apps application.Store, users identity.Store, opts ...Option) *Service {
	s := &Service{
		provider: providerClient,
		apps:     apps,
		users:    users,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs a scoped console query. The caller's provider peer set
// is pushed into the upstream query and re-applied on the results, the
// page is narrowed to published benefits, and each surviving benefit
// is enriched with its application counts concurrently.
func (s *Service) Search(ctx context.Context, userID, authToken string, query provider.SearchQuery) (*SearchResponse, error) {
	user, err := s.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var peers access.PeerSet
	if !user.IsSuperAdmin() && len(user.Roles) > 0 {
		ids, err := s.users.ListUpstreamIDsByRoles(ctx, user.Roles)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve provider peers")
		}
		if len(ids) == 0 {
			return &SearchResponse{Benefits: []BenefitWithCounts{}, Page: query.Page, PageSize: query.PageSize}, nil
		}
		query.CreatedBy = ids
		peers = access.NewPeerSet(ids)
	}

	result, err := s.provider.Search(ctx, query, authToken)
	if err != nil {
		return nil, err
	}

	published := make([]benefit.BenefitRecord, 0, len(result.Benefits))
	for _, b := range result.Benefits {
		if b.Published() {
			published = append(published, b)
		}
	}

	visible := access.FilterVisible(user, peers, published)
	rows := make([]BenefitWithCounts, len(visible))

	g, gctx := errgroup.WithContext(ctx)
	for i := range visible {
		i := i
		g.Go(func() error {
			counts, err := s.apps.CountByBenefit(gctx, visible[i].DocumentID)
			if err != nil {
				// A missing count must not sink the whole page.
				s.logger.WarnContext(gctx, "application count lookup failed",
					"benefit_id", visible[i].DocumentID, "error", err)
				counts = application.StatusCounts{}
			}
			rows[i] = BenefitWithCounts{BenefitRecord: visible[i], ApplicationCounts: counts}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SearchResponse{
		Benefits: rows,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}, nil
}

// GetByID returns one benefit if the caller is allowed to open it. The
// forbidden and not-found cases stay distinguishable.
func (s *Service) GetByID(ctx context.Context, userID, authToken, documentID string) (*benefit.BenefitRecord, error) {
	user, err := s.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	b, err := s.provider.GetByID(ctx, documentID, authToken)
	if err != nil {
		return nil, err
	}

	var creator *identity.User
	if !user.IsSuperAdmin() && b.CreatedBy != nil && b.CreatedBy.ID != "" {
		creator, err = s.users.GetByUpstreamID(ctx, b.CreatedBy.ID)
		if err != nil && !dErrors.Is(err, dErrors.CodeNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve benefit creator")
		}
	}
	if err := access.CanAccess(user, creator, b); err != nil {
		return nil, err
	}
	return b, nil
}

// resolveUser maps an unknown token subject to an authorization
// failure; identity-store faults stay internal errors so callers can
// tell "you may not" apart from "we could not check".
func (s *Service) resolveUser(ctx context.Context, userID string) (*identity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "unknown console user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve console user")
	}
	return user, nil
}
