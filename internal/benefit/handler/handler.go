// Package handler exposes the provider-console benefit endpoints. All
// routes require a portal-issued bearer token.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	benefit "benefit-gateway/internal/benefit/models"
	"benefit-gateway/internal/benefit/provider"
	"benefit-gateway/internal/benefit/service"
	"benefit-gateway/internal/platform/middleware"
	"benefit-gateway/internal/transport/http/shared"
	dErrors "benefit-gateway/pkg/domain-errors"
)

// Service defines the console benefit operations the handler needs.
type Service interface {
	Search(ctx context.Context, userID, authToken string, query provider.SearchQuery) (*service.SearchResponse, error)
	GetByID(ctx context.Context, userID, authToken, documentID string) (*benefit.BenefitRecord, error)
}

type Handler struct {
	logger       *slog.Logger
	benefits     Service
	jwtValidator middleware.JWTValidator
}

func New(benefits Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		benefits:     benefits,
		jwtValidator: jwtValidator,
	}
}

// Register attaches the console routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/benefits/search", h.handleSearch)
		r.Get("/benefits/getById/{docid}", h.handleGetByID)
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var query provider.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	resp, err := h.benefits.Search(ctx, userID, middleware.GetAuthToken(ctx), query)
	if err != nil {
		h.logger.ErrorContext(ctx, "console benefit search failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	docID := chi.URLParam(r, "docid")
	b, err := h.benefits.GetByID(ctx, userID, middleware.GetAuthToken(ctx), docID)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeNotFound) && !dErrors.Is(err, dErrors.CodeForbidden) {
			h.logger.ErrorContext(ctx, "console benefit lookup failed",
				"request_id", middleware.GetRequestID(ctx),
				"benefit_id", docID,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, b)
}
