// Package handler exposes the network protocol endpoints. These routes
// are open: participant validation happens in the service layer via the
// context envelope, not via bearer tokens.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"benefit-gateway/internal/platform/middleware"
	"benefit-gateway/internal/protocol"
	"benefit-gateway/internal/transport/http/shared"
	dErrors "benefit-gateway/pkg/domain-errors"
)

// Service defines the protocol operations the handler dispatches to.
type Service interface {
	Search(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error)
	Select(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error)
	Init(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error)
	Update(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error)
	Confirm(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error)
	Status(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register attaches the protocol routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/benefits/dsep/search", h.action("search", h.service.Search))
		r.Post("/benefits/dsep/select", h.action("select", h.service.Select))
		r.Post("/benefits/dsep/init", h.action("init", h.service.Init))
		r.Post("/benefits/dsep/update", h.action("update", h.service.Update))
		r.Post("/benefits/dsep/confirm", h.action("confirm", h.service.Confirm))
		r.Post("/benefits/dsep/status", h.action("status", h.service.Status))
	})
}

type operation func(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error)

func (h *Handler) action(name string, op operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req protocol.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}

		env, err := op(ctx, &req)
		if err != nil {
			level := slog.LevelWarn
			if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			h.logger.Log(ctx, level, "protocol action failed",
				"action", name,
				"transaction_id", req.Context.TransactionID,
				"bap_id", req.Context.BapID,
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, env)
	}
}
