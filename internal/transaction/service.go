// Package transaction implements the network-facing benefit lifecycle:
// search, select, init, update, confirm and status. Each operation takes
// an inbound protocol request and produces the matching on_* envelope.
package transaction

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"benefit-gateway/internal/application"
	"benefit-gateway/internal/benefit/formschema"
	benefit "benefit-gateway/internal/benefit/models"
	"benefit-gateway/internal/platform/metrics"
	"benefit-gateway/internal/protocol"
	"benefit-gateway/internal/protocol/transform"
	"benefit-gateway/pkg/audit"
	dErrors "benefit-gateway/pkg/domain-errors"
)

// BenefitSource provides catalog content for protocol responses.
type BenefitSource interface {
	List(ctx context.Context) ([]benefit.BenefitRecord, error)
	GetByID(ctx context.Context, documentID, authToken string) (*benefit.BenefitRecord, error)
}

// AttachmentWriter persists document attachments split out of payloads.
type AttachmentWriter interface {
	WriteAll(ctx context.Context, applicationID string, attachments []application.PayloadValue) ([]application.File, error)
}

// Service executes protocol actions.
type Service struct {
	domain        string
	orderIDPrefix string

	benefits    BenefitSource
	apps        application.Store
	attachments AttachmentWriter
	transformer *transform.Transformer

	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	publisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithAttachmentWriter(w AttachmentWriter) Option {
	return func(s *Service) { s.attachments = w }
}

func New(domain, orderIDPrefix string, benefits BenefitSource, apps application.Store, transformer *transform.Transformer, opts ...Option) *Service {
	s := &Service{
		domain:        domain,
		orderIDPrefix: orderIDPrefix,
		benefits:      benefits,
		apps:          apps,
		transformer:   transformer,
		logger:        slog.Default(),
		tracer:        otel.Tracer("transaction"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search answers a network-wide discovery request with the full
// published catalog, detail tags included.
func (s *Service) Search(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error) {
	return s.observed(ctx, "search", func(ctx context.Context) (*protocol.Envelope, error) {
		if req.Context.Domain != s.domain {
			return nil, dErrors.New(dErrors.CodeBadRequest, "Invalid domain provided")
		}
		if err := checkBap(req); err != nil {
			return nil, err
		}

		benefits, err := s.benefits.List(ctx)
		if err != nil {
			return nil, err
		}
		return s.transformer.ToCatalog(ctx, req.Context, benefits, "on_search", true)
	})
}

// Select returns the full detail of one benefit picked from a search
// result.
func (s *Service) Select(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error) {
	return s.observed(ctx, "select", func(ctx context.Context) (*protocol.Envelope, error) {
		if err := checkBap(req); err != nil {
			return nil, err
		}
		itemID := req.FirstItemID()
		if itemID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "message.order.items[0].id is required")
		}

		b, err := s.benefits.GetByID(ctx, itemID, "")
		if err != nil {
			return nil, err
		}
		return s.transformer.ToCatalog(ctx, req.Context, []benefit.BenefitRecord{*b}, "on_select", true)
	})
}

// Init creates the application from the payload carried under the
// order's fulfillment customer and answers with the stored application
// id on the first item.
func (s *Service) Init(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error) {
	return s.observed(ctx, "init", func(ctx context.Context) (*protocol.Envelope, error) {
		if err := checkBap(req); err != nil {
			return nil, err
		}
		payload := req.ApplicationData()
		if len(payload) == 0 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "ApplicationData is required in payload")
		}
		transactionID := req.Context.TransactionID
		if transactionID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "transaction_id is required in context")
		}
		benefitID := req.FirstItemID()
		if benefitID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "message.order.items[0].id is required")
		}

		b, err := s.benefits.GetByID(ctx, benefitID, "")
		if err != nil {
			if dErrors.Is(err, dErrors.CodeNotFound) {
				return nil, dErrors.Newf(dErrors.CodeBadRequest, "Benefit %s not found", benefitID)
			}
			return nil, err
		}

		structured, docs := application.ClassifyPayload(payload)
		if err := formschema.Validate(b.ApplicationForm, structured); err != nil {
			return nil, err
		}

		data := mergeContext(structured, benefitID, transactionID, req.Context.BapID)
		now := time.Now().UTC()
		app := &application.Application{
			ID:                uuid.NewString(),
			BenefitID:         benefitID,
			CustomerID:        uuid.NewString(),
			BapID:             req.Context.BapID,
			TransactionID:     transactionID,
			Status:            application.StatusPending,
			ApplicationData:   data,
			EligibilityStatus: application.EligibilityUnknown,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.apps.Create(ctx, app); err != nil {
			return nil, err
		}
		if s.attachments != nil {
			if _, err := s.attachments.WriteAll(ctx, app.ID, docs); err != nil {
				return nil, err
			}
		}
		if s.metrics != nil {
			s.metrics.ApplicationsSaved.Inc()
		}
		audit.LogAudit(ctx, s.logger, s.publisher, audit.Event{
			Action:        audit.EventApplicationCreated,
			ApplicationID: app.ID,
			BenefitID:     benefitID,
			TransactionID: transactionID,
			BapID:         req.Context.BapID,
		})

		return s.orderEnvelope(ctx, req, b, "on_init", app.ID, transactionID)
	})
}

// Update replaces an existing application's payload. The application is
// addressed by the orderId field inside the payload itself, which is how
// callers echo back the id init returned.
func (s *Service) Update(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error) {
	return s.observed(ctx, "update", func(ctx context.Context) (*protocol.Envelope, error) {
		if err := checkBap(req); err != nil {
			return nil, err
		}
		transactionID := req.Context.TransactionID
		if transactionID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "transaction_id is required in context")
		}
		payload := req.ApplicationData()
		if len(payload) == 0 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "applicationData is required for update")
		}
		applicationID, _ := payload["orderId"].(string)
		if applicationID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "orderId (applicationId) is required for update")
		}
		benefitID := req.FirstItemID()
		if benefitID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "message.order.items[0].id is required")
		}

		b, err := s.benefits.GetByID(ctx, benefitID, "")
		if err != nil {
			if dErrors.Is(err, dErrors.CodeNotFound) {
				return nil, dErrors.Newf(dErrors.CodeBadRequest, "Benefit %s not found", benefitID)
			}
			return nil, err
		}

		structured, docs := application.ClassifyPayload(payload)
		data := mergeContext(structured, benefitID, transactionID, req.Context.BapID)
		if _, err := s.apps.Update(ctx, applicationID, application.Patch{ApplicationData: data}); err != nil {
			return nil, err
		}
		if s.attachments != nil {
			if _, err := s.attachments.WriteAll(ctx, applicationID, docs); err != nil {
				return nil, err
			}
		}
		audit.LogAudit(ctx, s.logger, s.publisher, audit.Event{
			Action:        audit.EventApplicationUpdated,
			ApplicationID: applicationID,
			BenefitID:     benefitID,
			TransactionID: transactionID,
			BapID:         req.Context.BapID,
		})

		return s.orderEnvelope(ctx, req, b, "on_update", applicationID, transactionID)
	})
}

// Confirm assigns the order id. Confirming twice keeps the first id, so
// the operation is safe to retry.
func (s *Service) Confirm(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error) {
	return s.observed(ctx, "confirm", func(ctx context.Context) (*protocol.Envelope, error) {
		if err := checkBap(req); err != nil {
			return nil, err
		}
		applicationID := req.FirstItemID()
		if applicationID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "message.order.items[0].id is required")
		}

		app, err := s.apps.FindByID(ctx, applicationID)
		if err != nil {
			if dErrors.Is(err, dErrors.CodeNotFound) {
				return nil, dErrors.New(dErrors.CodeBadRequest, "Application not found")
			}
			return nil, err
		}
		b, err := s.benefits.GetByID(ctx, app.BenefitID, "")
		if err != nil {
			return nil, err
		}

		orderID := app.OrderID
		if orderID == "" {
			orderID = s.newOrderID()
			if _, err := s.apps.Update(ctx, app.ID, application.Patch{OrderID: &orderID}); err != nil {
				return nil, err
			}
		}
		audit.LogAudit(ctx, s.logger, s.publisher, audit.Event{
			Action:        audit.EventOrderConfirmed,
			ApplicationID: app.ID,
			BenefitID:     app.BenefitID,
			TransactionID: req.Context.TransactionID,
			BapID:         req.Context.BapID,
			OrderID:       orderID,
		})

		env, err := s.transformer.ToCatalog(ctx, req.Context, []benefit.BenefitRecord{*b}, "on_confirm", false)
		if err != nil {
			return nil, err
		}
		provider := env.Message.Catalog.Providers[0]
		env.Message = protocol.Message{Order: &protocol.OutOrder{
			ID: orderID,
			Provider: &protocol.Provider{
				ID:         provider.ID,
				Descriptor: provider.Descriptor,
				Rateable:   provider.Rateable,
				Locations:  provider.Locations,
			},
			Items: provider.Items,
		}}
		return env, nil
	})
}

// Status reports the application state for an order, expressed as a
// fulfillment state descriptor.
func (s *Service) Status(ctx context.Context, req *protocol.Request) (*protocol.Envelope, error) {
	return s.observed(ctx, "status", func(ctx context.Context) (*protocol.Envelope, error) {
		if err := checkBap(req); err != nil {
			return nil, err
		}
		orderID := req.Message.OrderID
		if orderID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "message.order_id is required")
		}

		app, err := s.apps.Find(ctx, application.Filter{OrderID: orderID})
		if err != nil {
			if dErrors.Is(err, dErrors.CodeNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "No application found for the given order ID")
			}
			return nil, err
		}
		b, err := s.benefits.GetByID(ctx, app.BenefitID, "")
		if err != nil {
			return nil, err
		}

		env, err := s.transformer.ToCatalog(ctx, req.Context, []benefit.BenefitRecord{*b}, "on_status", false)
		if err != nil {
			return nil, err
		}
		provider := env.Message.Catalog.Providers[0]
		env.Message = protocol.Message{Order: &protocol.OutOrder{
			ID: orderID,
			Provider: &protocol.Provider{
				ID:         provider.ID,
				Descriptor: provider.Descriptor,
				Rateable:   provider.Rateable,
			},
			Items: provider.Items,
			Fulfillments: []protocol.Fulfillment{{
				ID:       transform.FulfillmentID,
				Type:     "APPLICATION",
				Tracking: false,
				State: &protocol.FulfillmentState{
					Descriptor: statusDescriptor(app.Status, app.Remark),
					UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
				},
			}},
		}}
		return env, nil
	})
}

// orderEnvelope shapes the init/update response: provider block without
// its nested items, items hoisted to the order with the application and
// transaction ids stamped on the first one.
func (s *Service) orderEnvelope(ctx context.Context, req *protocol.Request, b *benefit.BenefitRecord, action, applicationID, transactionID string) (*protocol.Envelope, error) {
	env, err := s.transformer.ToCatalog(ctx, req.Context, []benefit.BenefitRecord{*b}, action, false)
	if err != nil {
		return nil, err
	}
	provider := env.Message.Catalog.Providers[0]
	items := provider.Items
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "no items in transformed benefit data")
	}
	items[0].ApplicationID = applicationID
	items[0].TransactionID = transactionID

	env.Message = protocol.Message{Order: &protocol.OutOrder{
		Providers: []protocol.Provider{{
			ID:         provider.ID,
			Descriptor: provider.Descriptor,
			Rateable:   provider.Rateable,
			Locations:  provider.Locations,
			Categories: provider.Categories,
		}},
		Items: items,
	}}
	return env, nil
}

// statusDescriptor encodes an application status the way the network
// expects it: a machine code plus a JSON name carrying the display
// status and the reviewer's remark.
func statusDescriptor(status, remark string) protocol.Descriptor {
	upper := strings.ToUpper(status)
	display := "Application " + titleCase(status)
	name := fmt.Sprintf(`{"status":%q,"comment":%q}`, display, remark)
	return protocol.Descriptor{
		Code: "APPLICATION-" + upper,
		Name: name,
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func checkBap(req *protocol.Request) error {
	if req.Context.BapID == "" || req.Context.BapURI == "" {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid BAP ID or URI")
	}
	return nil
}

// mergeContext stamps correlation fields into the stored payload so an
// application row is self-describing without a join.
func mergeContext(payload map[string]any, benefitID, transactionID, bapID string) map[string]any {
	data := make(map[string]any, len(payload)+3)
	for k, v := range payload {
		data[k] = v
	}
	data["benefitId"] = benefitID
	data["transactionId"] = transactionID
	data["bapId"] = bapID
	return data
}

const orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (s *Service) newOrderID() string {
	suffix := make([]byte, 8)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(orderIDAlphabet))))
		if err != nil {
			suffix[i] = orderIDAlphabet[0]
			continue
		}
		suffix[i] = orderIDAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s_%s_%d", s.orderIDPrefix, suffix, time.Now().UnixMilli())
}

// observed wraps an operation with a span, latency metric and outcome
// counter.
func (s *Service) observed(ctx context.Context, action string, fn func(context.Context) (*protocol.Envelope, error)) (*protocol.Envelope, error) {
	ctx, span := s.tracer.Start(ctx, "transaction."+action,
		trace.WithAttributes(attribute.String("protocol.action", action)))
	defer span.End()

	start := time.Now()
	env, err := fn(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
	}
	s.metrics.ObserveAction(action, outcome, time.Since(start).Seconds())
	return env, err
}
