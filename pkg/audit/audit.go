// Package audit captures key domain actions as events. Events stay
// transport-agnostic so sinks (log, Kafka) can fan out independently.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event is emitted from domain logic when something worth an audit
// trail happens to an application or order.
type Event struct {
	Timestamp     time.Time      `json:"timestamp"`
	Action        string         `json:"action"`
	ApplicationID string         `json:"application_id,omitempty"`
	BenefitID     string         `json:"benefit_id,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	BapID         string         `json:"bap_id,omitempty"`
	OrderID       string         `json:"order_id,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
}

const (
	EventApplicationCreated = "application_created"
	EventApplicationUpdated = "application_updated"
	EventOrderConfirmed     = "order_confirmed"
	EventEligibilityChecked = "eligibility_checked"
)

// Publisher emits audit events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// LogAudit logs an audit event and forwards it to the publisher when one
// is configured. Publish failures are logged, never propagated: an audit
// sink outage must not fail the request that produced the event.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher Publisher, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if logger != nil {
		logger.InfoContext(ctx, "audit",
			"action", event.Action,
			"application_id", event.ApplicationID,
			"benefit_id", event.BenefitID,
			"transaction_id", event.TransactionID,
			"order_id", event.OrderID,
		)
	}
	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "audit publish failed",
			"action", event.Action,
			"error", err,
		)
	}
}
