package audit

import (
	"time"

	id "sessionsale/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// route them to different topics and retention policies.
type EventCategory string

const (
	// CategoryCompliance covers the sale trail itself: initiation, review,
	// completion. These are the records an operator reconstructs a sale from.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers credential state changes and every alertable
	// retirement or reconciliation failure.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category     EventCategory   `json:"category"`
	Timestamp    time.Time       `json:"timestamp"`
	Action       string          `json:"action"`
	CredentialID id.CredentialID `json:"credential_id"`
	SaleID       *id.SaleID      `json:"sale_id,omitempty"`
	// ActorID is the seller, admin, or system actor behind the action.
	ActorID   string   `json:"actor_id,omitempty"`
	Decision  string   `json:"decision,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Severity  Severity `json:"severity,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	// Credential events
	EventCredentialOnboarded AuditEvent = "credential_onboarded"
	EventCredentialFrozen    AuditEvent = "credential_frozen"
	EventCredentialThawed    AuditEvent = "credential_thawed"
	EventCredentialRetired   AuditEvent = "credential_retired"

	// Sale events
	EventSaleInitiated AuditEvent = "sale_initiated"
	EventSaleApproved  AuditEvent = "sale_approved"
	EventSaleRejected  AuditEvent = "sale_rejected"
	EventSaleCompleted AuditEvent = "sale_completed"

	// Alerts
	EventRetirementFailed            AuditEvent = "retirement_failed"
	EventArtifactCleanupFailed       AuditEvent = "artifact_cleanup_failed"
	EventReconciliationInconsistency AuditEvent = "reconciliation_inconsistency"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSaleInitiated: CategoryCompliance,
	EventSaleApproved:  CategoryCompliance,
	EventSaleRejected:  CategoryCompliance,
	EventSaleCompleted: CategoryCompliance,

	EventCredentialFrozen:            CategorySecurity,
	EventCredentialThawed:            CategorySecurity,
	EventCredentialRetired:           CategorySecurity,
	EventRetirementFailed:            CategorySecurity,
	EventReconciliationInconsistency: CategorySecurity,

	EventCredentialOnboarded:   CategoryOperations,
	EventArtifactCleanupFailed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
