package models

import (
	"time"

	"github.com/shopspring/decimal"

	credentialmodels "sessionsale/internal/credential/models"
	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
)

// SaleRecord is one attempt to sell a credential.
//
// Invariants:
//   - Snapshot, SellerID, SalePrice and InitiatedAt never change after creation
//   - Status only moves along SaleStatus.CanTransitionTo
//   - REJECTED and COMPLETED records are never written again
//   - at most one PENDING or APPROVED record exists per credential; the
//     ledger enforces this atomically on create
type SaleRecord struct {
	ID             id.SaleID       `json:"id"`
	CredentialID   id.CredentialID `json:"credential_id"`
	SellerID       id.ActorID      `json:"seller_id"`
	SellerUsername string          `json:"seller_username,omitempty"`
	Snapshot       Snapshot        `json:"snapshot"`
	Buyer          *Buyer          `json:"buyer,omitempty"`
	Status         SaleStatus      `json:"status"`
	Review         *Review         `json:"review,omitempty"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	InitiatedAt    time.Time       `json:"initiated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Snapshot is the credential as it looked when the sale was initiated.
type Snapshot struct {
	PhoneNumber  string `json:"phone_number"`
	DisplayName  string `json:"display_name,omitempty"`
	Username     string `json:"username,omitempty"`
	WasFrozen    bool   `json:"was_frozen"`
	FreezeReason string `json:"freeze_reason,omitempty"`
}

// Buyer identifies the party the session is handed to.
type Buyer struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Review is the admin decision on a pending sale.
type Review struct {
	ReviewerID      id.ActorID `json:"reviewer_id"`
	Notes           string     `json:"notes,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ReviewedAt      time.Time  `json:"reviewed_at"`
}

// Seller identifies who offered the credential.
type Seller struct {
	ID       id.ActorID
	Username string
}

// NewSnapshot captures the credential fields a sale record keeps forever.
func NewSnapshot(c *credentialmodels.Credential, now time.Time) Snapshot {
	return Snapshot{
		PhoneNumber:  c.PhoneNumber,
		DisplayName:  c.DisplayName,
		Username:     c.Username,
		WasFrozen:    c.IsFrozenAt(now),
		FreezeReason: c.FreezeReason(),
	}
}

// NewSaleRecord creates a PENDING record.
func NewSaleRecord(saleID id.SaleID, credentialID id.CredentialID, seller Seller, snapshot Snapshot, price decimal.Decimal, now time.Time) (*SaleRecord, error) {
	if seller.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "seller id cannot be empty")
	}
	if !price.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sale price must be positive")
	}
	if price.Exponent() < -2 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sale price has more than two decimal places")
	}
	if snapshot.PhoneNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "snapshot phone number cannot be empty")
	}
	return &SaleRecord{
		ID:             saleID,
		CredentialID:   credentialID,
		SellerID:       seller.ID,
		SellerUsername: seller.Username,
		Snapshot:       snapshot,
		Status:         SaleStatusPending,
		SalePrice:      price,
		InitiatedAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *SaleRecord) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// CanReview checks that the record is awaiting review.
func (r *SaleRecord) CanReview(decision Decision) error {
	if !decision.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "decision must be approve or reject")
	}
	if !r.Status.CanTransitionTo(decision.Status()) {
		return dErrors.New(dErrors.CodeInvalidTransition, "sale is not pending review")
	}
	return nil
}

// ApplyReview records the decision. Approval also fixes the buyer so a
// retried retirement hands the session to the same party.
// Must only be called after CanReview returns nil.
func (r *SaleRecord) ApplyReview(decision Decision, review Review, buyer *Buyer) {
	r.Status = decision.Status()
	rv := review
	r.Review = &rv
	if decision == DecisionApprove && buyer != nil {
		b := *buyer
		r.Buyer = &b
	}
	r.UpdatedAt = review.ReviewedAt
}

// CanComplete checks that the record is approved and waiting for completion.
func (r *SaleRecord) CanComplete() error {
	if !r.Status.CanTransitionTo(SaleStatusCompleted) {
		return dErrors.New(dErrors.CodeInvalidTransition, "sale is not approved")
	}
	return nil
}

// ApplyCompletion marks the sale COMPLETED.
// Must only be called after CanComplete returns nil.
func (r *SaleRecord) ApplyCompletion(buyer *Buyer, at time.Time) {
	r.Status = SaleStatusCompleted
	if buyer != nil {
		b := *buyer
		r.Buyer = &b
	}
	completedAt := at
	r.CompletedAt = &completedAt
	r.UpdatedAt = at
}

func (r *SaleRecord) Clone() *SaleRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Buyer != nil {
		b := *r.Buyer
		out.Buyer = &b
	}
	if r.Review != nil {
		rv := *r.Review
		out.Review = &rv
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
