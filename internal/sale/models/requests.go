package models

import (
	"strings"

	"github.com/shopspring/decimal"

	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
)

// InitiateSaleRequest is the caller payload for starting a sale.
type InitiateSaleRequest struct {
	CredentialID   string `json:"credential_id"`
	SellerID       string `json:"seller_id"`
	SellerUsername string `json:"seller_username"`
	Price          string `json:"price"`
}

func (r *InitiateSaleRequest) Normalize() {
	r.CredentialID = strings.TrimSpace(r.CredentialID)
	r.SellerID = strings.TrimSpace(r.SellerID)
	r.SellerUsername = strings.TrimPrefix(strings.TrimSpace(r.SellerUsername), "@")
	r.Price = strings.TrimSpace(r.Price)
}

// Parse validates the request and returns typed values.
func (r *InitiateSaleRequest) Parse() (id.CredentialID, Seller, decimal.Decimal, error) {
	credentialID, err := id.ParseCredentialID(r.CredentialID)
	if err != nil {
		return id.CredentialID{}, Seller{}, decimal.Decimal{}, dErrors.New(dErrors.CodeValidation, "invalid credential_id")
	}
	sellerID, err := id.ParseActorID(r.SellerID)
	if err != nil {
		return id.CredentialID{}, Seller{}, decimal.Decimal{}, dErrors.New(dErrors.CodeValidation, "invalid seller_id")
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return id.CredentialID{}, Seller{}, decimal.Decimal{}, dErrors.New(dErrors.CodeValidation, "price must be a decimal amount")
	}
	return credentialID, Seller{ID: sellerID, Username: r.SellerUsername}, price, nil
}

// ReviewRequest is the admin payload for reviewing a pending sale.
type ReviewRequest struct {
	Decision        Decision `json:"decision"`
	Notes           string   `json:"notes"`
	RejectionReason string   `json:"rejection_reason"`
	Buyer           *Buyer   `json:"buyer"`
}

func (r *ReviewRequest) Normalize() {
	r.Decision = Decision(strings.ToLower(strings.TrimSpace(string(r.Decision))))
	r.Notes = strings.TrimSpace(r.Notes)
	r.RejectionReason = strings.TrimSpace(r.RejectionReason)
	if r.Buyer != nil {
		r.Buyer.ID = strings.TrimSpace(r.Buyer.ID)
		r.Buyer.Username = strings.TrimPrefix(strings.TrimSpace(r.Buyer.Username), "@")
	}
}

func (r *ReviewRequest) Validate() error {
	if !r.Decision.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "decision must be approve or reject")
	}
	if r.Decision == DecisionApprove && (r.Buyer == nil || r.Buyer.ID == "") {
		return dErrors.New(dErrors.CodeValidation, "approval requires a buyer")
	}
	if r.Decision == DecisionReject && r.RejectionReason == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection requires a reason")
	}
	if len(r.Notes) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "notes must be 1024 characters or less")
	}
	return nil
}
