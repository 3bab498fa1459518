package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// captionLimit is the Bot API limit for document captions.
const captionLimit = 1024

// SaleSummary is everything the audit channel is told about one sale.
type SaleSummary struct {
	SaleID         string
	CredentialID   string
	PhoneNumber    string
	DisplayName    string
	Username       string
	WasFrozen      bool
	FreezeReason   string
	SellerID       string
	SellerUsername string
	BuyerID        string
	BuyerUsername  string
	Price          decimal.Decimal
	ApprovedBy     string
	ApprovedAt     time.Time
}

// FormatSummary renders the human-readable transaction summary.
func FormatSummary(s SaleSummary) string {
	var b strings.Builder
	b.WriteString("Session sold\n")
	fmt.Fprintf(&b, "Sale: %s\n", s.SaleID)
	fmt.Fprintf(&b, "Account: %s", s.PhoneNumber)
	if s.DisplayName != "" {
		fmt.Fprintf(&b, " (%s)", s.DisplayName)
	}
	if s.Username != "" {
		fmt.Fprintf(&b, " @%s", s.Username)
	}
	b.WriteString("\n")
	if s.WasFrozen {
		fmt.Fprintf(&b, "Frozen at initiation: %s\n", orDash(s.FreezeReason))
	}
	fmt.Fprintf(&b, "Seller: %s\n", party(s.SellerID, s.SellerUsername))
	fmt.Fprintf(&b, "Buyer: %s\n", party(s.BuyerID, s.BuyerUsername))
	fmt.Fprintf(&b, "Price: %s\n", s.Price.StringFixed(2))
	fmt.Fprintf(&b, "Approved by: %s\n", orDash(s.ApprovedBy))
	fmt.Fprintf(&b, "Time: %s", s.ApprovedAt.UTC().Format(time.RFC3339))
	return b.String()
}

// FormatCaption renders the archive caption: buyer, price, and timestamp.
func FormatCaption(s SaleSummary) string {
	caption := fmt.Sprintf("Archive %s | %s | buyer %s | %s | %s",
		s.SaleID,
		s.PhoneNumber,
		party(s.BuyerID, s.BuyerUsername),
		s.Price.StringFixed(2),
		s.ApprovedAt.UTC().Format(time.RFC3339),
	)
	if len(caption) > captionLimit {
		caption = caption[:captionLimit]
	}
	return caption
}

func party(partyID, username string) string {
	switch {
	case partyID == "" && username == "":
		return "-"
	case username == "":
		return partyID
	case partyID == "":
		return "@" + username
	}
	return fmt.Sprintf("%s (@%s)", partyID, username)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
