package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summary() SaleSummary {
	return SaleSummary{
		SaleID:         "sale-1",
		PhoneNumber:    "+15550100",
		DisplayName:    "Alice",
		Username:       "alice",
		WasFrozen:      true,
		FreezeReason:   "dispute",
		SellerID:       "seller-1",
		SellerUsername: "sam",
		BuyerID:        "buyer-9",
		Price:          decimal.RequireFromString("35"),
		ApprovedBy:     "admin-7",
		ApprovedAt:     time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFormatSummary(t *testing.T) {
	text := FormatSummary(summary())
	assert.Contains(t, text, "Account: +15550100 (Alice) @alice")
	assert.Contains(t, text, "Frozen at initiation: dispute")
	assert.Contains(t, text, "Seller: seller-1 (@sam)")
	assert.Contains(t, text, "Buyer: buyer-9\n")
	assert.Contains(t, text, "Price: 35.00")
	assert.Contains(t, text, "Time: 2026-07-01T10:00:00Z")
}

func TestFormatCaption(t *testing.T) {
	caption := FormatCaption(summary())
	assert.Equal(t, "Archive sale-1 | +15550100 | buyer buyer-9 | 35.00 | 2026-07-01T10:00:00Z", caption)

	long := summary()
	long.BuyerUsername = strings.Repeat("x", 2000)
	assert.Len(t, FormatCaption(long), captionLimit)
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder()
	msgID, err := r.PostMessage(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, MessageID(1), msgID)

	data := []byte("bytes")
	require.NoError(t, r.PostDocument(ctx, "a.session", data, "cap"))
	data[0] = 'X'
	assert.Equal(t, "bytes", string(r.Documents()[0].Data), "recorder keeps its own copy")
	assert.Equal(t, []string{"hello"}, r.Messages())
}
