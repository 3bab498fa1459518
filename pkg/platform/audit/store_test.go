package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/audit"
	"sessionsale/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("broker down") }

func TestFanout(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewInMemoryStore()
	credID := id.NewCredentialID()
	fan := audit.Fanout{failingStore{}, mem}

	err := fan.Append(ctx, audit.Event{Action: string(audit.EventSaleInitiated), CredentialID: credID})
	assert.EqualError(t, err, "broker down")

	events, err := fan.ListByCredential(ctx, credID)
	require.NoError(t, err)
	require.Len(t, events, 1, "later stores still receive the event")

	_, err = audit.Fanout{failingStore{}}.ListByCredential(ctx, credID)
	assert.Error(t, err)
}

func TestCategory(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.EventSaleCompleted.Category())
	assert.Equal(t, audit.CategorySecurity, audit.EventRetirementFailed.Category())
	assert.Equal(t, audit.CategoryOperations, audit.AuditEvent("unknown").Category())
}
