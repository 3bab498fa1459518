package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sessionsale/pkg/domain"
	audit "sessionsale/pkg/platform/audit"
	"sessionsale/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	credentialID := id.NewCredentialID()
	err := pub.Emit(context.Background(), audit.Event{
		CredentialID: credentialID,
		Action:       string(audit.EventSaleInitiated),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), credentialID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventSaleInitiated), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_DerivesCategoryFromAction(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	credentialID := id.NewCredentialID()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		CredentialID: credentialID,
		Action:       string(audit.EventRetirementFailed),
		Category:     audit.CategoryOperations,
	}))

	events, err := pub.List(context.Background(), credentialID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	credentialID := id.NewCredentialID()
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			CredentialID: credentialID,
			Action:       string(audit.EventSaleApproved),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByCredential(context.Background(), credentialID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DoesNotPanic(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	credentialID := id.NewCredentialID()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				CredentialID: credentialID,
				Action:       string(audit.EventSaleInitiated),
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_Timestamps(t *testing.T) {
	t.Run("sets timestamp when missing", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)
		credentialID := id.NewCredentialID()

		before := time.Now()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			CredentialID: credentialID,
			Action:       string(audit.EventSaleInitiated),
		}))
		after := time.Now()

		events, err := pub.List(context.Background(), credentialID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.False(t, events[0].Timestamp.After(after))
	})

	t.Run("preserves existing timestamp", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)
		credentialID := id.NewCredentialID()
		custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			CredentialID: credentialID,
			Action:       string(audit.EventSaleInitiated),
			Timestamp:    custom,
		}))

		events, err := pub.List(context.Background(), credentialID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, custom, events[0].Timestamp)
	})
}
