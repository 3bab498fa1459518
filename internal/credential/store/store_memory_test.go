package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"sessionsale/internal/credential/models"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
)

type InMemoryCredentialStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func TestInMemoryCredentialStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryCredentialStoreSuite))
}

func (s *InMemoryCredentialStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryCredentialStoreSuite) create(phone string) *models.Credential {
	c, err := models.NewCredential(id.NewCredentialID(), phone, "", "", "secret-"+phone, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), c))
	return c
}

func (s *InMemoryCredentialStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	c := s.create("+1")

	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.PhoneNumber, got.PhoneNumber)

	s.Run("returned copies do not alias the store", func() {
		*got.SessionMaterial = "mutated"
		again, err := s.store.FindByID(ctx, c.ID)
		s.Require().NoError(err)
		s.Equal("secret-+1", *again.SessionMaterial)
	})

	s.Run("duplicate phone conflicts", func() {
		dup, err := models.NewCredential(id.NewCredentialID(), "+1", "", "", "x", s.now)
		s.Require().NoError(err)
		s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrConflict)
	})

	s.Run("missing id", func() {
		_, err := s.store.FindByID(ctx, id.NewCredentialID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryCredentialStoreSuite) TestExecuteDoesNotWriteOnValidationFailure() {
	ctx := context.Background()
	c := s.create("+2")
	_, err := s.store.Execute(ctx, c.ID,
		func(c *models.Credential) error { return c.CanThaw() },
		func(c *models.Credential) { c.ApplyThaw(s.now) },
	)
	s.Error(err)

	_, err = s.store.Execute(ctx, c.ID,
		func(c *models.Credential) error {
			c.DisplayName = "leaked"
			return sentinel.ErrInvalidState
		},
		func(*models.Credential) {},
	)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("", got.DisplayName)
	s.Equal(models.CredentialStatusActive, got.Status)
}

func (s *InMemoryCredentialStoreSuite) TestMarkSoldIfSellable() {
	ctx := context.Background()
	price := decimal.RequireFromString("35.00")

	s.Run("active credential is retired atomically", func() {
		c := s.create("+3")
		sold, err := s.store.MarkSoldIfSellable(ctx, c.ID, price, s.now)
		s.Require().NoError(err)
		s.Equal(models.CredentialStatusSold, sold.Status)
		s.Nil(sold.SessionMaterial)

		_, err = s.store.MarkSoldIfSellable(ctx, c.ID, price, s.now)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)

		list, err := s.store.ListSold(ctx)
		s.Require().NoError(err)
		s.Len(list, 1)
	})

	s.Run("frozen credential is refused", func() {
		c := s.create("+4")
		_, err := s.store.Execute(ctx, c.ID,
			func(c *models.Credential) error { return c.CanFreeze() },
			func(c *models.Credential) { c.ApplyFreeze("r", "admin", 0, s.now) },
		)
		s.Require().NoError(err)
		_, err = s.store.MarkSoldIfSellable(ctx, c.ID, price, s.now)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("expired freeze can be retired", func() {
		c := s.create("+5")
		_, err := s.store.Execute(ctx, c.ID,
			func(c *models.Credential) error { return c.CanFreeze() },
			func(c *models.Credential) { c.ApplyFreeze("r", "admin", 1, s.now) },
		)
		s.Require().NoError(err)
		sold, err := s.store.MarkSoldIfSellable(ctx, c.ID, price, s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.Nil(sold.Freeze)
	})

	s.Run("not found", func() {
		_, err := s.store.MarkSoldIfSellable(ctx, id.NewCredentialID(), price, s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryCredentialStoreSuite) TestConcurrentMarkSoldRetiresOnce() {
	ctx := context.Background()
	c := s.create("+6")
	price := decimal.RequireFromString("10")

	var wg sync.WaitGroup
	var wins atomic.Int32
	var seenInconsistent atomic.Bool
	for range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.store.MarkSoldIfSellable(ctx, c.ID, price, s.now); err == nil {
				wins.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			got, err := s.store.FindByID(ctx, c.ID)
			if err == nil && got.IsSold() && got.SessionMaterial != nil {
				seenInconsistent.Store(true)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
	s.False(seenInconsistent.Load(), "no reader may see SOLD with material present")
}
