package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"sessionsale/internal/sale/models"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
)

type InMemoryLedgerSuite struct {
	suite.Suite
	store *InMemoryStore
	cred  id.CredentialID
	now   time.Time
}

func TestInMemoryLedgerSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLedgerSuite))
}

func (s *InMemoryLedgerSuite) SetupTest() {
	s.store = NewInMemory()
	s.cred = id.NewCredentialID()
	s.now = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
}

func (s *InMemoryLedgerSuite) record() *models.SaleRecord {
	r, err := models.NewSaleRecord(id.NewSaleID(), s.cred, models.Seller{ID: "seller"},
		models.Snapshot{PhoneNumber: "+1"}, decimal.RequireFromString("35.00"), s.now)
	s.Require().NoError(err)
	return r
}

func (s *InMemoryLedgerSuite) review(saleID id.SaleID, d models.Decision) *models.SaleRecord {
	r, err := s.store.RecordReview(context.Background(), saleID, d,
		models.Review{ReviewerID: "admin", ReviewedAt: s.now}, &models.Buyer{ID: "buyer"})
	s.Require().NoError(err)
	return r
}

func (s *InMemoryLedgerSuite) TestOneActiveSalePerCredential() {
	ctx := context.Background()
	first := s.record()
	s.Require().NoError(s.store.CreateIfNoActive(ctx, first))

	s.Run("pending blocks", func() {
		s.ErrorIs(s.store.CreateIfNoActive(ctx, s.record()), sentinel.ErrConflict)
	})

	s.review(first.ID, models.DecisionApprove)
	s.Run("approved blocks", func() {
		s.ErrorIs(s.store.CreateIfNoActive(ctx, s.record()), sentinel.ErrConflict)
	})

	_, err := s.store.RecordCompletion(ctx, first.ID, nil, s.now)
	s.Require().NoError(err)
	s.Run("terminal does not block", func() {
		s.NoError(s.store.CreateIfNoActive(ctx, s.record()))
	})
}

func (s *InMemoryLedgerSuite) TestConcurrentCreateAdmitsOne() {
	ctx := context.Background()
	var wg sync.WaitGroup
	var created, conflicts atomic.Int32
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateIfNoActive(ctx, s.record())
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), created.Load())
	s.Equal(int32(31), conflicts.Load())
}

func (s *InMemoryLedgerSuite) TestReviewTransitions() {
	ctx := context.Background()
	r := s.record()
	s.Require().NoError(s.store.CreateIfNoActive(ctx, r))

	rejected := s.review(r.ID, models.DecisionReject)
	s.Equal(models.SaleStatusRejected, rejected.Status)
	s.Nil(rejected.Buyer)

	s.Run("terminal records are never rewritten", func() {
		_, err := s.store.RecordReview(ctx, r.ID, models.DecisionApprove, models.Review{ReviewedAt: s.now}, nil)
		s.ErrorIs(err, sentinel.ErrInvalidState)
		_, err = s.store.RecordCompletion(ctx, r.ID, nil, s.now)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		got, err := s.store.FindByID(ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.SaleStatusRejected, got.Status)
		s.True(got.SalePrice.Equal(r.SalePrice))
		s.Equal(r.Snapshot, got.Snapshot)
	})

	s.Run("pending cannot complete", func() {
		p := s.record()
		s.Require().NoError(s.store.CreateIfNoActive(ctx, p))
		_, err := s.store.RecordCompletion(ctx, p.ID, nil, s.now)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("unknown sale", func() {
		_, err := s.store.RecordReview(ctx, id.NewSaleID(), models.DecisionApprove, models.Review{}, nil)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryLedgerSuite) TestQueries() {
	ctx := context.Background()
	_, err := s.store.LatestByCredential(ctx, s.cred)
	s.ErrorIs(err, sentinel.ErrNotFound)

	first := s.record()
	s.Require().NoError(s.store.CreateIfNoActive(ctx, first))
	s.review(first.ID, models.DecisionReject)

	second := s.record()
	s.Require().NoError(s.store.CreateIfNoActive(ctx, second))
	s.review(second.ID, models.DecisionApprove)

	latest, err := s.store.LatestByCredential(ctx, s.cred)
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)

	list, err := s.store.ListByCredential(ctx, s.cred)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second.ID, list[0].ID)

	stale, err := s.store.ListApprovedBefore(ctx, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal(second.ID, stale[0].ID)

	fresh, err := s.store.ListApprovedBefore(ctx, s.now)
	s.Require().NoError(err)
	s.Empty(fresh)
}
