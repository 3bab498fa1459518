package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	artifactservice "sessionsale/internal/artifact/service"
	"sessionsale/internal/artifact/storage"
	artifactstore "sessionsale/internal/artifact/store"
	credentialmodels "sessionsale/internal/credential/models"
	credentialservice "sessionsale/internal/credential/service"
	credentialstore "sessionsale/internal/credential/store"
	"sessionsale/internal/notify"
	"sessionsale/internal/platform/config"
	"sessionsale/internal/platform/lock"
	salemetrics "sessionsale/internal/sale/metrics"
	"sessionsale/internal/sale/models"
	"sessionsale/internal/sale/retirement"
	saleservice "sessionsale/internal/sale/service"
	salestore "sessionsale/internal/sale/store"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/audit"
	"sessionsale/pkg/platform/audit/publisher"
	"sessionsale/pkg/platform/audit/store/memory"
	"sessionsale/pkg/requestcontext"
)

// switchableLedger fails RecordCompletion while broken is set.
type switchableLedger struct {
	*salestore.InMemoryStore
	mu     sync.Mutex
	broken bool
}

func (l *switchableLedger) RecordCompletion(ctx context.Context, saleID id.SaleID, buyer *models.Buyer, at time.Time) (*models.SaleRecord, error) {
	l.mu.Lock()
	broken := l.broken
	l.mu.Unlock()
	if broken {
		return nil, errors.New("ledger unavailable")
	}
	return l.InMemoryStore.RecordCompletion(ctx, saleID, buyer, at)
}

func (l *switchableLedger) set(broken bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broken = broken
}

// rejectingChannel refuses every archive upload.
type rejectingChannel struct {
	*notify.Recorder
}

func (rejectingChannel) PostDocument(context.Context, string, []byte, string) error {
	return notify.ErrRejected
}

type ReconcileSuite struct {
	suite.Suite
	ledger      *switchableLedger
	credentials *credentialservice.Service
	sales       *saleservice.Service
	stuckSales  *saleservice.Service
	auditLog    *memory.InMemoryStore
	metrics     *salemetrics.Metrics
	reconciler  *Reconciler
	now         time.Time
	ctx         context.Context
}

func TestReconcileSuite(t *testing.T) {
	suite.Run(t, new(ReconcileSuite))
}

func (s *ReconcileSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	locker := lock.NewLocal()
	s.auditLog = memory.NewInMemoryStore()
	emitter := publisher.NewPublisher(s.auditLog)
	artifacts := artifactservice.New(artifactstore.NewInMemory(), storage.NewFS(s.T().TempDir()))
	s.credentials = credentialservice.New(credentialstore.NewInMemory(),
		credentialservice.WithLocker(locker),
		credentialservice.WithArtifactRegistrar(artifacts),
	)
	s.ledger = &switchableLedger{InMemoryStore: salestore.NewInMemory()}
	s.metrics = salemetrics.NewWithRegisterer(prometheus.NewRegistry())

	retireCfg := config.RetirementConfig{NotifyAttempts: 1, ArchiveAttempts: 1, DeleteAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	protocol := retirement.New(s.credentials, artifacts, s.ledger, notify.NewRecorder(), retireCfg)
	s.sales = saleservice.New(s.ledger, s.credentials, protocol, saleservice.WithLocker(locker))

	stuck := retirement.New(s.credentials, artifacts, s.ledger, rejectingChannel{notify.NewRecorder()}, retireCfg)
	s.stuckSales = saleservice.New(s.ledger, s.credentials, stuck, saleservice.WithLocker(locker))

	s.reconciler = New(s.credentials, s.ledger, s.sales, config.ReconciliationConfig{
		Interval:          time.Minute,
		ApprovedThreshold: 15 * time.Minute,
		AutoRepair:        true,
	},
		WithAuditPublisher(emitter),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now.Add(time.Hour) }),
	)
}

func (s *ReconcileSuite) onboard(phone string) *credentialmodels.Credential {
	c, err := s.credentials.Onboard(s.ctx, &credentialmodels.OnboardRequest{PhoneNumber: phone, SessionMaterial: "m-" + phone})
	s.Require().NoError(err)
	return c
}

func (s *ReconcileSuite) approve(svc *saleservice.Service, c *credentialmodels.Credential) (*models.SaleRecord, error) {
	record, err := svc.InitiateSale(s.ctx, c.ID, models.Seller{ID: "seller"}, decimal.RequireFromString("35.00"))
	s.Require().NoError(err)
	return svc.Review(s.ctx, record.ID, "admin", &models.ReviewRequest{
		Decision: models.DecisionApprove,
		Buyer:    &models.Buyer{ID: "buyer"},
	})
}

func (s *ReconcileSuite) TestCleanLedgerHasNoFindings() {
	c := s.onboard("+1001")
	_, err := s.approve(s.sales, c)
	s.Require().NoError(err)

	findings, err := s.reconciler.Scan(s.ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Empty(findings)
}

func (s *ReconcileSuite) TestSoldWithoutCompletionIsDetectedAndRepaired() {
	c := s.onboard("+1002")
	s.ledger.set(true)
	approved, err := s.approve(s.sales, c)
	s.Require().Error(err)
	s.ledger.set(false)

	findings, err := s.reconciler.Scan(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(findings, 1)
	s.Equal(KindSoldNotCompleted, findings[0].Kind)
	s.Equal(approved.ID, *findings[0].SaleID)
	s.True(findings[0].Repairable())

	report, err := s.reconciler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal([]id.SaleID{approved.ID}, report.Repaired)
	s.Empty(report.Failed)

	record, err := s.ledger.FindByID(s.ctx, approved.ID)
	s.Require().NoError(err)
	s.Equal(models.SaleStatusCompleted, record.Status)

	events, err := s.auditLog.ListByCredential(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventReconciliationInconsistency), events[0].Action)
	s.Equal(audit.SeverityCritical, events[0].Severity)
	s.InDelta(1, testutil.ToFloat64(s.metrics.Inconsistencies.WithLabelValues(string(KindSoldNotCompleted))), 0)

	findings, err = s.reconciler.Scan(s.ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Empty(findings, "repair resolves the inconsistency")
}

func (s *ReconcileSuite) TestStaleApprovedIsFlaggedNotRepaired() {
	c := s.onboard("+1003")
	approved, err := s.approve(s.stuckSales, c)
	s.Require().Error(err)

	s.Run("within threshold", func() {
		findings, err := s.reconciler.Scan(s.ctx, s.now.Add(5*time.Minute))
		s.Require().NoError(err)
		s.Empty(findings)
	})

	s.Run("past threshold", func() {
		report, err := s.reconciler.RunOnce(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(report.Findings, 1)
		f := report.Findings[0]
		s.Equal(KindStaleApproved, f.Kind)
		s.Equal(approved.ID, *f.SaleID)
		s.False(f.Repairable())
		s.Empty(report.Repaired)
	})
}

func (s *ReconcileSuite) TestSoldWithoutAnySaleRecord() {
	c := s.onboard("+1004")
	_, err := s.credentials.MarkSold(s.ctx, c.ID, decimal.RequireFromString("1.00"), s.now)
	s.Require().NoError(err)

	findings, err := s.reconciler.Scan(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(findings, 1)
	s.Equal(KindSoldNotCompleted, findings[0].Kind)
	s.Nil(findings[0].SaleID)
	s.False(findings[0].Repairable())
}

func (s *ReconcileSuite) TestOverlappingFindingsAreReportedOnce() {
	c := s.onboard("+1005")
	s.ledger.set(true)
	_, err := s.approve(s.sales, c)
	s.Require().Error(err)

	findings, err := s.reconciler.Scan(s.ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().Len(findings, 1)
	s.Equal(KindSoldNotCompleted, findings[0].Kind)
}

func (s *ReconcileSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.reconciler.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("Run did not stop")
	}
}
