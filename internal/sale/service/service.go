// Package service is the sale state machine. It serializes every operation
// on a credential through the keyed lock shared with the credential service
// and hands approved sales to the retirement protocol.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	credentialmodels "sessionsale/internal/credential/models"
	"sessionsale/internal/platform/lock"
	salemetrics "sessionsale/internal/sale/metrics"
	"sessionsale/internal/sale/models"
	"sessionsale/internal/sale/retirement"
	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
	"sessionsale/pkg/platform/audit"
	"sessionsale/pkg/platform/sentinel"
	"sessionsale/pkg/platform/tx"
	"sessionsale/pkg/requestcontext"
)

// Store is the sale ledger.
type Store interface {
	CreateIfNoActive(ctx context.Context, r *models.SaleRecord) error
	FindByID(ctx context.Context, saleID id.SaleID) (*models.SaleRecord, error)
	RecordReview(ctx context.Context, saleID id.SaleID, decision models.Decision, review models.Review, buyer *models.Buyer) (*models.SaleRecord, error)
	ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*models.SaleRecord, error)
}

// Credentials reads credential state for eligibility checks.
type Credentials interface {
	Get(ctx context.Context, credentialID id.CredentialID) (*credentialmodels.Credential, error)
}

// Retirement runs the post-approval protocol.
type Retirement interface {
	Run(ctx context.Context, sale *models.SaleRecord) (*retirement.Result, error)
	Complete(ctx context.Context, sale *models.SaleRecord) (*models.SaleRecord, error)
}

// Service implements the sale lifecycle.
type Service struct {
	store       Store
	credentials Credentials
	retirement  Retirement
	locker      lock.Locker
	tx          tx.Runner
	audit       audit.Emitter
	metrics     *salemetrics.Metrics
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(emitter audit.Emitter) Option {
	return func(s *Service) {
		s.audit = emitter
	}
}

// WithLocker sets the per-credential lock. It must be the same instance the
// credential service uses so freezes and sales serialize against each other.
func WithLocker(locker lock.Locker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithMetrics(m *salemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, credentials Credentials, protocol Retirement, opts ...Option) *Service {
	s := &Service{
		store:       store,
		credentials: credentials,
		retirement:  protocol,
		locker:      lock.NewLocal(),
		tx:          tx.NopRunner{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateSale opens a PENDING sale for an eligible credential. The
// eligibility check and the insert run in one critical section; the
// credential itself is not modified.
func (s *Service) InitiateSale(ctx context.Context, credentialID id.CredentialID, seller models.Seller, price decimal.Decimal) (*models.SaleRecord, error) {
	if seller.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "seller id is required")
	}
	if !price.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "price must be positive")
	}
	if price.Exponent() < -2 {
		return nil, dErrors.New(dErrors.CodeValidation, "price has more than two decimal places")
	}

	var record *models.SaleRecord
	err := s.locker.WithLock(ctx, credentialID.String(), func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			now := requestcontext.Now(txCtx)
			cred, err := s.credentials.Get(txCtx, credentialID)
			if err != nil {
				return err
			}
			if err := cred.IsEligibleForSale(now); err != nil {
				return err
			}

			r, err := models.NewSaleRecord(id.NewSaleID(), credentialID, seller, models.NewSnapshot(cred, now), price, now)
			if err != nil {
				return err
			}
			if err := s.store.CreateIfNoActive(txCtx, r); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return dErrors.New(dErrors.CodeConflict, "credential already has an active sale")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sale")
			}
			record = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementInitiated()
	}
	s.emit(ctx, audit.EventSaleInitiated, record, seller.ID.String(), "")
	s.logger.InfoContext(ctx, "sale initiated",
		"sale_id", record.ID.String(),
		"credential_id", credentialID.String(),
		"seller_id", seller.ID.String(),
		"price", price.StringFixed(2),
	)
	return record, nil
}

// Review applies an admin decision to a PENDING sale. Rejection is terminal
// and leaves the credential untouched. Approval runs the retirement protocol
// before returning; when the protocol stops early the APPROVED record is
// returned together with a *retirement.PartialFailure.
func (s *Service) Review(ctx context.Context, saleID id.SaleID, adminID id.ActorID, req *models.ReviewRequest) (*models.SaleRecord, error) {
	if adminID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin id required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	var out *models.SaleRecord
	err = s.locker.WithLock(ctx, current.CredentialID.String(), func(ctx context.Context) error {
		// Reload under the lock; the record may have moved since.
		current, err := s.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if err := current.CanReview(req.Decision); err != nil {
			return err
		}

		review := models.Review{
			ReviewerID:      adminID,
			Notes:           req.Notes,
			RejectionReason: req.RejectionReason,
			ReviewedAt:      requestcontext.Now(ctx),
		}
		reviewed, err := s.store.RecordReview(ctx, saleID, req.Decision, review, req.Buyer)
		if err != nil {
			return s.wrapTransitionErr(err, "failed to record review")
		}
		out = reviewed

		if s.metrics != nil {
			s.metrics.IncrementReviewed(string(req.Decision))
		}
		if req.Decision == models.DecisionReject {
			s.emit(ctx, audit.EventSaleRejected, reviewed, adminID.String(), req.RejectionReason)
			s.logger.InfoContext(ctx, "sale rejected",
				"sale_id", saleID.String(),
				"credential_id", reviewed.CredentialID.String(),
				"admin_id", adminID.String(),
			)
			return nil
		}

		s.emit(ctx, audit.EventSaleApproved, reviewed, adminID.String(), "")
		s.logger.InfoContext(ctx, "sale approved",
			"sale_id", saleID.String(),
			"credential_id", reviewed.CredentialID.String(),
			"admin_id", adminID.String(),
		)
		completed, err := s.retire(ctx, reviewed)
		if completed != nil {
			out = completed
		}
		return err
	})
	if err != nil {
		var pf *retirement.PartialFailure
		if errors.As(err, &pf) && out != nil {
			return out, err
		}
		return nil, err
	}
	return out, nil
}

// RetryRetirement reruns the protocol for an APPROVED sale. A credential
// already retired by an earlier run only gets its completion recorded.
func (s *Service) RetryRetirement(ctx context.Context, saleID id.SaleID) (*models.SaleRecord, error) {
	return s.withApprovedSale(ctx, saleID, func(ctx context.Context, sale *models.SaleRecord) (*models.SaleRecord, error) {
		s.logger.InfoContext(ctx, "retrying retirement",
			"sale_id", saleID.String(),
			"credential_id", sale.CredentialID.String(),
		)
		return s.retire(ctx, sale)
	})
}

// CompleteRetired records completion for an APPROVED sale whose credential
// is already SOLD, without touching the credential or the audit channel.
func (s *Service) CompleteRetired(ctx context.Context, saleID id.SaleID) (*models.SaleRecord, error) {
	return s.withApprovedSale(ctx, saleID, func(ctx context.Context, sale *models.SaleRecord) (*models.SaleRecord, error) {
		cred, err := s.credentials.Get(ctx, sale.CredentialID)
		if err != nil {
			return sale, err
		}
		if !cred.IsSold() {
			return sale, dErrors.New(dErrors.CodeInvalidTransition, "credential is not retired; retry the full retirement instead")
		}
		return s.retirement.Complete(ctx, sale)
	})
}

// GetSale returns a sale record by id.
func (s *Service) GetSale(ctx context.Context, saleID id.SaleID) (*models.SaleRecord, error) {
	r, err := s.store.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sale not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sale")
	}
	return r, nil
}

// ListSales returns a credential's sales, newest first.
func (s *Service) ListSales(ctx context.Context, credentialID id.CredentialID) ([]*models.SaleRecord, error) {
	list, err := s.store.ListByCredential(ctx, credentialID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sales")
	}
	return list, nil
}

func (s *Service) withApprovedSale(ctx context.Context, saleID id.SaleID, fn func(ctx context.Context, sale *models.SaleRecord) (*models.SaleRecord, error)) (*models.SaleRecord, error) {
	current, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	var out *models.SaleRecord
	err = s.locker.WithLock(ctx, current.CredentialID.String(), func(ctx context.Context) error {
		sale, err := s.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if err := sale.CanComplete(); err != nil {
			return err
		}
		out = sale
		result, err := fn(ctx, sale)
		if result != nil {
			out = result
		}
		return err
	})
	if err != nil {
		var pf *retirement.PartialFailure
		if errors.As(err, &pf) && out != nil {
			return out, err
		}
		return nil, err
	}
	return out, nil
}

// retire runs the protocol. On failure the APPROVED record is returned with
// the error so the caller sees where the sale stands.
func (s *Service) retire(ctx context.Context, sale *models.SaleRecord) (*models.SaleRecord, error) {
	result, err := s.retirement.Run(ctx, sale)
	if err != nil {
		var pf *retirement.PartialFailure
		if errors.As(err, &pf) {
			return sale, err
		}
		return sale, dErrors.Wrap(err, dErrors.CodeInternal, "retirement could not start")
	}
	return result.Sale, nil
}

func (s *Service) wrapTransitionErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "sale not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidTransition, "sale is not in the required state")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, r *models.SaleRecord, actorID, reason string) {
	if s.audit == nil {
		return
	}
	saleID := r.ID
	event := audit.Event{
		Action:       string(action),
		CredentialID: r.CredentialID,
		SaleID:       &saleID,
		ActorID:      actorID,
		Decision:     string(r.Status),
		Reason:       reason,
		RequestID:    requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"sale_id", r.ID.String(),
			"error", err,
		)
	}
}
