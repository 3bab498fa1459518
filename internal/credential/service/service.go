// Package service owns credential lifecycle operations: onboarding, freezes,
// eligibility, and the single retirement write.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	artifactmodels "sessionsale/internal/artifact/models"
	"sessionsale/internal/credential/models"
	"sessionsale/internal/platform/lock"
	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
	"sessionsale/pkg/platform/audit"
	"sessionsale/pkg/platform/sentinel"
	"sessionsale/pkg/platform/tx"
	"sessionsale/pkg/requestcontext"
)

// Store persists credentials.
type Store interface {
	Create(ctx context.Context, c *models.Credential) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	Execute(ctx context.Context, credentialID id.CredentialID, validate func(*models.Credential) error, mutate func(*models.Credential)) (*models.Credential, error)
	MarkSoldIfSellable(ctx context.Context, credentialID id.CredentialID, price decimal.Decimal, at time.Time) (*models.Credential, error)
	ListSold(ctx context.Context) ([]*models.Credential, error)
}

// ArtifactRegistrar records on-disk files against a new credential.
type ArtifactRegistrar interface {
	Register(ctx context.Context, credentialID id.CredentialID, relPath string, kind artifactmodels.Kind) (*artifactmodels.Artifact, error)
}

// Service orchestrates credential state. Every mutation runs under the
// per-credential lock shared with the sale service.
type Service struct {
	store     Store
	artifacts ArtifactRegistrar
	locker    lock.Locker
	tx        tx.Runner
	audit     audit.Emitter
	logger    *slog.Logger
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

func WithArtifactRegistrar(registrar ArtifactRegistrar) Option {
	return func(s *Service) {
		s.artifacts = registrar
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		locker: lock.NewLocal(),
		tx:     tx.NopRunner{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Onboard creates an ACTIVE credential and registers its files.
func (s *Service) Onboard(ctx context.Context, req *models.OnboardRequest) (*models.Credential, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c, err := models.NewCredential(id.NewCredentialID(), req.PhoneNumber, req.DisplayName, req.Username, req.SessionMaterial, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, c); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "phone number already onboarded")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create credential")
		}
		if len(req.Artifacts) > 0 && s.artifacts == nil {
			return dErrors.New(dErrors.CodeValidation, "artifact registration is not configured")
		}
		for _, ref := range req.Artifacts {
			if _, err := s.artifacts.Register(txCtx, c.ID, ref.Path, ref.Kind); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.EventCredentialOnboarded, c.ID, "")
	s.logger.InfoContext(ctx, "credential onboarded",
		"credential_id", c.ID.String(),
		"artifacts", len(req.Artifacts),
	)
	return c, nil
}

// Get returns a credential by id.
func (s *Service) Get(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	c, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load credential")
	}
	return c, nil
}

// IsEligibleForSale reports whether a sale may be initiated now.
func (s *Service) IsEligibleForSale(ctx context.Context, credentialID id.CredentialID) (bool, error) {
	c, err := s.Get(ctx, credentialID)
	if err != nil {
		return false, err
	}
	return c.IsEligibleForSale(requestcontext.Now(ctx)) == nil, nil
}

// MarkSold retires the credential: SOLD, secret cleared, sale time and price
// recorded in one atomic write. Callers must already hold the credential lock.
func (s *Service) MarkSold(ctx context.Context, credentialID id.CredentialID, price decimal.Decimal, at time.Time) (*models.Credential, error) {
	c, err := s.store.MarkSoldIfSellable(ctx, credentialID, price, at)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed), errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidTransition, "credential cannot be marked sold")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark credential sold")
	}
	s.emit(ctx, audit.EventCredentialRetired, credentialID, "")
	return c, nil
}

// SetFreeze freezes a credential, or replaces an existing freeze. A zero
// duration freezes until ClearFreeze.
func (s *Service) SetFreeze(ctx context.Context, credentialID id.CredentialID, reason string, adminID id.ActorID, durationHours int) (*models.Credential, error) {
	if adminID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin id required")
	}
	if durationHours < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "freeze duration cannot be negative")
	}

	var out *models.Credential
	err := s.locker.WithLock(ctx, credentialID.String(), func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		c, err := s.store.Execute(ctx, credentialID,
			func(c *models.Credential) error { return c.CanFreeze() },
			func(c *models.Credential) { c.ApplyFreeze(reason, adminID, durationHours, now) },
		)
		if err != nil {
			return wrapStoreErr(err, "failed to freeze credential")
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.EventCredentialFrozen, credentialID, reason)
	return out, nil
}

// ClearFreeze returns a frozen credential to ACTIVE.
func (s *Service) ClearFreeze(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	var out *models.Credential
	err := s.locker.WithLock(ctx, credentialID.String(), func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		c, err := s.store.Execute(ctx, credentialID,
			func(c *models.Credential) error { return c.CanThaw() },
			func(c *models.Credential) { c.ApplyThaw(now) },
		)
		if err != nil {
			return wrapStoreErr(err, "failed to clear freeze")
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.EventCredentialThawed, credentialID, "")
	return out, nil
}

// ListSold returns every retired credential.
func (s *Service) ListSold(ctx context.Context) ([]*models.Credential, error) {
	list, err := s.store.ListSold(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sold credentials")
	}
	return list, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, credentialID id.CredentialID, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Action:       string(action),
		CredentialID: credentialID,
		ActorID:      requestcontext.ActorID(ctx).String(),
		Reason:       reason,
		RequestID:    requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"credential_id", credentialID.String(),
			"error", err,
		)
	}
}

// wrapStoreErr passes domain errors through and translates store sentinels.
func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
