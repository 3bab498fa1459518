// Package retirement runs the post-approval sequence that turns an APPROVED
// sale into a COMPLETED one: notify, archive, retire the credential, delete
// residual files, record completion.
//
// Invariants:
//   - the credential is never retired unless the archive upload succeeded
//     in this run or a previous one
//   - a run that finds the credential already SOLD skips straight to residual
//     cleanup and completion
//   - once the credential is retired, the remaining steps run to completion
//     even if the caller goes away
//   - every early stop is returned as *PartialFailure and raised as an alert
package retirement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	artifactservice "sessionsale/internal/artifact/service"
	credentialmodels "sessionsale/internal/credential/models"
	"sessionsale/internal/notify"
	"sessionsale/internal/platform/config"
	salemetrics "sessionsale/internal/sale/metrics"
	"sessionsale/internal/sale/models"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/audit"
	"sessionsale/pkg/requestcontext"
)

const (
	tracerName             = "sessionsale/retirement"
	defaultFinalizeTimeout = 30 * time.Second
)

// Credentials is the slice of the credential service the protocol drives.
type Credentials interface {
	Get(ctx context.Context, credentialID id.CredentialID) (*credentialmodels.Credential, error)
	MarkSold(ctx context.Context, credentialID id.CredentialID, price decimal.Decimal, at time.Time) (*credentialmodels.Credential, error)
}

// Artifacts supplies the archive payload and removes residual files.
type Artifacts interface {
	ArchiveMaterial(ctx context.Context, credentialID id.CredentialID, fallback artifactservice.Fallback) (*artifactservice.Material, error)
	DeleteResiduals(ctx context.Context, credentialID id.CredentialID) (artifactservice.DeleteReport, error)
}

// Ledger records the final sale transition.
type Ledger interface {
	RecordCompletion(ctx context.Context, saleID id.SaleID, buyer *models.Buyer, at time.Time) (*models.SaleRecord, error)
}

// Result describes a finished run.
type Result struct {
	Sale       *models.SaleRecord
	Credential *credentialmodels.Credential
	// Resumed is true when the credential was already SOLD and only cleanup
	// and completion ran.
	Resumed       bool
	Notified      bool
	MessageID     notify.MessageID
	ArchiveSource artifactservice.Source
	ArchiveDigest string
	Deleted       []string
	Residual      []string
}

// Protocol executes retirement runs. Callers serialize runs per credential.
type Protocol struct {
	credentials Credentials
	artifacts   Artifacts
	ledger      Ledger
	channel     notify.Channel
	cfg         config.RetirementConfig
	audit       audit.Emitter
	metrics     *salemetrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
}

type Option func(*Protocol)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Protocol) {
		p.logger = logger
	}
}

func WithAuditPublisher(emitter audit.Emitter) Option {
	return func(p *Protocol) {
		p.audit = emitter
	}
}

func WithMetrics(m *salemetrics.Metrics) Option {
	return func(p *Protocol) {
		p.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(p *Protocol) {
		p.tracer = tracer
	}
}

func New(credentials Credentials, artifacts Artifacts, ledger Ledger, channel notify.Channel, cfg config.RetirementConfig, opts ...Option) *Protocol {
	p := &Protocol{
		credentials: credentials,
		artifacts:   artifacts,
		ledger:      ledger,
		channel:     channel,
		cfg:         cfg,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the protocol for an APPROVED sale. The record must carry the
// review that approved it and the matched buyer.
func (p *Protocol) Run(ctx context.Context, sale *models.SaleRecord) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "retirement.run", trace.WithAttributes(
		attribute.String("sale_id", sale.ID.String()),
		attribute.String("credential_id", sale.CredentialID.String()),
	))
	defer span.End()

	if sale.Status != models.SaleStatusApproved {
		err := fmt.Errorf("sale %s is %s, not approved", sale.ID, sale.Status)
		recordSpanError(span, err)
		return nil, err
	}

	cred, err := p.credentials.Get(ctx, sale.CredentialID)
	if err != nil {
		return nil, p.fail(ctx, span, sale, StepRetire, false, fmt.Errorf("load credential: %w", err))
	}

	if cred.IsSold() {
		span.SetAttributes(attribute.Bool("resumed", true))
		p.logger.InfoContext(ctx, "credential already retired, resuming at cleanup",
			"sale_id", sale.ID.String(),
			"credential_id", sale.CredentialID.String(),
		)
		result := &Result{Credential: cred, Resumed: true}
		if err := p.finish(ctx, span, sale, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	now := requestcontext.Now(ctx)
	if err := cred.CanMarkSold(now); err != nil {
		return nil, p.fail(ctx, span, sale, StepRetire, false, err)
	}

	result := &Result{}
	summary := summaryFor(sale, cred)

	msgID, err := p.notify(ctx, summary)
	if err == nil {
		result.Notified = true
		result.MessageID = msgID
	}

	material, err := p.archive(ctx, sale, cred, summary)
	if err != nil {
		return nil, p.fail(ctx, span, sale, StepArchive, false, err)
	}
	result.ArchiveSource = material.Source
	result.ArchiveDigest = material.Digest

	retired, err := p.retire(ctx, sale)
	if err != nil {
		return nil, p.fail(ctx, span, sale, StepRetire, false, err)
	}
	result.Credential = retired

	if err := p.finish(ctx, span, sale, result); err != nil {
		return nil, err
	}
	return result, nil
}

// finish runs residual cleanup and completion for a retired credential. The
// secret is already gone, so neither step may be cut short by the caller.
func (p *Protocol) finish(ctx context.Context, span trace.Span, sale *models.SaleRecord, result *Result) error {
	ctx, cancel := p.detach(ctx)
	defer cancel()

	report, _ := p.deleteResiduals(ctx, sale)
	result.Deleted = report.Deleted
	result.Residual = report.Failed

	completed, err := p.complete(ctx, span, sale)
	if err != nil {
		return err
	}
	result.Sale = completed
	return nil
}

// Complete runs only the completion step. It is the repair path for a sale
// whose credential was retired but whose record was never completed.
func (p *Protocol) Complete(ctx context.Context, sale *models.SaleRecord) (*models.SaleRecord, error) {
	ctx, span := p.tracer.Start(ctx, "retirement.complete_only", trace.WithAttributes(
		attribute.String("sale_id", sale.ID.String()),
		attribute.String("credential_id", sale.CredentialID.String()),
	))
	defer span.End()
	ctx, cancel := p.detach(ctx)
	defer cancel()
	return p.complete(ctx, span, sale)
}

// detach keeps ctx's values but drops its cancellation, bounding the work
// by FinalizeTimeout instead.
func (p *Protocol) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := p.cfg.FinalizeTimeout
	if timeout <= 0 {
		timeout = defaultFinalizeTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (p *Protocol) notify(ctx context.Context, summary notify.SaleSummary) (notify.MessageID, error) {
	ctx, span := p.tracer.Start(ctx, "retirement.notify")
	defer span.End()
	start := time.Now()

	var msgID notify.MessageID
	err := p.retry(ctx, StepNotify, p.cfg.NotifyAttempts, func(ctx context.Context) error {
		var err error
		msgID, err = p.channel.PostMessage(ctx, notify.FormatSummary(summary))
		return err
	})
	if err != nil {
		// Best effort: the sale proceeds without the summary.
		recordSpanError(span, err)
		p.observeStep(StepNotify, "degraded", start)
		p.logger.WarnContext(ctx, "sale summary not posted",
			"sale_id", summary.SaleID,
			"error", err,
		)
		return 0, err
	}
	p.observeStep(StepNotify, "ok", start)
	p.logger.InfoContext(ctx, "sale summary posted",
		"sale_id", summary.SaleID,
		"message_id", int64(msgID),
	)
	return msgID, nil
}

func (p *Protocol) archive(ctx context.Context, sale *models.SaleRecord, cred *credentialmodels.Credential, summary notify.SaleSummary) (*artifactservice.Material, error) {
	ctx, span := p.tracer.Start(ctx, "retirement.archive")
	defer span.End()
	start := time.Now()

	fallback := artifactservice.Fallback{
		PhoneNumber:     cred.PhoneNumber,
		SessionMaterial: cred.SessionMaterial,
	}
	caption := notify.FormatCaption(summary)

	var material *artifactservice.Material
	err := p.retry(ctx, StepArchive, p.cfg.ArchiveAttempts, func(ctx context.Context) error {
		m, err := p.artifacts.ArchiveMaterial(ctx, sale.CredentialID, fallback)
		if err != nil {
			return err
		}
		if err := p.channel.PostDocument(ctx, m.Filename, m.Data, caption); err != nil {
			return err
		}
		material = m
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		p.observeStep(StepArchive, "failed", start)
		return nil, err
	}

	span.SetAttributes(attribute.String("source", string(material.Source)))
	p.observeStep(StepArchive, "ok", start)
	p.logger.InfoContext(ctx, "session archived",
		"sale_id", sale.ID.String(),
		"credential_id", sale.CredentialID.String(),
		"source", material.Source,
		"digest", material.Digest,
	)
	return material, nil
}

func (p *Protocol) retire(ctx context.Context, sale *models.SaleRecord) (*credentialmodels.Credential, error) {
	ctx, span := p.tracer.Start(ctx, "retirement.retire")
	defer span.End()
	start := time.Now()

	cred, err := p.credentials.MarkSold(ctx, sale.CredentialID, sale.SalePrice, requestcontext.Now(ctx))
	if err != nil {
		recordSpanError(span, err)
		p.observeStep(StepRetire, "failed", start)
		return nil, err
	}
	p.observeStep(StepRetire, "ok", start)
	p.logger.InfoContext(ctx, "credential retired",
		"sale_id", sale.ID.String(),
		"credential_id", sale.CredentialID.String(),
		"price", sale.SalePrice.StringFixed(2),
	)
	return cred, nil
}

func (p *Protocol) deleteResiduals(ctx context.Context, sale *models.SaleRecord) (artifactservice.DeleteReport, error) {
	ctx, span := p.tracer.Start(ctx, "retirement.delete_residuals")
	defer span.End()
	start := time.Now()

	var report artifactservice.DeleteReport
	err := p.retry(ctx, StepDelete, p.cfg.DeleteAttempts, func(ctx context.Context) error {
		r, err := p.artifacts.DeleteResiduals(ctx, sale.CredentialID)
		report.Deleted = append(report.Deleted, r.Deleted...)
		report.Failed = r.Failed
		return err
	})
	if err != nil {
		// Cleanup debt only: the secret is already cleared.
		recordSpanError(span, err)
		p.observeStep(StepDelete, "degraded", start)
		p.logger.WarnContext(ctx, "residual artifacts left on disk",
			"sale_id", sale.ID.String(),
			"credential_id", sale.CredentialID.String(),
			"residual", report.Failed,
			"error", err,
		)
		p.emit(ctx, audit.Event{
			Action:       string(audit.EventArtifactCleanupFailed),
			CredentialID: sale.CredentialID,
			SaleID:       &sale.ID,
			Severity:     audit.SeverityWarning,
			Reason:       err.Error(),
		})
		return report, err
	}
	p.observeStep(StepDelete, "ok", start)
	return report, nil
}

func (p *Protocol) complete(ctx context.Context, parent trace.Span, sale *models.SaleRecord) (*models.SaleRecord, error) {
	ctx, span := p.tracer.Start(ctx, "retirement.complete")
	defer span.End()
	start := time.Now()

	completed, err := p.ledger.RecordCompletion(ctx, sale.ID, sale.Buyer, requestcontext.Now(ctx))
	if err != nil {
		recordSpanError(span, err)
		p.observeStep(StepComplete, "failed", start)
		return nil, p.fail(ctx, parent, sale, StepComplete, true, err)
	}
	p.observeStep(StepComplete, "ok", start)
	if p.metrics != nil {
		p.metrics.IncrementCompleted()
	}
	p.emit(ctx, audit.Event{
		Action:       string(audit.EventSaleCompleted),
		CredentialID: sale.CredentialID,
		SaleID:       &sale.ID,
		Decision:     string(models.SaleStatusCompleted),
	})
	p.logger.InfoContext(ctx, "sale completed",
		"sale_id", sale.ID.String(),
		"credential_id", sale.CredentialID.String(),
	)
	return completed, nil
}

// fail builds the PartialFailure for step and raises the alert.
func (p *Protocol) fail(ctx context.Context, span trace.Span, sale *models.SaleRecord, step Step, secretDestroyed bool, cause error) error {
	pf := newPartialFailure(sale.ID, sale.CredentialID, step, secretDestroyed, cause)
	recordSpanError(span, pf)
	span.SetAttributes(
		attribute.String("failed_step", step.String()),
		attribute.Bool("secret_destroyed", secretDestroyed),
	)

	p.logger.ErrorContext(ctx, "retirement partial failure",
		"sale_id", sale.ID.String(),
		"credential_id", sale.CredentialID.String(),
		"step", step,
		"secret_destroyed", secretDestroyed,
		"error", cause,
	)
	if p.metrics != nil {
		p.metrics.IncrementAlert(step.String(), secretDestroyed)
	}
	p.emit(ctx, audit.Event{
		Action:       string(audit.EventRetirementFailed),
		CredentialID: sale.CredentialID,
		SaleID:       &sale.ID,
		Severity:     audit.SeverityCritical,
		Reason:       fmt.Sprintf("step=%s secret_destroyed=%t: %v", step, secretDestroyed, cause),
	})
	return pf
}

func (p *Protocol) emit(ctx context.Context, event audit.Event) {
	if p.audit == nil {
		return
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.ActorID(ctx).String()
	}
	event.RequestID = requestcontext.RequestID(ctx)
	// An alert must be recorded even when the caller's context is done.
	if err := p.audit.Emit(context.WithoutCancel(ctx), event); err != nil {
		p.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"credential_id", event.CredentialID.String(),
			"error", err,
		)
	}
}

func (p *Protocol) observeStep(step Step, outcome string, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveStep(step.String(), outcome, start)
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func summaryFor(sale *models.SaleRecord, cred *credentialmodels.Credential) notify.SaleSummary {
	s := notify.SaleSummary{
		SaleID:         sale.ID.String(),
		CredentialID:   sale.CredentialID.String(),
		PhoneNumber:    cred.PhoneNumber,
		DisplayName:    cred.DisplayName,
		Username:       cred.Username,
		WasFrozen:      sale.Snapshot.WasFrozen,
		FreezeReason:   sale.Snapshot.FreezeReason,
		SellerID:       sale.SellerID.String(),
		SellerUsername: sale.SellerUsername,
		Price:          sale.SalePrice,
	}
	if sale.Buyer != nil {
		s.BuyerID = sale.Buyer.ID
		s.BuyerUsername = sale.Buyer.Username
	}
	if sale.Review != nil {
		s.ApprovedBy = sale.Review.ReviewerID.String()
		s.ApprovedAt = sale.Review.ReviewedAt
	}
	return s
}
