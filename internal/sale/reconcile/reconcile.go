// Package reconcile finds sales that the retirement protocol left half done
// and repairs the ones that only need their completion recorded.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	credentialmodels "sessionsale/internal/credential/models"
	"sessionsale/internal/platform/config"
	salemetrics "sessionsale/internal/sale/metrics"
	"sessionsale/internal/sale/models"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/audit"
	"sessionsale/pkg/platform/sentinel"
)

// scanConcurrency bounds the per-credential ledger lookups.
const scanConcurrency = 8

// Kind classifies an inconsistency.
type Kind string

const (
	// KindSoldNotCompleted is a SOLD credential whose latest sale is not COMPLETED.
	KindSoldNotCompleted Kind = "sold_not_completed"
	// KindStaleApproved is an APPROVED sale older than the threshold.
	KindStaleApproved Kind = "stale_approved"
)

// Inconsistency is one operator-actionable finding.
type Inconsistency struct {
	Kind         Kind              `json:"kind"`
	CredentialID id.CredentialID   `json:"credential_id"`
	SaleID       *id.SaleID        `json:"sale_id,omitempty"`
	SaleStatus   models.SaleStatus `json:"sale_status,omitempty"`
	DetectedAt   time.Time         `json:"detected_at"`
	Detail       string            `json:"detail"`
}

// Repairable reports whether recording completion alone resolves the finding.
func (i Inconsistency) Repairable() bool {
	return i.Kind == KindSoldNotCompleted && i.SaleID != nil && i.SaleStatus == models.SaleStatusApproved
}

// Report is the outcome of one pass.
type Report struct {
	Findings []Inconsistency `json:"findings"`
	Repaired []id.SaleID     `json:"repaired"`
	Failed   []id.SaleID     `json:"failed"`
}

type Credentials interface {
	ListSold(ctx context.Context) ([]*credentialmodels.Credential, error)
}

type Ledger interface {
	LatestByCredential(ctx context.Context, credentialID id.CredentialID) (*models.SaleRecord, error)
	ListApprovedBefore(ctx context.Context, cutoff time.Time) ([]*models.SaleRecord, error)
}

// Completer records completion for a sale whose credential is already SOLD.
type Completer interface {
	CompleteRetired(ctx context.Context, saleID id.SaleID) (*models.SaleRecord, error)
}

type Reconciler struct {
	credentials Credentials
	ledger      Ledger
	completer   Completer
	cfg         config.ReconciliationConfig
	audit       audit.Emitter
	metrics     *salemetrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func WithAuditPublisher(emitter audit.Emitter) Option {
	return func(r *Reconciler) {
		r.audit = emitter
	}
}

func WithMetrics(m *salemetrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithClock overrides the wall clock used by RunOnce.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

func New(credentials Credentials, ledger Ledger, completer Completer, cfg config.ReconciliationConfig, opts ...Option) *Reconciler {
	r := &Reconciler{
		credentials: credentials,
		ledger:      ledger,
		completer:   completer,
		cfg:         cfg,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scan looks for both inconsistency kinds as of now. A sale flagged as
// sold-not-completed is not reported again as stale.
func (r *Reconciler) Scan(ctx context.Context, now time.Time) ([]Inconsistency, error) {
	g, gctx := errgroup.WithContext(ctx)

	var sold, stale []Inconsistency
	g.Go(func() error {
		var err error
		sold, err = r.scanSold(gctx, now)
		return err
	})
	g.Go(func() error {
		var err error
		stale, err = r.scanStaleApproved(gctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flagged := make(map[id.SaleID]struct{}, len(sold))
	for _, f := range sold {
		if f.SaleID != nil {
			flagged[*f.SaleID] = struct{}{}
		}
	}
	findings := append([]Inconsistency(nil), sold...)
	for _, f := range stale {
		if _, ok := flagged[*f.SaleID]; ok {
			continue
		}
		findings = append(findings, f)
	}
	return findings, nil
}

func (r *Reconciler) scanSold(ctx context.Context, now time.Time) ([]Inconsistency, error) {
	creds, err := r.credentials.ListSold(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sold credentials: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	var mu sync.Mutex
	var out []Inconsistency
	for _, c := range creds {
		g.Go(func() error {
			latest, err := r.ledger.LatestByCredential(gctx, c.ID)
			var finding *Inconsistency
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				finding = &Inconsistency{
					Kind:         KindSoldNotCompleted,
					CredentialID: c.ID,
					DetectedAt:   now,
					Detail:       "credential is sold but has no sale record",
				}
			case err != nil:
				return fmt.Errorf("latest sale for %s: %w", c.ID, err)
			case latest.Status != models.SaleStatusCompleted:
				saleID := latest.ID
				finding = &Inconsistency{
					Kind:         KindSoldNotCompleted,
					CredentialID: c.ID,
					SaleID:       &saleID,
					SaleStatus:   latest.Status,
					DetectedAt:   now,
					Detail:       fmt.Sprintf("credential is sold but latest sale is %s", latest.Status),
				}
			}
			if finding != nil {
				mu.Lock()
				out = append(out, *finding)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CredentialID.String() < out[j].CredentialID.String() })
	return out, nil
}

func (r *Reconciler) scanStaleApproved(ctx context.Context, now time.Time) ([]Inconsistency, error) {
	cutoff := now.Add(-r.cfg.ApprovedThreshold)
	records, err := r.ledger.ListApprovedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list approved sales: %w", err)
	}
	out := make([]Inconsistency, 0, len(records))
	for _, rec := range records {
		saleID := rec.ID
		out = append(out, Inconsistency{
			Kind:         KindStaleApproved,
			CredentialID: rec.CredentialID,
			SaleID:       &saleID,
			SaleStatus:   rec.Status,
			DetectedAt:   now,
			Detail:       fmt.Sprintf("approved at %s without completion", rec.Review.ReviewedAt.UTC().Format(time.RFC3339)),
		})
	}
	return out, nil
}

// Repair records completion for every repairable finding. Failures are
// reported, not returned, so one bad record does not block the rest.
func (r *Reconciler) Repair(ctx context.Context, findings []Inconsistency) Report {
	report := Report{Findings: findings}
	for _, f := range findings {
		if !f.Repairable() {
			continue
		}
		if _, err := r.completer.CompleteRetired(ctx, *f.SaleID); err != nil {
			report.Failed = append(report.Failed, *f.SaleID)
			r.logger.ErrorContext(ctx, "reconciliation repair failed",
				"sale_id", f.SaleID.String(),
				"credential_id", f.CredentialID.String(),
				"error", err,
			)
			continue
		}
		report.Repaired = append(report.Repaired, *f.SaleID)
		if r.metrics != nil {
			r.metrics.IncrementRepaired()
		}
		r.logger.InfoContext(ctx, "reconciliation repaired sale",
			"sale_id", f.SaleID.String(),
			"credential_id", f.CredentialID.String(),
		)
	}
	return report
}

// RunOnce scans, alerts on every finding, and repairs when configured to.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	findings, err := r.Scan(ctx, r.now())
	if err != nil {
		return Report{}, err
	}
	for _, f := range findings {
		r.alert(ctx, f)
	}
	if !r.cfg.AutoRepair {
		return Report{Findings: findings}, nil
	}
	return r.Repair(ctx, findings), nil
}

// Run executes RunOnce on every interval tick until ctx is cancelled. A
// failed pass is logged and the loop continues.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "reconciliation pass failed", "error", err)
				continue
			}
			r.logger.InfoContext(ctx, "reconciliation pass finished",
				"findings", len(report.Findings),
				"repaired", len(report.Repaired),
				"failed", len(report.Failed),
			)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Reconciler) alert(ctx context.Context, f Inconsistency) {
	if r.metrics != nil {
		r.metrics.IncrementInconsistency(string(f.Kind))
	}
	r.logger.WarnContext(ctx, "reconciliation inconsistency",
		"kind", f.Kind,
		"credential_id", f.CredentialID.String(),
		"detail", f.Detail,
	)
	if r.audit == nil {
		return
	}
	severity := audit.SeverityWarning
	if f.Kind == KindSoldNotCompleted {
		severity = audit.SeverityCritical
	}
	err := r.audit.Emit(ctx, audit.Event{
		Action:       string(audit.EventReconciliationInconsistency),
		CredentialID: f.CredentialID,
		SaleID:       f.SaleID,
		ActorID:      "reconciler",
		Severity:     severity,
		Reason:       fmt.Sprintf("%s: %s", f.Kind, f.Detail),
	})
	if err != nil {
		r.logger.WarnContext(ctx, "failed to emit audit event",
			"action", audit.EventReconciliationInconsistency,
			"credential_id", f.CredentialID.String(),
			"error", err,
		)
	}
}
