// Package handler exposes the admin JSON API for credentials, sales and
// reconciliation.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	credentialmodels "sessionsale/internal/credential/models"
	"sessionsale/internal/sale/models"
	"sessionsale/internal/sale/reconcile"
	"sessionsale/internal/sale/retirement"
	id "sessionsale/pkg/domain"
	dErrors "sessionsale/pkg/domain-errors"
	"sessionsale/pkg/platform/httputil"
	"sessionsale/pkg/requestcontext"
)

// CredentialService is the credential side of the admin API.
type CredentialService interface {
	Onboard(ctx context.Context, req *credentialmodels.OnboardRequest) (*credentialmodels.Credential, error)
	Get(ctx context.Context, credentialID id.CredentialID) (*credentialmodels.Credential, error)
	SetFreeze(ctx context.Context, credentialID id.CredentialID, reason string, adminID id.ActorID, durationHours int) (*credentialmodels.Credential, error)
	ClearFreeze(ctx context.Context, credentialID id.CredentialID) (*credentialmodels.Credential, error)
}

// SaleService is the sale side of the admin API.
type SaleService interface {
	InitiateSale(ctx context.Context, credentialID id.CredentialID, seller models.Seller, price decimal.Decimal) (*models.SaleRecord, error)
	Review(ctx context.Context, saleID id.SaleID, adminID id.ActorID, req *models.ReviewRequest) (*models.SaleRecord, error)
	RetryRetirement(ctx context.Context, saleID id.SaleID) (*models.SaleRecord, error)
	GetSale(ctx context.Context, saleID id.SaleID) (*models.SaleRecord, error)
	ListSales(ctx context.Context, credentialID id.CredentialID) ([]*models.SaleRecord, error)
}

// Reconciler runs consistency scans on demand.
type Reconciler interface {
	Scan(ctx context.Context, now time.Time) ([]reconcile.Inconsistency, error)
	RunOnce(ctx context.Context) (reconcile.Report, error)
}

type Handler struct {
	credentials CredentialService
	sales       SaleService
	reconciler  Reconciler
	logger      *slog.Logger
}

func New(credentials CredentialService, sales SaleService, reconciler Reconciler, logger *slog.Logger) *Handler {
	return &Handler{
		credentials: credentials,
		sales:       sales,
		reconciler:  reconciler,
		logger:      logger,
	}
}

// Register mounts the admin routes on r. Authentication is applied by the
// caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/credentials", h.handleOnboard)
		r.Get("/credentials/{id}", h.handleGetCredential)
		r.Get("/credentials/{id}/sales", h.handleListSales)
		r.Post("/credentials/{id}/freeze", h.handleFreeze)
		r.Delete("/credentials/{id}/freeze", h.handleThaw)

		r.Post("/sales", h.handleInitiateSale)
		r.Get("/sales/{id}", h.handleGetSale)
		r.Post("/sales/{id}/review", h.handleReview)
		r.Post("/sales/{id}/retry", h.handleRetry)

		r.Get("/reconciliation", h.handleScan)
		r.Post("/reconciliation/repair", h.handleRepair)
	})
}

// credentialResponse is the admin view of a credential. The session material
// is never serialized; callers only learn whether it is present.
type credentialResponse struct {
	*credentialmodels.Credential
	EffectiveStatus    credentialmodels.CredentialStatus `json:"effective_status"`
	EligibleForSale    bool                              `json:"eligible_for_sale"`
	HasSessionMaterial bool                              `json:"has_session_material"`
}

func toCredentialResponse(c *credentialmodels.Credential, now time.Time) credentialResponse {
	return credentialResponse{
		Credential:         c,
		EffectiveStatus:    c.EffectiveStatus(now),
		EligibleForSale:    c.CanBeSold(now),
		HasSessionMaterial: c.HasSessionMaterial(),
	}
}

type retirementFailureResponse struct {
	Error            string             `json:"error"`
	ErrorDescription string             `json:"error_description"`
	Step             retirement.Step    `json:"step"`
	SecretDestroyed  bool               `json:"secret_destroyed"`
	Sale             *models.SaleRecord `json:"sale,omitempty"`
}

func (h *Handler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req credentialmodels.OnboardRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.credentials.Onboard(ctx, &req)
	if err != nil {
		h.writeError(ctx, w, err, "onboard credential")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCredentialResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, ok := credentialIDParam(w, r)
	if !ok {
		return
	}
	c, err := h.credentials.Get(ctx, credentialID)
	if err != nil {
		h.writeError(ctx, w, err, "get credential")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, ok := credentialIDParam(w, r)
	if !ok {
		return
	}
	list, err := h.sales.ListSales(ctx, credentialID)
	if err != nil {
		h.writeError(ctx, w, err, "list sales")
		return
	}
	if list == nil {
		list = []*models.SaleRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sales": list})
}

func (h *Handler) handleFreeze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, ok := credentialIDParam(w, r)
	if !ok {
		return
	}
	var req credentialmodels.FreezeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.credentials.SetFreeze(ctx, credentialID, req.Reason, requestcontext.ActorID(ctx), req.DurationHours)
	if err != nil {
		h.writeError(ctx, w, err, "freeze credential")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleThaw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, ok := credentialIDParam(w, r)
	if !ok {
		return
	}
	c, err := h.credentials.ClearFreeze(ctx, credentialID)
	if err != nil {
		h.writeError(ctx, w, err, "clear freeze")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(c, requestcontext.Now(ctx)))
}

func (h *Handler) handleInitiateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.InitiateSaleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req.Normalize()
	credentialID, seller, price, err := req.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.sales.InitiateSale(ctx, credentialID, seller, price)
	if err != nil {
		h.writeError(ctx, w, err, "initiate sale")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	saleID, ok := saleIDParam(w, r)
	if !ok {
		return
	}
	record, err := h.sales.GetSale(ctx, saleID)
	if err != nil {
		h.writeError(ctx, w, err, "get sale")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	saleID, ok := saleIDParam(w, r)
	if !ok {
		return
	}
	var req models.ReviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.sales.Review(ctx, saleID, requestcontext.ActorID(ctx), &req)
	if err != nil {
		h.writeSaleError(ctx, w, record, err, "review sale")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	saleID, ok := saleIDParam(w, r)
	if !ok {
		return
	}
	record, err := h.sales.RetryRetirement(ctx, saleID)
	if err != nil {
		h.writeSaleError(ctx, w, record, err, "retry retirement")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	findings, err := h.reconciler.Scan(ctx, requestcontext.Now(ctx))
	if err != nil {
		h.writeError(ctx, w, err, "reconciliation scan")
		return
	}
	if findings == nil {
		findings = []reconcile.Inconsistency{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"findings": findings})
}

func (h *Handler) handleRepair(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.reconciler.RunOnce(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "reconciliation repair")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// writeSaleError reports a retirement partial failure together with the
// sale record it left behind; other errors go through writeError.
func (h *Handler) writeSaleError(ctx context.Context, w http.ResponseWriter, record *models.SaleRecord, err error, op string) {
	var pf *retirement.PartialFailure
	if !errors.As(err, &pf) {
		h.writeError(ctx, w, err, op)
		return
	}
	h.logger.ErrorContext(ctx, op+" stopped early",
		"sale_id", pf.SaleID.String(),
		"step", pf.Step,
		"secret_destroyed", pf.SecretDestroyed,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, httputil.StatusFor(dErrors.CodeRetirementFailure), retirementFailureResponse{
		Error:            string(dErrors.CodeRetirementFailure),
		ErrorDescription: "retirement stopped at " + pf.Step.String(),
		Step:             pf.Step,
		SecretDestroyed:  pf.SecretDestroyed,
		Sale:             record,
	})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	code := dErrors.CodeOf(err)
	if code == "" || code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.WarnContext(ctx, op+" rejected",
			"code", code,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

func credentialIDParam(w http.ResponseWriter, r *http.Request) (id.CredentialID, bool) {
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid credential id"))
		return id.CredentialID{}, false
	}
	return credentialID, true
}

func saleIDParam(w http.ResponseWriter, r *http.Request) (id.SaleID, bool) {
	saleID, err := id.ParseSaleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid sale id"))
		return id.SaleID{}, false
	}
	return saleID, true
}
