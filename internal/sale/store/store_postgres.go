package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sessionsale/internal/platform/postgres"
	"sessionsale/internal/sale/models"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
	"sessionsale/pkg/platform/tx"
)

const (
	activeSaleIndex = "sale_records_one_active_idx"

	saleColumns = `id, credential_id, seller_id, seller_username,
	snapshot_phone_number, snapshot_display_name, snapshot_username,
	snapshot_was_frozen, snapshot_freeze_reason,
	buyer_id, buyer_username, status,
	reviewer_id, review_notes, rejection_reason, reviewed_at,
	sale_price, initiated_at, completed_at, created_at, updated_at`
)

// PostgresStore is the ledger in PostgreSQL. The one-active-sale rule is a
// partial unique index, so CreateIfNoActive needs no prior read.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfNoActive(ctx context.Context, r *models.SaleRecord) error {
	query := `
		INSERT INTO sale_records (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	buyerID, buyerUsername := buyerColumns(r.Buyer)
	reviewerID, notes, reason, reviewedAt := reviewColumns(r.Review)
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, query,
		r.ID.String(), r.CredentialID.String(), r.SellerID.String(), r.SellerUsername,
		r.Snapshot.PhoneNumber, r.Snapshot.DisplayName, r.Snapshot.Username,
		r.Snapshot.WasFrozen, r.Snapshot.FreezeReason,
		buyerID, buyerUsername, string(r.Status),
		reviewerID, notes, reason, reviewedAt,
		r.SalePrice, r.InitiatedAt, nullTime(r.CompletedAt), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, activeSaleIndex) {
			return fmt.Errorf("credential %s has an active sale: %w", r.CredentialID, sentinel.ErrConflict)
		}
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("sale %s already exists: %w", r.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create sale record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, saleID id.SaleID) (*models.SaleRecord, error) {
	query := `SELECT ` + saleColumns + ` FROM sale_records WHERE id = $1`
	r, err := scanSale(tx.Pick(ctx, s.db).QueryRowContext(ctx, query, saleID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sale not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find sale record: %w", err)
	}
	return r, nil
}

// RecordReview is a conditional UPDATE on status = 'pending'.
func (s *PostgresStore) RecordReview(ctx context.Context, saleID id.SaleID, decision models.Decision, review models.Review, buyer *models.Buyer) (*models.SaleRecord, error) {
	if !decision.IsValid() {
		return nil, fmt.Errorf("unknown decision %q: %w", decision, sentinel.ErrInvalidState)
	}
	if decision != models.DecisionApprove {
		buyer = nil
	}
	buyerID, buyerUsername := buyerColumns(buyer)
	query := `
		UPDATE sale_records SET
			status = $2,
			reviewer_id = $3, review_notes = $4, rejection_reason = $5, reviewed_at = $6,
			buyer_id = COALESCE($7, buyer_id), buyer_username = COALESCE($8, buyer_username),
			updated_at = $6
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + saleColumns
	r, err := scanSale(tx.Pick(ctx, s.db).QueryRowContext(ctx, query,
		saleID.String(), string(decision.Status()),
		review.ReviewerID.String(), review.Notes, review.RejectionReason, review.ReviewedAt,
		buyerID, buyerUsername,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conditionalMiss(ctx, saleID, "sale is not pending review")
		}
		return nil, fmt.Errorf("record review: %w", err)
	}
	return r, nil
}

// RecordCompletion is a conditional UPDATE on status = 'approved'.
func (s *PostgresStore) RecordCompletion(ctx context.Context, saleID id.SaleID, buyer *models.Buyer, at time.Time) (*models.SaleRecord, error) {
	buyerID, buyerUsername := buyerColumns(buyer)
	query := `
		UPDATE sale_records SET
			status = 'completed',
			buyer_id = COALESCE($2, buyer_id), buyer_username = COALESCE($3, buyer_username),
			completed_at = $4,
			updated_at = $4
		WHERE id = $1 AND status = 'approved'
		RETURNING ` + saleColumns
	r, err := scanSale(tx.Pick(ctx, s.db).QueryRowContext(ctx, query, saleID.String(), buyerID, buyerUsername, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conditionalMiss(ctx, saleID, "sale is not approved")
		}
		return nil, fmt.Errorf("record completion: %w", err)
	}
	return r, nil
}

// conditionalMiss distinguishes a missing record from one in the wrong state.
func (s *PostgresStore) conditionalMiss(ctx context.Context, saleID id.SaleID, msg string) error {
	if _, err := s.FindByID(ctx, saleID); err != nil {
		return err
	}
	return fmt.Errorf("%s: %w", msg, sentinel.ErrInvalidState)
}

func (s *PostgresStore) LatestByCredential(ctx context.Context, credentialID id.CredentialID) (*models.SaleRecord, error) {
	query := `SELECT ` + saleColumns + ` FROM sale_records WHERE credential_id = $1 ORDER BY created_at DESC LIMIT 1`
	r, err := scanSale(tx.Pick(ctx, s.db).QueryRowContext(ctx, query, credentialID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no sales for credential: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("latest sale record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*models.SaleRecord, error) {
	query := `SELECT ` + saleColumns + ` FROM sale_records WHERE credential_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, credentialID.String())
}

func (s *PostgresStore) ListApprovedBefore(ctx context.Context, cutoff time.Time) ([]*models.SaleRecord, error) {
	query := `SELECT ` + saleColumns + ` FROM sale_records WHERE status = 'approved' AND reviewed_at < $1 ORDER BY reviewed_at`
	return s.list(ctx, query, cutoff)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.SaleRecord, error) {
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sale records: %w", err)
	}
	defer rows.Close()

	var out []*models.SaleRecord
	for rows.Next() {
		r, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*models.SaleRecord, error) {
	var (
		r             models.SaleRecord
		rawID         uuid.UUID
		rawCredID     uuid.UUID
		sellerID      string
		buyerID       sql.NullString
		buyerUsername sql.NullString
		status        string
		reviewerID    sql.NullString
		notes         string
		reason        string
		reviewedAt    sql.NullTime
		price         decimal.Decimal
		completedAt   sql.NullTime
	)
	if err := row.Scan(
		&rawID, &rawCredID, &sellerID, &r.SellerUsername,
		&r.Snapshot.PhoneNumber, &r.Snapshot.DisplayName, &r.Snapshot.Username,
		&r.Snapshot.WasFrozen, &r.Snapshot.FreezeReason,
		&buyerID, &buyerUsername, &status,
		&reviewerID, &notes, &reason, &reviewedAt,
		&price, &r.InitiatedAt, &completedAt, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.ID = id.SaleID(rawID)
	r.CredentialID = id.CredentialID(rawCredID)
	r.SellerID = id.ActorID(sellerID)
	r.Status = models.SaleStatus(status)
	r.SalePrice = price
	if buyerID.Valid {
		r.Buyer = &models.Buyer{ID: buyerID.String, Username: buyerUsername.String}
	}
	if reviewedAt.Valid {
		r.Review = &models.Review{
			ReviewerID:      id.ActorID(reviewerID.String),
			Notes:           notes,
			RejectionReason: reason,
			ReviewedAt:      reviewedAt.Time,
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func buyerColumns(b *models.Buyer) (sql.NullString, sql.NullString) {
	if b == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: b.ID, Valid: true}, sql.NullString{String: b.Username, Valid: true}
}

func reviewColumns(rv *models.Review) (sql.NullString, string, string, sql.NullTime) {
	if rv == nil {
		return sql.NullString{}, "", "", sql.NullTime{}
	}
	return sql.NullString{String: rv.ReviewerID.String(), Valid: true}, rv.Notes, rv.RejectionReason,
		sql.NullTime{Time: rv.ReviewedAt, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
