package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sessionsale/internal/credential/models"
	"sessionsale/internal/platform/postgres"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
	"sessionsale/pkg/platform/tx"
)

const credentialColumns = `id, phone_number, display_name, username, status,
	freeze_reason, frozen_by, frozen_at, freeze_duration_hours,
	session_material, sold_at, sale_price, created_at, updated_at`

// PostgresStore persists credentials in PostgreSQL. It joins the caller's
// transaction when the context carries one.
type PostgresStore struct {
	db     *sql.DB
	runner *tx.PostgresRunner
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, runner: tx.NewPostgresRunner(db, 0)}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Credential) error {
	query := `
		INSERT INTO credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, query, credentialArgs(c)...)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("credential already onboarded: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`
	c, err := scanCredential(tx.Pick(ctx, s.db).QueryRowContext(ctx, query, credentialID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return c, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, validates, mutates and
// writes it back in one transaction.
func (s *PostgresStore) Execute(ctx context.Context, credentialID id.CredentialID, validate func(*models.Credential) error, mutate func(*models.Credential)) (*models.Credential, error) {
	var out *models.Credential
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		ex := tx.Pick(ctx, s.db)
		query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1 FOR UPDATE`
		c, err := scanCredential(ex.QueryRowContext(ctx, query, credentialID.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock credential: %w", err)
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		update := `
			UPDATE credentials SET
				display_name = $2, username = $3, status = $4,
				freeze_reason = $5, frozen_by = $6, frozen_at = $7, freeze_duration_hours = $8,
				session_material = $9, sold_at = $10, sale_price = $11, updated_at = $12
			WHERE id = $1
		`
		reason, by, at, hours := freezeColumns(c)
		if _, err := ex.ExecContext(ctx, update,
			c.ID.String(), c.DisplayName, c.Username, string(c.Status),
			reason, by, at, hours,
			nullString(c.SessionMaterial), nullTime(c.SoldAt), nullDecimal(c.SalePrice), c.UpdatedAt,
		); err != nil {
			if postgres.IsCheckViolation(err) {
				return fmt.Errorf("credential update violates invariant: %w", sentinel.ErrInvalidState)
			}
			return fmt.Errorf("update credential: %w", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSoldIfSellable retires the credential with one conditional UPDATE:
// status, secret clearing, sale time and price commit together or not at all.
func (s *PostgresStore) MarkSoldIfSellable(ctx context.Context, credentialID id.CredentialID, price decimal.Decimal, at time.Time) (*models.Credential, error) {
	query := `
		UPDATE credentials SET
			status = 'sold',
			session_material = NULL,
			freeze_reason = '', frozen_by = '', frozen_at = NULL, freeze_duration_hours = 0,
			sold_at = $2,
			sale_price = $3,
			updated_at = $2
		WHERE id = $1
		  AND session_material IS NOT NULL AND session_material <> ''
		  AND (
		        status = 'active'
		     OR (status = 'frozen'
		         AND freeze_duration_hours > 0
		         AND frozen_at + make_interval(hours => freeze_duration_hours) < $2)
		  )
		RETURNING ` + credentialColumns
	c, err := scanCredential(tx.Pick(ctx, s.db).QueryRowContext(ctx, query, credentialID.String(), at, price))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mark credential sold: %w", err)
	}

	current, findErr := s.FindByID(ctx, credentialID)
	if findErr != nil {
		return nil, findErr
	}
	if checkErr := current.CanMarkSold(at); checkErr != nil {
		return nil, translateMarkSoldError(current, checkErr)
	}
	return nil, fmt.Errorf("credential changed while retiring: %w", sentinel.ErrInvalidState)
}

func (s *PostgresStore) ListSold(ctx context.Context) ([]*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE status = 'sold' ORDER BY sold_at`
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sold credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sold credential: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sold credentials: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		c         models.Credential
		rawID     uuid.UUID
		status    string
		reason    string
		frozenBy  string
		frozenAt  sql.NullTime
		hours     int
		material  sql.NullString
		soldAt    sql.NullTime
		salePrice decimal.NullDecimal
	)
	if err := row.Scan(
		&rawID, &c.PhoneNumber, &c.DisplayName, &c.Username, &status,
		&reason, &frozenBy, &frozenAt, &hours,
		&material, &soldAt, &salePrice, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.ID = id.CredentialID(rawID)
	c.Status = models.CredentialStatus(status)
	if frozenAt.Valid {
		c.Freeze = &models.Freeze{
			Reason:        reason,
			AdminID:       id.ActorID(frozenBy),
			FrozenAt:      frozenAt.Time,
			DurationHours: hours,
		}
	}
	if material.Valid {
		m := material.String
		c.SessionMaterial = &m
	}
	if soldAt.Valid {
		t := soldAt.Time
		c.SoldAt = &t
	}
	if salePrice.Valid {
		p := salePrice.Decimal
		c.SalePrice = &p
	}
	return &c, nil
}

func credentialArgs(c *models.Credential) []any {
	reason, by, at, hours := freezeColumns(c)
	return []any{
		c.ID.String(), c.PhoneNumber, c.DisplayName, c.Username, string(c.Status),
		reason, by, at, hours,
		nullString(c.SessionMaterial), nullTime(c.SoldAt), nullDecimal(c.SalePrice), c.CreatedAt, c.UpdatedAt,
	}
}

func freezeColumns(c *models.Credential) (string, string, sql.NullTime, int) {
	if c.Freeze == nil {
		return "", "", sql.NullTime{}, 0
	}
	return c.Freeze.Reason, c.Freeze.AdminID.String(), sql.NullTime{Time: c.Freeze.FrozenAt, Valid: true}, c.Freeze.DurationHours
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
