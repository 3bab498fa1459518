package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sessionsale/internal/artifact/models"
	"sessionsale/internal/platform/postgres"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/sentinel"
	"sessionsale/pkg/platform/tx"
)

// PostgresStore persists the manifest in credential_artifacts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Register(ctx context.Context, a *models.Artifact) error {
	query := `
		INSERT INTO credential_artifacts (id, credential_id, path, kind, digest, registered_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var deletedAt sql.NullTime
	if a.DeletedAt != nil {
		deletedAt = sql.NullTime{Time: *a.DeletedAt, Valid: true}
	}
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, query,
		a.ID.String(), a.CredentialID.String(), a.Path, string(a.Kind), a.Digest, a.RegisteredAt, deletedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("artifact %s conflicts with the manifest: %w", a.Path, sentinel.ErrConflict)
		}
		return fmt.Errorf("register artifact: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*models.Artifact, error) {
	query := `
		SELECT id, credential_id, path, kind, digest, registered_at, deleted_at
		FROM credential_artifacts
		WHERE credential_id = $1
		ORDER BY registered_at, path
	`
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, query, credentialID.String())
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*models.Artifact
	for rows.Next() {
		var (
			a         models.Artifact
			rawID     uuid.UUID
			rawCredID uuid.UUID
			kind      string
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&rawID, &rawCredID, &a.Path, &kind, &a.Digest, &a.RegisteredAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.ID = id.ArtifactID(rawID)
		a.CredentialID = id.CredentialID(rawCredID)
		a.Kind = models.Kind(kind)
		if deletedAt.Valid {
			t := deletedAt.Time
			a.DeletedAt = &t
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkDeleted(ctx context.Context, artifactID id.ArtifactID, at time.Time) error {
	result, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		UPDATE credential_artifacts
		SET deleted_at = COALESCE(deleted_at, $2)
		WHERE id = $1
	`, artifactID.String(), at)
	if err != nil {
		return fmt.Errorf("mark artifact deleted: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark artifact deleted rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("artifact not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
