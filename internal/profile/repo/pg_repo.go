package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/entity"
)

const (
	constraintSubject = "profiles_subject_id_key"
	constraintEmail   = "profiles_email_key"
)

// PostgresStore keeps each profile as a JSONB document next to the columns
// that carry its unique constraints.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore { return &PostgresStore{db: db} }

// EnsureIndexes creates the profiles and profile_markers tables if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *PostgresStore) EnsureIndexes(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS profiles (
  id VARCHAR(32) PRIMARY KEY,
  subject_id TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('customer', 'seller')),
  email CITEXT NOT NULL,
  document JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT profiles_subject_id_key UNIQUE (subject_id),
  CONSTRAINT profiles_email_key UNIQUE (email)
);
CREATE INDEX IF NOT EXISTS idx_profiles_role ON profiles(role);
CREATE TABLE IF NOT EXISTS profile_markers (
  name TEXT PRIMARY KEY,
  subject_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *PostgresStore) FindBySubject(ctx context.Context, subjectID string) (*entity.Document, error) {
	var raw []byte
	err := r.db.GetContext(ctx, &raw, `SELECT document FROM profiles WHERE subject_id = $1`, subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	var doc entity.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", subjectID, err)
	}
	return &doc, nil
}

func (r *PostgresStore) Insert(ctx context.Context, doc *entity.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	q := `INSERT INTO profiles (id, subject_id, role, email, document, created_at, updated_at)
		  VALUES (:id, :subject_id, :role, :email, :document, :created_at, :updated_at)`
	params := map[string]any{
		"id":         doc.ID,
		"subject_id": doc.SubjectID,
		"role":       string(doc.Role),
		"email":      doc.Email,
		"document":   raw,
		"created_at": doc.CreatedAt,
		"updated_at": doc.UpdatedAt,
	}
	if _, err := r.db.NamedExecContext(ctx, q, params); err != nil {
		return classifyPostgres(err)
	}
	return nil
}

func (r *PostgresStore) ClaimAdmin(ctx context.Context, subjectID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO profile_markers (name, subject_id) VALUES ($1, $2)`, adminMarker, subjectID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrAdminClaimed
	}
	if err != nil {
		return fmt.Errorf("claim admin: %w", err)
	}
	return nil
}

// classifyPostgres maps unique_violation (23505) to the duplicate error of the violated constraint.
func classifyPostgres(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case constraintEmail:
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, pqErr.Message)
		case constraintSubject:
			return fmt.Errorf("%w: %s", ErrDuplicateSubject, pqErr.Message)
		}
	}
	return fmt.Errorf("insert profile: %w", err)
}
