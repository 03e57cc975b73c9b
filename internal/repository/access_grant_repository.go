package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-market-api/internal/models"
)

const insertGrantQuery = `INSERT INTO access_grants (id, user_id, item_type, item_id, granted_by, purchase_id, created_at)
VALUES (:id, :user_id, :item_type, :item_id, :granted_by, :purchase_id, :created_at)`

const grantColumns = `id, user_id, item_type, item_id, granted_by, purchase_id, created_at`

// AccessGrantRepository stores the authoritative set of unlocked content.
type AccessGrantRepository struct {
	db *sqlx.DB
}

// NewAccessGrantRepository constructs the repository.
func NewAccessGrantRepository(db *sqlx.DB) *AccessGrantRepository {
	return &AccessGrantRepository{db: db}
}

// Create inserts a grant outside of a purchase approval.
func (r *AccessGrantRepository) Create(ctx context.Context, grant *models.AccessGrant) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now().UTC()
	}
	if grant.GrantedBy == "" {
		grant.GrantedBy = models.GrantedBySystem
	}
	if _, err := r.db.NamedExecContext(ctx, insertGrantQuery, grant); err != nil {
		return translateWriteError("create access grant", err, false)
	}
	return nil
}

// GetByID fetches a grant by identifier.
func (r *AccessGrantRepository) GetByID(ctx context.Context, id string) (*models.AccessGrant, error) {
	query := "SELECT " + grantColumns + " FROM access_grants WHERE id = $1"
	var grant models.AccessGrant
	if err := r.db.GetContext(ctx, &grant, query, id); err != nil {
		return nil, translateReadError(err)
	}
	return &grant, nil
}

// Delete revokes a grant. Missing grants surface as sql.ErrNoRows.
func (r *AccessGrantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM access_grants WHERE id = $1`, id)
	if isMalformedID(err) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("delete access grant: %w", err)
	}
	return checkAffected(result, "delete access grant")
}

// ListByUser returns every grant held by a user, newest first.
func (r *AccessGrantRepository) ListByUser(ctx context.Context, userID string) ([]models.AccessGrant, error) {
	query := "SELECT " + grantColumns + " FROM access_grants WHERE user_id = $1 ORDER BY created_at DESC"
	var grants []models.AccessGrant
	if err := r.db.SelectContext(ctx, &grants, query, userID); err != nil {
		return nil, fmt.Errorf("list access grants: %w", err)
	}
	return grants, nil
}

// LoadSnapshot reads a user's grants and pending purchases inside one
// read-only repeatable-read transaction so both sets reflect the same instant.
func (r *AccessGrantRepository) LoadSnapshot(ctx context.Context, userID string) (snapshot models.AccessSnapshot, err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return models.AccessSnapshot{}, fmt.Errorf("begin access snapshot tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var grants []models.AccessGrant
	grantQuery := "SELECT " + grantColumns + " FROM access_grants WHERE user_id = $1"
	if err = tx.SelectContext(ctx, &grants, grantQuery, userID); err != nil {
		return models.AccessSnapshot{}, fmt.Errorf("load access grants: %w", err)
	}

	var pending []models.Purchase
	pendingQuery := "SELECT " + purchaseColumns + " FROM purchases WHERE user_id = $1 AND status = 'PENDING'"
	if err = tx.SelectContext(ctx, &pending, pendingQuery, userID); err != nil {
		return models.AccessSnapshot{}, fmt.Errorf("load pending purchases: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.AccessSnapshot{}, fmt.Errorf("commit access snapshot: %w", err)
	}
	return models.NewAccessSnapshot(grants, pending), nil
}
