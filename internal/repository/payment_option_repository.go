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

const paymentOptionColumns = `id, provider, account_name, account_number, merchant_id, qr_code_url, is_active, created_at`

// PaymentOptionRepository manages mobile money accounts shown to buyers.
type PaymentOptionRepository struct {
	db *sqlx.DB
}

// NewPaymentOptionRepository constructs the repository.
func NewPaymentOptionRepository(db *sqlx.DB) *PaymentOptionRepository {
	return &PaymentOptionRepository{db: db}
}

// List returns payment options, optionally only the active ones.
func (r *PaymentOptionRepository) List(ctx context.Context, activeOnly bool) ([]models.PaymentOption, error) {
	query := "SELECT " + paymentOptionColumns + " FROM payment_options"
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY created_at ASC"
	var options []models.PaymentOption
	if err := r.db.SelectContext(ctx, &options, query); err != nil {
		return nil, fmt.Errorf("list payment options: %w", err)
	}
	return options, nil
}

// GetByID fetches a payment option.
func (r *PaymentOptionRepository) GetByID(ctx context.Context, id string) (*models.PaymentOption, error) {
	query := "SELECT " + paymentOptionColumns + " FROM payment_options WHERE id = $1"
	var option models.PaymentOption
	if err := r.db.GetContext(ctx, &option, query, id); err != nil {
		return nil, translateReadError(err)
	}
	return &option, nil
}

// Create inserts a payment option.
func (r *PaymentOptionRepository) Create(ctx context.Context, option *models.PaymentOption) error {
	if option.ID == "" {
		option.ID = uuid.NewString()
	}
	if option.CreatedAt.IsZero() {
		option.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payment_options (id, provider, account_name, account_number, merchant_id, qr_code_url, is_active, created_at)
VALUES (:id, :provider, :account_name, :account_number, :merchant_id, :qr_code_url, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, option); err != nil {
		return translateWriteError("create payment option", err, false)
	}
	return nil
}

// Update overwrites a payment option's mutable fields.
func (r *PaymentOptionRepository) Update(ctx context.Context, option *models.PaymentOption) error {
	const query = `UPDATE payment_options SET provider = :provider, account_name = :account_name, account_number = :account_number,
merchant_id = :merchant_id, qr_code_url = :qr_code_url, is_active = :is_active WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, option)
	if isMalformedID(err) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("update payment option: %w", err)
	}
	return checkAffected(result, "update payment option")
}

// Delete removes a payment option.
func (r *PaymentOptionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payment_options WHERE id = $1`, id)
	if isMalformedID(err) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("delete payment option: %w", err)
	}
	return checkAffected(result, "delete payment option")
}
