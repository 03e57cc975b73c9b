package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-market-api/internal/models"
)

// ErrPurchaseSettled is returned when a review targets a purchase that already left PENDING.
var ErrPurchaseSettled = errors.New("purchase already settled")

const purchaseColumns = `id, user_id, item_type, item_id, amount, currency, provider, status, transaction_ref,
payment_proof_url, reviewed_by, reviewed_at, review_note, created_at`

// PurchaseRepository persists the purchase ledger.
type PurchaseRepository struct {
	db *sqlx.DB
}

// NewPurchaseRepository constructs the repository.
func NewPurchaseRepository(db *sqlx.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create inserts a new purchase attempt. Status is forced to PENDING.
func (r *PurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	if purchase.ID == "" {
		purchase.ID = uuid.NewString()
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	purchase.Status = models.PurchaseStatusPending
	const query = `INSERT INTO purchases (id, user_id, item_type, item_id, amount, currency, provider, status, transaction_ref, payment_proof_url, created_at)
VALUES (:id, :user_id, :item_type, :item_id, :amount, :currency, :provider, :status, :transaction_ref, :payment_proof_url, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, purchase); err != nil {
		return translateWriteError("create purchase", err, false)
	}
	return nil
}

// GetByID fetches a purchase by identifier.
func (r *PurchaseRepository) GetByID(ctx context.Context, id string) (*models.Purchase, error) {
	query := "SELECT " + purchaseColumns + " FROM purchases WHERE id = $1"
	var purchase models.Purchase
	if err := r.db.GetContext(ctx, &purchase, query, id); err != nil {
		return nil, translateReadError(err)
	}
	return &purchase, nil
}

// List returns ledger rows joined with the buyer, newest first, plus the total count.
func (r *PurchaseRepository) List(ctx context.Context, filter models.PurchaseFilter) ([]models.PurchaseWithBuyer, int, error) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 2)
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("p.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("p.user_id = $%d", len(args)))
	}

	base := " FROM purchases p JOIN users u ON u.id = p.user_id"
	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT p.id, p.user_id, p.item_type, p.item_id, p.amount, p.currency, p.provider, p.status,
p.transaction_ref, p.payment_proof_url, p.reviewed_by, p.reviewed_at, p.review_note, p.created_at,
u.name AS buyer_name, u.email AS buyer_email%s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, base, pageSize, offset)

	var rows []models.PurchaseWithBuyer
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}
	return rows, total, nil
}

// ListByUser returns a learner's purchase history, newest first.
func (r *PurchaseRepository) ListByUser(ctx context.Context, userID string) ([]models.Purchase, error) {
	query := "SELECT " + purchaseColumns + " FROM purchases WHERE user_id = $1 ORDER BY created_at DESC"
	var purchases []models.Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, userID); err != nil {
		return nil, fmt.Errorf("list user purchases: %w", err)
	}
	return purchases, nil
}

// HasPending reports whether the user already has a PENDING purchase for ref.
func (r *PurchaseRepository) HasPending(ctx context.Context, userID string, ref models.ContentRef) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id = $1 AND item_type = $2 AND item_id = $3 AND status = 'PENDING')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, ref.Type(), ref.ID()); err != nil {
		return false, fmt.Errorf("check pending purchase: %w", err)
	}
	return exists, nil
}

// PendingStats summarises the review queue: total pending and those created before cutoff.
func (r *PurchaseRepository) PendingStats(ctx context.Context, cutoff time.Time) (models.PendingStats, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE created_at < $1) AS stale, MIN(created_at) AS oldest
FROM purchases WHERE status = 'PENDING'`
	var stats models.PendingStats
	if err := r.db.GetContext(ctx, &stats, query, cutoff); err != nil {
		return models.PendingStats{}, fmt.Errorf("pending purchase stats: %w", err)
	}
	return stats, nil
}

// Settle moves a PENDING purchase to params.To and, when params.Grant is set,
// inserts the access grant in the same transaction. The purchase row is locked
// first so concurrent reviews serialise; the loser gets ErrPurchaseSettled.
func (r *PurchaseRepository) Settle(ctx context.Context, params models.SettlePurchaseParams) (purchase *models.Purchase, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settle purchase tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Purchase
	lockQuery := "SELECT " + purchaseColumns + " FROM purchases WHERE id = $1 FOR UPDATE"
	if err = tx.GetContext(ctx, &current, lockQuery, params.PurchaseID); err != nil {
		if err = translateReadError(err); errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock purchase: %w", err)
	}
	if !models.CanTransitionPurchase(current.Status, params.To) {
		err = ErrPurchaseSettled
		return nil, err
	}

	reviewedAt := params.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = time.Now().UTC()
	}
	const updateQuery = `UPDATE purchases SET status = $2, reviewed_by = $3, reviewed_at = $4, review_note = $5
WHERE id = $1 AND status = 'PENDING'`
	result, err := tx.ExecContext(ctx, updateQuery, params.PurchaseID, params.To, params.ReviewerID, reviewedAt, params.Note)
	if err != nil {
		return nil, fmt.Errorf("update purchase status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check purchase update rows: %w", err)
	}
	if rows == 0 {
		err = ErrPurchaseSettled
		return nil, err
	}

	if params.Grant != nil {
		grant := params.Grant
		if grant.ID == "" {
			grant.ID = uuid.NewString()
		}
		if grant.CreatedAt.IsZero() {
			grant.CreatedAt = reviewedAt
		}
		grant.UserID = current.UserID
		grant.ItemType = current.ItemType
		grant.ItemID = current.ItemID
		purchaseID := current.ID
		grant.PurchaseID = &purchaseID
		if _, err = tx.NamedExecContext(ctx, insertGrantQuery, grant); err != nil {
			return nil, fmt.Errorf("insert access grant: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settle purchase: %w", err)
	}

	current.Status = params.To
	reviewer := params.ReviewerID
	current.ReviewedBy = &reviewer
	current.ReviewedAt = &reviewedAt
	current.ReviewNote = params.Note
	return &current, nil
}
