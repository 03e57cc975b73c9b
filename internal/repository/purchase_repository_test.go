package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-market-api/internal/models"
)

var purchaseRowColumns = []string{"id", "user_id", "item_type", "item_id", "amount", "currency", "provider", "status",
	"transaction_ref", "payment_proof_url", "reviewed_by", "reviewed_at", "review_note", "created_at"}

func pendingPurchaseRow(id string) *sqlmock.Rows {
	return sqlmock.NewRows(purchaseRowColumns).
		AddRow(id, "user-1", "SEASON", "season-1", "500", "ETB", "TELEBIRR", "PENDING", "TX1", nil, nil, nil, nil, time.Now())
}

func TestPurchaseRepositoryCreateForcesPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).WillReturnResult(sqlmock.NewResult(1, 1))

	purchase := &models.Purchase{UserID: "user-1", ItemType: models.ItemTypeSeason, ItemID: "season-1", Amount: "500", Status: models.PurchaseStatusPaid}
	require.NoError(t, repo.Create(context.Background(), purchase))
	assert.NotEmpty(t, purchase.ID)
	assert.Equal(t, models.PurchaseStatusPending, purchase.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositorySettleApprovesAndGrants(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM purchases WHERE id = $1 FOR UPDATE")).
		WithArgs("p-1").
		WillReturnRows(pendingPurchaseRow("p-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchases SET status = $2")).
		WithArgs("p-1", models.PurchaseStatusPaid, "admin-1", sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO access_grants")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	grant := &models.AccessGrant{GrantedBy: models.GrantedByAdmin}
	purchase, err := repo.Settle(context.Background(), models.SettlePurchaseParams{
		PurchaseID: "p-1",
		To:         models.PurchaseStatusPaid,
		ReviewerID: "admin-1",
		Grant:      grant,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusPaid, purchase.Status)
	assert.Equal(t, "user-1", grant.UserID)
	assert.Equal(t, models.ItemTypeSeason, grant.ItemType)
	assert.Equal(t, "season-1", grant.ItemID)
	require.NotNil(t, grant.PurchaseID)
	assert.Equal(t, "p-1", *grant.PurchaseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositorySettleRollsBackWhenGrantFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("p-1").
		WillReturnRows(pendingPurchaseRow("p-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchases SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO access_grants")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Settle(context.Background(), models.SettlePurchaseParams{
		PurchaseID: "p-1",
		To:         models.PurchaseStatusPaid,
		ReviewerID: "admin-1",
		Grant:      &models.AccessGrant{GrantedBy: models.GrantedByAdmin},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert access grant")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositorySettleRejectsNonPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	rows := sqlmock.NewRows(purchaseRowColumns).
		AddRow("p-1", "user-1", "SEASON", "season-1", "500", "ETB", "TELEBIRR", "PAID", "TX1", nil, "admin-1", time.Now(), nil, time.Now())
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("p-1").WillReturnRows(rows)
	mock.ExpectRollback()

	_, err := repo.Settle(context.Background(), models.SettlePurchaseParams{
		PurchaseID: "p-1",
		To:         models.PurchaseStatusPaid,
		ReviewerID: "admin-2",
		Grant:      &models.AccessGrant{GrantedBy: models.GrantedByAdmin},
	})
	assert.ErrorIs(t, err, ErrPurchaseSettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositorySettleLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("p-1").WillReturnRows(pendingPurchaseRow("p-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchases SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Settle(context.Background(), models.SettlePurchaseParams{
		PurchaseID: "p-1",
		To:         models.PurchaseStatusFailed,
		ReviewerID: "admin-1",
	})
	assert.ErrorIs(t, err, ErrPurchaseSettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositorySettleMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Settle(context.Background(), models.SettlePurchaseParams{PurchaseID: "nope", To: models.PurchaseStatusPaid})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositoryListJoinsBuyer(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	columns := append(append([]string{}, purchaseRowColumns...), "buyer_name", "buyer_email")
	rows := sqlmock.NewRows(columns).
		AddRow("p-1", "user-1", "EPISODE", "ep-2", "150", "ETB", "CBE_BIRR", "PENDING", "TX9", "proofs/abc.png", nil, nil, nil, time.Now(), "Demo", "user@example.com")
	mock.ExpectQuery(regexp.QuoteMeta("FROM purchases p JOIN users u ON u.id = p.user_id WHERE p.status IN ($1) ORDER BY p.created_at DESC LIMIT 50 OFFSET 0")).
		WithArgs(models.PurchaseStatusPending).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM purchases p JOIN users u ON u.id = p.user_id WHERE p.status IN ($1)")).
		WithArgs(models.PurchaseStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.PurchaseFilter{Statuses: []models.PurchaseStatus{models.PurchaseStatusPending}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "user@example.com", list[0].BuyerEmail)
	require.NotNil(t, list[0].PaymentProofURL)
	assert.Equal(t, "proofs/abc.png", *list[0].PaymentProofURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositoryHasPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM purchases")).
		WithArgs("user-1", models.ItemTypeEpisode, "ep-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasPending(context.Background(), "user-1", models.EpisodeRef("ep-2"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
