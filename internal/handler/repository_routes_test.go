package handler

import (
	"net/http"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/internal/repository"
	"github.com/noah-isme/course-market-api/internal/service"
)

// newPostgresMarketplace wires the routes onto the Postgres repositories over
// sqlmock, so driver errors travel the same path they do in production.
func newPostgresMarketplace(t *testing.T) (*marketplace, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db := sqlx.NewDb(sqlDB, "postgres")

	catalogRepo := repository.NewCatalogRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	grantRepo := repository.NewAccessGrantRepository(db)
	metrics := service.NewMetricsService()
	access := service.NewAccessService(catalogRepo, grantRepo, metrics, nil)
	purchases := service.NewPurchaseService(purchaseRepo, grantRepo, catalogRepo, metrics, nil, nil, nil, service.PurchaseConfig{
		DefaultCurrency: "ETB",
		DefaultProvider: models.ProviderTelebirr,
	})

	r := gin.New()
	RegisterRoutes(r, Handlers{
		Purchases: NewPurchaseHandler(purchases, service.NewExportService(purchaseRepo, service.ExportConfig{}, nil, nil, nil)),
		Stream:    NewStreamHandler(service.NewStreamService(access, metrics, nil)),
		Dashboard: NewDashboardHandler(access),
		Metrics:   NewMetricsHandler(metrics, nil),
	}, RouteConfig{
		APIPrefix: "/api/v1",
		Tokens: tokenTable{
			"learner-token": {UserID: "5f0c1c8e-8d5e-4a55-9d1e-0f6f3f1f2a01", Role: models.RoleLearner},
			"admin-token":   {UserID: "5f0c1c8e-8d5e-4a55-9d1e-0f6f3f1f2a02", Role: models.RoleAdmin},
		},
	})
	return &marketplace{router: r}, mock
}

func malformedUUID(value string) error {
	return &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "` + value + `"`}
}

func TestStreamMalformedEpisodeID(t *testing.T) {
	m, mock := newPostgresMarketplace(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM episodes WHERE id = $1")).
		WithArgs("intro-video").
		WillReturnError(malformedUUID("intro-video"))

	rec, env := m.do(t, http.MethodGet, "/episodes/intro-video/stream", "learner-token", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	require.NotNil(t, env.Error)
	assert.Equal(t, "episode not found", env.Error.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitiatePurchaseMalformedItemID(t *testing.T) {
	m, mock := newPostgresMarketplace(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM seasons WHERE id = $1")).
		WithArgs("season-one").
		WillReturnError(malformedUUID("season-one"))

	rec, env := m.do(t, http.MethodPost, "/purchases", "learner-token", map[string]string{
		"itemType":       "SEASON",
		"itemId":         "season-one",
		"amount":         "500",
		"transactionRef": "TX-42",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	require.NotNil(t, env.Error)
	assert.Equal(t, "season not found", env.Error.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveMalformedPurchaseID(t *testing.T) {
	m, mock := newPostgresMarketplace(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM purchases WHERE id = $1 FOR UPDATE")).
		WithArgs("latest").
		WillReturnError(malformedUUID("latest"))
	mock.ExpectRollback()

	rec, env := m.do(t, http.MethodPost, "/admin/purchases/latest/approve", "admin-token", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	require.NotNil(t, env.Error)
	assert.Equal(t, "purchase not found", env.Error.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}
