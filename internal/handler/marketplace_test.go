package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/internal/service"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := t[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type marketplace struct {
	router *gin.Engine
	store  *marketStore
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMarketStore()
	metrics := service.NewMetricsService()
	access := service.NewAccessService(store, store, metrics, nil)
	purchases := service.NewPurchaseService(store, marketGrants{store}, store, metrics, nil, nil, nil, service.PurchaseConfig{})
	exports := service.NewExportService(store, service.ExportConfig{}, nil, nil, nil)
	stream := service.NewStreamService(access, metrics, nil)

	r := gin.New()
	RegisterRoutes(r, Handlers{
		Purchases: NewPurchaseHandler(purchases, exports),
		Stream:    NewStreamHandler(stream),
		Dashboard: NewDashboardHandler(access),
		Metrics:   NewMetricsHandler(metrics, nil),
	}, RouteConfig{
		APIPrefix: "/api/v1",
		Tokens: tokenTable{
			"learner-token": {UserID: "user-1", Role: models.RoleLearner, Email: "user@example.com"},
			"admin-token":   {UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@example.com"},
		},
	})
	return &marketplace{router: r, store: store}
}

func (m *marketplace) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	m.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func episodeStatus(t *testing.T, raw json.RawMessage, episodeID string) (bool, models.AccessStatus) {
	t.Helper()
	var view struct {
		Seasons []struct {
			IsUnlocked   bool                `json:"isUnlocked"`
			AccessStatus models.AccessStatus `json:"accessStatus"`
			Episodes     []struct {
				ID           string              `json:"id"`
				IsUnlocked   bool                `json:"isUnlocked"`
				AccessStatus models.AccessStatus `json:"accessStatus"`
			} `json:"episodes"`
		} `json:"seasons"`
	}
	require.NoError(t, json.Unmarshal(raw, &view))
	for _, season := range view.Seasons {
		for _, ep := range season.Episodes {
			if ep.ID == episodeID {
				return ep.IsUnlocked, ep.AccessStatus
			}
		}
	}
	t.Fatalf("episode %s not in view", episodeID)
	return false, ""
}

func TestSeasonPurchaseApprovalScenario(t *testing.T) {
	m := newMarketplace(t)

	rec, _ := m.do(t, http.MethodGet, "/episodes/ep-2/stream", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := m.do(t, http.MethodGet, "/episodes/ep-1/stream", "learner-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "123456789")

	rec, _ = m.do(t, http.MethodGet, "/episodes/ep-2/stream", "learner-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = m.do(t, http.MethodPost, "/purchases", "learner-token", map[string]string{
		"itemType": "SEASON", "itemId": "season-1", "amount": "500", "transactionRef": "TX123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var purchase models.Purchase
	require.NoError(t, json.Unmarshal(env.Data, &purchase))
	assert.Equal(t, models.PurchaseStatusPending, purchase.Status)
	assert.Equal(t, 0, m.store.grantCount("user-1"))

	rec, _ = m.do(t, http.MethodGet, "/episodes/ep-2/stream", "learner-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = m.do(t, http.MethodGet, "/dashboard/courses/course-1", "learner-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unlocked, status := episodeStatus(t, env.Data, "ep-2")
	assert.False(t, unlocked)
	assert.Equal(t, models.AccessPendingApproval, status)
	assert.NotContains(t, string(env.Data), "987654321")

	rec, _ = m.do(t, http.MethodGet, "/admin/purchases", "learner-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = m.do(t, http.MethodGet, "/admin/purchases?status=PENDING", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []models.PurchaseWithBuyer
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, "TX123", queue[0].TransactionRef)
	assert.Equal(t, "user@example.com", queue[0].BuyerEmail)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)

	rec, env = m.do(t, http.MethodPost, "/admin/purchases/"+purchase.ID+"/approve", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &purchase))
	assert.Equal(t, models.PurchaseStatusPaid, purchase.Status)
	assert.Equal(t, 1, m.store.grantCount("user-1"))

	rec, env = m.do(t, http.MethodGet, "/episodes/ep-2/stream", "learner-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "987654321")

	rec, env = m.do(t, http.MethodGet, "/dashboard/courses/course-1", "learner-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unlocked, status = episodeStatus(t, env.Data, "ep-2")
	assert.True(t, unlocked)
	assert.Equal(t, models.AccessUnlocked, status)

	rec, env = m.do(t, http.MethodPost, "/admin/purchases/"+purchase.ID+"/approve", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrAlreadyProcessed.Code, env.Error.Code)
	assert.Equal(t, "purchase already processed", env.Error.Message)
	assert.Equal(t, 1, m.store.grantCount("user-1"))
}

func TestStreamDeniedBodyCarriesNoVideoRef(t *testing.T) {
	m := newMarketplace(t)

	rec, env := m.do(t, http.MethodGet, "/episodes/ep-2/stream", "learner-token", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "payment required or pending approval", env.Error.Message)
	assert.Nil(t, env.Data)
	assert.NotContains(t, rec.Body.String(), "videoRef")
	assert.NotContains(t, rec.Body.String(), "987654321")

	rec, _ = m.do(t, http.MethodGet, "/episodes/nope/stream", "learner-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurchaseInitiationErrors(t *testing.T) {
	m := newMarketplace(t)

	rec, _ := m.do(t, http.MethodPost, "/purchases", "", map[string]string{"itemType": "SEASON", "itemId": "season-1", "amount": "500", "transactionRef": "TX"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = m.do(t, http.MethodPost, "/purchases", "learner-token", map[string]string{"itemType": "SEASON", "itemId": "season-1", "amount": "500"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = m.do(t, http.MethodPost, "/purchases", "learner-token", map[string]string{"itemType": "EPISODE", "itemId": "missing", "amount": "150", "transactionRef": "TX"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRejectAndExport(t *testing.T) {
	m := newMarketplace(t)

	_, env := m.do(t, http.MethodPost, "/purchases", "learner-token", map[string]string{
		"itemType": "EPISODE", "itemId": "ep-2", "amount": "150", "transactionRef": "TX-REJ",
	})
	var purchase models.Purchase
	require.NoError(t, json.Unmarshal(env.Data, &purchase))

	rec, env := m.do(t, http.MethodPost, "/admin/purchases/"+purchase.ID+"/reject", "admin-token", map[string]string{"note": "reference not found"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &purchase))
	assert.Equal(t, models.PurchaseStatusFailed, purchase.Status)
	assert.Equal(t, 0, m.store.grantCount("user-1"))

	rec, _ = m.do(t, http.MethodPost, "/admin/purchases/missing/approve", "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = m.do(t, http.MethodGet, "/admin/purchases/export?format=csv", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "purchases_")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Body.String(), "TX-REJ")
}

func TestOpsEndpoints(t *testing.T) {
	m := newMarketplace(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	m.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	m.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")
}
