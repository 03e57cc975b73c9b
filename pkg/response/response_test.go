package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return c, rec
}

func TestErrorEnvelope(t *testing.T) {
	c, rec := newContext()

	Error(c, appErrors.Clone(appErrors.ErrPaymentRequired, ""))

	require.Equal(t, http.StatusForbidden, rec.Code)
	var env struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "payment required or pending approval", env.Error.Message)
	assert.NotContains(t, rec.Body.String(), `"data"`)
}

func TestAttachment(t *testing.T) {
	c, rec := newContext()

	Attachment(c, "purchases_20240101.csv", "text/csv", []byte("id,status\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="purchases_20240101.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "id,status\n", rec.Body.String())
}

func TestPrivate(t *testing.T) {
	c, rec := newContext()

	Private(c, "image/png", strings.NewReader("png-bytes"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "private, no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}
