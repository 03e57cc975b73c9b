package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-market-api/internal/middleware"
	"github.com/noah-isme/course-market-api/internal/models"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
	"github.com/noah-isme/course-market-api/pkg/response"
)

// currentUser returns the caller's claims or writes a 401 and reports false.
func currentUser(c *gin.Context) (*models.JWTClaims, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func requestMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}
