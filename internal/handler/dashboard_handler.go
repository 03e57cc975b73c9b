package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-market-api/internal/service"
	"github.com/noah-isme/course-market-api/pkg/response"
)

// DashboardHandler serves the learner's own view of the catalog.
type DashboardHandler struct {
	access *service.AccessService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(access *service.AccessService) *DashboardHandler {
	return &DashboardHandler{access: access}
}

// Courses godoc
// @Summary Courses the caller holds any grant in
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/courses [get]
func (h *DashboardHandler) Courses(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	courses, err := h.access.ListOwnedCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Course godoc
// @Summary Course tree annotated with the caller's access
// @Description Every season and episode carries isUnlocked and accessStatus (UNLOCKED, PENDING_APPROVAL, LOCKED).
// @Tags Dashboard
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboard/courses/{id} [get]
func (h *DashboardHandler) Course(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.access.ComputeCourseAccessView(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
