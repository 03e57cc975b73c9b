package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/middleware"
	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/internal/service"
	"github.com/noah-isme/course-market-api/pkg/response"
)

// CatalogHandler serves the public catalog and its admin editing endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCategories godoc
// @Summary List categories
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil, middleware.ExtractMeta(c))
}

// ListCourses godoc
// @Summary List courses
// @Tags Catalog
// @Produce json
// @Param categoryId query string false "Category filter"
// @Param search query string false "Title search"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	filter := models.CourseFilter{CategoryID: c.Query("categoryId"), Search: c.Query("search")}
	courses, err := h.catalog.ListCourses(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, middleware.ExtractMeta(c))
}

// GetCourse godoc
// @Summary Course detail
// @Description Public course page with seasons and episodes. Video references are never included.
// @Tags Catalog
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{slug} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	detail, err := h.catalog.GetCourseDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil, middleware.ExtractMeta(c))
}

// AdminCourseTree godoc
// @Summary Course tree for editing
// @Tags Admin Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id} [get]
func (h *CatalogHandler) AdminCourseTree(c *gin.Context) {
	tree, err := h.catalog.GetCourseTree(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewAdminCourseTree(*tree), nil)
}

// CreateCategory godoc
// @Summary Create category
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CategoryRequest true "Category"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory godoc
// @Summary Update category
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body dto.CategoryRequest true "Category"
// @Success 200 {object} response.Envelope
// @Router /admin/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}
	category, err := h.catalog.UpdateCategory(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// DeleteCategory godoc
// @Summary Delete category
// @Tags Admin Catalog
// @Param id path string true "Category ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /admin/categories/{id} [delete]
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	h.delete(c, h.catalog.DeleteCategory)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Router /admin/courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// UpdateCourse godoc
// @Summary Update course
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CourseRequest true "Course"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{id} [put]
func (h *CatalogHandler) UpdateCourse(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.catalog.UpdateCourse(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// DeleteCourse godoc
// @Summary Delete course
// @Tags Admin Catalog
// @Param id path string true "Course ID"
// @Success 204
// @Router /admin/courses/{id} [delete]
func (h *CatalogHandler) DeleteCourse(c *gin.Context) {
	h.delete(c, h.catalog.DeleteCourse)
}

// CreateSeason godoc
// @Summary Add a season to a course
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.SeasonRequest true "Season"
// @Success 201 {object} response.Envelope
// @Router /admin/courses/{id}/seasons [post]
func (h *CatalogHandler) CreateSeason(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.SeasonRequest
	if !bindJSON(c, &req, "invalid season payload") {
		return
	}
	season, err := h.catalog.CreateSeason(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, season)
}

// UpdateSeason godoc
// @Summary Update season
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Param id path string true "Season ID"
// @Param payload body dto.SeasonRequest true "Season"
// @Success 200 {object} response.Envelope
// @Router /admin/seasons/{id} [put]
func (h *CatalogHandler) UpdateSeason(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.SeasonRequest
	if !bindJSON(c, &req, "invalid season payload") {
		return
	}
	season, err := h.catalog.UpdateSeason(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, season, nil)
}

// DeleteSeason godoc
// @Summary Delete season
// @Tags Admin Catalog
// @Param id path string true "Season ID"
// @Success 204
// @Router /admin/seasons/{id} [delete]
func (h *CatalogHandler) DeleteSeason(c *gin.Context) {
	h.delete(c, h.catalog.DeleteSeason)
}

// CreateEpisode godoc
// @Summary Add an episode to a season
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Param id path string true "Season ID"
// @Param payload body dto.EpisodeRequest true "Episode"
// @Success 201 {object} response.Envelope
// @Router /admin/seasons/{id}/episodes [post]
func (h *CatalogHandler) CreateEpisode(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.EpisodeRequest
	if !bindJSON(c, &req, "invalid episode payload") {
		return
	}
	episode, err := h.catalog.CreateEpisode(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.AdminEpisode{Episode: *episode, VideoProvider: episode.VideoProvider, VideoRef: episode.VideoRef})
}

// UpdateEpisode godoc
// @Summary Update episode
// @Tags Admin Catalog
// @Accept json
// @Produce json
// @Param id path string true "Episode ID"
// @Param payload body dto.EpisodeRequest true "Episode"
// @Success 200 {object} response.Envelope
// @Router /admin/episodes/{id} [put]
func (h *CatalogHandler) UpdateEpisode(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.EpisodeRequest
	if !bindJSON(c, &req, "invalid episode payload") {
		return
	}
	episode, err := h.catalog.UpdateEpisode(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.AdminEpisode{Episode: *episode, VideoProvider: episode.VideoProvider, VideoRef: episode.VideoRef}, nil)
}

// DeleteEpisode godoc
// @Summary Delete episode
// @Tags Admin Catalog
// @Param id path string true "Episode ID"
// @Success 204
// @Router /admin/episodes/{id} [delete]
func (h *CatalogHandler) DeleteEpisode(c *gin.Context) {
	h.delete(c, h.catalog.DeleteEpisode)
}

func (h *CatalogHandler) delete(c *gin.Context, remove func(ctx context.Context, id, actorID string) error) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	if err := remove(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
