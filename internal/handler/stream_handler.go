package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-market-api/internal/service"
	"github.com/noah-isme/course-market-api/pkg/response"
)

// StreamHandler is the only route that ever returns a video reference.
type StreamHandler struct {
	stream *service.StreamService
}

// NewStreamHandler constructs the handler.
func NewStreamHandler(stream *service.StreamService) *StreamHandler {
	return &StreamHandler{stream: stream}
}

// Stream godoc
// @Summary Resolve the playable video for an episode
// @Tags Streaming
// @Produce json
// @Param id path string true "Episode ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope "payment required or pending approval"
// @Failure 404 {object} response.Envelope
// @Router /episodes/{id}/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	grant, err := h.stream.Authorize(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}
