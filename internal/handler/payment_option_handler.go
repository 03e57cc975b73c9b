package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/service"
	"github.com/noah-isme/course-market-api/pkg/response"
)

// PaymentOptionHandler exposes the accounts learners pay into.
type PaymentOptionHandler struct {
	options *service.PaymentOptionService
}

// NewPaymentOptionHandler constructs the handler.
func NewPaymentOptionHandler(options *service.PaymentOptionService) *PaymentOptionHandler {
	return &PaymentOptionHandler{options: options}
}

// ListActive godoc
// @Summary Active payment options
// @Tags Payment Options
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payment-options [get]
func (h *PaymentOptionHandler) ListActive(c *gin.Context) {
	h.list(c, true)
}

// ListAll godoc
// @Summary All payment options including inactive ones
// @Tags Admin Payment Options
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/payment-options [get]
func (h *PaymentOptionHandler) ListAll(c *gin.Context) {
	h.list(c, false)
}

// Create godoc
// @Summary Create payment option
// @Tags Admin Payment Options
// @Accept json
// @Produce json
// @Param payload body dto.PaymentOptionRequest true "Payment option"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/payment-options [post]
func (h *PaymentOptionHandler) Create(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.PaymentOptionRequest
	if !bindJSON(c, &req, "invalid payment option payload") {
		return
	}
	option, err := h.options.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, option)
}

// Update godoc
// @Summary Update payment option
// @Tags Admin Payment Options
// @Accept json
// @Produce json
// @Param id path string true "Payment option ID"
// @Param payload body dto.PaymentOptionRequest true "Payment option"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/payment-options/{id} [patch]
func (h *PaymentOptionHandler) Update(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.PaymentOptionRequest
	if !bindJSON(c, &req, "invalid payment option payload") {
		return
	}
	option, err := h.options.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, option, nil)
}

// Delete godoc
// @Summary Delete payment option
// @Tags Admin Payment Options
// @Param id path string true "Payment option ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/payment-options/{id} [delete]
func (h *PaymentOptionHandler) Delete(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.options.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *PaymentOptionHandler) list(c *gin.Context, activeOnly bool) {
	options, err := h.options.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}
