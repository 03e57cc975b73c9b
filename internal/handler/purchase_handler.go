package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/internal/service"
	"github.com/noah-isme/course-market-api/pkg/response"
)

// PurchaseHandler exposes the purchase workflow to learners and reviewers.
type PurchaseHandler struct {
	purchases *service.PurchaseService
	exports   *service.ExportService
}

// NewPurchaseHandler constructs the handler.
func NewPurchaseHandler(purchases *service.PurchaseService, exports *service.ExportService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases, exports: exports}
}

// Initiate godoc
// @Summary Record a purchase attempt
// @Description Creates a PENDING purchase for a season or episode. No access is granted until an admin approves it.
// @Tags Purchases
// @Accept json
// @Produce json
// @Param payload body dto.InitiatePurchaseRequest true "Purchase"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /purchases [post]
func (h *PurchaseHandler) Initiate(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.InitiatePurchaseRequest
	if !bindJSON(c, &req, "invalid purchase payload") {
		return
	}

	purchase, err := h.purchases.InitiatePurchase(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, purchase)
}

// ListMine godoc
// @Summary Purchase history of the caller
// @Tags Purchases
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /purchases [get]
func (h *PurchaseHandler) ListMine(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	purchases, err := h.purchases.ListMyPurchases(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, purchases, nil)
}

// List godoc
// @Summary Purchase review queue
// @Tags Admin Purchases
// @Produce json
// @Param status query string false "Comma separated statuses, e.g. PENDING,PAID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/purchases [get]
func (h *PurchaseHandler) List(c *gin.Context) {
	query := dto.PurchaseQuery{
		Statuses: parseStatuses(c.Query("status")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 50),
	}
	rows, pagination, err := h.purchases.ListPurchases(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Approve godoc
// @Summary Approve a pending purchase
// @Description Marks the purchase PAID and grants access in one transaction.
// @Tags Admin Purchases
// @Produce json
// @Param id path string true "Purchase ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope "purchase already processed"
// @Failure 404 {object} response.Envelope
// @Router /admin/purchases/{id}/approve [post]
func (h *PurchaseHandler) Approve(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	purchase, err := h.purchases.ApprovePurchase(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, purchase, nil)
}

// Reject godoc
// @Summary Reject a pending purchase
// @Tags Admin Purchases
// @Accept json
// @Produce json
// @Param id path string true "Purchase ID"
// @Param payload body dto.ReviewPurchaseRequest false "Review note"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/purchases/{id}/reject [post]
func (h *PurchaseHandler) Reject(c *gin.Context) {
	h.review(c, h.purchases.RejectPurchase)
}

// Refund godoc
// @Summary Refund a pending purchase
// @Tags Admin Purchases
// @Accept json
// @Produce json
// @Param id path string true "Purchase ID"
// @Param payload body dto.ReviewPurchaseRequest false "Review note"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/purchases/{id}/refund [post]
func (h *PurchaseHandler) Refund(c *gin.Context) {
	h.review(c, h.purchases.RefundPurchase)
}

// Export godoc
// @Summary Download the purchase ledger
// @Tags Admin Purchases
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param status query string false "Comma separated statuses"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/purchases/export [get]
func (h *PurchaseHandler) Export(c *gin.Context) {
	result, err := h.exports.ExportPurchases(c.Request.Context(), parseStatuses(c.Query("status")), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}

// Grant godoc
// @Summary Grant access manually
// @Tags Admin Grants
// @Accept json
// @Produce json
// @Param payload body dto.GrantAccessRequest true "Grant"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/grants [post]
func (h *PurchaseHandler) Grant(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.GrantAccessRequest
	if !bindJSON(c, &req, "invalid grant payload") {
		return
	}
	grant, err := h.purchases.GrantAccess(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grant)
}

// RevokeGrant godoc
// @Summary Revoke an access grant
// @Tags Admin Grants
// @Param id path string true "Grant ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/grants/{id} [delete]
func (h *PurchaseHandler) RevokeGrant(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.purchases.RevokeGrant(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UserGrants godoc
// @Summary List a user's grants
// @Tags Admin Grants
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /admin/users/{id}/grants [get]
func (h *PurchaseHandler) UserGrants(c *gin.Context) {
	grants, err := h.purchases.ListUserGrants(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grants, nil)
}

func (h *PurchaseHandler) review(c *gin.Context, settle func(ctx context.Context, purchaseID, adminID, note string) (*models.Purchase, error)) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.ReviewPurchaseRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "invalid review payload") {
		return
	}
	purchase, err := settle(c.Request.Context(), c.Param("id"), claims.UserID, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, purchase, nil)
}

func parseStatuses(raw string) []models.PurchaseStatus {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var statuses []models.PurchaseStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			statuses = append(statuses, models.PurchaseStatus(part))
		}
	}
	return statuses
}
